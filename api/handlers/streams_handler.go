package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/sonova-go/internal/domain"
)

// CatalogProvider builds the stream catalog for a media item
type CatalogProvider interface {
	Build(ctx context.Context, canonicalURL string) (*domain.StreamCatalog, error)
}

// StreamsHandler lists the options available for a media item
type StreamsHandler struct {
	catalog CatalogProvider
	logger  *zap.Logger
}

// NewStreamsHandler creates a new streams handler
func NewStreamsHandler(catalog CatalogProvider, logger *zap.Logger) *StreamsHandler {
	return &StreamsHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// Streams handles GET /api/v1/youtube/streams
func (h *StreamsHandler) Streams(c *gin.Context) {
	input := c.Query("url")
	if input == "" {
		input = c.Query("id")
	}
	if input == "" {
		respondError(c, h.logger, fmt.Errorf("%w: url or id is required", errBadRequest))
		return
	}

	catalog, err := h.catalog.Build(c.Request.Context(), input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, catalog)
}
