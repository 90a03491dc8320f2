package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/sonova-go/internal/app"
	"github.com/yourusername/sonova-go/internal/domain"
)

// Delivery modes for a resolved stream
const (
	DeliveryRedirect = "redirect"
	DeliveryJSON     = "json"
	DeliveryProxy    = "proxy"
)

const defaultQuality = "720"

// DownloadHandler resolves media at a requested quality
type DownloadHandler struct {
	resolver app.MediaResolver
	proxy    StreamOpener
	links    *app.LinkBuilder
	logger   *zap.Logger
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(resolver app.MediaResolver, proxy StreamOpener, links *app.LinkBuilder, logger *zap.Logger) *DownloadHandler {
	if links == nil {
		links = app.NewLinkBuilder("")
	}
	return &DownloadHandler{
		resolver: resolver,
		proxy:    proxy,
		links:    links,
		logger:   logger,
	}
}

// DownloadQuery represents the query string of a download request
type DownloadQuery struct {
	URL          string `form:"url"`
	ID           string `form:"id"`
	Format       string `form:"format"`
	AudioQuality string `form:"audioQuality"`
	Start        string `form:"start"`
	End          string `form:"end"`
	Fallback     string `form:"fallback"`
	Delivery     string `form:"delivery"`
	Filename     string `form:"filename"`
}

// DownloadResponse is returned for delivery=json
type DownloadResponse struct {
	*domain.ResolvedStream
	Requested string `json:"requested"`
	Degraded  bool   `json:"degraded"`
	ProxyURL  string `json:"proxy_url"`
}

// Download handles GET /api/v1/youtube/download
func (h *DownloadHandler) Download(c *gin.Context) {
	var query DownloadQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondError(c, h.logger, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	input := query.URL
	if input == "" {
		input = query.ID
	}
	if input == "" {
		respondError(c, h.logger, fmt.Errorf("%w: url or id is required", errBadRequest))
		return
	}

	canonical, _, err := domain.Canonicalize(input)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	format := query.Format
	if format == "" {
		format = defaultQuality
	}
	tier, err := domain.ParseQualityTier(format)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	opts, err := parseResolveOptions(query)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	delivery := strings.ToLower(query.Delivery)
	if delivery == "" {
		delivery = DeliveryRedirect
	}
	if delivery != DeliveryRedirect && delivery != DeliveryJSON && delivery != DeliveryProxy {
		respondError(c, h.logger, fmt.Errorf("%w: unknown delivery %q", errBadRequest, query.Delivery))
		return
	}

	stream, err := h.resolver.Resolve(c.Request.Context(), canonical, tier, opts)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	switch delivery {
	case DeliveryJSON:
		c.JSON(http.StatusOK, DownloadResponse{
			ResolvedStream: stream,
			Requested:      tier.Label(),
			Degraded:       stream.Tier != tier,
			ProxyURL:       h.links.Proxy(stream.DirectURL),
		})

	case DeliveryProxy:
		if h.proxy == nil {
			respondError(c, h.logger, fmt.Errorf("%w: media proxy", domain.ErrNotConfigured))
			return
		}
		proxied, err := h.proxy.Open(c.Request.Context(), app.StreamRequest{
			Method:    http.MethodGet,
			TargetURL: stream.DirectURL,
			Range:     c.GetHeader("Range"),
			Download:  true,
			Filename:  query.Filename,
		})
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		writeStream(c, proxied)

	default:
		c.Redirect(http.StatusFound, stream.DirectURL)
	}
}

func parseResolveOptions(query DownloadQuery) (domain.ResolveOptions, error) {
	opts := domain.DefaultResolveOptions()

	if query.Fallback != "" {
		enabled, err := strconv.ParseBool(query.Fallback)
		if err != nil {
			return opts, fmt.Errorf("%w: invalid fallback %q", errBadRequest, query.Fallback)
		}
		opts.FallbackEnabled = enabled
	}

	if query.AudioQuality != "" {
		bitrate, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(query.AudioQuality), "kbps"))
		if err != nil || bitrate <= 0 {
			return opts, fmt.Errorf("%w: invalid audioQuality %q", errBadRequest, query.AudioQuality)
		}
		opts.AudioBitrate = bitrate
	}

	start, err := parseSeconds("start", query.Start)
	if err != nil {
		return opts, err
	}
	end, err := parseSeconds("end", query.End)
	if err != nil {
		return opts, err
	}
	if start != nil && end != nil && *end <= *start {
		return opts, fmt.Errorf("%w: end must be after start", errBadRequest)
	}
	opts.ClipStart = start
	opts.ClipEnd = end

	return opts, nil
}

func parseSeconds(name, value string) (*float64, error) {
	if value == "" {
		return nil, nil
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return nil, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, value)
	}
	return &seconds, nil
}
