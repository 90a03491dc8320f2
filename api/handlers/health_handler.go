package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// ReadinessChecker reports whether a dependency can serve requests
type ReadinessChecker interface {
	Configured() bool
}

// HealthHandler handles health check requests
type HealthHandler struct {
	worker ReadinessChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(worker ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		worker: worker,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Worker  struct {
		Configured bool `json:"configured"`
	} `json:"worker"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	response.Worker.Configured = h.worker != nil && h.worker.Configured()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.worker == nil || !h.worker.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "extraction worker not configured",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
