package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/sonova-go/internal/app"
)

// StreamOpener opens an origin stream for a resolved media URL
type StreamOpener interface {
	Open(ctx context.Context, req app.StreamRequest) (*app.ProxiedStream, error)
}

// ProxyHandler handles media proxy requests
type ProxyHandler struct {
	proxy  StreamOpener
	logger *zap.Logger
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(proxy StreamOpener, logger *zap.Logger) *ProxyHandler {
	return &ProxyHandler{
		proxy:  proxy,
		logger: logger,
	}
}

// Stream handles GET/HEAD /api/v1/youtube/proxy
func (h *ProxyHandler) Stream(c *gin.Context) {
	target := c.Query("fileUrl")
	if target == "" {
		target = c.Query("mediaUrl")
	}
	if target == "" {
		respondError(c, h.logger, fmt.Errorf("%w: fileUrl is required", errBadRequest))
		return
	}

	req := app.StreamRequest{
		Method:    c.Request.Method,
		TargetURL: target,
		Range:     c.GetHeader("Range"),
		Download:  isTruthy(c.Query("download")),
		Filename:  c.Query("filename"),
	}

	stream, err := h.proxy.Open(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	writeStream(c, stream)
}

// Options answers CORS preflight for the proxy
func (h *ProxyHandler) Options(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// writeStream relays the origin status, headers and body to the caller
func writeStream(c *gin.Context, stream *app.ProxiedStream) {
	defer stream.Body.Close()

	contentType := stream.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	extra := make(map[string]string, len(stream.Header))
	for name := range stream.Header {
		if name == "Content-Type" || name == "Content-Length" {
			continue
		}
		extra[name] = stream.Header.Get(name)
	}

	if c.Request.Method == http.MethodHead {
		for name, value := range extra {
			c.Header(name, value)
		}
		c.Header("Content-Type", contentType)
		if n := stream.ContentLength(); n >= 0 {
			c.Header("Content-Length", strconv.FormatInt(n, 10))
		}
		c.Status(stream.StatusCode)
		return
	}

	c.DataFromReader(stream.StatusCode, stream.ContentLength(), contentType, stream.Body, extra)
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
