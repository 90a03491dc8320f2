package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/sonova-go/internal/domain"
)

// Error codes returned in the "code" field of error bodies
const (
	CodeBadRequest        = "bad_request"
	CodeFormatUnavailable = "format_unavailable"
	CodeOriginNotAllowed  = "origin_not_allowed"
	CodeUpstreamFailed    = "upstream_failed"
	CodeMisconfigured     = "service_misconfigured"
	CodeTimeout           = "timeout"
	CodeInternal          = "internal"
)

// statusClientClosedRequest is used for logging when the caller went away
const statusClientClosedRequest = 499

var errBadRequest = errors.New("bad request")

// respondError maps the error taxonomy onto a status code and JSON body
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status, body := errorResponse(err)

	if status == statusClientClosedRequest {
		c.AbortWithStatus(status)
		return
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}

	c.AbortWithStatusJSON(status, body)
}

func errorResponse(err error) (int, gin.H) {
	body := gin.H{"error": err.Error()}

	var exhausted *domain.ResolutionExhaustedError
	var upstream *domain.UpstreamFetchFailedError

	switch {
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, nil

	case errors.Is(err, errBadRequest),
		errors.Is(err, domain.ErrInvalidTier),
		errors.Is(err, domain.ErrInvalidMediaURL):
		body["code"] = CodeBadRequest
		body["retryable"] = false
		return http.StatusBadRequest, body

	case errors.As(err, &exhausted):
		body["code"] = CodeFormatUnavailable
		body["retryable"] = false
		body["requested"] = exhausted.Requested.Label()
		body["attempted"] = exhausted.AttemptedTiers()
		if exhausted.LastMessage != "" {
			body["last_message"] = exhausted.LastMessage
		}
		return http.StatusUnprocessableEntity, body

	case errors.Is(err, domain.ErrDisallowedOrigin):
		body["code"] = CodeOriginNotAllowed
		body["retryable"] = false
		return http.StatusForbidden, body

	case errors.As(err, &upstream):
		body["code"] = CodeUpstreamFailed
		body["retryable"] = true
		if upstream.StatusCode != 0 {
			body["upstream_status"] = upstream.StatusCode
		}
		return http.StatusBadGateway, body

	case errors.Is(err, domain.ErrNotConfigured):
		body["code"] = CodeMisconfigured
		body["retryable"] = false
		return http.StatusServiceUnavailable, body

	case errors.Is(err, context.DeadlineExceeded):
		body["code"] = CodeTimeout
		body["retryable"] = true
		return http.StatusGatewayTimeout, body

	default:
		body["code"] = CodeInternal
		body["retryable"] = true
		return http.StatusInternalServerError, body
	}
}
