package app

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/yourusername/sonova-go/internal/domain"
)

// Client-facing API paths
const (
	ResolvePath = "/api/v1/youtube/download"
	StreamsPath = "/api/v1/youtube/streams"
	ProxyPath   = "/api/v1/youtube/proxy"
)

// LinkBuilder builds client-callable links to this service's endpoints
type LinkBuilder struct {
	baseURL string
}

// NewLinkBuilder creates a link builder; an empty baseURL yields relative links
func NewLinkBuilder(baseURL string) *LinkBuilder {
	return &LinkBuilder{baseURL: strings.TrimRight(baseURL, "/")}
}

// Resolve links to the resolve endpoint for one tier
func (l *LinkBuilder) Resolve(canonicalURL string, tier domain.QualityTier, audioBitrate int) string {
	q := url.Values{}
	q.Set("url", canonicalURL)
	q.Set("format", string(tier))
	if audioBitrate > 0 {
		q.Set("audioQuality", strconv.Itoa(audioBitrate))
	}
	return l.baseURL + ResolvePath + "?" + q.Encode()
}

// Proxy links to the media proxy for a resolved direct URL
func (l *LinkBuilder) Proxy(directURL string) string {
	q := url.Values{}
	q.Set("fileUrl", directURL)
	return l.baseURL + ProxyPath + "?" + q.Encode()
}
