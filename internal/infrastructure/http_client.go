package infrastructure

import (
	"net/http"
	"time"
)

// NewHTTPClient returns a client with a pooled transport tuned for many concurrent requests.
// timeout bounds the whole exchange; zero leaves it unbounded, which the media proxy needs for long bodies.
func NewHTTPClient(timeout time.Duration, responseHeaderTimeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(responseHeaderTimeout),
	}
}

func newTransport(responseHeaderTimeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 100
	t.MaxConnsPerHost = 200
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = responseHeaderTimeout
	t.ExpectContinueTimeout = 1 * time.Second
	// Media bodies are relayed byte-for-byte, so ask origins for identity encoding
	t.DisableCompression = true
	return t
}
