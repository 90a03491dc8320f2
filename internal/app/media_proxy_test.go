package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sonova-go/internal/domain"
)

// countingTransport fails the test's expectations if any request leaves the process
type countingTransport struct {
	calls atomic.Int32
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.calls.Add(1)
	return nil, errors.New("unexpected outbound request")
}

// clientFor routes every host name to srv so allow-listed names can be tested offline
func clientFor(srv *httptest.Server) *http.Client {
	addr := srv.Listener.Addr().String()
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
}

func testProxyConfig() *domain.ProxyConfig {
	return &domain.ProxyConfig{
		AllowedHosts:    []string{"video.cdn.example"},
		UserAgent:       "sonova-test",
		DefaultFilename: "video",
		ResponseTimeout: time.Second,
	}
}

func mediaServer(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	return recordingMediaServer(t, payload, nil)
}

// recordingMediaServer is mediaServer that also reports each request's method
func recordingMediaServer(t *testing.T, payload []byte, methods chan<- string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if methods != nil {
			methods <- r.Method
		}
		switch r.URL.Path {
		case "/v.mp4":
			w.Header().Set("Content-Type", "video/mp4")
			http.ServeContent(w, r, "v.mp4", time.Unix(0, 0), bytes.NewReader(payload))
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		case "/away":
			http.Redirect(w, r, "http://evil.example/steal", http.StatusFound)
		case "/hop":
			http.Redirect(w, r, "http://video.cdn.example/v.mp4", http.StatusFound)
		default:
			http.Error(w, "gone", http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpen_DisallowedHostMakesNoRequest(t *testing.T) {
	transport := &countingTransport{}
	config := testProxyConfig()
	proxy := NewMediaProxy(domain.NewAllowedOriginSet(config.AllowedHosts), &http.Client{Transport: transport}, config, nil, nil, nil)

	_, err := proxy.Open(context.Background(), StreamRequest{TargetURL: "https://evil.example/v.mp4"})

	var disallowed *domain.DisallowedOriginError
	require.True(t, errors.As(err, &disallowed))
	assert.Equal(t, "evil.example", disallowed.Host)
	assert.Equal(t, int32(0), transport.calls.Load())
}

func TestOpen_InvalidURL(t *testing.T) {
	transport := &countingTransport{}
	config := testProxyConfig()
	proxy := NewMediaProxy(domain.NewAllowedOriginSet(config.AllowedHosts), &http.Client{Transport: transport}, config, nil, nil, nil)

	_, err := proxy.Open(context.Background(), StreamRequest{TargetURL: "ftp://video.cdn.example/v.mp4"})

	assert.ErrorIs(t, err, domain.ErrInvalidMediaURL)
	assert.Equal(t, int32(0), transport.calls.Load())
}

func TestOpen_ForwardsRangeAndRelaysPartialContent(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 100)
	srv := mediaServer(t, payload)
	config := testProxyConfig()
	proxy := NewMediaProxy(domain.NewAllowedOriginSet(config.AllowedHosts), clientFor(srv), config, nil, nil, nil)

	stream, err := proxy.Open(context.Background(), StreamRequest{
		TargetURL: "http://video.cdn.example/v.mp4",
		Range:     "bytes=100-",
	})
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, http.StatusPartialContent, stream.StatusCode)
	assert.Equal(t, "bytes 100-999/1000", stream.Header.Get("Content-Range"))
	assert.Equal(t, "video/mp4", stream.Header.Get("Content-Type"))
	assert.Equal(t, int64(900), stream.ContentLength())
	assert.Empty(t, stream.Header.Get("Content-Disposition"))

	body, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Equal(t, payload[100:], body)
}

func TestOpen_FullContentWithoutRange(t *testing.T) {
	payload := []byte("hello media")
	srv := mediaServer(t, payload)
	config := testProxyConfig()
	proxy := NewMediaProxy(domain.NewAllowedOriginSet(config.AllowedHosts), clientFor(srv), config, nil, nil, nil)

	stream, err := proxy.Open(context.Background(), StreamRequest{TargetURL: "http://video.cdn.example/v.mp4"})
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, http.StatusOK, stream.StatusCode)
	assert.Equal(t, "bytes", stream.Header.Get("Accept-Ranges"))
	assert.Equal(t, int64(len(payload)), stream.ContentLength())
}

func TestOpen_ForcedDownload(t *testing.T) {
	srv := mediaServer(t, []byte("data"))
	config := testProxyConfig()
	proxy := NewMediaProxy(domain.NewAllowedOriginSet(config.AllowedHosts), clientFor(srv), config, nil, nil, nil)

	stream, err := proxy.Open(context.Background(), StreamRequest{
		TargetURL: "http://video.cdn.example/v.mp4",
		Download:  true,
		Filename:  "My Clip",
	})
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, `attachment; filename="My Clip.mp4"; filename*=UTF-8''My%20Clip.mp4`, stream.Header.Get("Content-Disposition"))
}

func TestOpen_UpstreamErrorStatus(t *testing.T) {
	srv := mediaServer(t, nil)
	config := testProxyConfig()
	proxy := NewMediaProxy(domain.NewAllowedOriginSet(config.AllowedHosts), clientFor(srv), config, nil, nil, nil)

	_, err := proxy.Open(context.Background(), StreamRequest{TargetURL: "http://video.cdn.example/missing.mp4"})

	var upstream *domain.UpstreamFetchFailedError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusNotFound, upstream.StatusCode)
}

func TestOpen_RedirectToDisallowedHostIsBlocked(t *testing.T) {
	srv := mediaServer(t, nil)
	config := testProxyConfig()
	proxy := NewMediaProxy(domain.NewAllowedOriginSet(config.AllowedHosts), clientFor(srv), config, nil, nil, nil)

	_, err := proxy.Open(context.Background(), StreamRequest{TargetURL: "http://video.cdn.example/away"})

	var disallowed *domain.DisallowedOriginError
	require.True(t, errors.As(err, &disallowed))
	assert.Equal(t, "evil.example", disallowed.Host)
}

func TestOpen_RedirectWithinAllowList(t *testing.T) {
	srv := mediaServer(t, []byte("abc"))
	config := testProxyConfig()
	proxy := NewMediaProxy(domain.NewAllowedOriginSet(config.AllowedHosts), clientFor(srv), config, nil, nil, nil)

	stream, err := proxy.Open(context.Background(), StreamRequest{TargetURL: "http://video.cdn.example/hop"})
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, http.StatusOK, stream.StatusCode)
}

func TestOpen_NoContentIsUpstreamFailure(t *testing.T) {
	srv := mediaServer(t, nil)
	config := testProxyConfig()
	proxy := NewMediaProxy(domain.NewAllowedOriginSet(config.AllowedHosts), clientFor(srv), config, nil, nil, nil)

	_, err := proxy.Open(context.Background(), StreamRequest{TargetURL: "http://video.cdn.example/empty"})

	var upstream *domain.UpstreamFetchFailedError
	require.True(t, errors.As(err, &upstream), "got %v", err)
	assert.Equal(t, http.StatusNoContent, upstream.StatusCode)
}

func TestOpen_HeadIsForwardedAsHead(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 64)
	methods := make(chan string, 1)
	srv := recordingMediaServer(t, payload, methods)
	config := testProxyConfig()
	proxy := NewMediaProxy(domain.NewAllowedOriginSet(config.AllowedHosts), clientFor(srv), config, nil, nil, nil)

	stream, err := proxy.Open(context.Background(), StreamRequest{
		Method:    http.MethodHead,
		TargetURL: "http://video.cdn.example/v.mp4",
	})
	require.NoError(t, err)
	defer stream.Body.Close()

	assert.Equal(t, http.MethodHead, <-methods)
	assert.Equal(t, http.StatusOK, stream.StatusCode)
	assert.Equal(t, int64(len(payload)), stream.ContentLength())

	body, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
}
