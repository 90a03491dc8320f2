package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/yourusername/sonova-go/internal/domain"
	"github.com/yourusername/sonova-go/internal/infrastructure"
)

const maxRedirects = 5

// relayedHeaders are copied verbatim from the origin when present
var relayedHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
	"Cache-Control",
}

// StreamRequest describes one proxied fetch
type StreamRequest struct {
	Method    string // GET or HEAD, empty means GET
	TargetURL string
	Range     string // Inbound Range header, forwarded unchanged
	Download  bool   // Adds Content-Disposition: attachment
	Filename  string
}

// ProxiedStream is an open origin response ready to be piped to the caller.
// The caller must close Body.
type ProxiedStream struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// ContentLength returns the relayed length, -1 when unknown
func (s *ProxiedStream) ContentLength() int64 {
	if v := s.Header.Get("Content-Length"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return -1
}

// MediaProxy streams media from allow-listed origins, preserving range semantics
type MediaProxy struct {
	origins *domain.AllowedOriginSet
	client  *http.Client
	config  *domain.ProxyConfig
	metrics *infrastructure.Metrics
	logger  *zap.Logger
	abuse   *zap.Logger
}

// NewMediaProxy creates a new media proxy. Redirects are only followed to allow-listed hosts.
func NewMediaProxy(
	origins *domain.AllowedOriginSet,
	client *http.Client,
	config *domain.ProxyConfig,
	metrics *infrastructure.Metrics,
	logger *zap.Logger,
	abuse *zap.Logger,
) *MediaProxy {
	if client == nil {
		client = infrastructure.NewHTTPClient(0, config.ResponseTimeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if abuse == nil {
		abuse = logger
	}

	guarded := *client
	guarded.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		if !origins.Allows(req.URL.Hostname()) {
			return &domain.DisallowedOriginError{Host: req.URL.Hostname()}
		}
		return nil
	}

	return &MediaProxy{
		origins: origins,
		client:  &guarded,
		config:  config,
		metrics: metrics,
		logger:  logger,
		abuse:   abuse,
	}
}

// Open validates the target and starts the origin fetch.
// Disallowed targets fail with *domain.DisallowedOriginError before any network call.
func (p *MediaProxy) Open(ctx context.Context, req StreamRequest) (*ProxiedStream, error) {
	target, err := p.origins.Check(req.TargetURL)
	if err != nil {
		var disallowed *domain.DisallowedOriginError
		if errors.As(err, &disallowed) {
			p.metrics.ObserveProxy(infrastructure.OutcomeDisallow)
			p.abuse.Warn("Rejected proxy target",
				zap.String("host", disallowed.Host),
				zap.String("target", req.TargetURL))
		}
		return nil, err
	}

	method := http.MethodGet
	if req.Method == http.MethodHead {
		method = http.MethodHead
	}

	upstreamReq, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		return nil, &domain.UpstreamFetchFailedError{Message: "build request", Cause: err}
	}
	if req.Range != "" {
		upstreamReq.Header.Set("Range", req.Range)
	}
	if p.config.UserAgent != "" {
		upstreamReq.Header.Set("User-Agent", p.config.UserAgent)
	}
	upstreamReq.Header.Set("Accept", "*/*")

	resp, err := p.client.Do(upstreamReq)
	if err != nil {
		var disallowed *domain.DisallowedOriginError
		if errors.As(err, &disallowed) {
			p.metrics.ObserveProxy(infrastructure.OutcomeDisallow)
			p.abuse.Warn("Rejected proxy redirect",
				zap.String("host", disallowed.Host),
				zap.String("target", req.TargetURL))
			return nil, disallowed
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.metrics.ObserveProxy(infrastructure.OutcomeUpstream)
		return nil, &domain.UpstreamFetchFailedError{Cause: err}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		p.metrics.ObserveProxy(infrastructure.OutcomeUpstream)
		p.logger.Warn("Upstream returned non-success status",
			zap.String("host", target.Hostname()),
			zap.Int("status", resp.StatusCode))
		return nil, &domain.UpstreamFetchFailedError{StatusCode: resp.StatusCode, Message: string(snippet)}
	}

	header := make(http.Header)
	for _, name := range relayedHeaders {
		if v := resp.Header.Get(name); v != "" {
			header.Set(name, v)
		}
	}
	if header.Get("Content-Length") == "" && resp.ContentLength >= 0 {
		header.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}

	if req.Download {
		name := downloadFilename(req.Filename, target, header.Get("Content-Type"), p.config.DefaultFilename)
		header.Set("Content-Disposition", contentDisposition(name))
	}

	p.metrics.ObserveProxy(infrastructure.OutcomeSuccess)
	p.logger.Debug("Proxying media",
		zap.String("host", target.Hostname()),
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.String("range", req.Range),
		zap.Bool("download", req.Download))

	return &ProxiedStream{
		StatusCode: resp.StatusCode,
		Header:     header,
		Body:       &countingBody{ReadCloser: resp.Body, metrics: p.metrics},
	}, nil
}

// countingBody reports relayed bytes on Close
type countingBody struct {
	io.ReadCloser
	metrics *infrastructure.Metrics
	n       atomic.Int64
	closed  atomic.Bool
}

func (b *countingBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.n.Add(int64(n))
	return n, err
}

func (b *countingBody) Close() error {
	if b.closed.CompareAndSwap(false, true) {
		b.metrics.AddProxyBytes(b.n.Load())
	}
	return b.ReadCloser.Close()
}
