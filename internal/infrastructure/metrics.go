package infrastructure

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yourusername/sonova-go/internal/domain"
)

// Outcome labels
const (
	OutcomeSuccess   = "success"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
	OutcomeTimedOut  = "timed_out"
	OutcomeExhausted = "exhausted"
	OutcomeCancelled = "cancelled"
	OutcomeDisallow  = "disallowed"
	OutcomeUpstream  = "upstream_failed"
	OutcomeError     = "error"
)

// Metrics holds the prometheus collectors for resolution and proxying.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	attempts    *prometheus.CounterVec
	resolutions *prometheus.CounterVec
	fallbacks   prometheus.Counter
	proxied     *prometheus.CounterVec
	proxyBytes  prometheus.Counter
}

// NewMetrics creates and registers the collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonova",
			Name:      "tier_attempts_total",
			Help:      "Extraction attempts per quality tier and outcome.",
		}, []string{"tier", "outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonova",
			Name:      "resolutions_total",
			Help:      "Completed resolutions by outcome.",
		}, []string{"outcome"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonova",
			Name:      "resolution_degraded_total",
			Help:      "Resolutions that succeeded at a lower tier than requested.",
		}),
		proxied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sonova",
			Name:      "proxy_requests_total",
			Help:      "Media proxy requests by outcome.",
		}, []string{"outcome"}),
		proxyBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sonova",
			Name:      "proxy_bytes_total",
			Help:      "Bytes relayed by the media proxy.",
		}),
	}

	reg.MustRegister(m.attempts, m.resolutions, m.fallbacks, m.proxied, m.proxyBytes)
	return m
}

// ObserveAttempt records one candidate tier attempt
func (m *Metrics) ObserveAttempt(tier domain.QualityTier, outcome string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(string(tier), outcome).Inc()
}

// ObserveResolution records the end of a resolve call
func (m *Metrics) ObserveResolution(outcome string, degraded bool) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
	if degraded {
		m.fallbacks.Inc()
	}
}

// ObserveProxy records the outcome of a proxy request
func (m *Metrics) ObserveProxy(outcome string) {
	if m == nil {
		return
	}
	m.proxied.WithLabelValues(outcome).Inc()
}

// AddProxyBytes adds relayed body bytes
func (m *Metrics) AddProxyBytes(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.proxyBytes.Add(float64(n))
}
