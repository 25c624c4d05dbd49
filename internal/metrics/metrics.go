// Package metrics exposes Prometheus collectors for one session run
// (SPEC_FULL "Observability"). Grounded on the teacher's
// internal/interfaces/http/metrics.go MetricsRegistry: one struct of
// named collectors, constructed once and registered with a
// prometheus.Registerer, with small Record*/Observe* helpers rather
// than letting callers touch prometheus types directly.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every collector the orchestrator and its providers
// report into.
type Registry struct {
	FeedsGeneratedTotal  *prometheus.CounterVec
	SessionDuration      prometheus.Histogram
	ProviderBreakerState *prometheus.GaugeVec
	UserFeedFailures     *prometheus.CounterVec
}

// New builds a Registry and registers every collector with reg.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		FeedsGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankfeed_feeds_generated_total",
				Help: "Total number of per-user feeds written, by condition.",
			},
			[]string{"condition"},
		),
		SessionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rankfeed_session_duration_seconds",
				Help:    "Wall-clock duration of one Orchestrator.Run call.",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
			},
		),
		ProviderBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "rankfeed_provider_breaker_state",
				Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open).",
			},
			[]string{"provider"},
		),
		UserFeedFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rankfeed_user_feed_failures_total",
				Help: "Per-user feed generation failures, by failure stage.",
			},
			[]string{"stage"},
		),
	}

	reg.MustRegister(r.FeedsGeneratedTotal, r.SessionDuration, r.ProviderBreakerState, r.UserFeedFailures)
	return r
}

// RecordFeedGenerated increments the per-condition feed counter.
func (r *Registry) RecordFeedGenerated(condition string) {
	r.FeedsGeneratedTotal.WithLabelValues(condition).Inc()
}

// RecordUserFeedFailure increments the per-stage failure counter.
func (r *Registry) RecordUserFeedFailure(stage string) {
	r.UserFeedFailures.WithLabelValues(stage).Inc()
}

// SetBreakerState records a gobreaker.State numeric value for provider.
func (r *Registry) SetBreakerState(provider string, state int) {
	r.ProviderBreakerState.WithLabelValues(provider).Set(float64(state))
}

// SessionTimer times one Orchestrator.Run call and records it into
// SessionDuration on Stop.
type SessionTimer struct {
	registry *Registry
	start    time.Time
}

// StartSessionTimer begins timing a session.
func (r *Registry) StartSessionTimer() *SessionTimer {
	return &SessionTimer{registry: r, start: time.Now()}
}

// Stop records the elapsed duration.
func (t *SessionTimer) Stop() {
	t.registry.SessionDuration.Observe(time.Since(t.start).Seconds())
}
