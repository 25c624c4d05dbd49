// Package resilience wraps every provider call in a circuit breaker
// and a rate limiter (spec §6, SPEC_FULL "Domain stack"). Grounded on
// the teacher's infra/breakers/breakers.go and infra/limits/*.go.
package resilience

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// Breaker wraps a named gobreaker.CircuitBreaker with a context-aware
// Execute, generalizing the teacher's fixed single-purpose
// breakers.Breaker into one constructor reused across every provider.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker builds a Breaker tripping after 3 consecutive failures, or
// a failure ratio above 5% once at least 20 requests have been seen —
// identical thresholds to the teacher's breakers.New.
func NewBreaker(name string) *Breaker {
	settings := gobreaker.Settings{
		Name:     name,
		Interval: 60 * time.Second,
		Timeout:  60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.ConsecutiveFailures >= 3 {
				return true
			}
			if counts.Requests < 20 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) > 0.05
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// State reports the breaker's current state, surfaced as the
// provider_breaker_state metric.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Execute runs fn through the breaker. Context cancellation is the
// caller's responsibility; fn should itself respect ctx.
func (b *Breaker) Execute(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	return b.cb.Execute(func() (any, error) {
		return fn(ctx)
	})
}
