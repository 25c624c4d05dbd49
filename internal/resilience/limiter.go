package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter rate-limits calls to one provider, generalizing the
// teacher's hand-rolled infra/limits.PerKeyLimiter into a token-bucket
// limiter backed by golang.org/x/time/rate.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter builds a Limiter allowing ratePerSecond sustained calls
// with a burst of int(ratePerSecond)+1, so even a rate below one call
// per second admits one call at once.
func NewLimiter(ratePerSecond float64) *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(ratePerSecond), int(ratePerSecond)+1)}
}

// Wait blocks until the limiter admits one call or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
