package resilience

import "context"

// Guard pairs a Breaker and Limiter for one provider dependency, the
// shape every provider call in internal/orchestrator is wrapped in.
type Guard struct {
	Breaker *Breaker
	Limiter *Limiter
}

// NewGuard builds a Guard with the standard breaker thresholds and the
// given sustained call rate.
func NewGuard(name string, ratePerSecond float64) *Guard {
	return &Guard{Breaker: NewBreaker(name), Limiter: NewLimiter(ratePerSecond)}
}

// Do rate-limits then breaker-wraps fn. A rate-limiter wait failure
// (ctx cancellation) is returned directly without touching the breaker,
// since it is not a provider failure.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	if err := g.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return g.Breaker.Execute(ctx, fn)
}
