package trends

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"

	"contentengine/internal/engine"
)

// RateLimited throttles calls to an expensive provider with a token bucket.
// When the caller's deadline is too close to wait for a token the lookup
// fails, which the engine reports as an empty trend list.
type RateLimited struct {
	next    Provider
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond lookups with the given burst.
func NewRateLimited(next Provider, perSecond float64, burst int) (*RateLimited, error) {
	if next == nil {
		return nil, errors.New("trends: rate limiter requires an upstream provider")
	}
	if perSecond <= 0 {
		return nil, fmt.Errorf("trends: rate must be positive (got %v)", perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}, nil
}

// Name reports the wrapped provider.
func (r *RateLimited) Name() string { return r.next.Name() }

// Lookup waits for a token and then delegates.
func (r *RateLimited) Lookup(ctx context.Context, keywords []string) ([]engine.TrendSignal, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("trends: rate limit %s: %w", r.next.Name(), err)
	}
	return r.next.Lookup(ctx, keywords)
}
