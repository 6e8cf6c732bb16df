package ratelimit

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Pacer spaces outbound requests to the upstream at a fixed rate.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer allowing requestsPerSecond with a burst of one.
// A non-positive rate disables pacing.
func NewPacer(requestsPerSecond float64) *Pacer {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Pacer{limiter: rate.NewLimiter(limit, 1)}
}

// Wait blocks until the next request may be sent or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for request slot: %w", err)
	}
	return nil
}

// Limit returns the configured requests per second.
func (p *Pacer) Limit() rate.Limit {
	return p.limiter.Limit()
}
