package client

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	doabRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doab_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	doabRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doab_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryPolicy is a bounded retry policy with a fixed delay between attempts.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// Delay is the wait between a retryable failure and the next attempt.
	Delay time.Duration

	// Retryable decides whether a failed attempt is retried. Nil retries nothing.
	Retryable func(error) bool
}

// DefaultRetryPolicy returns the upstream search policy: 3 attempts, 5s apart,
// retrying timeouts only.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       5 * time.Second,
		Retryable:   IsTimeout,
	}
}

// Retry runs fn until it succeeds, fails with a non-retryable error, or
// MaxAttempts is reached. fn receives the 1-based attempt number.
//
// Exhaustion returns an error wrapping both ErrRetryExhausted and the last
// attempt's error.
func Retry(ctx context.Context, policy RetryPolicy, fn func(attempt int) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		lastErr = err
		if policy.Retryable == nil || !policy.Retryable(err) {
			return err
		}

		if attempt >= maxAttempts {
			break
		}

		class := ClassOf(err)
		doabRetriesTotal.WithLabelValues(string(class)).Inc()
		log.Warn().
			Err(err).
			Str("error_class", string(class)).
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Dur("delay", policy.Delay).
			Msg("Retrying request after delay")

		timer := time.NewTimer(policy.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
		case <-timer.C:
		}
	}

	class := ClassOf(lastErr)
	doabRetryExhaustedTotal.WithLabelValues(string(class)).Inc()
	log.Error().
		Err(lastErr).
		Str("error_class", string(class)).
		Int("max_attempts", maxAttempts).
		Msg("Retry attempts exhausted")

	return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, maxAttempts, lastErr)
}
