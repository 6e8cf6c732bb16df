package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for the failure budget.
var (
	doabUpstreamFailures = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "doab_upstream_failures",
		Help: "Consecutive exhausted-retry failures against the upstream",
	})

	doabUpstreamBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doab_upstream_blocks_total",
		Help: "Total number of requests refused while the upstream was blocked",
	})
)

// TrackerConfig configures the failure budget.
type TrackerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
	// StaleAfter discards a failure count below the threshold once no
	// failure was recorded for this long.
	StaleAfter time.Duration
}

// DefaultTrackerConfig returns the default failure budget.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		FailureThreshold: DefaultFailureThreshold,
		Cooldown:         DefaultCooldown,
		StaleAfter:       DefaultStaleAfter,
	}
}

// Tracker keeps the upstream failure budget in Redis.
type Tracker struct {
	redis  *redis.Client
	config TrackerConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewTracker creates a new failure budget tracker. Non-positive config values
// fall back to the defaults.
func NewTracker(redisClient *redis.Client, cfg TrackerConfig, logger zerolog.Logger) *Tracker {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	return &Tracker{
		redis:  redisClient,
		config: cfg,
		logger: logger,
		now:    time.Now,
	}
}

// GetState retrieves the current upstream state from Redis.
// Returns a zero (healthy) state if nothing is stored.
func (t *Tracker) GetState(ctx context.Context) (*UpstreamState, error) {
	failures, err := t.redis.Get(ctx, RedisKeyFailures).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get failures: %w", err)
	}

	blockedUntil, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get blocked until: %w", err)
	}

	lastUpdate, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	state := &UpstreamState{ConsecutiveFailures: failures}
	if blockedUntil > 0 {
		state.BlockedUntil = time.Unix(0, blockedUntil)
	}
	if lastUpdate > 0 {
		state.LastUpdate = time.Unix(0, lastUpdate)
	}
	return state, nil
}

// Allow reports whether a request may be sent to the upstream.
func (t *Tracker) Allow(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get upstream state: %w", err)
	}

	now := t.now()
	if state.IsBlocked(now) {
		doabUpstreamBlocksTotal.Inc()
		t.logger.Error().
			Int("consecutive_failures", state.ConsecutiveFailures).
			Dur("wait_duration", state.TimeUntilUnblock(now)).
			Msg("Upstream blocked - refusing request")
		return false, nil
	}

	if state.ConsecutiveFailures > 0 && state.IsStale(now, t.config.StaleAfter) {
		if err := t.redis.Del(ctx, RedisKeyFailures, RedisKeyBlockedUntil).Err(); err != nil {
			return true, fmt.Errorf("discard stale failures: %w", err)
		}
		doabUpstreamFailures.Set(0)
		t.logger.Info().
			Int("consecutive_failures", state.ConsecutiveFailures).
			Time("last_update", state.LastUpdate).
			Msg("Discarded stale upstream failure count")
	}

	return true, nil
}

// RecordFailure counts an exhausted-retry failure and blocks the upstream for
// the cooldown once the threshold is reached.
func (t *Tracker) RecordFailure(ctx context.Context) error {
	failures, err := t.redis.Incr(ctx, RedisKeyFailures).Result()
	if err != nil {
		return fmt.Errorf("increment failures: %w", err)
	}

	now := t.now()
	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyLastUpdate, now.UnixNano(), 0)

	blocked := failures >= int64(t.config.FailureThreshold)
	if blocked {
		pipe.Set(ctx, RedisKeyBlockedUntil, now.Add(t.config.Cooldown).UnixNano(), 0)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store upstream state in redis: %w", err)
	}

	doabUpstreamFailures.Set(float64(failures))

	if blocked {
		t.logger.Error().
			Int64("consecutive_failures", failures).
			Dur("cooldown", t.config.Cooldown).
			Msg("Upstream failure budget exhausted - blocking requests")
	} else {
		t.logger.Warn().
			Int64("consecutive_failures", failures).
			Int("threshold", t.config.FailureThreshold).
			Msg("Upstream failure recorded")
	}

	return nil
}

// RecordSuccess resets the failure budget.
func (t *Tracker) RecordSuccess(ctx context.Context) error {
	pipe := t.redis.Pipeline()
	pipe.Del(ctx, RedisKeyFailures, RedisKeyBlockedUntil)
	pipe.Set(ctx, RedisKeyLastUpdate, t.now().UnixNano(), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("reset upstream state in redis: %w", err)
	}

	doabUpstreamFailures.Set(0)
	return nil
}
