// Package ratelimit protects the upstream search API: a Pacer spaces
// outbound requests, and a Redis-backed Tracker keeps a failure budget shared
// by every proxy instance so a dead upstream is not hammered with
// minute-long timeouts.
package ratelimit

import (
	"time"
)

// Redis keys for upstream state storage.
const (
	RedisKeyFailures     = "doab:upstream:failures"
	RedisKeyBlockedUntil = "doab:upstream:blocked_until"
	RedisKeyLastUpdate   = "doab:upstream:last_update"
)

// Defaults for the failure budget.
const (
	// DefaultFailureThreshold is the number of consecutive exhausted-retry
	// failures after which the upstream is blocked.
	DefaultFailureThreshold = 3

	// DefaultCooldown is how long the upstream stays blocked.
	DefaultCooldown = 60 * time.Second

	// DefaultStaleAfter is how long an unblocked failure count survives
	// without a new failure.
	DefaultStaleAfter = 10 * time.Minute
)

// UpstreamState is the shared failure budget state.
type UpstreamState struct {
	// ConsecutiveFailures counts exhausted-retry failures since the last success.
	ConsecutiveFailures int `json:"consecutive_failures"`

	// BlockedUntil is zero unless the threshold was reached.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// IsBlocked reports whether requests must be refused at now.
func (s *UpstreamState) IsBlocked(now time.Time) bool {
	return !s.BlockedUntil.IsZero() && now.Before(s.BlockedUntil)
}

// TimeUntilUnblock returns the remaining block duration, 0 when not blocked.
func (s *UpstreamState) TimeUntilUnblock(now time.Time) time.Duration {
	if !s.IsBlocked(now) {
		return 0
	}
	return s.BlockedUntil.Sub(now)
}

// IsStale returns true if the state was last written more than maxAge before now.
func (s *UpstreamState) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(s.LastUpdate) > maxAge
}
