// Package ratelimit implements a fixed-window call budget per named
// resource, backed by Redis counters. The limiter gates outbound provider
// calls; it never blocks or queues, and it fails open when Redis is
// unreachable so the application keeps answering.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for rate limit decisions.
var (
	rateLimitDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dota_rate_limit_denied_total",
		Help: "Total number of calls denied by the fixed-window limiter",
	}, []string{"resource"})

	rateLimitFailOpenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dota_rate_limit_fail_open_total",
		Help: "Total number of checks allowed because the backing store was unreachable",
	}, []string{"resource"})
)

// Result is the outcome of a limit check.
type Result struct {
	// Allowed reports whether the call may proceed.
	Allowed bool

	// Remaining is the budget left in the current window after this check.
	// Zero when denied.
	Remaining int

	// RetryAfter is the time until the current window expires. Only
	// meaningful when Allowed is false.
	RetryAfter time.Duration

	// StoreReachable is false when the check failed open because Redis was
	// unavailable. Callers should log the degradation.
	StoreReachable bool
}

// Limiter enforces fixed-window budgets using Redis INCR counters. The
// window counter expires with the window, so the reset at the window
// boundary happens via key expiry rather than an explicit reset.
type Limiter struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewLimiter creates a limiter backed by the given Redis client.
func NewLimiter(redisClient *redis.Client) *Limiter {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Limiter{
		redis:  redisClient,
		logger: log.With().Str("component", "ratelimit").Logger(),
	}
}

// Check increments the counter for resource in the current window and
// compares it against limit. The counter key embeds the window id, so
// concurrent increments from any process share one budget.
//
// When Redis is unreachable the check fails open: Allowed=true with
// StoreReachable=false. Availability is preferred over strict limiting
// when the limiter's own dependency is down.
func (l *Limiter) Check(ctx context.Context, resource string, limit int, window time.Duration) Result {
	now := time.Now()
	windowID := now.UnixNano() / int64(window)
	key := fmt.Sprintf("ratelimit:%s:%d", resource, windowID)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		rateLimitFailOpenTotal.WithLabelValues(resource).Inc()
		l.logger.Warn().
			Err(err).
			Str("resource", resource).
			Msg("Rate limit store unreachable, failing open")
		return Result{Allowed: true, Remaining: limit, StoreReachable: false}
	}

	// First increment of the window owns setting the expiry.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, window).Err(); err != nil {
			l.logger.Warn().
				Err(err).
				Str("resource", resource).
				Msg("Failed to set window expiry")
		}
	}

	windowEnd := time.Unix(0, (windowID+1)*int64(window))

	if count > int64(limit) {
		retryAfter := windowEnd.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		rateLimitDeniedTotal.WithLabelValues(resource).Inc()
		l.logger.Debug().
			Str("resource", resource).
			Int64("count", count).
			Int("limit", limit).
			Dur("retry_after", retryAfter).
			Msg("Rate limit exceeded")
		return Result{
			Allowed:        false,
			Remaining:      0,
			RetryAfter:     retryAfter,
			StoreReachable: true,
		}
	}

	return Result{
		Allowed:        true,
		Remaining:      limit - int(count),
		StoreReachable: true,
	}
}
