package fetcher

import (
	"context"
	"time"

	"github.com/perceforge/dotafetch/pkg/cache"
	"github.com/perceforge/dotafetch/pkg/provider"
)

// Fallback reasons recorded when a request cascades to the secondary.
const (
	reasonDisabled    = "primary_disabled"
	reasonRateLimited = "rate_limited"
	reasonNoKeys      = "no_keys"
	reasonQuota       = "quota"
	reasonNotFound    = "not_found"
	reasonError       = "error"
)

// fetch runs one logical request through the cascade. Concurrent misses
// for the same cache key share a single upstream call via singleflight.
//
// Each provider gets exactly one attempt, no retries: worst case is two
// network round trips, keeping latency bounded for interactive callers.
func fetch[T any](ctx context.Context, f *Fetcher, key cache.Key,
	primary func(ctx context.Context, token string) (T, error),
	secondary func(ctx context.Context) (T, error),
) (T, error) {
	kind := string(key.Kind)
	start := time.Now()
	defer func() {
		fetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	// Cache first: a warm cache must never consume quota or touch the
	// limiter.
	var cached T
	if f.cfg.Cache.Get(ctx, key, &cached) {
		fetchRequestsTotal.WithLabelValues(kind, "cache").Inc()
		return cached, nil
	}

	v, err, _ := f.group.Do(key.String(), func() (any, error) {
		return f.cascade(ctx, key, kind,
			func(ctx context.Context, token string) (any, error) { return primary(ctx, token) },
			func(ctx context.Context) (any, error) { return secondary(ctx) },
		)
	})
	if err != nil {
		fetchErrorsTotal.WithLabelValues(kind, string(provider.KindOf(err))).Inc()
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// cascade is the per-request state machine: primary enabled → primary rate
// check → key acquisition → primary call → cooldown on quota → secondary
// call. Terminal success always ends in a cache write; terminal failure
// propagates the secondary's error.
func (f *Fetcher) cascade(ctx context.Context, key cache.Key, kind string,
	primary func(ctx context.Context, token string) (any, error),
	secondary func(ctx context.Context) (any, error),
) (any, error) {
	reason := reasonDisabled

	if f.primaryEnabled {
		v, ok, r := f.tryPrimary(ctx, key, kind, primary)
		if ok {
			return v, nil
		}
		reason = r
	}

	fallbacksTotal.WithLabelValues(reason).Inc()
	f.logger.Debug().
		Str("key", key.String()).
		Str("reason", reason).
		Msg("Cascading to secondary provider")

	// The fallback is the last resort: a denial from its own limiter is
	// recorded for observability but does not block the call.
	res := f.cfg.Limiter.Check(ctx, ResourceSecondary, f.cfg.SecondaryLimit, f.cfg.SecondaryWindow)
	if !res.StoreReachable {
		f.logger.Warn().Str("resource", ResourceSecondary).Msg("Rate limit store unreachable, proceeding")
	} else if !res.Allowed {
		f.logger.Warn().
			Str("resource", ResourceSecondary).
			Dur("retry_after", res.RetryAfter).
			Msg("Secondary over budget, proceeding anyway")
	}

	cctx, cancel := context.WithTimeout(ctx, f.cfg.ProviderTimeout)
	v, err := secondary(cctx)
	cancel()
	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("key", key.String()).
			Msg("Secondary provider failed, surfacing error")
		return nil, err
	}

	f.store(ctx, key, v)
	fetchRequestsTotal.WithLabelValues(kind, "secondary").Inc()
	return v, nil
}

// tryPrimary attempts the single primary call. On failure it returns the
// cascade reason; a quota failure also puts the used key on cooldown.
func (f *Fetcher) tryPrimary(ctx context.Context, key cache.Key, kind string,
	primary func(ctx context.Context, token string) (any, error),
) (any, bool, string) {
	res := f.cfg.Limiter.Check(ctx, ResourcePrimary, f.cfg.PrimaryLimit, f.cfg.PrimaryWindow)
	if !res.StoreReachable {
		f.logger.Warn().Str("resource", ResourcePrimary).Msg("Rate limit store unreachable, proceeding")
	}
	if !res.Allowed {
		// No waiting or retrying: cascade immediately, bounded latency
		// beats maximizing primary usage.
		return nil, false, reasonRateLimited
	}

	token, ok := f.cfg.Keys.Next()
	if !ok {
		return nil, false, reasonNoKeys
	}

	cctx, cancel := context.WithTimeout(ctx, f.cfg.ProviderTimeout)
	v, err := primary(cctx, token)
	cancel()
	if err == nil {
		f.store(ctx, key, v)
		fetchRequestsTotal.WithLabelValues(kind, "primary").Inc()
		return v, true, ""
	}

	switch provider.KindOf(err) {
	case provider.KindQuota:
		f.cfg.Keys.Cooldown(token, f.cfg.KeyCooldown)
		f.logger.Warn().
			Err(err).
			Str("key", key.String()).
			Msg("Primary quota exceeded, key placed on cooldown")
		return nil, false, reasonQuota
	case provider.KindNotFound:
		// Not-found still cascades: the providers run independent data
		// pipelines, so absence at one does not imply absence at the other.
		return nil, false, reasonNotFound
	default:
		f.logger.Warn().
			Err(err).
			Str("key", key.String()).
			Msg("Primary provider failed")
		return nil, false, reasonError
	}
}

// store writes the normalized result with the kind's TTL. The context is
// detached from caller cancellation so a caller that gives up right after
// the upstream call completes still warms the cache for the next one.
func (f *Fetcher) store(ctx context.Context, key cache.Key, v any) {
	f.cfg.Cache.Set(context.WithoutCancel(ctx), key, v, key.Kind.TTL())
}
