// Package fetcher implements the multi-source resilience orchestrator: for
// each logical request it checks the response cache, then the primary
// provider behind its rate limiter and key pool, and cascades to the
// secondary provider on quota, rate-limit or any other failure. Callers
// never learn which provider answered.
package fetcher

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/perceforge/dotafetch/pkg/cache"
	"github.com/perceforge/dotafetch/pkg/keypool"
	"github.com/perceforge/dotafetch/pkg/provider"
	"github.com/perceforge/dotafetch/pkg/ratelimit"
)

// Resource names for the per-provider rate-limit budgets.
const (
	ResourcePrimary   = "stratz"
	ResourceSecondary = "opendota"
)

// Cache is the slice of the response cache the orchestrator consumes.
type Cache interface {
	Get(ctx context.Context, key cache.Key, dest any) bool
	Set(ctx context.Context, key cache.Key, value any, ttl time.Duration)
	Delete(ctx context.Context, key cache.Key)
	DeletePattern(ctx context.Context, pattern string)
}

// RateLimiter checks a fixed-window budget for a named resource.
type RateLimiter interface {
	Check(ctx context.Context, resource string, limit int, window time.Duration) ratelimit.Result
}

// KeyPool yields rotating credentials for the primary provider.
type KeyPool interface {
	Next() (string, bool)
	Cooldown(key string, d time.Duration)
	Empty() bool
}

// Primary is the authenticated, quota-limited provider. The token comes
// from the key pool per call.
type Primary interface {
	LastMatch(ctx context.Context, token, steamID string) (*provider.MatchRecord, error)
	Profile(ctx context.Context, token, steamID string) (*provider.Profile, error)
	History(ctx context.Context, token, steamID string, limit int) ([]provider.HistoryEntry, error)
}

// Secondary is the unauthenticated, best-effort fallback provider.
type Secondary interface {
	LastMatch(ctx context.Context, steamID string) (*provider.MatchRecord, error)
	Profile(ctx context.Context, steamID string) (*provider.Profile, error)
	History(ctx context.Context, steamID string, limit int) ([]provider.HistoryEntry, error)
}

// Config holds the orchestrator's dependencies and tuning knobs. All five
// dependencies are required; tests substitute fakes.
type Config struct {
	Cache     Cache
	Limiter   RateLimiter
	Keys      KeyPool
	Primary   Primary
	Secondary Secondary

	// PrimaryLimit and PrimaryWindow bound calls to the primary provider.
	PrimaryLimit  int
	PrimaryWindow time.Duration

	// SecondaryLimit and SecondaryWindow bound calls to the fallback. A
	// denial here is recorded but does not block the call: the fallback is
	// the last resort.
	SecondaryLimit  int
	SecondaryWindow time.Duration

	// KeyCooldown is how long a key sits out after a quota failure.
	KeyCooldown time.Duration

	// ProviderTimeout is the per-call deadline on upstream requests, so a
	// hung upstream cannot stall a request indefinitely.
	ProviderTimeout time.Duration

	// DefaultHistoryLimit is used when History is called with limit <= 0.
	DefaultHistoryLimit int
}

// DefaultConfig returns the production tuning: 90 primary calls and 50
// secondary calls per minute, 10 minute key cooldown, 5 second call
// deadline.
func DefaultConfig() Config {
	return Config{
		PrimaryLimit:        90,
		PrimaryWindow:       60 * time.Second,
		SecondaryLimit:      50,
		SecondaryWindow:     60 * time.Second,
		KeyCooldown:         keypool.DefaultCooldown,
		ProviderTimeout:     5 * time.Second,
		DefaultHistoryLimit: 25,
	}
}

// Fetcher is the resilience orchestrator.
type Fetcher struct {
	cfg    Config
	logger zerolog.Logger

	// primaryEnabled is fixed at construction: the pool is populated once
	// from configuration, so an empty pool means the primary provider is
	// disabled for the process lifetime and every request short-circuits
	// to the fallback.
	primaryEnabled bool

	// group collapses concurrent cache misses for the same key into one
	// upstream call.
	group singleflight.Group
}

// New creates a Fetcher after validating the configuration.
func New(cfg Config) (*Fetcher, error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("cache is required")
	}
	if cfg.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if cfg.Keys == nil {
		return nil, fmt.Errorf("key pool is required")
	}
	if cfg.Primary == nil {
		return nil, fmt.Errorf("primary provider is required")
	}
	if cfg.Secondary == nil {
		return nil, fmt.Errorf("secondary provider is required")
	}

	def := DefaultConfig()
	if cfg.PrimaryLimit <= 0 {
		cfg.PrimaryLimit = def.PrimaryLimit
	}
	if cfg.PrimaryWindow <= 0 {
		cfg.PrimaryWindow = def.PrimaryWindow
	}
	if cfg.SecondaryLimit <= 0 {
		cfg.SecondaryLimit = def.SecondaryLimit
	}
	if cfg.SecondaryWindow <= 0 {
		cfg.SecondaryWindow = def.SecondaryWindow
	}
	if cfg.KeyCooldown <= 0 {
		cfg.KeyCooldown = def.KeyCooldown
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = def.ProviderTimeout
	}
	if cfg.DefaultHistoryLimit <= 0 {
		cfg.DefaultHistoryLimit = def.DefaultHistoryLimit
	}

	return &Fetcher{
		cfg:            cfg,
		logger:         log.With().Str("component", "fetcher").Logger(),
		primaryEnabled: !cfg.Keys.Empty(),
	}, nil
}

// LastMatch returns the subject's most recent match.
func (f *Fetcher) LastMatch(ctx context.Context, steamID string) (*provider.MatchRecord, error) {
	key := cache.Key{Kind: cache.KindLastMatch, Subject: steamID}
	return fetch(ctx, f, key,
		func(ctx context.Context, token string) (*provider.MatchRecord, error) {
			return f.cfg.Primary.LastMatch(ctx, token, steamID)
		},
		func(ctx context.Context) (*provider.MatchRecord, error) {
			return f.cfg.Secondary.LastMatch(ctx, steamID)
		},
	)
}

// Profile returns the subject's profile.
func (f *Fetcher) Profile(ctx context.Context, steamID string) (*provider.Profile, error) {
	key := cache.Key{Kind: cache.KindProfile, Subject: steamID}
	return fetch(ctx, f, key,
		func(ctx context.Context, token string) (*provider.Profile, error) {
			return f.cfg.Primary.Profile(ctx, token, steamID)
		},
		func(ctx context.Context) (*provider.Profile, error) {
			return f.cfg.Secondary.Profile(ctx, steamID)
		},
	)
}

// History returns up to limit of the subject's recent matches, newest first.
func (f *Fetcher) History(ctx context.Context, steamID string, limit int) ([]provider.HistoryEntry, error) {
	if limit <= 0 {
		limit = f.cfg.DefaultHistoryLimit
	}
	key := cache.Key{Kind: cache.KindHistory, Subject: steamID, Qualifier: strconv.Itoa(limit)}
	return fetch(ctx, f, key,
		func(ctx context.Context, token string) ([]provider.HistoryEntry, error) {
			return f.cfg.Primary.History(ctx, token, steamID, limit)
		},
		func(ctx context.Context) ([]provider.HistoryEntry, error) {
			return f.cfg.Secondary.History(ctx, steamID, limit)
		},
	)
}

// Invalidate drops every cached entry for the subject. The next fetch of
// any kind goes back upstream.
func (f *Fetcher) Invalidate(ctx context.Context, steamID string) {
	f.cfg.Cache.Delete(ctx, cache.Key{Kind: cache.KindLastMatch, Subject: steamID})
	f.cfg.Cache.Delete(ctx, cache.Key{Kind: cache.KindProfile, Subject: steamID})
	f.cfg.Cache.DeletePattern(ctx, cache.SubjectPattern(cache.KindHistory, steamID))
	f.logger.Info().Str("subject", steamID).Msg("Invalidated cached entries")
}
