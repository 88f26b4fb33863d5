package cache

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the category of cached data. It determines the TTL policy.
type Kind string

const (
	// KindLastMatch caches a player's most recent match.
	KindLastMatch Kind = "last_match"

	// KindProfile caches a player profile.
	KindProfile Kind = "profile"

	// KindHistory caches a match-history listing.
	KindHistory Kind = "history"

	// KindGuildConfig caches per-guild configuration. Invalidated
	// explicitly, never by expiry.
	KindGuildConfig Kind = "guild_config"
)

// TTL returns the cache lifetime for the kind. Zero means no expiry.
func (k Kind) TTL() time.Duration {
	switch k {
	case KindLastMatch:
		// A finished match's stats are immutable.
		return 24 * time.Hour
	case KindProfile:
		return 1 * time.Hour
	case KindHistory:
		return 30 * time.Minute
	case KindGuildConfig:
		return 0
	default:
		return 30 * time.Minute
	}
}

// Key identifies a cache entry: data kind plus subject (Steam account id),
// with an optional qualifier for parameterized lookups such as a history
// listing's limit.
type Key struct {
	Kind      Kind
	Subject   string
	Qualifier string
}

// String generates the deterministic cache key string.
// Format: kind:subject[:qualifier]
//
// Example:
//
//	last_match:115431346
//	history:115431346:25
func (k Key) String() string {
	parts := []string{string(k.Kind), k.Subject}
	if k.Qualifier != "" {
		parts = append(parts, k.Qualifier)
	}
	return strings.Join(parts, ":")
}

// SubjectPattern returns the glob matching every qualified entry of this
// kind for one subject, e.g. "history:115431346:*". Used by invalidation.
func SubjectPattern(kind Kind, subject string) string {
	return fmt.Sprintf("%s:%s:*", kind, subject)
}
