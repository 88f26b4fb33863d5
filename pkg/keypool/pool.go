// Package keypool manages an ordered pool of upstream API credentials with
// round-robin rotation and per-key cooldown after quota failures.
package keypool

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for key pool operations.
var (
	keypoolCooldownsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dota_keypool_cooldowns_total",
		Help: "Total number of keys placed on cooldown by service",
	}, []string{"service"})

	keypoolExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dota_keypool_exhausted_total",
		Help: "Total number of Next calls that found every key cooling down",
	}, []string{"service"})
)

// DefaultCooldown is applied when Cooldown is called with a non-positive
// duration. Matches the upstream quota reset cadence.
const DefaultCooldown = 10 * time.Minute

// Pool holds the credentials for one upstream service. Keys are kept in
// configuration order; Next rotates through them round-robin, skipping keys
// whose cooldown has not elapsed.
//
// The pool is in-process state only. It is rebuilt from configuration at
// startup and never persisted.
type Pool struct {
	service string
	logger  zerolog.Logger

	mu     sync.Mutex
	keys   []entry
	cursor int
}

type entry struct {
	secret        string
	cooldownUntil time.Time
}

// New creates a pool for the named service. Order of keys is preserved.
// An empty key list is valid and yields a permanently empty pool; callers
// should treat that service as disabled.
func New(service string, keys []string) *Pool {
	entries := make([]entry, len(keys))
	for i, k := range keys {
		entries[i] = entry{secret: k}
	}
	return &Pool{
		service: service,
		logger:  log.With().Str("component", "keypool").Str("service", service).Logger(),
		keys:    entries,
	}
}

// Next returns the next usable key in round-robin order, skipping keys that
// are cooling down, and advances the cursor past it. The second return is
// false when the pool is empty or every key is cooling down.
func (p *Pool) Next() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.keys)
	if n == 0 {
		return "", false
	}

	now := time.Now()
	for i := 0; i < n; i++ {
		idx := (p.cursor + i) % n
		if now.Before(p.keys[idx].cooldownUntil) {
			continue
		}
		p.cursor = (idx + 1) % n
		return p.keys[idx].secret, true
	}

	keypoolExhaustedTotal.WithLabelValues(p.service).Inc()
	p.logger.Warn().Int("pool_size", n).Msg("All keys cooling down")
	return "", false
}

// Cooldown suspends the given key until now+d. A key already cooling down
// has its deadline overwritten, not extended. Unknown keys are ignored.
func (p *Pool) Cooldown(key string, d time.Duration) {
	if d <= 0 {
		d = DefaultCooldown
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.keys {
		if p.keys[i].secret != key {
			continue
		}
		p.keys[i].cooldownUntil = time.Now().Add(d)
		keypoolCooldownsTotal.WithLabelValues(p.service).Inc()
		p.logger.Warn().
			Int("key_index", i).
			Dur("cooldown", d).
			Msg("Key placed on cooldown")
		return
	}
}

// Size returns the number of configured keys.
func (p *Pool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.keys)
}

// Empty reports whether the pool has no keys at all. Used by the
// orchestrator to short-circuit a disabled provider without taking the
// rotation path on every request.
func (p *Pool) Empty() bool {
	return p.Size() == 0
}
