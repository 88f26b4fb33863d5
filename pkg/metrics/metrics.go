// Package metrics provides the centralized Prometheus metrics registry.
// All metrics are defined in their respective packages (fetcher, cache,
// ratelimit, keypool) to maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the fetch layer.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Fetch Metrics (pkg/fetcher):
//   - dota_fetch_requests_total{kind, source} (Counter): Requests by data kind and answering source (cache, primary, secondary)
//   - dota_fetch_duration_seconds{kind} (Histogram): End-to-end fetch duration by data kind
//   - dota_fetch_errors_total{kind, class} (Counter): Failed fetches by data kind and error class (quota, not_found, transient)
//   - dota_provider_fallbacks_total{reason} (Counter): Cascades to the secondary provider by reason
//
// Cache Metrics (pkg/cache):
//   - dota_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - dota_cache_misses_total (Counter): Cache misses
//   - dota_cache_errors_total{operation} (Counter): Cache operation errors by operation (get, set, delete)
//
// Rate Limit Metrics (pkg/ratelimit):
//   - dota_rate_limit_denied_total{resource} (Counter): Requests denied by the fixed-window limiter
//   - dota_rate_limit_fail_open_total{resource} (Counter): Checks allowed because the limiter store was unreachable
//
// Key Pool Metrics (pkg/keypool):
//   - dota_keypool_cooldowns_total{service} (Counter): Keys placed on cooldown
//   - dota_keypool_exhausted_total{service} (Counter): Rotations that found every key cooling
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(dota_cache_hits_total[5m])) /
//   (sum(rate(dota_cache_hits_total[5m])) + sum(rate(dota_cache_misses_total[5m])))
//
//   # Fallback Rate by Reason
//   rate(dota_provider_fallbacks_total[5m])
//
//   # Fetch Error Rate
//   rate(dota_fetch_errors_total[5m])
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(dota_fetch_duration_seconds_bucket[5m]))
