// Package cache provides the Redis-backed response cache for normalized
// provider data.
//
// Payloads are JSON-serialized and keyed by data kind plus subject id, with
// a per-kind TTL policy balancing freshness against upstream quota pressure:
//
//   - profile: 1 hour (profiles change slowly)
//   - last_match: 24 hours (a finished match is immutable)
//   - history: 30 minutes (new matches may appear)
//   - guild_config: no expiry (explicit invalidation only)
//
// The cache is a performance optimization, never a correctness requirement,
// so every operation fails open: Get treats store errors and corrupt
// payloads as misses, Set and Delete absorb store errors with a logged
// warning. A request path must never fail because Redis is down.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	c := cache.New(redisClient)
//
//	key := cache.Key{Kind: cache.KindLastMatch, Subject: "115431346"}
//
//	var match provider.MatchRecord
//	if c.Get(ctx, key, &match) {
//		// cache hit
//	}
//
//	c.Set(ctx, key, &match, key.Kind.TTL())
//
// # Metrics
//
// The cache exports Prometheus metrics:
//
//   - dota_cache_hits_total{layer="redis"} - Cache hits
//   - dota_cache_misses_total - Cache misses
//   - dota_cache_errors_total{operation} - Cache operation errors (fail-open)
package cache
