package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Cache stores JSON-serialized payloads in Redis. All operations fail open;
// none of them return an error to the caller.
type Cache struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// New creates a cache backed by the given Redis client.
func New(redisClient *redis.Client) *Cache {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Cache{
		redis:  redisClient,
		logger: log.With().Str("component", "cache").Logger(),
	}
}

// Get unmarshals the entry for key into dest and reports whether it was
// found. Store errors and corrupt payloads count as misses; corrupt entries
// are deleted so the next write starts clean.
func (c *Cache) Get(ctx context.Context, key Key, dest any) bool {
	cacheKey := key.String()

	data, err := c.redis.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			CacheMisses.Inc()
			return false
		}
		CacheErrors.WithLabelValues("get").Inc()
		c.logger.Warn().Err(err).Str("key", cacheKey).Msg("Cache get failed, treating as miss")
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		c.logger.Warn().Err(err).Str("key", cacheKey).Msg("Corrupt cache entry, treating as miss")
		_ = c.redis.Del(ctx, cacheKey).Err()
		return false
	}

	CacheHits.WithLabelValues("redis").Inc()
	c.logger.Debug().Str("key", cacheKey).Msg("Cache hit")
	return true
}

// Set stores value under key with the given TTL. ttl=0 stores without
// expiry (manual invalidation only). Failures are absorbed: a cache write
// must never break the caller's success path.
func (c *Cache) Set(ctx context.Context, key Key, value any, ttl time.Duration) {
	cacheKey := key.String()

	data, err := json.Marshal(value)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", cacheKey).Msg("Failed to marshal cache entry")
		return
	}

	if err := c.redis.Set(ctx, cacheKey, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		c.logger.Warn().Err(err).Str("key", cacheKey).Msg("Cache set failed")
		return
	}

	c.logger.Debug().Str("key", cacheKey).Dur("ttl", ttl).Msg("Cached entry")
}

// Delete removes the entry for key.
func (c *Cache) Delete(ctx context.Context, key Key) {
	cacheKey := key.String()

	if err := c.redis.Del(ctx, cacheKey).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		c.logger.Warn().Err(err).Str("key", cacheKey).Msg("Cache delete failed")
	}
}

// DeletePattern removes every key matching the glob pattern. Keys are
// enumerated with SCAN, not KEYS, to avoid stalling Redis on large keyspaces.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) {
	var keys []string

	iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		c.logger.Warn().Err(err).Str("pattern", pattern).Msg("Cache pattern scan failed")
		return
	}

	if len(keys) == 0 {
		return
	}

	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		c.logger.Warn().Err(err).Str("pattern", pattern).Msg("Cache pattern delete failed")
		return
	}

	c.logger.Debug().Str("pattern", pattern).Int("deleted", len(keys)).Msg("Invalidated cache entries")
}
