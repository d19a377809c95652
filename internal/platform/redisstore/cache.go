package redisstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crewboard/crewboard-api/internal/cache"
	"github.com/crewboard/crewboard-api/internal/platform/metrics"
)

// Cache implements cache.Cache on Redis. Read and write paths fail open:
// an unreachable Redis turns Get into a miss and Set/Delete into logged
// no-ops, so the request path falls back to the authoritative store instead
// of failing. SetIfAbsent and Increment return infrastructure errors,
// because their callers (dedup locks, counters) need to know the operation
// did not happen.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

var _ cache.Cache = (*Cache)(nil)

// NewCache creates a Cache over an existing client.
func NewCache(client *redis.Client, logger *slog.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

// Get returns the value at key, or a miss for absent keys and for any
// infrastructure failure.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache get degraded to miss", "key", key, "error", err)
		}
		metrics.CacheMisses.Inc()
		return nil, false, nil
	}
	metrics.CacheHits.Inc()
	return value, true, nil
}

// Set stores value under key for ttl. Failures are logged, not surfaced;
// the entry simply stays cold.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn("cache set dropped", "key", key, "error", err)
	}
	return nil
}

// Delete removes keys. Failures are logged, not surfaced; the TTL bounds
// how long a stale entry can outlive a failed invalidation.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("cache delete dropped", "keys", keys, "error", err)
	}
	return nil
}

// SetIfAbsent atomically creates key when missing.
func (c *Cache) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Increment atomically adds by to the counter at key.
func (c *Cache) Increment(ctx context.Context, key string, by int64) (int64, error) {
	value, err := c.client.IncrBy(ctx, key, by).Result()
	if err != nil {
		return 0, err
	}
	return value, nil
}
