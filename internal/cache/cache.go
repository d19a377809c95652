// Package cache defines the key/value cache the request path and job
// handlers share, plus the invalidation rules that couple entity mutations
// to cache deletions. The cache is an optimization over the authoritative
// store, never a dependency for correctness: every operation degrades to a
// miss or no-op when the backing store is unreachable.
package cache

import (
	"context"
	"time"

	"github.com/crewboard/crewboard-api/internal/platform/logger"
)

// Cache is a TTL'd key/value store safe for concurrent use. Implementations
// must treat absence as a normal return, not an error, and must fail open:
// infrastructure errors surface as misses/no-ops so callers fall back to the
// authoritative store.
type Cache interface {
	// Get returns the value for key. ok is false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the given keys. Deleting absent keys is a no-op.
	Delete(ctx context.Context, keys ...string) error

	// SetIfAbsent atomically stores value only when key is absent and
	// reports whether the write happened. Used for simple locks and dedup.
	SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Increment atomically adds by to the integer at key, creating it at
	// zero first, and returns the new value.
	Increment(ctx context.Context, key string, by int64) (int64, error)
}

// GetOrCompute returns the cached value for key, or calls compute on a miss,
// stores the non-empty result for ttl and returns it. Cache failures on
// either side degrade to the compute result; the caller only sees compute's
// error.
func GetOrCompute(
	ctx context.Context,
	c Cache,
	key string,
	ttl time.Duration,
	compute func(ctx context.Context) ([]byte, error),
) ([]byte, error) {
	if value, ok, err := c.Get(ctx, key); err == nil && ok {
		return value, nil
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	if len(value) > 0 {
		if err := c.Set(ctx, key, value, ttl); err != nil {
			logger.FromContext(ctx).Warn("cache repopulation failed",
				"key", key,
				"error", err)
		}
	}

	return value, nil
}

// Noop is a Cache that stores nothing. It backs deployments that run
// without Redis and tests that want the always-miss path.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }

func (Noop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error { return nil }

func (Noop) Delete(ctx context.Context, keys ...string) error { return nil }

func (Noop) SetIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return false, nil
}

func (Noop) Increment(ctx context.Context, key string, by int64) (int64, error) { return 0, nil }
