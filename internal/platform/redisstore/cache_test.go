package redisstore

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCache(client, logger), mr
}

// newDownCache returns a cache whose backing server is already gone.
func newDownCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewCache(client, logger)
}

func TestCacheSetGetDelete(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	value, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, c.Delete(ctx, "k"))

	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok, "deleted entry is an immediate miss")
}

func TestCacheEntriesExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheDeleteAbsentIsNoop(t *testing.T) {
	c, _ := newTestCache(t)
	assert.NoError(t, c.Delete(context.Background(), "nothing", "here"))
	assert.NoError(t, c.Delete(context.Background()))
}

func TestCacheSetIfAbsent(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	ok, err := c.SetIfAbsent(ctx, "lock", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetIfAbsent(ctx, "lock", []byte("1"), time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second claim loses")
}

func TestCacheIncrement(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	n, err := c.Increment(ctx, "views", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = c.Increment(ctx, "views", 5)
	require.NoError(t, err)
	assert.EqualValues(t, 6, n)
}

func TestCacheFailsOpenWhenDown(t *testing.T) {
	c := newDownCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "k")
	assert.NoError(t, err, "infrastructure failure degrades to a miss")
	assert.False(t, ok)

	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.NoError(t, c.Delete(ctx, "k"))
}

func TestCacheSurfacesErrorsForAtomicOps(t *testing.T) {
	c := newDownCache(t)
	ctx := context.Background()

	_, err := c.SetIfAbsent(ctx, "lock", []byte("1"), time.Minute)
	assert.Error(t, err, "dedup locks must know the write did not happen")

	_, err = c.Increment(ctx, "views", 1)
	assert.Error(t, err)
}
