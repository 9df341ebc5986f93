package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Total int64  `json:"total"`
	Label string `json:"label"`
}

func newTestCache(t *testing.T) (*StatsCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStatsCache(client, time.Minute), mr
}

func TestStatsCache_StoreAndLoad(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var out sample
	assert.False(t, c.Load(ctx, "all", &out))

	c.Store(ctx, c.Generation(ctx), "all", sample{Total: 3, Label: "x"})
	require.True(t, c.Load(ctx, "all", &out))
	assert.Equal(t, sample{Total: 3, Label: "x"}, out)

	hits, misses := c.Counters()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestStatsCache_InvalidateDropsAllRanges(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	c.Store(ctx, c.Generation(ctx), "a", sample{Total: 1})
	c.Store(ctx, c.Generation(ctx), "b", sample{Total: 2})
	c.Invalidate(ctx)

	var out sample
	assert.False(t, c.Load(ctx, "a", &out))
	assert.False(t, c.Load(ctx, "b", &out))

	c.Store(ctx, c.Generation(ctx), "a", sample{Total: 5})
	require.True(t, c.Load(ctx, "a", &out))
	assert.Equal(t, int64(5), out.Total)
}

func TestStatsCache_TTL(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Store(ctx, c.Generation(ctx), "a", sample{Total: 1})
	mr.FastForward(2 * time.Minute)

	var out sample
	assert.False(t, c.Load(ctx, "a", &out))
}

func TestStatsCache_RedisDownIsMiss(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Store(ctx, c.Generation(ctx), "a", sample{Total: 1})
	mr.Close()

	var out sample
	assert.False(t, c.Load(ctx, "a", &out))
	c.Invalidate(ctx)
}

func TestStatsCache_StoreAfterInvalidateIsDropped(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	var out sample
	gen := c.Generation(ctx)
	assert.False(t, c.Load(ctx, "all", &out))

	c.Invalidate(ctx)
	c.Store(ctx, gen, "all", sample{Total: 1, Label: "old"})
	assert.False(t, c.Load(ctx, "all", &out))

	c.Store(ctx, c.Generation(ctx), "all", sample{Total: 2, Label: "new"})
	require.True(t, c.Load(ctx, "all", &out))
	assert.Equal(t, "new", out.Label)
}

func TestStatsCache_RedisDownGeneration(t *testing.T) {
	c, mr := newTestCache(t)
	mr.Close()
	assert.Equal(t, int64(-1), c.Generation(context.Background()))
}
