package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/venda-certa/pkg/logger"
)

// StatsCache caches order statistics per date range.
//
// Entries are keyed by a generation counter; Invalidate bumps the counter so
// every write to orders makes all cached ranges unreachable at once. Stale
// generations simply expire through their TTL.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string

	hits   atomic.Int64
	misses atomic.Int64
}

// NewStatsCache builds a cache on top of the given Redis client.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatsCache{client: client, ttl: ttl, prefix: "venda-certa:stats"}
}

func (c *StatsCache) genKey() string { return c.prefix + ":gen" }

func (c *StatsCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, c.genKey()).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

func (c *StatsCache) entryKey(gen int64, rangeKey string) string {
	return fmt.Sprintf("%s:%d:%s", c.prefix, gen, rangeKey)
}

// Load decodes the cached value for rangeKey into dst. Any Redis or decode
// failure counts as a miss.
func (c *StatsCache) Load(ctx context.Context, rangeKey string, dst any) bool {
	gen, err := c.generation(ctx)
	if err != nil {
		logger.Warn("stats cache unavailable", zap.Error(err))
		c.misses.Add(1)
		return false
	}
	data, err := c.client.Get(ctx, c.entryKey(gen, rangeKey)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("stats cache read failed", zap.Error(err))
		}
		c.misses.Add(1)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.misses.Add(1)
		return false
	}
	c.hits.Add(1)
	return true
}

// Generation returns the current generation, or -1 when Redis is unreachable.
// Read it before computing a value and hand it to Store.
func (c *StatsCache) Generation(ctx context.Context) int64 {
	gen, err := c.generation(ctx)
	if err != nil {
		logger.Warn("stats cache unavailable", zap.Error(err))
		return -1
	}
	return gen
}

// Store writes v under gen. A value computed before an Invalidate lands in a
// generation nobody reads anymore.
func (c *StatsCache) Store(ctx context.Context, gen int64, rangeKey string, v any) {
	if gen < 0 {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.entryKey(gen, rangeKey), payload, c.ttl).Err(); err != nil {
		logger.Warn("stats cache write failed", zap.Error(err))
	}
}

// Invalidate makes every cached range stale.
func (c *StatsCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, c.genKey()).Err(); err != nil {
		logger.Warn("stats cache invalidate failed", zap.Error(err))
	}
}

// Counters reports hits and misses since creation or the last Reset.
func (c *StatsCache) Counters() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Reset clears the hit/miss counters.
func (c *StatsCache) Reset() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// Noop is used when Redis is disabled.
type Noop struct{}

func (Noop) Load(context.Context, string, any) bool    { return false }
func (Noop) Generation(context.Context) int64          { return -1 }
func (Noop) Store(context.Context, int64, string, any) {}
func (Noop) Invalidate(context.Context)                {}
