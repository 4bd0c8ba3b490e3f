// Package stats maintains verdict counters by level. Counters are updated
// inside the ledger append serialization boundary and are rebuildable from a
// full ledger scan, so they are a cache, not a source of truth.
package stats

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	riskmodels "printtrace/internal/risk/models"
)

// Counter tracks how many verdicts the ledger holds per risk level.
type Counter interface {
	Increment(ctx context.Context, level riskmodels.Level) error
	Counts(ctx context.Context) (map[riskmodels.Level]int64, error)
}

const redisKey = "printtrace:verdicts:by_level"

// RedisCounter stores the counters in a redis hash keyed by level.
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (c *RedisCounter) Increment(ctx context.Context, level riskmodels.Level) error {
	if err := c.client.HIncrBy(ctx, redisKey, string(level), 1).Err(); err != nil {
		return fmt.Errorf("increment verdict counter: %w", err)
	}
	return nil
}

func (c *RedisCounter) Counts(ctx context.Context) (map[riskmodels.Level]int64, error) {
	raw, err := c.client.HGetAll(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("read verdict counters: %w", err)
	}
	out := make(map[riskmodels.Level]int64, len(raw))
	for level, value := range raw {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt verdict counter %q: %w", level, err)
		}
		out[riskmodels.Level(level)] = n
	}
	return out, nil
}

// MemoryCounter is the in-process fallback used when redis is not configured.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[riskmodels.Level]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[riskmodels.Level]int64)}
}

func (c *MemoryCounter) Increment(_ context.Context, level riskmodels.Level) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[level]++
	return nil
}

func (c *MemoryCounter) Counts(_ context.Context) (map[riskmodels.Level]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[riskmodels.Level]int64, len(c.counts))
	for level, n := range c.counts {
		out[level] = n
	}
	return out, nil
}
