package stats

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	riskmodels "printtrace/internal/risk/models"
)

func newRedisCounter(t *testing.T) *RedisCounter {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCounter(client)
}

func TestRedisCounter(t *testing.T) {
	ctx := context.Background()
	counter := newRedisCounter(t)

	counts, err := counter.Counts(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)

	require.NoError(t, counter.Increment(ctx, riskmodels.LevelHigh))
	require.NoError(t, counter.Increment(ctx, riskmodels.LevelHigh))
	require.NoError(t, counter.Increment(ctx, riskmodels.LevelNormal))

	counts, err = counter.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[riskmodels.Level]int64{
		riskmodels.LevelHigh:   2,
		riskmodels.LevelNormal: 1,
	}, counts)
}

func TestMemoryCounter(t *testing.T) {
	ctx := context.Background()
	counter := NewMemoryCounter()

	require.NoError(t, counter.Increment(ctx, riskmodels.LevelSuspicious))
	require.NoError(t, counter.Increment(ctx, riskmodels.LevelSuspicious))

	counts, err := counter.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[riskmodels.LevelSuspicious])

	// returned map is a copy
	counts[riskmodels.LevelSuspicious] = 99
	counts, err = counter.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[riskmodels.LevelSuspicious])
}
