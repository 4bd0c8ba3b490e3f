//go:build integration

package stats_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"printtrace/internal/ledger/stats"
	riskmodels "printtrace/internal/risk/models"
	"printtrace/pkg/testutil/containers"
)

type RedisCounterSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	counter *stats.RedisCounter
	ctx     context.Context
}

func TestRedisCounterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCounterSuite))
}

func (s *RedisCounterSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.counter = stats.NewRedisCounter(s.redis.Client)
}

func (s *RedisCounterSuite) SetupTest() {
	s.ctx = context.Background()
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisCounterSuite) TestIncrementAndCounts() {
	s.Require().NoError(s.counter.Increment(s.ctx, riskmodels.LevelHigh))
	s.Require().NoError(s.counter.Increment(s.ctx, riskmodels.LevelHigh))
	s.Require().NoError(s.counter.Increment(s.ctx, riskmodels.LevelNormal))

	counts, err := s.counter.Counts(s.ctx)
	s.Require().NoError(err)
	s.Equal(map[riskmodels.Level]int64{
		riskmodels.LevelHigh:   2,
		riskmodels.LevelNormal: 1,
	}, counts)
}

// TestConcurrentIncrements verifies HINCRBY atomicity holds across clients.
func (s *RedisCounterSuite) TestConcurrentIncrements() {
	const goroutines = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.counter.Increment(s.ctx, riskmodels.LevelSuspicious))
		}()
	}
	wg.Wait()

	counts, err := s.counter.Counts(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(goroutines), counts[riskmodels.LevelSuspicious])
}
