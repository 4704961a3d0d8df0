//go:build integration

package ratelimit_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"feedlink/internal/ratelimit"
	"feedlink/pkg/testutil/containers"
)

type RedisLimiterSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	limiter *ratelimit.Redis
}

func TestRedisLimiterSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLimiterSuite))
}

func (s *RedisLimiterSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.limiter = ratelimit.NewRedis(s.redis.Client)
}

func (s *RedisLimiterSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLimiterSuite) TestWindowAcrossCallers() {
	ctx := context.Background()
	for i := range 3 {
		res, err := s.limiter.Allow(ctx, "confirm:10.0.0.1", 3, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}
	res, err := s.limiter.Allow(ctx, "confirm:10.0.0.1", 3, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.WithinDuration(time.Now().Add(time.Minute), res.ResetAt, 5*time.Second)
}

func (s *RedisLimiterSuite) TestConcurrentCallersShareOneLimit() {
	ctx := context.Background()
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.limiter.Allow(ctx, "register:10.0.0.9", 10, time.Minute)
			if err == nil && res.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(10), allowed.Load())
}

func (s *RedisLimiterSuite) TestWindowSlides() {
	ctx := context.Background()
	_, err := s.limiter.Allow(ctx, "k", 1, 300*time.Millisecond)
	s.Require().NoError(err)
	res, err := s.limiter.Allow(ctx, "k", 1, 300*time.Millisecond)
	s.Require().NoError(err)
	s.False(res.Allowed)

	time.Sleep(400 * time.Millisecond)
	res, err = s.limiter.Allow(ctx, "k", 1, 300*time.Millisecond)
	s.Require().NoError(err)
	s.True(res.Allowed)
}
