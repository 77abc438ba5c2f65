package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/planpilot/planpilot/internal/config"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/kv"
	"github.com/planpilot/planpilot/internal/logger"
	"github.com/stretchr/testify/suite"
)

type LimiterSuite struct {
	suite.Suite
	store   *kv.InMemoryStore
	limiter *Limiter
	now     time.Time
}

func TestLimiter(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.store = kv.NewInMemoryStore()
	s.store.SetNowFunc(func() time.Time { return s.now })
	s.limiter = NewLimiter(s.store, logger.GetLogger(), config.RateLimitConfig{
		RequestsPerMinute: 5,
	})
}

func (s *LimiterSuite) advance(d time.Duration) {
	s.now = s.now.Add(d)
}

func (s *LimiterSuite) TestAdmitsWithinBudget() {
	for i := 0; i < 5; i++ {
		s.NoError(s.limiter.Check(context.Background(), "10.0.0.1"))
	}
}

func (s *LimiterSuite) TestRejectsOverBudget() {
	for i := 0; i < 5; i++ {
		s.NoError(s.limiter.Check(context.Background(), "10.0.0.1"))
	}

	err := s.limiter.Check(context.Background(), "10.0.0.1")
	s.True(ierr.IsRateLimitExceeded(err))

	// Still rejected within the same window.
	s.advance(30 * time.Second)
	err = s.limiter.Check(context.Background(), "10.0.0.1")
	s.True(ierr.IsRateLimitExceeded(err))
}

func (s *LimiterSuite) TestWindowResets() {
	for i := 0; i < 5; i++ {
		s.NoError(s.limiter.Check(context.Background(), "10.0.0.1"))
	}
	s.True(ierr.IsRateLimitExceeded(s.limiter.Check(context.Background(), "10.0.0.1")))

	s.advance(61 * time.Second)
	s.NoError(s.limiter.Check(context.Background(), "10.0.0.1"))
}

func (s *LimiterSuite) TestIdentitiesAreIndependent() {
	for i := 0; i < 5; i++ {
		s.NoError(s.limiter.Check(context.Background(), "10.0.0.1"))
	}
	s.True(ierr.IsRateLimitExceeded(s.limiter.Check(context.Background(), "10.0.0.1")))

	s.NoError(s.limiter.Check(context.Background(), "10.0.0.2"))
}

func (s *LimiterSuite) TestFailsOpenWhenStoreUnavailable() {
	limiter := NewLimiter(failingStore{}, logger.GetLogger(), config.RateLimitConfig{
		RequestsPerMinute: 1,
	})

	for i := 0; i < 10; i++ {
		s.NoError(limiter.Check(context.Background(), "10.0.0.1"))
	}
}

func (s *LimiterSuite) TestDefaultBudgetApplied() {
	limiter := NewLimiter(s.store, logger.GetLogger(), config.RateLimitConfig{})
	s.Equal(DefaultRequestsPerMinute, limiter.requestsPerMinute)
}

func (s *LimiterSuite) TestLocalLimiterBurst() {
	limiter := NewLocalLimiter(1, 2, time.Minute)

	s.True(limiter.Allow("10.0.0.1"))
	s.True(limiter.Allow("10.0.0.1"))
	s.False(limiter.Allow("10.0.0.1"), "burst exhausted")

	s.True(limiter.Allow("10.0.0.2"), "identities have independent buckets")
}

func (s *LimiterSuite) TestExpiryBetweenReadAndIncrementRearmsWindow() {
	store := &expireBeforeIncrStore{InMemoryStore: s.store}
	limiter := NewLimiter(store, logger.GetLogger(), config.RateLimitConfig{
		RequestsPerMinute: 5,
	})

	// Seed the window, then have the key vanish between the read and the
	// increment on the next check.
	s.NoError(limiter.Check(context.Background(), "10.0.0.1"))
	store.dropNext = true
	s.NoError(limiter.Check(context.Background(), "10.0.0.1"))

	// The recreated counter must carry a fresh window TTL, not live forever.
	ttl, err := s.store.TTL(context.Background(), keyPrefix+"10.0.0.1")
	s.NoError(err)
	s.Equal(window, ttl)

	s.advance(61 * time.Second)
	for i := 0; i < 5; i++ {
		s.NoError(s.limiter.Check(context.Background(), "10.0.0.1"))
	}
}

// expireBeforeIncrStore drops the key between the limiter's read and its
// increment, simulating a window that expires mid-check.
type expireBeforeIncrStore struct {
	*kv.InMemoryStore
	dropNext bool
}

func (s *expireBeforeIncrStore) Incr(ctx context.Context, key string) (int64, error) {
	if s.dropNext {
		s.dropNext = false
		if err := s.Del(ctx, key); err != nil {
			return 0, err
		}
	}
	return s.InMemoryStore.Incr(ctx, key)
}

// failingStore simulates a counter store outage.
type failingStore struct{}

var errStoreDown = ierr.NewError("store down").Mark(ierr.ErrStoreUnavailable)

func (failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, errStoreDown
}

func (failingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errStoreDown
}

func (failingStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return false, errStoreDown
}

func (failingStore) Incr(ctx context.Context, key string) (int64, error) {
	return 0, errStoreDown
}

func (failingStore) Del(ctx context.Context, keys ...string) error { return errStoreDown }

func (failingStore) DelByPrefix(ctx context.Context, prefix string) error { return errStoreDown }

func (failingStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, errStoreDown
}
