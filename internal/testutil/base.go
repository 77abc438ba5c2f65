package testutil

import (
	"context"
	"time"

	"github.com/planpilot/planpilot/internal/cache"
	"github.com/planpilot/planpilot/internal/config"
	"github.com/planpilot/planpilot/internal/logger"
	"github.com/stretchr/testify/suite"
)

// Stores bundles the in-memory repositories backing a service test.
type Stores struct {
	UserRepo         *InMemoryUserStore
	PlanRepo         *InMemoryPlanStore
	SubscriptionRepo *InMemorySubscriptionStore
}

// BaseServiceTestSuite provides fresh in-memory infrastructure for each
// service test: stores, cache, config and a frozen clock.
type BaseServiceTestSuite struct {
	suite.Suite

	ctx    context.Context
	cfg    *config.Configuration
	log    *logger.Logger
	stores Stores
	cache  cache.Cache
	db     PassthroughTx
	now    time.Time
}

func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.cfg = config.GetDefaultConfig()
	s.log = logger.GetLogger()
	s.stores = Stores{
		UserRepo:         NewInMemoryUserStore(),
		PlanRepo:         NewInMemoryPlanStore(),
		SubscriptionRepo: NewInMemorySubscriptionStore(),
	}
	s.cache = cache.NewInMemoryCache(s.cfg, s.log)
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func (s *BaseServiceTestSuite) GetContext() context.Context   { return s.ctx }
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.cfg
}
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger { return s.log }
func (s *BaseServiceTestSuite) GetStores() Stores         { return s.stores }
func (s *BaseServiceTestSuite) GetCache() cache.Cache     { return s.cache }
func (s *BaseServiceTestSuite) GetDB() PassthroughTx      { return s.db }

// GetNow returns the suite's frozen clock reading.
func (s *BaseServiceTestSuite) GetNow() time.Time { return s.now }

// AdvanceTime moves the frozen clock forward.
func (s *BaseServiceTestSuite) AdvanceTime(d time.Duration) {
	s.now = s.now.Add(d)
}

// NowFunc returns a clock function reading the suite's frozen clock, suitable
// for ServiceParams.Now.
func (s *BaseServiceTestSuite) NowFunc() func() time.Time {
	return func() time.Time { return s.now }
}
