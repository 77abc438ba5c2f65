package service

import (
	"testing"

	"github.com/planpilot/planpilot/internal/api/dto"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/testutil"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PlanServiceSuite struct {
	testutil.BaseServiceTestSuite
	service PlanService
	params  ServiceParams
}

func TestPlanService(t *testing.T) {
	suite.Run(t, new(PlanServiceSuite))
}

func (s *PlanServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.params = ServiceParams{
		Logger:   s.GetLogger(),
		Config:   s.GetConfig(),
		DB:       s.GetDB(),
		UserRepo: s.GetStores().UserRepo,
		PlanRepo: s.GetStores().PlanRepo,
		SubRepo:  s.GetStores().SubscriptionRepo,
		Cache:    s.GetCache(),
		Now:      s.NowFunc(),
	}
	s.service = NewPlanService(s.params)
}

func (s *PlanServiceSuite) createPlan(name string) *dto.PlanResponse {
	resp, err := s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:         name,
		Description:  "test plan",
		Price:        decimal.NewFromInt(10),
		DurationDays: 30,
		Features:     []string{"feature-a"},
	})
	s.NoError(err)
	return resp
}

func (s *PlanServiceSuite) TestCreatePlan() {
	s.Run("Valid Plan", func() {
		resp := s.createPlan("pro")
		s.NotEmpty(resp.ID)
		s.Equal("pro", resp.Name)
		s.Equal(30, resp.DurationDays)
	})

	s.Run("Missing Name", func() {
		_, err := s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
			Price:        decimal.NewFromInt(10),
			DurationDays: 30,
		})
		s.True(ierr.IsValidation(err))
	})

	s.Run("Non Positive Price", func() {
		_, err := s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
			Name:         "free",
			Price:        decimal.Zero,
			DurationDays: 30,
		})
		s.True(ierr.IsValidation(err))
	})

	s.Run("Non Positive Duration", func() {
		_, err := s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
			Name:         "instant",
			Price:        decimal.NewFromInt(10),
			DurationDays: 0,
		})
		s.True(ierr.IsValidation(err))
	})

	s.Run("Duplicate Name", func() {
		s.createPlan("basic")
		_, err := s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
			Name:         "basic",
			Price:        decimal.NewFromInt(10),
			DurationDays: 30,
		})
		s.True(ierr.IsAlreadyExists(err))
	})
}

func (s *PlanServiceSuite) TestGetPlan() {
	created := s.createPlan("pro")

	resp, err := s.service.GetPlan(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(created.ID, resp.ID)

	_, err = s.service.GetPlan(s.GetContext(), "plan_missing")
	s.True(ierr.IsNotFound(err))
}

func (s *PlanServiceSuite) TestListPlans() {
	s.createPlan("basic")
	s.createPlan("pro")

	resp, err := s.service.ListPlans(s.GetContext(), 0, 0)
	s.NoError(err)
	s.Equal(2, resp.Total)

	names := lo.Map(resp.Items, func(p *dto.PlanResponse, _ int) string { return p.Name })
	s.Contains(names, "basic")
	s.Contains(names, "pro")
}

func (s *PlanServiceSuite) TestListPlansCacheInvalidatedByCreate() {
	s.createPlan("basic")

	resp, err := s.service.ListPlans(s.GetContext(), 0, 0)
	s.NoError(err)
	s.Equal(1, resp.Total)

	// The create must invalidate the memoized listing.
	s.createPlan("pro")

	resp, err = s.service.ListPlans(s.GetContext(), 0, 0)
	s.NoError(err)
	s.Equal(2, resp.Total)
}

func (s *PlanServiceSuite) TestUpdatePlan() {
	created := s.createPlan("pro")

	// Warm the cache so the update has something to invalidate.
	_, err := s.service.GetPlan(s.GetContext(), created.ID)
	s.NoError(err)

	resp, err := s.service.UpdatePlan(s.GetContext(), created.ID, &dto.UpdatePlanRequest{
		Name:         lo.ToPtr("pro-plus"),
		DurationDays: lo.ToPtr(60),
	})
	s.NoError(err)
	s.Equal("pro-plus", resp.Name)
	s.Equal(60, resp.DurationDays)

	fetched, err := s.service.GetPlan(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal("pro-plus", fetched.Name, "stale cache entry must not survive an update")
}

func (s *PlanServiceSuite) TestDeletePlan() {
	created := s.createPlan("pro")

	s.NoError(s.service.DeletePlan(s.GetContext(), created.ID))

	_, err := s.service.GetPlan(s.GetContext(), created.ID)
	s.True(ierr.IsNotFound(err))
}

func (s *PlanServiceSuite) TestDeletePlanWithActiveSubscriptions() {
	created := s.createPlan("pro")

	subscriptionService := NewSubscriptionService(s.params)
	_, err := subscriptionService.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: created.ID,
	})
	s.NoError(err)

	err = s.service.DeletePlan(s.GetContext(), created.ID)
	s.True(ierr.Is(err, ierr.ErrInvalidOperation))

	// After the subscription ends the plan can go.
	_, err = subscriptionService.CancelActiveSubscription(s.GetContext(), "user_1")
	s.NoError(err)
	s.NoError(s.service.DeletePlan(s.GetContext(), created.ID))
}

func (s *PlanServiceSuite) TestListPlansStatusUnaffectedByCacheKeys() {
	s.createPlan("basic")

	// Different pagination must not collide in the cache.
	page1, err := s.service.ListPlans(s.GetContext(), 1, 0)
	s.NoError(err)
	s.Equal(1, page1.Total)

	page2, err := s.service.ListPlans(s.GetContext(), 1, 1)
	s.NoError(err)
	s.Equal(0, page2.Total)
}
