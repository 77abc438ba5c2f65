package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/planpilot/planpilot/internal/api/dto"
	"github.com/planpilot/planpilot/internal/breaker"
	"github.com/planpilot/planpilot/internal/config"
	"github.com/planpilot/planpilot/internal/domain/plan"
	"github.com/planpilot/planpilot/internal/domain/subscription"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/kv"
	"github.com/planpilot/planpilot/internal/testutil"
	"github.com/planpilot/planpilot/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SubscriptionService
	params  ServiceParams
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
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
	s.service = NewSubscriptionService(s.params)
}

func (s *SubscriptionServiceSuite) createPlan(name string, durationDays int) *plan.Plan {
	p := &plan.Plan{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		Name:         name,
		Price:        decimal.NewFromInt(10),
		DurationDays: durationDays,
		BaseModel: types.BaseModel{
			CreatedAt: s.GetNow(),
			UpdatedAt: s.GetNow(),
		},
	}
	s.NoError(s.GetStores().PlanRepo.Create(s.GetContext(), p))
	return p
}

func (s *SubscriptionServiceSuite) TestCreateSubscription() {
	p := s.createPlan("monthly", 30)

	resp, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, resp.Status)
	s.Equal(s.GetNow(), resp.StartDate)
	s.Equal(s.GetNow().AddDate(0, 0, 30), resp.EndDate)
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionUnknownPlan() {
	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: "plan_missing",
	})
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestCreateSubscriptionConflict() {
	p := s.createPlan("monthly", 30)

	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.NoError(err)

	_, err = s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.True(ierr.IsAlreadyExists(err))
}

func (s *SubscriptionServiceSuite) TestConcurrentCreateSingleWinner() {
	p := s.createPlan("monthly", 30)

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
				UserID: "user_1",
				PlanID: p.ID,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.True(ierr.IsAlreadyExists(err))
		}
	}
	s.Equal(1, succeeded, "exactly one concurrent create may win")
}

func (s *SubscriptionServiceSuite) TestCancelledUserCanResubscribe() {
	p := s.createPlan("monthly", 30)

	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.NoError(err)

	_, err = s.service.CancelActiveSubscription(s.GetContext(), "user_1")
	s.NoError(err)

	_, err = s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.NoError(err, "a terminal subscription must not block a new one")
}

func (s *SubscriptionServiceSuite) TestChangePlanRecomputesEndDate() {
	monthly := s.createPlan("monthly", 30)
	weekly := s.createPlan("weekly", 7)

	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: monthly.ID,
	})
	s.NoError(err)

	s.AdvanceTime(10 * 24 * time.Hour)

	resp, err := s.service.ChangePlan(s.GetContext(), "user_1", &dto.ChangePlanRequest{
		PlanID: weekly.ID,
	})
	s.NoError(err)
	s.Equal(weekly.ID, resp.PlanID)
	s.Equal(created.ID, resp.ID, "plan change keeps the same subscription")
	// Remaining time on the old plan is discarded; the new end date runs from
	// the moment of the change.
	s.Equal(s.GetNow().AddDate(0, 0, 7), resp.EndDate)
}

func (s *SubscriptionServiceSuite) TestChangePlanWithoutActiveSubscription() {
	weekly := s.createPlan("weekly", 7)

	_, err := s.service.ChangePlan(s.GetContext(), "user_1", &dto.ChangePlanRequest{
		PlanID: weekly.ID,
	})
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestCancelSubscription() {
	p := s.createPlan("monthly", 30)

	_, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.NoError(err)

	s.AdvanceTime(5 * 24 * time.Hour)

	resp, err := s.service.CancelActiveSubscription(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, resp.Status)
	s.NotNil(resp.CancelledAt)
	s.Equal(s.GetNow(), *resp.CancelledAt)
}

func (s *SubscriptionServiceSuite) TestCancelIsIdempotent() {
	p := s.createPlan("monthly", 30)

	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.NoError(err)

	first, err := s.service.CancelSubscription(s.GetContext(), created.ID)
	s.NoError(err)

	s.AdvanceTime(time.Hour)

	second, err := s.service.CancelSubscription(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, second.Status)
	s.Equal(*first.CancelledAt, *second.CancelledAt,
		"repeat cancel must not move the cancellation timestamp")
}

func (s *SubscriptionServiceSuite) TestCancelExpiredRejected() {
	p := s.createPlan("monthly", 30)

	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.NoError(err)

	s.AdvanceTime(31 * 24 * time.Hour)
	_, err = s.service.SweepExpired(s.GetContext())
	s.NoError(err)

	_, err = s.service.CancelSubscription(s.GetContext(), created.ID)
	s.True(ierr.Is(err, ierr.ErrInvalidOperation))
}

func (s *SubscriptionServiceSuite) TestSweepExpiresOverdue() {
	p := s.createPlan("monthly", 30)

	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.NoError(err)

	s.AdvanceTime(31 * 24 * time.Hour)

	resp, err := s.service.SweepExpired(s.GetContext())
	s.NoError(err)
	s.Equal(1, resp.Scanned)
	s.Equal(1, resp.Expired)
	s.Equal(0, resp.Failed)

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusExpired, sub.Status)
}

func (s *SubscriptionServiceSuite) TestSweepLeavesCurrentSubscriptions() {
	p := s.createPlan("monthly", 30)

	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.NoError(err)

	s.AdvanceTime(29 * 24 * time.Hour)

	resp, err := s.service.SweepExpired(s.GetContext())
	s.NoError(err)
	s.Equal(0, resp.Scanned)

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
}

func (s *SubscriptionServiceSuite) TestSweepDoesNotTouchCancelled() {
	p := s.createPlan("monthly", 30)

	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.NoError(err)

	cancelled, err := s.service.CancelSubscription(s.GetContext(), created.ID)
	s.NoError(err)

	s.AdvanceTime(31 * 24 * time.Hour)

	resp, err := s.service.SweepExpired(s.GetContext())
	s.NoError(err)
	s.Equal(0, resp.Scanned)

	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusCancelled, sub.Status)
	s.Equal(*cancelled.CancelledAt, *sub.CancelledAt)
}

func (s *SubscriptionServiceSuite) TestSweepContinuesPastFailingItem() {
	p := s.createPlan("monthly", 30)

	failing, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.NoError(err)

	healthy, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_2",
		PlanID: p.ID,
	})
	s.NoError(err)

	s.AdvanceTime(31 * 24 * time.Hour)

	params := s.params
	params.SubRepo = &expireFailingRepo{
		Repository: s.GetStores().SubscriptionRepo,
		failID:     failing.ID,
	}
	svc := NewSubscriptionService(params)

	resp, err := svc.SweepExpired(s.GetContext())
	s.NoError(err, "one bad item must not abort the batch")
	s.Equal(2, resp.Scanned)
	s.Equal(1, resp.Expired)
	s.Equal(1, resp.Failed)

	// The healthy item transitioned despite its neighbour failing.
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), healthy.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusExpired, sub.Status)

	// The failed item stays ACTIVE-but-overdue and is picked up once the
	// fault clears.
	sub, err = s.GetStores().SubscriptionRepo.Get(s.GetContext(), failing.ID)
	s.NoError(err)
	s.Equal(types.SubscriptionStatusActive, sub.Status)

	resp, err = s.service.SweepExpired(s.GetContext())
	s.NoError(err)
	s.Equal(1, resp.Scanned)
	s.Equal(1, resp.Expired)
}

func (s *SubscriptionServiceSuite) TestPaymentBreakerTripsAndRejects() {
	p := s.createPlan("monthly", 30)
	weekly := s.createPlan("weekly", 7)

	gateway := &stubGateway{}
	params := s.params
	params.PaymentGateway = gateway
	params.PaymentBreaker = breaker.NewBreaker("payment", kv.NewInMemoryStore(), s.GetLogger(), config.BreakerConfig{
		FailureThreshold: 3,
		ResetTimeout:     time.Minute,
	})
	svc := NewSubscriptionService(params)

	// Healthy gateway: authorization runs and the create goes through.
	created, err := svc.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.NoError(err)
	s.Equal(1, gateway.calls)

	// Gateway starts failing: the gateway's own error surfaces until the
	// breaker trips.
	gateway.err = errPaymentDown
	for i := 0; i < 3; i++ {
		_, err := svc.ChangePlan(s.GetContext(), "user_1", &dto.ChangePlanRequest{
			PlanID: weekly.ID,
		})
		s.ErrorIs(err, errPaymentDown)
	}

	// Tripped: rejected without invoking the gateway, classified as circuit
	// open rather than a payment failure.
	callsBeforeReject := gateway.calls
	_, err = svc.ChangePlan(s.GetContext(), "user_1", &dto.ChangePlanRequest{
		PlanID: weekly.ID,
	})
	s.True(ierr.IsCircuitOpen(err))
	s.Equal(callsBeforeReject, gateway.calls, "rejected call must not reach the gateway")

	// Creates for other users hit the same shared breaker.
	_, err = svc.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_2",
		PlanID: p.ID,
	})
	s.True(ierr.IsCircuitOpen(err))

	// No mutation happened on any rejected or failed call.
	sub, err := s.GetStores().SubscriptionRepo.Get(s.GetContext(), created.ID)
	s.NoError(err)
	s.Equal(p.ID, sub.PlanID, "failed authorization must leave the subscription unchanged")
	_, err = s.GetStores().SubscriptionRepo.GetActiveByUserID(s.GetContext(), "user_2")
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestGetActiveSubscription() {
	p := s.createPlan("monthly", 30)

	_, err := s.service.GetActiveSubscription(s.GetContext(), "user_1")
	s.True(ierr.IsNotFound(err))

	created, err := s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		UserID: "user_1",
		PlanID: p.ID,
	})
	s.NoError(err)

	resp, err := s.service.GetActiveSubscription(s.GetContext(), "user_1")
	s.NoError(err)
	s.Equal(created.ID, resp.ID)
}

// expireFailingRepo delegates to the real repository but fails ExpireIfActive
// for one subscription, simulating a per-row update error during a sweep.
type expireFailingRepo struct {
	subscription.Repository
	failID string
}

func (r *expireFailingRepo) ExpireIfActive(ctx context.Context, id string, now time.Time) (bool, error) {
	if id == r.failID {
		return false, ierr.NewErrorf("failed to expire subscription %s", id).
			Mark(ierr.ErrDatabase)
	}
	return r.Repository.ExpireIfActive(ctx, id, now)
}

var errPaymentDown = errors.New("payment provider unreachable")

// stubGateway counts authorization attempts and fails on demand.
type stubGateway struct {
	err   error
	calls int
}

func (g *stubGateway) Authorize(ctx context.Context, userID, planID string, amount decimal.Decimal) error {
	g.calls++
	return g.err
}
