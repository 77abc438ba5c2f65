package service

import (
	"context"

	"github.com/planpilot/planpilot/internal/api/dto"
	"github.com/planpilot/planpilot/internal/domain/plan"
	"github.com/planpilot/planpilot/internal/domain/subscription"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/types"
)

// SubscriptionService owns the subscription lifecycle state machine:
// creation, plan change, cancellation and time-driven expiry.
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	GetActiveSubscription(ctx context.Context, userID string) (*dto.SubscriptionResponse, error)
	ChangePlan(ctx context.Context, userID string, req *dto.ChangePlanRequest) (*dto.SubscriptionResponse, error)
	CancelSubscription(ctx context.Context, subscriptionID string) (*dto.SubscriptionResponse, error)
	CancelActiveSubscription(ctx context.Context, userID string) (*dto.SubscriptionResponse, error)
	SweepExpired(ctx context.Context) (*dto.SweepResponse, error)
}

type subscriptionService struct {
	ServiceParams
}

func NewSubscriptionService(params ServiceParams) SubscriptionService {
	return &subscriptionService{ServiceParams: params}
}

// CreateSubscription creates an ACTIVE subscription running from now until
// now plus the plan duration. The existence check and the insert run inside
// one transaction, and the store's partial unique index backs the check, so
// concurrent creates for the same user cannot both succeed.
func (s *subscriptionService) CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.PlanRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizePayment(ctx, req.UserID, p); err != nil {
		return nil, err
	}

	now := s.now()
	sub := &subscription.Subscription{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		UserID:    req.UserID,
		PlanID:    p.ID,
		Status:    types.SubscriptionStatusActive,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, p.DurationDays),
		BaseModel: types.BaseModel{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.SubRepo.GetActiveByUserID(ctx, req.UserID)
		if err != nil && !ierr.IsNotFound(err) {
			return err
		}
		if existing != nil {
			return ierr.NewErrorf("user %s already has an active subscription", req.UserID).
				WithHint("User already has an active subscription").
				WithReportableDetails(map[string]interface{}{
					"subscription_id": existing.ID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return s.SubRepo.Create(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription created",
		"subscription_id", sub.ID, "user_id", sub.UserID, "plan_id", sub.PlanID,
		"end_date", sub.EndDate)

	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

func (s *subscriptionService) GetActiveSubscription(ctx context.Context, userID string) (*dto.SubscriptionResponse, error) {
	if userID == "" {
		return nil, ierr.NewError("user ID is required").
			WithHint("Please provide a valid user ID").
			Mark(ierr.ErrValidation)
	}

	sub, err := s.SubRepo.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

// ChangePlan moves the user's active subscription to a new plan. The end date
// becomes now plus the new plan's duration: remaining entitlement on the old
// plan is discarded, not prorated. That is the billing policy, not an
// oversight.
func (s *subscriptionService) ChangePlan(ctx context.Context, userID string, req *dto.ChangePlanRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.SubRepo.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	newPlan, err := s.PlanRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizePayment(ctx, userID, newPlan); err != nil {
		return nil, err
	}

	now := s.now()
	sub.PlanID = newPlan.ID
	sub.EndDate = now.AddDate(0, 0, newPlan.DurationDays)
	sub.UpdatedAt = now

	if err := s.SubRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription plan changed",
		"subscription_id", sub.ID, "user_id", userID, "plan_id", newPlan.ID,
		"end_date", sub.EndDate)

	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

// CancelSubscription cancels by subscription ID. Cancelling an already
// CANCELLED subscription is a no-op that returns the unchanged record with
// its original cancellation timestamp; cancelling an EXPIRED one is rejected.
func (s *subscriptionService) CancelSubscription(ctx context.Context, subscriptionID string) (*dto.SubscriptionResponse, error) {
	if subscriptionID == "" {
		return nil, ierr.NewError("subscription ID is required").
			WithHint("Please provide a valid subscription ID").
			Mark(ierr.ErrValidation)
	}

	var sub *subscription.Subscription
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.SubRepo.Get(ctx, subscriptionID)
		if err != nil {
			return err
		}

		switch sub.Status {
		case types.SubscriptionStatusCancelled:
			return nil
		case types.SubscriptionStatusExpired:
			return ierr.NewErrorf("subscription %s is expired", sub.ID).
				WithHint("An expired subscription cannot be cancelled").
				Mark(ierr.ErrInvalidOperation)
		}

		now := s.now()
		sub.Status = types.SubscriptionStatusCancelled
		sub.CancelledAt = &now
		sub.UpdatedAt = now
		return s.SubRepo.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription cancelled",
		"subscription_id", sub.ID, "user_id", sub.UserID)

	return &dto.SubscriptionResponse{Subscription: sub}, nil
}

// CancelActiveSubscription resolves the user's active subscription and
// cancels it.
func (s *subscriptionService) CancelActiveSubscription(ctx context.Context, userID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.SubRepo.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.CancelSubscription(ctx, sub.ID)
}

// SweepExpired transitions every ACTIVE subscription past its end date to
// EXPIRED. Each item is attempted independently: one failure is logged and
// does not abort the batch, and the repository re-checks the status inside
// the update so a concurrent cancel is never overwritten. Failed items stay
// ACTIVE-but-overdue and are retried by the next run.
func (s *subscriptionService) SweepExpired(ctx context.Context) (*dto.SweepResponse, error) {
	now := s.now()

	expired, err := s.SubRepo.ListExpired(ctx, now)
	if err != nil {
		return nil, err
	}

	resp := &dto.SweepResponse{Scanned: len(expired)}

	for _, sub := range expired {
		transitioned, err := s.SubRepo.ExpireIfActive(ctx, sub.ID, now)
		if err != nil {
			resp.Failed++
			s.Logger.Errorw("failed to expire subscription",
				"subscription_id", sub.ID, "user_id", sub.UserID, "error", err)
			continue
		}
		if transitioned {
			resp.Expired++
			s.Logger.Infow("subscription expired",
				"subscription_id", sub.ID, "user_id", sub.UserID, "end_date", sub.EndDate)
		}
	}

	return resp, nil
}

// authorizePayment runs the payment authorization through the circuit
// breaker guarding the payment gateway.
func (s *subscriptionService) authorizePayment(ctx context.Context, userID string, p *plan.Plan) error {
	if s.PaymentGateway == nil {
		return nil
	}
	call := func(ctx context.Context) error {
		return s.PaymentGateway.Authorize(ctx, userID, p.ID, p.Price)
	}
	if s.PaymentBreaker == nil {
		return call(ctx)
	}
	return s.PaymentBreaker.Call(ctx, call)
}
