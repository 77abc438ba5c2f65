package dto

import (
	"github.com/planpilot/planpilot/internal/domain/subscription"
	"github.com/planpilot/planpilot/internal/validator"
)

// CreateSubscriptionRequest subscribes a user to a plan.
type CreateSubscriptionRequest struct {
	UserID string `json:"user_id" validate:"required"`
	PlanID string `json:"plan_id" validate:"required"`
}

func (r *CreateSubscriptionRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ChangePlanRequest moves an active subscription to a different plan.
type ChangePlanRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

func (r *ChangePlanRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// SubscriptionResponse is the wire shape of a subscription.
type SubscriptionResponse struct {
	*subscription.Subscription
}

// SweepResponse reports the outcome of one expiry sweep.
type SweepResponse struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}
