package dto

import (
	"context"
	"time"

	"github.com/planpilot/planpilot/internal/domain/plan"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/types"
	"github.com/planpilot/planpilot/internal/validator"
	"github.com/shopspring/decimal"
)

// CreatePlanRequest creates a new catalog plan. Administrative operation.
type CreatePlanRequest struct {
	Name         string          `json:"name" validate:"required"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price" validate:"required"`
	DurationDays int             `json:"duration_days" validate:"required,gt=0"`
	Features     []string        `json:"features"`
}

func (r *CreatePlanRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Price.IsPositive() {
		return ierr.NewError("price must be positive").
			WithHint("Price must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *CreatePlanRequest) ToPlan(ctx context.Context) *plan.Plan {
	now := time.Now().UTC()
	return &plan.Plan{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		Name:         r.Name,
		Description:  r.Description,
		Price:        r.Price,
		DurationDays: r.DurationDays,
		Features:     r.Features,
		BaseModel: types.BaseModel{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

// UpdatePlanRequest mutates an existing plan. Nil fields are left unchanged.
type UpdatePlanRequest struct {
	Name         *string          `json:"name,omitempty"`
	Description  *string          `json:"description,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	DurationDays *int             `json:"duration_days,omitempty"`
	Features     *[]string        `json:"features,omitempty"`
}

func (r *UpdatePlanRequest) Validate() error {
	if r.Name != nil && *r.Name == "" {
		return ierr.NewError("name cannot be empty").
			WithHint("Plan name cannot be empty").
			Mark(ierr.ErrValidation)
	}
	if r.Price != nil && !r.Price.IsPositive() {
		return ierr.NewError("price must be positive").
			WithHint("Price must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if r.DurationDays != nil && *r.DurationDays <= 0 {
		return ierr.NewError("duration_days must be positive").
			WithHint("Duration in days must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Apply copies the set fields onto p.
func (r *UpdatePlanRequest) Apply(p *plan.Plan) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Description != nil {
		p.Description = *r.Description
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.DurationDays != nil {
		p.DurationDays = *r.DurationDays
	}
	if r.Features != nil {
		p.Features = *r.Features
	}
	p.UpdatedAt = time.Now().UTC()
}

// PlanResponse is the wire shape of a plan.
type PlanResponse struct {
	*plan.Plan
}

// ListPlansResponse is the wire shape of a plan listing.
type ListPlansResponse struct {
	Items []*PlanResponse `json:"items"`
	Total int             `json:"total"`
}
