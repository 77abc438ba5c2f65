package subscription

import (
	"time"

	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/types"
)

// Subscription represents one user's entitlement to a plan.
//
// Lifecycle: created ACTIVE with EndDate = start + plan duration; plan changes
// recompute the end date; cancellation and expiry are terminal.
type Subscription struct {
	ID          string                   `json:"id"`
	UserID      string                   `json:"user_id"`
	PlanID      string                   `json:"plan_id"`
	Status      types.SubscriptionStatus `json:"status"`
	StartDate   time.Time                `json:"start_date"`
	EndDate     time.Time                `json:"end_date"`
	CancelledAt *time.Time               `json:"cancelled_at,omitempty"`
	types.BaseModel
}

func (s *Subscription) Validate() error {
	if s.UserID == "" {
		return ierr.NewError("user_id is required").Mark(ierr.ErrValidation)
	}
	if s.PlanID == "" {
		return ierr.NewError("plan_id is required").Mark(ierr.ErrValidation)
	}
	if err := s.Status.Validate(); err != nil {
		return err
	}
	if s.EndDate.Before(s.StartDate) {
		return ierr.NewError("end date before start date").Mark(ierr.ErrValidation)
	}
	return nil
}

// IsActive reports whether the subscription is in the ACTIVE state.
func (s *Subscription) IsActive() bool {
	return s.Status == types.SubscriptionStatusActive
}

// IsOverdue reports whether an ACTIVE subscription has passed its end date
// and is awaiting the expiry sweep.
func (s *Subscription) IsOverdue(now time.Time) bool {
	return s.IsActive() && s.EndDate.Before(now)
}
