package subscription

import (
	"context"
	"time"
)

// Repository defines the interface for subscription persistence operations.
//
// Create must be atomic with respect to the one-active-subscription-per-user
// invariant: the backing store carries a uniqueness constraint on user_id
// scoped to ACTIVE rows, and a violation surfaces as ErrAlreadyExists. The
// application-level existence check alone is not trusted under concurrency.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetActiveByUserID(ctx context.Context, userID string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error

	// ListExpired returns ACTIVE subscriptions whose end date is before now.
	ListExpired(ctx context.Context, now time.Time) ([]*Subscription, error)

	// ExpireIfActive transitions the subscription to EXPIRED only if it is
	// still ACTIVE and past its end date at the time of the update, in a
	// single statement, so a concurrent cancel is never overwritten. Returns
	// whether the transition happened.
	ExpireIfActive(ctx context.Context, id string, now time.Time) (bool, error)

	// CountActiveByPlan returns the number of ACTIVE subscriptions
	// referencing the given plan.
	CountActiveByPlan(ctx context.Context, planID string) (int, error)
}
