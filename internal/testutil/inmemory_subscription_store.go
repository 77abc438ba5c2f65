package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/planpilot/planpilot/internal/domain/subscription"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository. Like the
// postgres implementation it enforces one ACTIVE subscription per user at
// create time, so concurrency tests observe the same conflict behavior.
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]

	// createMu serializes Create so the active-per-user check and the insert
	// act like the partial unique index does in postgres.
	createMu sync.Mutex
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	copied := *sub
	if sub.CancelledAt != nil {
		at := *sub.CancelledAt
		copied.CancelledAt = &at
	}
	return &copied
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			WithHint("Subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if sub.Status == types.SubscriptionStatusActive {
		if _, err := s.GetActiveByUserID(ctx, sub.UserID); err == nil {
			return ierr.NewError("user already has an active subscription").
				WithHint("User already has an active subscription").
				WithReportableDetails(map[string]any{"user_id": sub.UserID}).
				Mark(ierr.ErrAlreadyExists)
		}
	}

	if err := s.InMemoryStore.Create(ctx, sub.ID, copySubscription(sub)); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) GetActiveByUserID(ctx context.Context, userID string) (*subscription.Subscription, error) {
	subs := s.InMemoryStore.List(ctx, func(_ context.Context, sub *subscription.Subscription) bool {
		return sub.UserID == userID && sub.Status == types.SubscriptionStatusActive
	}, nil)
	if len(subs) == 0 {
		return nil, ierr.NewError("no active subscription found").
			WithHint("User has no active subscription").
			WithReportableDetails(map[string]any{"user_id": userID}).
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(subs[0]), nil
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			WithHint("Subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}

	if err := s.InMemoryStore.Update(ctx, sub.ID, copySubscription(sub)); err != nil {
		return ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			WithReportableDetails(map[string]any{"id": sub.ID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemorySubscriptionStore) ListExpired(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	subs := s.InMemoryStore.List(ctx, func(_ context.Context, sub *subscription.Subscription) bool {
		return sub.Status == types.SubscriptionStatusActive && sub.EndDate.Before(now)
	}, func(i, j *subscription.Subscription) bool {
		return i.EndDate.Before(j.EndDate)
	})

	out := make([]*subscription.Subscription, len(subs))
	for i, sub := range subs {
		out[i] = copySubscription(sub)
	}
	return out, nil
}

func (s *InMemorySubscriptionStore) ExpireIfActive(ctx context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.items[id]
	if !ok {
		return false, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}

	if sub.Status != types.SubscriptionStatusActive || !sub.EndDate.Before(now) {
		return false, nil
	}

	updated := copySubscription(sub)
	updated.Status = types.SubscriptionStatusExpired
	updated.UpdatedAt = now
	s.items[id] = updated
	return true, nil
}

func (s *InMemorySubscriptionStore) CountActiveByPlan(ctx context.Context, planID string) (int, error) {
	subs := s.InMemoryStore.List(ctx, func(_ context.Context, sub *subscription.Subscription) bool {
		return sub.PlanID == planID && sub.Status == types.SubscriptionStatusActive
	}, nil)
	return len(subs), nil
}
