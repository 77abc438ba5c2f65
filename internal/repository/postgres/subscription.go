package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/planpilot/planpilot/internal/domain/subscription"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/logger"
	"github.com/planpilot/planpilot/internal/postgres"
	"github.com/planpilot/planpilot/internal/types"
)

type subscriptionRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewSubscriptionRepository(client *postgres.Client, log *logger.Logger) subscription.Repository {
	return &subscriptionRepository{client: client, log: log}
}

// Create inserts the subscription. The partial unique index
// subscriptions_one_active_per_user (user_id WHERE status = 'ACTIVE') makes
// the one-active-per-user invariant hold under concurrent creates; the
// resulting unique violation is surfaced as ErrAlreadyExists.
func (r *subscriptionRepository) Create(ctx context.Context, s *subscription.Subscription) error {
	_, err := r.client.Querier(ctx).ExecContext(ctx, `
		INSERT INTO subscriptions
			(id, user_id, plan_id, status, start_date, end_date, cancelled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, s.PlanID, s.Status, s.StartDate, s.EndDate, s.CancelledAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("User already has an active subscription").
				Mark(ierr.ErrAlreadyExists)
		}
		return r.dbErr(err, "failed to create subscription")
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT id, user_id, plan_id, status, start_date, end_date, cancelled_at, created_at, updated_at
		FROM subscriptions WHERE id = $1`, id)

	s, err := scanSubscription(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("subscription %s not found", id).
				WithHint("Subscription not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, r.dbErr(err, "failed to get subscription")
	}
	return s, nil
}

func (r *subscriptionRepository) GetActiveByUserID(ctx context.Context, userID string) (*subscription.Subscription, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT id, user_id, plan_id, status, start_date, end_date, cancelled_at, created_at, updated_at
		FROM subscriptions WHERE user_id = $1 AND status = $2`,
		userID, types.SubscriptionStatusActive,
	)

	s, err := scanSubscription(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("no active subscription for user %s", userID).
				WithHint("No active subscription found").
				Mark(ierr.ErrNotFound)
		}
		return nil, r.dbErr(err, "failed to get active subscription")
	}
	return s, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, s *subscription.Subscription) error {
	result, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE subscriptions
		SET plan_id = $2, status = $3, start_date = $4, end_date = $5, cancelled_at = $6, updated_at = $7
		WHERE id = $1`,
		s.ID, s.PlanID, s.Status, s.StartDate, s.EndDate, s.CancelledAt, s.UpdatedAt,
	)
	if err != nil {
		return r.dbErr(err, "failed to update subscription")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return r.dbErr(err, "failed to read affected rows")
	}
	if affected == 0 {
		return ierr.NewErrorf("subscription %s not found", s.ID).
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *subscriptionRepository) ListExpired(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, `
		SELECT id, user_id, plan_id, status, start_date, end_date, cancelled_at, created_at, updated_at
		FROM subscriptions WHERE status = $1 AND end_date < $2`,
		types.SubscriptionStatusActive, now,
	)
	if err != nil {
		return nil, r.dbErr(err, "failed to list expired subscriptions")
	}
	defer rows.Close()

	var subs []*subscription.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, r.dbErr(err, "failed to scan subscription")
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, r.dbErr(err, "failed to iterate subscriptions")
	}
	return subs, nil
}

// ExpireIfActive re-checks status and end date inside the UPDATE itself, so
// a subscription cancelled between the sweep's read and this write is left
// untouched.
func (r *subscriptionRepository) ExpireIfActive(ctx context.Context, id string, now time.Time) (bool, error) {
	result, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4 AND end_date < $3`,
		id, types.SubscriptionStatusExpired, now, types.SubscriptionStatusActive,
	)
	if err != nil {
		return false, r.dbErr(err, "failed to expire subscription")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, r.dbErr(err, "failed to read affected rows")
	}
	return affected > 0, nil
}

func (r *subscriptionRepository) CountActiveByPlan(ctx context.Context, planID string) (int, error) {
	var count int
	err := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*) FROM subscriptions WHERE plan_id = $1 AND status = $2`,
		planID, types.SubscriptionStatusActive,
	).Scan(&count)
	if err != nil {
		return 0, r.dbErr(err, "failed to count active subscriptions")
	}
	return count, nil
}

func (r *subscriptionRepository) dbErr(err error, msg string) error {
	r.log.Errorw(msg, "error", err)
	return ierr.WithError(err).WithHint(msg).Mark(ierr.ErrDatabase)
}

func scanSubscription(row rowScanner) (*subscription.Subscription, error) {
	var s subscription.Subscription
	if err := row.Scan(
		&s.ID, &s.UserID, &s.PlanID, &s.Status, &s.StartDate, &s.EndDate,
		&s.CancelledAt, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
