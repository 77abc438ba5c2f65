package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/lib/pq"
	"github.com/planpilot/planpilot/internal/domain/plan"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/logger"
	"github.com/planpilot/planpilot/internal/postgres"
)

type planRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewPlanRepository(client *postgres.Client, log *logger.Logger) plan.Repository {
	return &planRepository{client: client, log: log}
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	features, err := json.Marshal(p.Features)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode plan features").
			Mark(ierr.ErrValidation)
	}

	_, err = r.client.Querier(ctx).ExecContext(ctx, `
		INSERT INTO plans (id, name, description, price, duration_days, features, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.Price, p.DurationDays, features, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHintf("A plan named %q already exists", p.Name).
				Mark(ierr.ErrAlreadyExists)
		}
		return r.dbErr(err, "failed to create plan")
	}
	return nil
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT id, name, description, price, duration_days, features, created_at, updated_at
		FROM plans WHERE id = $1`, id)

	p, err := scanPlan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("plan %s not found", id).
				WithHint("Plan not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, r.dbErr(err, "failed to get plan")
	}
	return p, nil
}

func (r *planRepository) GetByName(ctx context.Context, name string) (*plan.Plan, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT id, name, description, price, duration_days, features, created_at, updated_at
		FROM plans WHERE name = $1`, name)

	p, err := scanPlan(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("plan %q not found", name).
				WithHint("Plan not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, r.dbErr(err, "failed to get plan by name")
	}
	return p, nil
}

func (r *planRepository) List(ctx context.Context, limit, offset int) ([]*plan.Plan, error) {
	rows, err := r.client.Querier(ctx).QueryContext(ctx, `
		SELECT id, name, description, price, duration_days, features, created_at, updated_at
		FROM plans ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, r.dbErr(err, "failed to list plans")
	}
	defer rows.Close()

	var plans []*plan.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, r.dbErr(err, "failed to scan plan")
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.dbErr(err, "failed to iterate plans")
	}
	return plans, nil
}

func (r *planRepository) Update(ctx context.Context, p *plan.Plan) error {
	features, err := json.Marshal(p.Features)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode plan features").
			Mark(ierr.ErrValidation)
	}

	result, err := r.client.Querier(ctx).ExecContext(ctx, `
		UPDATE plans
		SET name = $2, description = $3, price = $4, duration_days = $5, features = $6, updated_at = $7
		WHERE id = $1`,
		p.ID, p.Name, p.Description, p.Price, p.DurationDays, features, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHintf("A plan named %q already exists", p.Name).
				Mark(ierr.ErrAlreadyExists)
		}
		return r.dbErr(err, "failed to update plan")
	}
	return r.requireRow(result, p.ID)
}

func (r *planRepository) Delete(ctx context.Context, id string) error {
	result, err := r.client.Querier(ctx).ExecContext(ctx, `DELETE FROM plans WHERE id = $1`, id)
	if err != nil {
		return r.dbErr(err, "failed to delete plan")
	}
	return r.requireRow(result, id)
}

func (r *planRepository) requireRow(result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return r.dbErr(err, "failed to read affected rows")
	}
	if affected == 0 {
		return ierr.NewErrorf("plan %s not found", id).
			WithHint("Plan not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *planRepository) dbErr(err error, msg string) error {
	r.log.Errorw(msg, "error", err)
	return ierr.WithError(err).WithHint(msg).Mark(ierr.ErrDatabase)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlan(row rowScanner) (*plan.Plan, error) {
	var p plan.Plan
	var features []byte
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.DurationDays,
		&features, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if ierr.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
