package postgres

import (
	"context"
	"database/sql"

	"github.com/planpilot/planpilot/internal/domain/user"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/logger"
	"github.com/planpilot/planpilot/internal/postgres"
)

type userRepository struct {
	client *postgres.Client
	log    *logger.Logger
}

func NewUserRepository(client *postgres.Client, log *logger.Logger) user.Repository {
	return &userRepository{client: client, log: log}
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.client.Querier(ctx).ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.PasswordHash, u.IsAdmin, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An account with this email already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return r.dbErr(err, "failed to create user")
	}
	return nil
}

func (r *userRepository) Get(ctx context.Context, id string) (*user.User, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT id, email, password_hash, is_admin, created_at, updated_at
		FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("user %s not found", id).
				WithHint("User not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, r.dbErr(err, "failed to get user")
	}
	return u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	row := r.client.Querier(ctx).QueryRowContext(ctx, `
		SELECT id, email, password_hash, is_admin, created_at, updated_at
		FROM users WHERE email = $1`, email)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ierr.NewErrorf("user %s not found", email).
				WithHint("User not found").
				Mark(ierr.ErrNotFound)
		}
		return nil, r.dbErr(err, "failed to get user by email")
	}
	return u, nil
}

func (r *userRepository) dbErr(err error, msg string) error {
	r.log.Errorw(msg, "error", err)
	return ierr.WithError(err).WithHint(msg).Mark(ierr.ErrDatabase)
}

func scanUser(row rowScanner) (*user.User, error) {
	var u user.User
	if err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}
