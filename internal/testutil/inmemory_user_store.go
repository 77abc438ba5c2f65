package testutil

import (
	"context"

	"github.com/planpilot/planpilot/internal/domain/user"
	ierr "github.com/planpilot/planpilot/internal/errors"
)

// InMemoryUserStore implements user.Repository
type InMemoryUserStore struct {
	*InMemoryStore[*user.User]
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{InMemoryStore: NewInMemoryStore[*user.User]()}
}

func copyUser(u *user.User) *user.User {
	if u == nil {
		return nil
	}
	copied := *u
	return &copied
}

func (s *InMemoryUserStore) Create(ctx context.Context, u *user.User) error {
	if u == nil {
		return ierr.NewError("user cannot be nil").
			WithHint("User cannot be nil").
			Mark(ierr.ErrValidation)
	}

	if _, err := s.GetByEmail(ctx, u.Email); err == nil {
		return ierr.NewError("user with this email already exists").
			WithHint("A user with this email already exists").
			WithReportableDetails(map[string]any{"email": u.Email}).
			Mark(ierr.ErrAlreadyExists)
	}

	if err := s.InMemoryStore.Create(ctx, u.ID, copyUser(u)); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create user").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (s *InMemoryUserStore) Get(ctx context.Context, id string) (*user.User, error) {
	u, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("user not found").
			WithHint("User not found").
			WithReportableDetails(map[string]any{"id": id}).
			Mark(ierr.ErrNotFound)
	}
	return copyUser(u), nil
}

func (s *InMemoryUserStore) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	users := s.InMemoryStore.List(ctx, func(_ context.Context, u *user.User) bool {
		return u.Email == email
	}, nil)
	if len(users) == 0 {
		return nil, ierr.NewError("user not found").
			WithHint("User not found").
			WithReportableDetails(map[string]any{"email": email}).
			Mark(ierr.ErrNotFound)
	}
	return copyUser(users[0]), nil
}
