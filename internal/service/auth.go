package service

import (
	"context"

	"github.com/planpilot/planpilot/internal/api/dto"
	"github.com/planpilot/planpilot/internal/domain/user"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/types"
)

// AuthService owns account creation and token issuance.
type AuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	GetUser(ctx context.Context, id string) (*user.User, error)
}

type authService struct {
	ServiceParams
}

func NewAuthService(params ServiceParams) AuthService {
	return &authService{ServiceParams: params}
}

func (s *authService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if s.Config.Auth.DisableSignups {
		return nil, ierr.NewError("signups are disabled").
			WithHint("Account creation is currently disabled").
			Mark(ierr.ErrPermissionDenied)
	}

	hash, err := s.Auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &user.User{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USER),
		Email:        req.Email,
		PasswordHash: hash,
		BaseModel: types.BaseModel{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	if err := s.UserRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	token, err := s.Auth.GenerateToken(u.ID)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("user signed up", "user_id", u.ID)

	return &dto.AuthResponse{UserID: u.ID, Email: u.Email, Token: token}, nil
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	u, err := s.UserRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if ierr.IsNotFound(err) {
			// Do not reveal whether the account exists.
			return nil, ierr.NewError("invalid credentials").
				WithHint("Invalid email or password").
				Mark(ierr.ErrPermissionDenied)
		}
		return nil, err
	}

	if err := s.Auth.CheckPassword(u.PasswordHash, req.Password); err != nil {
		return nil, err
	}

	token, err := s.Auth.GenerateToken(u.ID)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{UserID: u.ID, Email: u.Email, Token: token}, nil
}

func (s *authService) GetUser(ctx context.Context, id string) (*user.User, error) {
	if id == "" {
		return nil, ierr.NewError("user ID is required").
			WithHint("Please provide a valid user ID").
			Mark(ierr.ErrValidation)
	}
	return s.UserRepo.Get(ctx, id)
}
