package user

import (
	"strings"

	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/types"
)

// User represents an account that can own subscriptions.
type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	IsAdmin      bool   `json:"is_admin"`
	types.BaseModel
}

func (u *User) Validate() error {
	if u.Email == "" || !strings.Contains(u.Email, "@") {
		return ierr.NewError("invalid email").
			WithHint("A valid email address is required").
			Mark(ierr.ErrValidation)
	}
	if u.PasswordHash == "" {
		return ierr.NewError("password hash is required").
			Mark(ierr.ErrValidation)
	}
	return nil
}
