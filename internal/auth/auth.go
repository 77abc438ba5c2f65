package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/planpilot/planpilot/internal/config"
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"
)

// Claims is the authenticated caller identity extracted from a token.
type Claims struct {
	UserID string
}

// Provider issues and validates HS256 tokens and owns password hashing.
type Provider struct {
	cfg config.AuthConfig
}

func NewProvider(cfg *config.Configuration) *Provider {
	return &Provider{cfg: cfg.Auth}
}

// IsAdminUser reports whether the user is granted admin access through
// configuration, independent of the is_admin flag on the stored record.
func (p *Provider) IsAdminUser(userID string) bool {
	return lo.Contains(p.cfg.AdminUserIDs, userID)
}

// HashPassword returns the bcrypt hash of a plaintext password.
func (p *Provider) HashPassword(password string) (string, error) {
	cost := p.cfg.BcryptCost
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to hash password").
			Mark(ierr.ErrSystem)
	}
	return string(hash), nil
}

// CheckPassword validates a plaintext password against a stored hash.
func (p *Provider) CheckPassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ierr.NewError("invalid password").
			WithHint("Invalid email or password").
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}

// GenerateToken issues a signed JWT for the user.
func (p *Provider) GenerateToken(userID string) (string, error) {
	expiry := p.cfg.TokenExpiry
	if expiry <= 0 {
		expiry = 30 * 24 * time.Hour
	}

	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(expiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(p.cfg.Secret))
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to generate token").
			Mark(ierr.ErrSystem)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, returning the caller claims.
func (p *Provider) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	parsedToken, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ierr.NewError("unexpected signing method").
				WithHint(fmt.Sprintf("unexpected signing method: %v", token.Header["alg"])).
				Mark(ierr.ErrPermissionDenied)
		}
		return []byte(p.cfg.Secret), nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid or expired token").
			Mark(ierr.ErrPermissionDenied)
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Invalid token claims").
			Mark(ierr.ErrPermissionDenied)
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, ierr.NewError("token missing user ID").
			WithHint("Token missing user ID").
			Mark(ierr.ErrPermissionDenied)
	}

	return &Claims{UserID: userID}, nil
}
