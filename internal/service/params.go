package service

import (
	"context"
	"time"

	"github.com/planpilot/planpilot/internal/auth"
	"github.com/planpilot/planpilot/internal/breaker"
	"github.com/planpilot/planpilot/internal/cache"
	"github.com/planpilot/planpilot/internal/config"
	"github.com/planpilot/planpilot/internal/domain/plan"
	"github.com/planpilot/planpilot/internal/domain/subscription"
	"github.com/planpilot/planpilot/internal/domain/user"
	"github.com/planpilot/planpilot/internal/logger"
	"github.com/planpilot/planpilot/internal/payment"
)

// TxRunner runs a function inside a single logical transaction against the
// durable store. The postgres client implements it; tests substitute a
// pass-through.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ServiceParams bundles the dependencies shared by all services.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     TxRunner

	UserRepo user.Repository
	PlanRepo plan.Repository
	SubRepo  subscription.Repository

	Cache          cache.Cache
	Auth           *auth.Provider
	PaymentGateway payment.Gateway
	PaymentBreaker *breaker.Breaker

	// Now is the clock used for all lifecycle timestamps. Defaults to
	// time.Now; injectable for tests.
	Now func() time.Time
}

func (p ServiceParams) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}
