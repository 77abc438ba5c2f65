package payment

import (
	"context"

	"github.com/planpilot/planpilot/internal/logger"
	"github.com/shopspring/decimal"
)

// Gateway is the unreliable downstream that authorizes charges for
// subscription purchases. Calls to it are routed through the circuit breaker
// by the subscription service.
type Gateway interface {
	Authorize(ctx context.Context, userID, planID string, amount decimal.Decimal) error
}

// NoopGateway approves every authorization. Payment processing itself is out
// of scope; this stub stands in for the real integration so the call path and
// its breaker protection stay exercised.
type NoopGateway struct {
	log *logger.Logger
}

func NewNoopGateway(log *logger.Logger) *NoopGateway {
	return &NoopGateway{log: log}
}

func (g *NoopGateway) Authorize(ctx context.Context, userID, planID string, amount decimal.Decimal) error {
	g.log.Debugw("payment authorization approved",
		"user_id", userID, "plan_id", planID, "amount", amount.String())
	return nil
}
