package plan

import (
	ierr "github.com/planpilot/planpilot/internal/errors"
	"github.com/planpilot/planpilot/internal/types"
	"github.com/shopspring/decimal"
)

// Plan is a catalog entry describing a purchasable subscription tier.
// Referenced by subscriptions via its ID; mutated by administrative
// operations only.
type Plan struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days"`
	Features     []string        `json:"features"`
	types.BaseModel
}

func (p *Plan) Validate() error {
	if p.Name == "" {
		return ierr.NewError("plan name is required").
			WithHint("Plan name is required").
			Mark(ierr.ErrValidation)
	}
	if !p.Price.IsPositive() {
		return ierr.NewError("plan price must be positive").
			WithHint("Price must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if p.DurationDays <= 0 {
		return ierr.NewError("plan duration must be positive").
			WithHint("Duration in days must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	return nil
}
