package types

import ierr "github.com/planpilot/planpilot/internal/errors"

// SubscriptionStatus is the lifecycle state of a subscription.
//
// ACTIVE is the only non-terminal state: it can move to CANCELLED (user
// action) or EXPIRED (sweeper, once the end date has passed). The upstream
// schema also carried an INACTIVE value that no operation ever produced; it
// is deliberately not part of this enum.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusCancelled, SubscriptionStatusExpired:
		return nil
	default:
		return ierr.NewErrorf("invalid subscription status: %s", s).
			WithHint("Status must be one of ACTIVE, CANCELLED, EXPIRED").
			Mark(ierr.ErrValidation)
	}
}

// IsTerminal reports whether no further transition is allowed from s.
func (s SubscriptionStatus) IsTerminal() bool {
	return s == SubscriptionStatusCancelled || s == SubscriptionStatusExpired
}
