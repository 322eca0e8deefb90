package subscription

import (
	"time"

	ierr "github.com/billflow/billflow/internal/errors"
	"github.com/billflow/billflow/internal/types"
	"github.com/shopspring/decimal"
)

// Subscription represents the domain model for a user subscription.
//
// At most one subscription per user is active at any time; that invariant
// is enforced by the surrounding system, not here. Cancelled rows are kept
// as historical overlap anchors whose expiry is extended, never shortened,
// at cancellation time.
type Subscription struct {
	ID                 string                   `json:"id"`
	UserID             string                   `json:"user_id"`
	PlanTier           types.PlanTier           `json:"plan_tier"`
	BillingCycle       types.BillingCycle       `json:"billing_cycle"`
	SubscriptionStatus types.SubscriptionStatus `json:"subscription_status"`
	MonthlyCredits     decimal.Decimal          `json:"monthly_credits"`
	ExternalRef        *string                  `json:"external_ref,omitempty"`
	ExpiresAt          time.Time                `json:"expires_at"`
	types.BaseModel
}

// Validate validates the subscription
func (s *Subscription) Validate() error {
	if s.UserID == "" {
		return ierr.NewError("user_id is required").Mark(ierr.ErrValidation)
	}
	if err := s.PlanTier.Validate(); err != nil {
		return err
	}
	if err := s.BillingCycle.Validate(); err != nil {
		return err
	}
	if err := s.SubscriptionStatus.Validate(); err != nil {
		return err
	}
	if s.ExpiresAt.IsZero() {
		return ierr.NewError("expires_at is required").Mark(ierr.ErrValidation)
	}
	if s.MonthlyCredits.IsNegative() {
		return ierr.NewError("monthly_credits cannot be negative").
			WithReportableDetails(map[string]interface{}{
				"monthly_credits": s.MonthlyCredits.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// IsActive reports whether the subscription is currently the user's live plan.
func (s *Subscription) IsActive() bool {
	return s.SubscriptionStatus == types.SubscriptionStatusActive
}
