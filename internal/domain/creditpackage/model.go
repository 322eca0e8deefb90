package creditpackage

import (
	"time"

	ierr "github.com/billflow/billflow/internal/errors"
	"github.com/billflow/billflow/internal/types"
	"github.com/shopspring/decimal"
)

// CreditPackage is a ledger grant row: a batch of usage credits granted at
// subscription purchase or renewal with its own expiry and remaining
// balance. Packages are consumed FIFO per subscription lineage.
//
// A frozen package's clock is paused: its expires_at is rewritten to the
// point at which its remaining lifetime resumes, and it stays out of FIFO
// selection until thawed by an external job. Freezing never touches
// remaining_amount.
type CreditPackage struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	SubscriptionID  string          `json:"subscription_id"`
	Amount          decimal.Decimal `json:"amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	ExpiresAt       time.Time       `json:"expires_at"`

	IsFrozen               bool       `json:"is_frozen"`
	FrozenUntil            *time.Time `json:"frozen_until,omitempty"`
	FrozenRemainingSeconds *int64     `json:"frozen_remaining_seconds,omitempty"`
	OriginalExpiresAt      *time.Time `json:"original_expires_at,omitempty"`
	FrozenReason           *string    `json:"frozen_reason,omitempty"`

	types.BaseModel
}

// FreezeUpdate carries the persisted fields of a freeze operation.
type FreezeUpdate struct {
	FrozenUntil       time.Time
	RemainingSeconds  int64
	NewExpiresAt      time.Time
	OriginalExpiresAt time.Time
	Reason            string
}

// Validate validates the credit package
func (c *CreditPackage) Validate() error {
	if c.UserID == "" {
		return ierr.NewError("user_id is required").Mark(ierr.ErrValidation)
	}
	if c.SubscriptionID == "" {
		return ierr.NewError("subscription_id is required").Mark(ierr.ErrValidation)
	}
	if c.Amount.IsNegative() {
		return ierr.NewError("amount cannot be negative").
			WithReportableDetails(map[string]interface{}{
				"amount": c.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if c.RemainingAmount.GreaterThan(c.Amount) {
		return ierr.NewError("remaining_amount cannot exceed amount").
			WithReportableDetails(map[string]interface{}{
				"amount":           c.Amount.String(),
				"remaining_amount": c.RemainingAmount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if c.ExpiresAt.IsZero() {
		return ierr.NewError("expires_at is required").Mark(ierr.ErrValidation)
	}
	return nil
}

// SelectableForFIFO reports whether the package is eligible for FIFO
// consumption: a positive grant with remaining balance and no active freeze.
func (c *CreditPackage) SelectableForFIFO() bool {
	return c.Amount.IsPositive() && c.RemainingAmount.IsPositive() && !c.IsFrozen
}
