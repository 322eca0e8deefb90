package service

import (
	"context"

	"github.com/billflow/billflow/internal/types"
	"github.com/billflow/billflow/internal/validator"
	"github.com/shopspring/decimal"
)

// CreateSubscriptionRequest is the contract of the credit-granting
// collaborator for creating a subscription together with its initial
// credit grant.
type CreateSubscriptionRequest struct {
	UserID         string             `json:"user_id" validate:"required"`
	PlanTier       types.PlanTier     `json:"plan_tier" validate:"required"`
	BillingCycle   types.BillingCycle `json:"billing_cycle" validate:"required"`
	MonthlyCredits decimal.Decimal    `json:"monthly_credits"`
	ExternalRef    *string            `json:"external_ref,omitempty"`
}

// Validate validates the request
func (r CreateSubscriptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.PlanTier.Validate(); err != nil {
		return err
	}
	return r.BillingCycle.Validate()
}

// CreditGrantor is the external credit-granting collaborator. The engine
// never grants credits itself; it calls this interface to create the
// replacement subscription and relies on the caller to have granted the
// new plan's monthly credits before Phase B runs.
type CreditGrantor interface {
	// CreateSubscription creates a new subscription row plus its credit
	// grant and returns the new subscription ID.
	CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (string, error)
}
