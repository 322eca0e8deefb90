package service

import (
	"context"
	"fmt"
	"time"

	"github.com/billflow/billflow/internal/domain/creditpackage"
	"github.com/billflow/billflow/internal/domain/planchange"
	ierr "github.com/billflow/billflow/internal/errors"
	"github.com/billflow/billflow/internal/types"
	"github.com/billflow/billflow/internal/validator"
	"github.com/shopspring/decimal"
)

// PlanChangeService orchestrates subscription upgrades and downgrades as a
// two-phase flow.
//
// Phase A (PreparePlanChange) cancels the old subscription with an
// extended expiry, creates the replacement through the credit-granting
// collaborator and locates the old subscription's FIFO credit package.
// The caller then grants the new plan's monthly credits. Phase B
// (FreezeCredits) runs only after that grant exists: freezing first would
// leave the user temporarily credit-less.
type PlanChangeService interface {
	// DetermineAction classifies what a requested plan/cycle combination
	// means for the user: purchase, renew, upgrade, downgrade or change.
	DetermineAction(ctx context.Context, userID string, targetPlan types.PlanTier, targetCycle types.BillingCycle) (types.SubscriptionAction, error)

	// PreparePlanChange executes Phase A. Errors propagate: after a Phase A
	// failure the caller must not grant credits or invoke Phase B.
	PreparePlanChange(ctx context.Context, req PlanChangeRequest) (*PlanChangePrepareResult, error)

	// FreezeCredits executes Phase B. Failures are captured in the result,
	// never returned: the primary plan change has already committed and
	// must not be unwound over secondary bookkeeping. A reconciliation job
	// retries failed freezes out of band.
	FreezeCredits(ctx context.Context, prep *PlanChangePrepareResult, action types.SubscriptionAction, planTier types.PlanTier, billingCycle types.BillingCycle) *CreditFreezeResult
}

// PlanChangeRequest is the input of Phase A.
type PlanChangeRequest struct {
	UserID         string                   `json:"user_id" validate:"required"`
	PlanTier       types.PlanTier           `json:"plan_tier" validate:"required"`
	BillingCycle   types.BillingCycle       `json:"billing_cycle" validate:"required"`
	MonthlyCredits decimal.Decimal          `json:"monthly_credits"`
	ExternalRef    *string                  `json:"external_ref,omitempty"`
	Action         types.SubscriptionAction `json:"action" validate:"required"`
}

// Validate validates the request
func (r PlanChangeRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if err := r.PlanTier.Validate(); err != nil {
		return err
	}
	if err := r.BillingCycle.Validate(); err != nil {
		return err
	}
	if r.Action != types.SubscriptionActionUpgrade && r.Action != types.SubscriptionActionDowngrade {
		return ierr.NewError("invalid plan change action").
			WithHintf("Plan change only handles upgrade or downgrade, got %s", r.Action).
			WithReportableDetails(map[string]interface{}{
				"action": r.Action.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// PlanChangePrepareResult is the output of Phase A, carried by the caller
// into Phase B.
type PlanChangePrepareResult struct {
	NewSubscriptionID string                       `json:"new_subscription_id"`
	OldSubscriptionID string                       `json:"old_subscription_id"`
	FIFOPackage       *creditpackage.CreditPackage `json:"fifo_package,omitempty"`
}

// CreditFreezeResult is the outcome of Phase B.
type CreditFreezeResult struct {
	Frozen    bool   `json:"frozen"`
	PackageID string `json:"package_id,omitempty"`
	Error     error  `json:"-"`
}

type planChangeService struct {
	ServiceParams

	// timeNow is swapped in tests to pin freeze arithmetic.
	timeNow func() time.Time
}

func NewPlanChangeService(params ServiceParams) PlanChangeService {
	return &planChangeService{
		ServiceParams: params,
		timeNow:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *planChangeService) DetermineAction(ctx context.Context, userID string, targetPlan types.PlanTier, targetCycle types.BillingCycle) (types.SubscriptionAction, error) {
	sub, err := s.SubRepo.GetActive(ctx, userID)
	if err != nil {
		return "", err
	}

	if sub == nil {
		return planchange.DeterminePlanAction(nil, nil, targetPlan, targetCycle)
	}
	return planchange.DeterminePlanAction(&sub.PlanTier, &sub.BillingCycle, targetPlan, targetCycle)
}

func (s *planChangeService) PreparePlanChange(ctx context.Context, req PlanChangeRequest) (*PlanChangePrepareResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := s.Logger.WithContext(ctx)
	log.Infow("preparing plan change",
		"user_id", req.UserID,
		"action", req.Action,
		"plan_tier", req.PlanTier,
		"billing_cycle", req.BillingCycle,
	)

	oldSub, err := s.SubRepo.GetActive(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if oldSub == nil {
		// Upgrade/downgrade presumes an existing subscription.
		return nil, ierr.NewError("no active subscription found").
			WithHintf("No active subscription found for user %s", req.UserID).
			WithReportableDetails(map[string]interface{}{
				"user_id": req.UserID,
			}).
			Mark(ierr.ErrNotFound)
	}

	cycleDays, err := req.BillingCycle.CycleDays()
	if err != nil {
		return nil, err
	}

	// The old subscription's expiry is pushed out by exactly one new-cycle
	// length. This shadow tail keeps its credit package referenceable for
	// freeze bookkeeping after the plan change. Cancelling with "now" or
	// the unmodified expiry would shortchange frozen credits later.
	extendedOldExpiry := planchange.CalculateExtendedExpiry(oldSub.ExpiresAt, cycleDays)

	log.Debugw("extending old subscription expiry",
		"old_subscription_id", oldSub.ID,
		"old_expires_at", oldSub.ExpiresAt,
		"cycle_days", cycleDays,
		"extended_expires_at", extendedOldExpiry,
	)

	// Serialize concurrent plan changes per user: two racing requests must
	// not both read and cancel the same active subscription.
	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		lockKey := types.GenerateLockKey(txCtx, types.LockScopePlanChange, map[string]interface{}{
			"user_id": req.UserID,
		})
		if lockErr := s.DB.LockKey(txCtx, types.LockRequest{Key: lockKey}); lockErr != nil {
			return ierr.WithError(lockErr).
				WithHint("Failed to acquire plan change lock").
				WithReportableDetails(map[string]interface{}{
					"user_id": req.UserID,
				}).
				Mark(ierr.ErrDatabase)
		}

		return s.SubRepo.Cancel(txCtx, oldSub.ID, req.UserID, extendedOldExpiry)
	})
	if err != nil {
		return nil, err
	}

	log.Infow("old subscription cancelled with extended expiry",
		"old_subscription_id", oldSub.ID,
		"extended_expires_at", extendedOldExpiry,
	)

	newSubID, err := s.CreditGrantor.CreateSubscription(ctx, CreateSubscriptionRequest{
		UserID:         req.UserID,
		PlanTier:       req.PlanTier,
		BillingCycle:   req.BillingCycle,
		MonthlyCredits: req.MonthlyCredits,
		ExternalRef:    req.ExternalRef,
	})
	if err != nil {
		// The old subscription is already cancelled; restore it with its
		// original expiry so the user is not left without an active plan.
		log.Errorw("subscription creation failed, reactivating old subscription",
			"old_subscription_id", oldSub.ID,
			"error", err,
		)
		if compErr := s.SubRepo.Reactivate(ctx, oldSub.ID, req.UserID, oldSub.ExpiresAt); compErr != nil {
			return nil, ierr.WithError(err).
				WithHintf("Subscription creation failed and compensation also failed: %v", compErr).
				WithReportableDetails(map[string]interface{}{
					"user_id":             req.UserID,
					"old_subscription_id": oldSub.ID,
					"compensation_error":  compErr.Error(),
				}).
				Mark(ierr.ErrInternal)
		}
		return nil, err
	}

	log.Infow("new subscription created",
		"new_subscription_id", newSubID,
		"plan_tier", req.PlanTier,
		"billing_cycle", req.BillingCycle,
	)

	// Locate the FIFO package of the old subscription. Freezing is
	// deferred to Phase B, after the replacement credits exist.
	fifoPkg, err := s.CreditPackageRepo.GetFIFOPackage(ctx, req.UserID, oldSub.ID)
	if err != nil {
		return nil, err
	}

	if fifoPkg != nil {
		log.Debugw("found FIFO credit package to freeze",
			"package_id", fifoPkg.ID,
			"remaining_amount", fifoPkg.RemainingAmount,
			"expires_at", fifoPkg.ExpiresAt,
		)
	} else {
		log.Debugw("no credit package eligible for freezing",
			"old_subscription_id", oldSub.ID,
		)
	}

	return &PlanChangePrepareResult{
		NewSubscriptionID: newSubID,
		OldSubscriptionID: oldSub.ID,
		FIFOPackage:       fifoPkg,
	}, nil
}

func (s *planChangeService) FreezeCredits(ctx context.Context, prep *PlanChangePrepareResult, action types.SubscriptionAction, planTier types.PlanTier, billingCycle types.BillingCycle) *CreditFreezeResult {
	log := s.Logger.WithContext(ctx)

	if prep == nil || prep.FIFOPackage == nil {
		log.Debugw("no credit package to freeze, skipping")
		return &CreditFreezeResult{Frozen: false}
	}

	pkg := prep.FIFOPackage

	// Re-read the new subscription's authoritative expiry; the value from
	// Phase A may be stale by now.
	newSubExpiresAt, err := s.SubRepo.GetExpiresAt(ctx, prep.NewSubscriptionID)
	if err != nil {
		log.Errorw("credit freeze failed reading new subscription expiry",
			"new_subscription_id", prep.NewSubscriptionID,
			"package_id", pkg.ID,
			"error", err,
		)
		return &CreditFreezeResult{Frozen: false, Error: err}
	}

	freezeParams := planchange.CalculateFreezeParams(pkg.ExpiresAt, newSubExpiresAt, s.timeNow())

	log.Debugw("calculated freeze parameters",
		"package_id", pkg.ID,
		"frozen_until", newSubExpiresAt,
		"remaining_seconds", freezeParams.RemainingSeconds,
		"new_expires_at", freezeParams.NewExpiresAt,
	)

	err = s.CreditPackageRepo.Freeze(ctx, pkg.ID, creditpackage.FreezeUpdate{
		FrozenUntil:       newSubExpiresAt,
		RemainingSeconds:  freezeParams.RemainingSeconds,
		NewExpiresAt:      freezeParams.NewExpiresAt,
		OriginalExpiresAt: pkg.ExpiresAt,
		Reason:            fmt.Sprintf("%s to %s %s", action, planTier, billingCycle),
	})
	if err != nil {
		log.Errorw("credit freeze failed",
			"package_id", pkg.ID,
			"error", err,
		)
		return &CreditFreezeResult{Frozen: false, Error: err}
	}

	log.Infow("credit package frozen",
		"package_id", pkg.ID,
		"frozen_until", newSubExpiresAt,
	)

	return &CreditFreezeResult{Frozen: true, PackageID: pkg.ID}
}
