// Package planchange holds the pure calculation core of the plan
// transition engine: action classification, fixed-cycle date arithmetic
// and freeze parameter computation. Nothing in this package performs I/O
// or reads clocks; callers pass the reference time explicitly.
package planchange

import (
	"time"

	"github.com/billflow/billflow/internal/types"
)

const (
	millisPerDay    = 24 * 60 * 60 * 1000
	millisPerSecond = 1000
)

// FreezeParams is the result of CalculateFreezeParams.
type FreezeParams struct {
	// RemainingSeconds is the unspent lifetime the package had at the freeze
	// instant, floored to whole seconds and never negative.
	RemainingSeconds int64

	// NewExpiresAt is where the package's expiry clock resumes: the freeze
	// end plus the remaining lifetime.
	NewExpiresAt time.Time
}

// DeterminePlanAction classifies a requested plan change relative to the
// user's current plan. Rules apply in order: no current plan means a first
// purchase; identical plan and cycle means a renewal; a higher target level
// is an upgrade, a lower one a downgrade; the same level on a different
// cycle is a cycle change.
//
// Pass nil currentPlan/currentCycle when the user has no subscription.
func DeterminePlanAction(
	currentPlan *types.PlanTier,
	currentCycle *types.BillingCycle,
	targetPlan types.PlanTier,
	targetCycle types.BillingCycle,
) (types.SubscriptionAction, error) {
	targetLevel, ok := targetPlan.Level()
	if !ok {
		return "", targetPlan.Validate()
	}
	if err := targetCycle.Validate(); err != nil {
		return "", err
	}

	if currentPlan == nil || currentCycle == nil {
		return types.SubscriptionActionPurchase, nil
	}

	currentLevel, ok := currentPlan.Level()
	if !ok {
		return "", currentPlan.Validate()
	}
	if err := currentCycle.Validate(); err != nil {
		return "", err
	}

	if *currentPlan == targetPlan && *currentCycle == targetCycle {
		return types.SubscriptionActionRenew, nil
	}

	if targetLevel > currentLevel {
		return types.SubscriptionActionUpgrade, nil
	}
	if targetLevel < currentLevel {
		return types.SubscriptionActionDowngrade, nil
	}

	// Same tier, different cycle (e.g. pro monthly to pro yearly).
	return types.SubscriptionActionChange, nil
}

// CalculateRemainingDays returns the whole days left until expiry, rounded
// up so a user is never short-changed by truncation, and floored at zero.
func CalculateRemainingDays(expiresAt, now time.Time) int {
	diffMs := expiresAt.Sub(now).Milliseconds()
	if diffMs <= 0 {
		return 0
	}
	return int((diffMs + millisPerDay - 1) / millisPerDay)
}

// CalculateExtendedExpiry pushes an expiry out by a fixed number of days.
// Pure millisecond addition, deliberately free of calendar-month semantics.
func CalculateExtendedExpiry(originalExpiry time.Time, additionalDays int) time.Time {
	return originalExpiry.Add(time.Duration(additionalDays) * 24 * time.Hour).UTC()
}

// CalculateFreezeParams computes how a credit package's expiry clock pauses
// over [now, frozenUntil] and resumes afterwards.
//
// The conservation law: total remaining lifetime before and after freezing
// is identical, merely shifted in time. NewExpiresAt - frozenUntil always
// equals RemainingSeconds.
//
// If the package is already past its expiry, RemainingSeconds is zero and
// NewExpiresAt equals frozenUntil: the package is exhausted and thaws with
// nothing left.
func CalculateFreezeParams(originalExpiresAt, frozenUntil, now time.Time) FreezeParams {
	diffMs := originalExpiresAt.Sub(now).Milliseconds()

	var remainingSeconds int64
	if diffMs > 0 {
		remainingSeconds = diffMs / millisPerSecond
	}

	return FreezeParams{
		RemainingSeconds: remainingSeconds,
		NewExpiresAt:     frozenUntil.Add(time.Duration(remainingSeconds) * time.Second).UTC(),
	}
}

// ValidatePlanChange checks that both sides of a plan change carry known
// enum values before any arithmetic happens.
func ValidatePlanChange(targetPlan types.PlanTier, targetCycle types.BillingCycle) error {
	if err := targetPlan.Validate(); err != nil {
		return err
	}
	if err := targetCycle.Validate(); err != nil {
		return err
	}
	return nil
}
