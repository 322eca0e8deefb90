package types

import (
	ierr "github.com/billflow/billflow/internal/errors"
)

// PlanTier is a subscription product level. Tiers form a total order and
// must always be compared through Level, never by raw string comparison.
type PlanTier string

const (
	PlanTierBasic PlanTier = "basic"
	PlanTierPro   PlanTier = "pro"
	PlanTierMax   PlanTier = "max"
)

// planHierarchy assigns each tier its position in the upgrade order.
var planHierarchy = map[PlanTier]int{
	PlanTierBasic: 1,
	PlanTierPro:   2,
	PlanTierMax:   3,
}

func (p PlanTier) String() string {
	return string(p)
}

// Level returns the tier's position in the plan hierarchy. The second
// return is false for unknown tiers.
func (p PlanTier) Level() (int, bool) {
	level, ok := planHierarchy[p]
	return level, ok
}

func (p PlanTier) Validate() error {
	if _, ok := planHierarchy[p]; !ok {
		return ierr.NewError("invalid plan tier").
			WithHintf("Plan tier must be one of basic, pro, max, got %s", p).
			WithReportableDetails(map[string]interface{}{
				"plan_tier": string(p),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// BillingCycle is the recurrence of a subscription, mapped to a fixed day
// count. Cycle lengths are deliberately fixed at 30/365 days; all expiry
// and freeze arithmetic depends on these constants staying calendar free.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

var billingCycleDays = map[BillingCycle]int{
	BillingCycleMonthly: 30,
	BillingCycleYearly:  365,
}

func (b BillingCycle) String() string {
	return string(b)
}

// CycleDays returns the fixed day count for the cycle. Unknown cycles fail
// eagerly instead of defaulting so a future cycle value cannot silently
// corrupt expiry arithmetic.
func (b BillingCycle) CycleDays() (int, error) {
	days, ok := billingCycleDays[b]
	if !ok {
		return 0, ierr.NewError("invalid billing cycle").
			WithHintf("Billing cycle must be monthly or yearly, got %s", b).
			WithReportableDetails(map[string]interface{}{
				"billing_cycle": string(b),
			}).
			Mark(ierr.ErrValidation)
	}
	return days, nil
}

func (b BillingCycle) Validate() error {
	_, err := b.CycleDays()
	return err
}

// SubscriptionAction classifies what a requested plan change means relative
// to the user's current subscription.
type SubscriptionAction string

const (
	SubscriptionActionPurchase  SubscriptionAction = "purchase"
	SubscriptionActionRenew     SubscriptionAction = "renew"
	SubscriptionActionUpgrade   SubscriptionAction = "upgrade"
	SubscriptionActionDowngrade SubscriptionAction = "downgrade"
	SubscriptionActionChange    SubscriptionAction = "change"
)

func (a SubscriptionAction) String() string {
	return string(a)
}

func (a SubscriptionAction) Validate() error {
	switch a {
	case SubscriptionActionPurchase,
		SubscriptionActionRenew,
		SubscriptionActionUpgrade,
		SubscriptionActionDowngrade,
		SubscriptionActionChange:
		return nil
	}
	return ierr.NewError("invalid subscription action").
		WithHintf("Unknown subscription action %s", a).
		Mark(ierr.ErrValidation)
}

// SubscriptionStatus is the domain status of a subscription row. Cancelled
// rows are retained as historical overlap anchors, never deleted.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) String() string {
	return string(s)
}

func (s SubscriptionStatus) Validate() error {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusCancelled, SubscriptionStatusExpired:
		return nil
	}
	return ierr.NewError("invalid subscription status").
		WithHintf("Unknown subscription status %s", s).
		Mark(ierr.ErrValidation)
}
