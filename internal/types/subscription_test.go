package types

import (
	"testing"

	ierr "github.com/billflow/billflow/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanTierLevel(t *testing.T) {
	basicLevel, ok := PlanTierBasic.Level()
	require.True(t, ok)
	proLevel, ok := PlanTierPro.Level()
	require.True(t, ok)
	maxLevel, ok := PlanTierMax.Level()
	require.True(t, ok)

	assert.Less(t, basicLevel, proLevel)
	assert.Less(t, proLevel, maxLevel)

	_, ok = PlanTier("enterprise").Level()
	assert.False(t, ok)
}

func TestPlanTierValidate(t *testing.T) {
	assert.NoError(t, PlanTierBasic.Validate())
	assert.NoError(t, PlanTierPro.Validate())
	assert.NoError(t, PlanTierMax.Validate())

	err := PlanTier("enterprise").Validate()
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestBillingCycleDays(t *testing.T) {
	days, err := BillingCycleMonthly.CycleDays()
	require.NoError(t, err)
	assert.Equal(t, 30, days)

	days, err = BillingCycleYearly.CycleDays()
	require.NoError(t, err)
	assert.Equal(t, 365, days)

	_, err = BillingCycle("weekly").CycleDays()
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestSubscriptionActionValidate(t *testing.T) {
	for _, action := range []SubscriptionAction{
		SubscriptionActionPurchase,
		SubscriptionActionRenew,
		SubscriptionActionUpgrade,
		SubscriptionActionDowngrade,
		SubscriptionActionChange,
	} {
		assert.NoError(t, action.Validate())
	}
	assert.Error(t, SubscriptionAction("pause").Validate())
}

func TestSubscriptionStatusValidate(t *testing.T) {
	assert.NoError(t, SubscriptionStatusActive.Validate())
	assert.NoError(t, SubscriptionStatusCancelled.Validate())
	assert.NoError(t, SubscriptionStatusExpired.Validate())
	assert.Error(t, SubscriptionStatus("paused").Validate())
}
