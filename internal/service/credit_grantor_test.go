package service

import (
	"context"
	"time"

	"github.com/billflow/billflow/internal/domain/creditpackage"
	"github.com/billflow/billflow/internal/domain/subscription"
	"github.com/billflow/billflow/internal/testutil"
	"github.com/billflow/billflow/internal/types"
)

// stubCreditGrantor implements CreditGrantor against the in-memory stores:
// it creates the subscription row and its monthly credit package the way
// the external collaborator would.
type stubCreditGrantor struct {
	subStore     *testutil.InMemorySubscriptionStore
	packageStore *testutil.InMemoryCreditPackageStore

	// err makes CreateSubscription fail, for compensation-path tests.
	err error

	// now pins the clock used for new expiries; defaults to time.Now.
	now func() time.Time

	// createdSubscriptionIDs records grants in call order.
	createdSubscriptionIDs []string
}

func newStubCreditGrantor(subStore *testutil.InMemorySubscriptionStore, packageStore *testutil.InMemoryCreditPackageStore) *stubCreditGrantor {
	return &stubCreditGrantor{
		subStore:     subStore,
		packageStore: packageStore,
	}
}

func (g *stubCreditGrantor) clock() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now().UTC()
}

func (g *stubCreditGrantor) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	if err := req.Validate(); err != nil {
		return "", err
	}

	cycleDays, err := req.BillingCycle.CycleDays()
	if err != nil {
		return "", err
	}

	now := g.clock()
	expiresAt := now.Add(time.Duration(cycleDays) * 24 * time.Hour)

	sub := &subscription.Subscription{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		UserID:             req.UserID,
		PlanTier:           req.PlanTier,
		BillingCycle:       req.BillingCycle,
		SubscriptionStatus: types.SubscriptionStatusActive,
		MonthlyCredits:     req.MonthlyCredits,
		ExternalRef:        req.ExternalRef,
		ExpiresAt:          expiresAt,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
	if err := g.subStore.Create(ctx, sub); err != nil {
		return "", err
	}

	// Monthly refill packages expire after 30 days regardless of cycle;
	// yearly subscriptions receive twelve of them over time.
	if req.MonthlyCredits.IsPositive() {
		pkg := &creditpackage.CreditPackage{
			ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CREDIT_PACKAGE),
			UserID:          req.UserID,
			SubscriptionID:  sub.ID,
			Amount:          req.MonthlyCredits,
			RemainingAmount: req.MonthlyCredits,
			ExpiresAt:       now.Add(30 * 24 * time.Hour),
			BaseModel:       types.GetDefaultBaseModel(ctx),
		}
		if err := g.packageStore.Create(ctx, pkg); err != nil {
			return "", err
		}
	}

	g.createdSubscriptionIDs = append(g.createdSubscriptionIDs, sub.ID)
	return sub.ID, nil
}
