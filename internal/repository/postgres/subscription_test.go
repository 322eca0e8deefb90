package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	domainSubscription "github.com/billflow/billflow/internal/domain/subscription"
	ierr "github.com/billflow/billflow/internal/errors"
	"github.com/billflow/billflow/internal/logger"
	"github.com/billflow/billflow/internal/postgres"
	"github.com/billflow/billflow/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockClient(t *testing.T) (postgres.IClient, sqlmock.Sqlmock, context.Context) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	ctx := types.SetUserID(context.Background(), "user_test")
	return postgres.NewClientWithDB(db, logger.GetLogger()), mock, ctx
}

var subscriptionRowColumns = []string{
	"id", "user_id", "plan_tier", "billing_cycle", "subscription_status", "monthly_credits",
	"external_ref", "expires_at", "status", "created_at", "updated_at", "created_by", "updated_by",
}

func subscriptionRow(id string, expiresAt time.Time) *sqlmock.Rows {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(subscriptionRowColumns).AddRow(
		id, "user_test", "pro", "monthly", "active", "500",
		nil, expiresAt, "published", now, now, "user_test", "user_test",
	)
}

func TestSubscriptionRepository_Create(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewSubscriptionRepository(client, logger.GetLogger())

	sub := &domainSubscription.Subscription{
		ID:                 "subs_01",
		UserID:             "user_test",
		PlanTier:           types.PlanTierPro,
		BillingCycle:       types.BillingCycleMonthly,
		SubscriptionStatus: types.SubscriptionStatusActive,
		MonthlyCredits:     decimal.NewFromInt(500),
		ExpiresAt:          time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}

	mock.ExpectExec("INSERT INTO user_subscriptions").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(ctx, sub))
}

func TestSubscriptionRepository_Create_InvalidSkipsDatabase(t *testing.T) {
	client, _, ctx := newMockClient(t)
	repo := NewSubscriptionRepository(client, logger.GetLogger())

	sub := &domainSubscription.Subscription{
		ID:     "subs_01",
		UserID: "user_test",
		// missing plan tier and cycle
	}

	err := repo.Create(ctx, sub)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestSubscriptionRepository_Get(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewSubscriptionRepository(client, logger.GetLogger())

	expiresAt := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM user_subscriptions WHERE id = \\$1").
		WithArgs("subs_01").
		WillReturnRows(subscriptionRow("subs_01", expiresAt))

	sub, err := repo.Get(ctx, "subs_01")
	require.NoError(t, err)
	assert.Equal(t, "subs_01", sub.ID)
	assert.Equal(t, types.PlanTierPro, sub.PlanTier)
	assert.True(t, sub.ExpiresAt.Equal(expiresAt))
	assert.Nil(t, sub.ExternalRef)
}

func TestSubscriptionRepository_Get_NotFound(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewSubscriptionRepository(client, logger.GetLogger())

	mock.ExpectQuery("SELECT (.+) FROM user_subscriptions WHERE id = \\$1").
		WithArgs("subs_missing").
		WillReturnRows(sqlmock.NewRows(subscriptionRowColumns))

	sub, err := repo.Get(ctx, "subs_missing")
	require.Error(t, err)
	assert.Nil(t, sub)
	assert.True(t, ierr.IsNotFound(err))
}

func TestSubscriptionRepository_GetActive(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewSubscriptionRepository(client, logger.GetLogger())

	expiresAt := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM user_subscriptions WHERE user_id = \\$1 AND subscription_status = \\$2").
		WithArgs("user_test", types.SubscriptionStatusActive).
		WillReturnRows(subscriptionRow("subs_01", expiresAt))

	sub, err := repo.GetActive(ctx, "user_test")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, types.SubscriptionStatusActive, sub.SubscriptionStatus)
}

func TestSubscriptionRepository_GetActive_NoneIsNotAnError(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewSubscriptionRepository(client, logger.GetLogger())

	mock.ExpectQuery("SELECT (.+) FROM user_subscriptions WHERE user_id = \\$1 AND subscription_status = \\$2").
		WithArgs("user_test", types.SubscriptionStatusActive).
		WillReturnRows(sqlmock.NewRows(subscriptionRowColumns))

	sub, err := repo.GetActive(ctx, "user_test")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSubscriptionRepository_Cancel(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewSubscriptionRepository(client, logger.GetLogger())

	newExpiresAt := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE user_subscriptions SET subscription_status = \\$3").
		WithArgs("subs_01", "user_test", types.SubscriptionStatusCancelled, newExpiresAt, sqlmock.AnyArg(), "user_test", types.SubscriptionStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Cancel(ctx, "subs_01", "user_test", newExpiresAt))
}

func TestSubscriptionRepository_Cancel_AlreadyCancelledRowIsUntouched(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewSubscriptionRepository(client, logger.GetLogger())

	// The status guard keeps the statement from matching a cancelled row, so
	// a request racing on a stale active read cannot overwrite the extended
	// expiry written by the winner.
	mock.ExpectExec("UPDATE user_subscriptions SET subscription_status = \\$3").
		WithArgs("subs_01", "user_test", types.SubscriptionStatusCancelled, sqlmock.AnyArg(), sqlmock.AnyArg(), "user_test", types.SubscriptionStatusActive).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Cancel(ctx, "subs_01", "user_test", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestSubscriptionRepository_Cancel_WrongUserAffectsNothing(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewSubscriptionRepository(client, logger.GetLogger())

	mock.ExpectExec("UPDATE user_subscriptions SET subscription_status = \\$3").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Cancel(ctx, "subs_01", "user_other", time.Now().UTC())
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestSubscriptionRepository_Reactivate(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewSubscriptionRepository(client, logger.GetLogger())

	expiresAt := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec("UPDATE user_subscriptions SET subscription_status = \\$3").
		WithArgs("subs_01", "user_test", types.SubscriptionStatusActive, expiresAt, sqlmock.AnyArg(), "user_test", types.SubscriptionStatusCancelled).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Reactivate(ctx, "subs_01", "user_test", expiresAt))
}

func TestSubscriptionRepository_Reactivate_OnlyCancelledRows(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewSubscriptionRepository(client, logger.GetLogger())

	mock.ExpectExec("UPDATE user_subscriptions SET subscription_status = \\$3").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reactivate(ctx, "subs_01", "user_test", time.Now().UTC())
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestSubscriptionRepository_GetExpiresAt(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewSubscriptionRepository(client, logger.GetLogger())

	expiresAt := time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT expires_at FROM user_subscriptions WHERE id = \\$1").
		WithArgs("subs_01").
		WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(expiresAt))

	got, err := repo.GetExpiresAt(ctx, "subs_01")
	require.NoError(t, err)
	assert.True(t, got.Equal(expiresAt))
}

func TestSubscriptionRepository_GetExpiresAt_NotFound(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewSubscriptionRepository(client, logger.GetLogger())

	mock.ExpectQuery("SELECT expires_at FROM user_subscriptions WHERE id = \\$1").
		WithArgs("subs_missing").
		WillReturnRows(sqlmock.NewRows([]string{"expires_at"}))

	_, err := repo.GetExpiresAt(ctx, "subs_missing")
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}
