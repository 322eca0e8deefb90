package postgres

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	domainCreditPackage "github.com/billflow/billflow/internal/domain/creditpackage"
	ierr "github.com/billflow/billflow/internal/errors"
	"github.com/billflow/billflow/internal/logger"
	"github.com/billflow/billflow/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creditPackageRowColumns = []string{
	"id", "user_id", "subscription_id", "amount", "remaining_amount", "expires_at",
	"is_frozen", "frozen_until", "frozen_remaining_seconds", "original_expires_at", "frozen_reason",
	"status", "created_at", "updated_at", "created_by", "updated_by",
}

func creditPackageRow(id string, expiresAt time.Time) *sqlmock.Rows {
	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(creditPackageRowColumns).AddRow(
		id, "user_test", "subs_01", "500", "120", expiresAt,
		false, nil, nil, nil, nil,
		"published", now, now, "user_test", "user_test",
	)
}

func TestCreditPackageRepository_Create(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewCreditPackageRepository(client, logger.GetLogger())

	pkg := &domainCreditPackage.CreditPackage{
		ID:              "cpkg_01",
		UserID:          "user_test",
		SubscriptionID:  "subs_01",
		Amount:          decimal.NewFromInt(500),
		RemainingAmount: decimal.NewFromInt(500),
		ExpiresAt:       time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}

	mock.ExpectExec("INSERT INTO credit_packages").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(ctx, pkg))
}

func TestCreditPackageRepository_Create_InvalidSkipsDatabase(t *testing.T) {
	client, _, ctx := newMockClient(t)
	repo := NewCreditPackageRepository(client, logger.GetLogger())

	pkg := &domainCreditPackage.CreditPackage{
		ID:              "cpkg_01",
		UserID:          "user_test",
		SubscriptionID:  "subs_01",
		Amount:          decimal.NewFromInt(100),
		RemainingAmount: decimal.NewFromInt(200),
		ExpiresAt:       time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
	}

	err := repo.Create(ctx, pkg)
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func TestCreditPackageRepository_Get(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewCreditPackageRepository(client, logger.GetLogger())

	expiresAt := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM credit_packages WHERE id = \\$1").
		WithArgs("cpkg_01").
		WillReturnRows(creditPackageRow("cpkg_01", expiresAt))

	pkg, err := repo.Get(ctx, "cpkg_01")
	require.NoError(t, err)
	assert.Equal(t, "cpkg_01", pkg.ID)
	assert.Equal(t, "subs_01", pkg.SubscriptionID)
	assert.False(t, pkg.IsFrozen)
	assert.Nil(t, pkg.FrozenUntil)
	assert.True(t, pkg.ExpiresAt.Equal(expiresAt))
}

func TestCreditPackageRepository_Get_FrozenFields(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewCreditPackageRepository(client, logger.GetLogger())

	now := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	frozenUntil := time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)
	originalExpiresAt := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(creditPackageRowColumns).AddRow(
		"cpkg_01", "user_test", "subs_01", "500", "120", frozenUntil.Add(26*24*time.Hour),
		true, frozenUntil, int64(2246400), originalExpiresAt, "upgrade to max monthly",
		"published", now, now, "user_test", "user_test",
	)
	mock.ExpectQuery("SELECT (.+) FROM credit_packages WHERE id = \\$1").
		WithArgs("cpkg_01").
		WillReturnRows(rows)

	pkg, err := repo.Get(ctx, "cpkg_01")
	require.NoError(t, err)
	assert.True(t, pkg.IsFrozen)
	require.NotNil(t, pkg.FrozenUntil)
	assert.True(t, pkg.FrozenUntil.Equal(frozenUntil))
	require.NotNil(t, pkg.FrozenRemainingSeconds)
	assert.Equal(t, int64(2246400), *pkg.FrozenRemainingSeconds)
	require.NotNil(t, pkg.FrozenReason)
	assert.Equal(t, "upgrade to max monthly", *pkg.FrozenReason)
}

func TestCreditPackageRepository_Get_NotFound(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewCreditPackageRepository(client, logger.GetLogger())

	mock.ExpectQuery("SELECT (.+) FROM credit_packages WHERE id = \\$1").
		WithArgs("cpkg_missing").
		WillReturnRows(sqlmock.NewRows(creditPackageRowColumns))

	pkg, err := repo.Get(ctx, "cpkg_missing")
	require.Error(t, err)
	assert.Nil(t, pkg)
	assert.True(t, ierr.IsNotFound(err))
}

func TestCreditPackageRepository_GetFIFOPackage(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewCreditPackageRepository(client, logger.GetLogger())

	expiresAt := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM credit_packages WHERE user_id = \\$1 AND subscription_id = \\$2").
		WithArgs("user_test", "subs_01").
		WillReturnRows(creditPackageRow("cpkg_oldest", expiresAt))

	pkg, err := repo.GetFIFOPackage(ctx, "user_test", "subs_01")
	require.NoError(t, err)
	require.NotNil(t, pkg)
	assert.Equal(t, "cpkg_oldest", pkg.ID)
}

func TestCreditPackageRepository_GetFIFOPackage_NoneIsNotAnError(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewCreditPackageRepository(client, logger.GetLogger())

	mock.ExpectQuery("SELECT (.+) FROM credit_packages WHERE user_id = \\$1 AND subscription_id = \\$2").
		WithArgs("user_test", "subs_01").
		WillReturnRows(sqlmock.NewRows(creditPackageRowColumns))

	pkg, err := repo.GetFIFOPackage(ctx, "user_test", "subs_01")
	require.NoError(t, err)
	assert.Nil(t, pkg)
}

func TestCreditPackageRepository_Freeze(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewCreditPackageRepository(client, logger.GetLogger())

	frozenUntil := time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)
	originalExpiresAt := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC)
	update := domainCreditPackage.FreezeUpdate{
		FrozenUntil:       frozenUntil,
		RemainingSeconds:  2246400,
		NewExpiresAt:      frozenUntil.Add(2246400 * time.Second),
		OriginalExpiresAt: originalExpiresAt,
		Reason:            "upgrade to max monthly",
	}

	mock.ExpectExec("UPDATE credit_packages SET is_frozen = TRUE").
		WithArgs("cpkg_01", frozenUntil, int64(2246400), update.NewExpiresAt, originalExpiresAt,
			"upgrade to max monthly", sqlmock.AnyArg(), "user_test").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Freeze(ctx, "cpkg_01", update))
}

func TestCreditPackageRepository_Freeze_NotFound(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewCreditPackageRepository(client, logger.GetLogger())

	mock.ExpectExec("UPDATE credit_packages SET is_frozen = TRUE").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Freeze(ctx, "cpkg_missing", domainCreditPackage.FreezeUpdate{
		FrozenUntil:       time.Now().UTC(),
		NewExpiresAt:      time.Now().UTC(),
		OriginalExpiresAt: time.Now().UTC(),
		Reason:            "downgrade to basic monthly",
	})
	require.Error(t, err)
	assert.True(t, ierr.IsNotFound(err))
}

func TestCreditPackageRepository_Freeze_DatabaseError(t *testing.T) {
	client, mock, ctx := newMockClient(t)
	repo := NewCreditPackageRepository(client, logger.GetLogger())

	mock.ExpectExec("UPDATE credit_packages SET is_frozen = TRUE").
		WillReturnError(assert.AnError)

	err := repo.Freeze(ctx, "cpkg_01", domainCreditPackage.FreezeUpdate{
		FrozenUntil:       time.Now().UTC(),
		NewExpiresAt:      time.Now().UTC(),
		OriginalExpiresAt: time.Now().UTC(),
		Reason:            "upgrade to pro yearly",
	})
	require.Error(t, err)
	assert.True(t, ierr.IsDatabase(err))
}
