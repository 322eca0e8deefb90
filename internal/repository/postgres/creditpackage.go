package postgres

import (
	"context"
	"database/sql"
	"time"

	domainCreditPackage "github.com/billflow/billflow/internal/domain/creditpackage"
	ierr "github.com/billflow/billflow/internal/errors"
	"github.com/billflow/billflow/internal/logger"
	"github.com/billflow/billflow/internal/postgres"
	"github.com/billflow/billflow/internal/types"
	"github.com/samber/lo"
)

type creditPackageRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewCreditPackageRepository creates a new credit package repository
func NewCreditPackageRepository(client postgres.IClient, logger *logger.Logger) domainCreditPackage.Repository {
	return &creditPackageRepository{
		client: client,
		logger: logger,
	}
}

const creditPackageColumns = `
	id, user_id, subscription_id, amount, remaining_amount, expires_at,
	is_frozen, frozen_until, frozen_remaining_seconds, original_expires_at, frozen_reason,
	status, created_at, updated_at, created_by, updated_by`

func scanCreditPackage(row interface{ Scan(...interface{}) error }) (*domainCreditPackage.CreditPackage, error) {
	var pkg domainCreditPackage.CreditPackage
	var frozenUntil, originalExpiresAt sql.NullTime
	var frozenRemainingSeconds sql.NullInt64
	var frozenReason sql.NullString

	err := row.Scan(
		&pkg.ID,
		&pkg.UserID,
		&pkg.SubscriptionID,
		&pkg.Amount,
		&pkg.RemainingAmount,
		&pkg.ExpiresAt,
		&pkg.IsFrozen,
		&frozenUntil,
		&frozenRemainingSeconds,
		&originalExpiresAt,
		&frozenReason,
		&pkg.Status,
		&pkg.CreatedAt,
		&pkg.UpdatedAt,
		&pkg.CreatedBy,
		&pkg.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	if frozenUntil.Valid {
		pkg.FrozenUntil = lo.ToPtr(frozenUntil.Time)
	}
	if frozenRemainingSeconds.Valid {
		pkg.FrozenRemainingSeconds = lo.ToPtr(frozenRemainingSeconds.Int64)
	}
	if originalExpiresAt.Valid {
		pkg.OriginalExpiresAt = lo.ToPtr(originalExpiresAt.Time)
	}
	if frozenReason.Valid {
		pkg.FrozenReason = lo.ToPtr(frozenReason.String)
	}
	return &pkg, nil
}

// Create creates a new credit package row
func (r *creditPackageRepository) Create(ctx context.Context, pkg *domainCreditPackage.CreditPackage) error {
	r.logger.Debugw("creating credit package",
		"package_id", pkg.ID,
		"user_id", pkg.UserID,
		"subscription_id", pkg.SubscriptionID,
	)

	span := StartRepositorySpan(ctx, "credit_package", "create", map[string]interface{}{
		"package_id":      pkg.ID,
		"subscription_id": pkg.SubscriptionID,
	})
	defer FinishSpan(span)

	if err := pkg.Validate(); err != nil {
		SetSpanError(span, err)
		return err
	}

	query := `
		INSERT INTO ` + string(types.TableNameCreditPackages) + ` (` + creditPackageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.client.Querier(ctx).ExecContext(ctx, query,
		pkg.ID,
		pkg.UserID,
		pkg.SubscriptionID,
		pkg.Amount,
		pkg.RemainingAmount,
		pkg.ExpiresAt,
		pkg.IsFrozen,
		nullTime(pkg.FrozenUntil),
		nullInt64(pkg.FrozenRemainingSeconds),
		nullTime(pkg.OriginalExpiresAt),
		nullString(pkg.FrozenReason),
		pkg.Status,
		pkg.CreatedAt,
		pkg.UpdatedAt,
		pkg.CreatedBy,
		pkg.UpdatedBy,
	)
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to create credit package").
			WithReportableDetails(map[string]interface{}{
				"package_id":      pkg.ID,
				"subscription_id": pkg.SubscriptionID,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

// Get retrieves a credit package by ID
func (r *creditPackageRepository) Get(ctx context.Context, id string) (*domainCreditPackage.CreditPackage, error) {
	span := StartRepositorySpan(ctx, "credit_package", "get", map[string]interface{}{
		"package_id": id,
	})
	defer FinishSpan(span)

	query := `
		SELECT ` + creditPackageColumns + `
		FROM ` + string(types.TableNameCreditPackages) + `
		WHERE id = $1`

	pkg, err := scanCreditPackage(r.client.Querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		SetSpanError(span, err)
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("credit package not found").
				WithHintf("Credit package with ID %s does not exist", id).
				WithReportableDetails(map[string]interface{}{
					"package_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get credit package").
			WithReportableDetails(map[string]interface{}{
				"package_id": id,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return pkg, nil
}

// GetFIFOPackage returns the oldest-expiring eligible package for the
// subscription, or (nil, nil) when none qualifies.
func (r *creditPackageRepository) GetFIFOPackage(ctx context.Context, userID, subscriptionID string) (*domainCreditPackage.CreditPackage, error) {
	span := StartRepositorySpan(ctx, "credit_package", "get_fifo", map[string]interface{}{
		"user_id":         userID,
		"subscription_id": subscriptionID,
	})
	defer FinishSpan(span)

	// COALESCE keeps rows from before the freeze columns existed eligible.
	query := `
		SELECT ` + creditPackageColumns + `
		FROM ` + string(types.TableNameCreditPackages) + `
		WHERE user_id = $1
		  AND subscription_id = $2
		  AND amount > 0
		  AND remaining_amount > 0
		  AND COALESCE(is_frozen, FALSE) = FALSE
		ORDER BY expires_at ASC
		LIMIT 1`

	pkg, err := scanCreditPackage(r.client.Querier(ctx).QueryRowContext(ctx, query, userID, subscriptionID))
	if err != nil {
		if err == sql.ErrNoRows {
			SetSpanSuccess(span)
			return nil, nil // nothing eligible to freeze is a valid outcome
		}
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to get FIFO credit package").
			WithReportableDetails(map[string]interface{}{
				"user_id":         userID,
				"subscription_id": subscriptionID,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return pkg, nil
}

// Freeze marks the package frozen and persists the freeze bookkeeping in a
// single-row update.
func (r *creditPackageRepository) Freeze(ctx context.Context, packageID string, update domainCreditPackage.FreezeUpdate) error {
	r.logger.Debugw("freezing credit package",
		"package_id", packageID,
		"frozen_until", update.FrozenUntil,
		"remaining_seconds", update.RemainingSeconds,
	)

	span := StartRepositorySpan(ctx, "credit_package", "freeze", map[string]interface{}{
		"package_id": packageID,
	})
	defer FinishSpan(span)

	query := `
		UPDATE ` + string(types.TableNameCreditPackages) + `
		SET is_frozen = TRUE,
		    frozen_until = $2,
		    frozen_remaining_seconds = $3,
		    expires_at = $4,
		    original_expires_at = $5,
		    frozen_reason = $6,
		    updated_at = $7,
		    updated_by = $8
		WHERE id = $1`

	result, err := r.client.Querier(ctx).ExecContext(ctx, query,
		packageID,
		update.FrozenUntil,
		update.RemainingSeconds,
		update.NewExpiresAt,
		update.OriginalExpiresAt,
		update.Reason,
		time.Now().UTC(),
		types.GetUserID(ctx),
	)
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to freeze credit package").
			WithReportableDetails(map[string]interface{}{
				"package_id": packageID,
			}).
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to read freeze result").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		err := ierr.NewError("credit package not found").
			WithHintf("Credit package with ID %s does not exist", packageID).
			WithReportableDetails(map[string]interface{}{
				"package_id": packageID,
			}).
			Mark(ierr.ErrNotFound)
		SetSpanError(span, err)
		return err
	}

	SetSpanSuccess(span)
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
