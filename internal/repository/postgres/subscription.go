package postgres

import (
	"context"
	"database/sql"
	"time"

	domainSubscription "github.com/billflow/billflow/internal/domain/subscription"
	ierr "github.com/billflow/billflow/internal/errors"
	"github.com/billflow/billflow/internal/logger"
	"github.com/billflow/billflow/internal/postgres"
	"github.com/billflow/billflow/internal/types"
	"github.com/samber/lo"
)

type subscriptionRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(client postgres.IClient, logger *logger.Logger) domainSubscription.Repository {
	return &subscriptionRepository{
		client: client,
		logger: logger,
	}
}

const subscriptionColumns = `
	id, user_id, plan_tier, billing_cycle, subscription_status, monthly_credits,
	external_ref, expires_at, status, created_at, updated_at, created_by, updated_by`

func scanSubscription(row interface{ Scan(...interface{}) error }) (*domainSubscription.Subscription, error) {
	var sub domainSubscription.Subscription
	var externalRef sql.NullString

	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanTier,
		&sub.BillingCycle,
		&sub.SubscriptionStatus,
		&sub.MonthlyCredits,
		&externalRef,
		&sub.ExpiresAt,
		&sub.Status,
		&sub.CreatedAt,
		&sub.UpdatedAt,
		&sub.CreatedBy,
		&sub.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	if externalRef.Valid {
		sub.ExternalRef = lo.ToPtr(externalRef.String)
	}
	return &sub, nil
}

// Create creates a new subscription row
func (r *subscriptionRepository) Create(ctx context.Context, sub *domainSubscription.Subscription) error {
	r.logger.Debugw("creating subscription",
		"subscription_id", sub.ID,
		"user_id", sub.UserID,
		"plan_tier", sub.PlanTier,
		"billing_cycle", sub.BillingCycle,
	)

	span := StartRepositorySpan(ctx, "subscription", "create", map[string]interface{}{
		"subscription_id": sub.ID,
		"user_id":         sub.UserID,
	})
	defer FinishSpan(span)

	if err := sub.Validate(); err != nil {
		SetSpanError(span, err)
		return err
	}

	query := `
		INSERT INTO ` + string(types.TableNameSubscriptions) + ` (` + subscriptionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	var externalRef sql.NullString
	if sub.ExternalRef != nil {
		externalRef = sql.NullString{String: *sub.ExternalRef, Valid: true}
	}

	_, err := r.client.Querier(ctx).ExecContext(ctx, query,
		sub.ID,
		sub.UserID,
		sub.PlanTier,
		sub.BillingCycle,
		sub.SubscriptionStatus,
		sub.MonthlyCredits,
		externalRef,
		sub.ExpiresAt,
		sub.Status,
		sub.CreatedAt,
		sub.UpdatedAt,
		sub.CreatedBy,
		sub.UpdatedBy,
	)
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": sub.ID,
				"user_id":         sub.UserID,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return nil
}

// Get retrieves a subscription by ID
func (r *subscriptionRepository) Get(ctx context.Context, id string) (*domainSubscription.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "get", map[string]interface{}{
		"subscription_id": id,
	})
	defer FinishSpan(span)

	query := `
		SELECT ` + subscriptionColumns + `
		FROM ` + string(types.TableNameSubscriptions) + `
		WHERE id = $1`

	sub, err := scanSubscription(r.client.Querier(ctx).QueryRowContext(ctx, query, id))
	if err != nil {
		SetSpanError(span, err)
		if err == sql.ErrNoRows {
			return nil, ierr.NewError("subscription not found").
				WithHintf("Subscription with ID %s does not exist", id).
				WithReportableDetails(map[string]interface{}{
					"subscription_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": id,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return sub, nil
}

// GetActive retrieves the user's active subscription. A missing row is a
// valid outcome, not an error.
func (r *subscriptionRepository) GetActive(ctx context.Context, userID string) (*domainSubscription.Subscription, error) {
	span := StartRepositorySpan(ctx, "subscription", "get_active", map[string]interface{}{
		"user_id": userID,
	})
	defer FinishSpan(span)

	query := `
		SELECT ` + subscriptionColumns + `
		FROM ` + string(types.TableNameSubscriptions) + `
		WHERE user_id = $1 AND subscription_status = $2
		ORDER BY created_at DESC
		LIMIT 1`

	sub, err := scanSubscription(r.client.Querier(ctx).QueryRowContext(ctx, query,
		userID, types.SubscriptionStatusActive))
	if err != nil {
		if err == sql.ErrNoRows {
			SetSpanSuccess(span)
			return nil, nil // no active subscription is not an error here
		}
		SetSpanError(span, err)
		return nil, ierr.WithError(err).
			WithHint("Failed to get active subscription").
			WithReportableDetails(map[string]interface{}{
				"user_id": userID,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return sub, nil
}

// Cancel marks the subscription cancelled and extends its expiry in a
// single statement scoped by (id AND user_id AND active). The status guard
// makes a second cancel of the same row affect nothing, so a racing request
// that read the subscription before it was cancelled cannot overwrite the
// extended expiry.
func (r *subscriptionRepository) Cancel(ctx context.Context, id, userID string, newExpiresAt time.Time) error {
	r.logger.Debugw("cancelling subscription",
		"subscription_id", id,
		"user_id", userID,
		"new_expires_at", newExpiresAt,
	)

	span := StartRepositorySpan(ctx, "subscription", "cancel", map[string]interface{}{
		"subscription_id": id,
		"user_id":         userID,
	})
	defer FinishSpan(span)

	query := `
		UPDATE ` + string(types.TableNameSubscriptions) + `
		SET subscription_status = $3, expires_at = $4, updated_at = $5, updated_by = $6
		WHERE id = $1 AND user_id = $2 AND subscription_status = $7`

	result, err := r.client.Querier(ctx).ExecContext(ctx, query,
		id,
		userID,
		types.SubscriptionStatusCancelled,
		newExpiresAt,
		time.Now().UTC(),
		types.GetUserID(ctx),
		types.SubscriptionStatusActive,
	)
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to cancel subscription").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": id,
				"user_id":         userID,
			}).
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to read cancel result").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		err := ierr.NewError("active subscription not found").
			WithHintf("No active subscription %s for user %s", id, userID).
			WithReportableDetails(map[string]interface{}{
				"subscription_id": id,
				"user_id":         userID,
			}).
			Mark(ierr.ErrNotFound)
		SetSpanError(span, err)
		return err
	}

	SetSpanSuccess(span)
	return nil
}

// Reactivate restores a cancelled subscription to active with the given
// expiry. Compensation path only.
func (r *subscriptionRepository) Reactivate(ctx context.Context, id, userID string, expiresAt time.Time) error {
	r.logger.Debugw("reactivating subscription",
		"subscription_id", id,
		"user_id", userID,
		"expires_at", expiresAt,
	)

	span := StartRepositorySpan(ctx, "subscription", "reactivate", map[string]interface{}{
		"subscription_id": id,
		"user_id":         userID,
	})
	defer FinishSpan(span)

	query := `
		UPDATE ` + string(types.TableNameSubscriptions) + `
		SET subscription_status = $3, expires_at = $4, updated_at = $5, updated_by = $6
		WHERE id = $1 AND user_id = $2 AND subscription_status = $7`

	result, err := r.client.Querier(ctx).ExecContext(ctx, query,
		id,
		userID,
		types.SubscriptionStatusActive,
		expiresAt,
		time.Now().UTC(),
		types.GetUserID(ctx),
		types.SubscriptionStatusCancelled,
	)
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to reactivate subscription").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": id,
				"user_id":         userID,
			}).
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		SetSpanError(span, err)
		return ierr.WithError(err).
			WithHint("Failed to read reactivate result").
			Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		err := ierr.NewError("cancelled subscription not found").
			WithHintf("No cancelled subscription %s for user %s", id, userID).
			WithReportableDetails(map[string]interface{}{
				"subscription_id": id,
				"user_id":         userID,
			}).
			Mark(ierr.ErrNotFound)
		SetSpanError(span, err)
		return err
	}

	SetSpanSuccess(span)
	return nil
}

// GetExpiresAt returns the subscription's current expiry.
func (r *subscriptionRepository) GetExpiresAt(ctx context.Context, id string) (time.Time, error) {
	span := StartRepositorySpan(ctx, "subscription", "get_expires_at", map[string]interface{}{
		"subscription_id": id,
	})
	defer FinishSpan(span)

	query := `
		SELECT expires_at
		FROM ` + string(types.TableNameSubscriptions) + `
		WHERE id = $1`

	var expiresAt time.Time
	err := r.client.Querier(ctx).QueryRowContext(ctx, query, id).Scan(&expiresAt)
	if err != nil {
		SetSpanError(span, err)
		if err == sql.ErrNoRows {
			return time.Time{}, ierr.NewError("subscription not found").
				WithHintf("Subscription with ID %s does not exist", id).
				WithReportableDetails(map[string]interface{}{
					"subscription_id": id,
				}).
				Mark(ierr.ErrNotFound)
		}
		return time.Time{}, ierr.WithError(err).
			WithHint("Failed to get subscription expires_at").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": id,
			}).
			Mark(ierr.ErrDatabase)
	}

	SetSpanSuccess(span)
	return expiresAt, nil
}
