package subscription

import (
	"context"
	"time"
)

// Repository defines the interface for subscription persistence operations.
// Every mutation is a single scoped, conditional statement; callers that
// need cross-statement atomicity wrap calls in a transaction via the
// postgres client.
type Repository interface {
	// Create creates a new subscription row
	Create(ctx context.Context, sub *Subscription) error

	// Get retrieves a subscription by ID, returning a not found error when
	// the row is missing
	Get(ctx context.Context, id string) (*Subscription, error)

	// GetActive retrieves the user's active subscription. A missing row is a
	// valid outcome and returns (nil, nil); only infrastructure failures
	// return an error.
	GetActive(ctx context.Context, userID string) (*Subscription, error)

	// Cancel marks the subscription cancelled and extends its expiry in one
	// statement scoped by (id AND user_id AND active). The scope prevents
	// cross-tenant mutation, and the status guard makes cancelling an
	// already-cancelled row a not found error instead of an expiry overwrite.
	Cancel(ctx context.Context, id, userID string, newExpiresAt time.Time) error

	// Reactivate restores a cancelled subscription to active with the given
	// expiry. Used as the compensation step when creating the replacement
	// subscription fails after the old one was already cancelled.
	Reactivate(ctx context.Context, id, userID string, expiresAt time.Time) error

	// GetExpiresAt returns the subscription's current expiry, or a not found
	// error if the row is unexpectedly missing.
	GetExpiresAt(ctx context.Context, id string) (time.Time, error)
}
