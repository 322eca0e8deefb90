package creditpackage

import (
	"context"
)

// Repository defines the interface for credit package persistence operations
type Repository interface {
	// Create creates a new credit package row
	Create(ctx context.Context, pkg *CreditPackage) error

	// Get retrieves a credit package by ID, returning a not found error when
	// the row is missing
	Get(ctx context.Context, id string) (*CreditPackage, error)

	// GetFIFOPackage returns the single oldest-expiring credit package for
	// the subscription that still has remaining balance and is not frozen.
	// A missing package is a valid outcome and returns (nil, nil).
	GetFIFOPackage(ctx context.Context, userID, subscriptionID string) (*CreditPackage, error)

	// Freeze marks the package frozen and persists the freeze bookkeeping
	// fields in a single-row update. The package's remaining_amount is left
	// untouched; only its expiry clock changes.
	Freeze(ctx context.Context, packageID string, update FreezeUpdate) error
}
