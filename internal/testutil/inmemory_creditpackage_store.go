package testutil

import (
	"context"
	"time"

	"github.com/billflow/billflow/internal/domain/creditpackage"
	ierr "github.com/billflow/billflow/internal/errors"
	"github.com/samber/lo"
)

// InMemoryCreditPackageStore implements creditpackage.Repository
type InMemoryCreditPackageStore struct {
	*InMemoryStore[*creditpackage.CreditPackage]

	// Error hooks for failure injection
	GetFIFOError error
	FreezeError  error

	// FreezeCalls counts persistence-level freeze attempts.
	FreezeCalls int
}

// NewInMemoryCreditPackageStore creates a new in-memory credit package store
func NewInMemoryCreditPackageStore() *InMemoryCreditPackageStore {
	return &InMemoryCreditPackageStore{
		InMemoryStore: NewInMemoryStore[*creditpackage.CreditPackage](),
	}
}

func copyCreditPackage(pkg *creditpackage.CreditPackage) *creditpackage.CreditPackage {
	if pkg == nil {
		return nil
	}
	copied := *pkg
	if pkg.FrozenUntil != nil {
		copied.FrozenUntil = lo.ToPtr(*pkg.FrozenUntil)
	}
	if pkg.FrozenRemainingSeconds != nil {
		copied.FrozenRemainingSeconds = lo.ToPtr(*pkg.FrozenRemainingSeconds)
	}
	if pkg.OriginalExpiresAt != nil {
		copied.OriginalExpiresAt = lo.ToPtr(*pkg.OriginalExpiresAt)
	}
	if pkg.FrozenReason != nil {
		copied.FrozenReason = lo.ToPtr(*pkg.FrozenReason)
	}
	return &copied
}

func (s *InMemoryCreditPackageStore) Create(ctx context.Context, pkg *creditpackage.CreditPackage) error {
	if pkg == nil {
		return ierr.NewError("credit package cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := pkg.Validate(); err != nil {
		return err
	}
	return s.InMemoryStore.Create(ctx, pkg.ID, copyCreditPackage(pkg))
}

func (s *InMemoryCreditPackageStore) Get(ctx context.Context, id string) (*creditpackage.CreditPackage, error) {
	pkg, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("credit package not found").
			WithHintf("Credit package with ID %s does not exist", id).
			WithReportableDetails(map[string]interface{}{
				"package_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copyCreditPackage(pkg), nil
}

func (s *InMemoryCreditPackageStore) GetFIFOPackage(ctx context.Context, userID, subscriptionID string) (*creditpackage.CreditPackage, error) {
	if s.GetFIFOError != nil {
		return nil, s.GetFIFOError
	}

	var oldest *creditpackage.CreditPackage
	for _, pkg := range s.InMemoryStore.All(ctx) {
		if pkg.UserID != userID || pkg.SubscriptionID != subscriptionID {
			continue
		}
		if !pkg.SelectableForFIFO() {
			continue
		}
		if oldest == nil || pkg.ExpiresAt.Before(oldest.ExpiresAt) {
			oldest = pkg
		}
	}
	return copyCreditPackage(oldest), nil
}

func (s *InMemoryCreditPackageStore) Freeze(ctx context.Context, packageID string, update creditpackage.FreezeUpdate) error {
	s.FreezeCalls++
	if s.FreezeError != nil {
		return s.FreezeError
	}

	pkg, err := s.InMemoryStore.Get(ctx, packageID)
	if err != nil {
		return ierr.NewError("credit package not found").
			WithHintf("Credit package with ID %s does not exist", packageID).
			Mark(ierr.ErrNotFound)
	}

	updated := copyCreditPackage(pkg)
	updated.IsFrozen = true
	updated.FrozenUntil = lo.ToPtr(update.FrozenUntil)
	updated.FrozenRemainingSeconds = lo.ToPtr(update.RemainingSeconds)
	updated.ExpiresAt = update.NewExpiresAt
	updated.OriginalExpiresAt = lo.ToPtr(update.OriginalExpiresAt)
	updated.FrozenReason = lo.ToPtr(update.Reason)
	updated.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, packageID, updated)
}

// Clear clears the credit package store, counters and error hooks
func (s *InMemoryCreditPackageStore) Clear() {
	s.InMemoryStore.Clear()
	s.GetFIFOError = nil
	s.FreezeError = nil
	s.FreezeCalls = 0
}
