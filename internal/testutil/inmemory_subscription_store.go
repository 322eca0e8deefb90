package testutil

import (
	"context"
	"time"

	"github.com/billflow/billflow/internal/domain/subscription"
	ierr "github.com/billflow/billflow/internal/errors"
	"github.com/billflow/billflow/internal/types"
	"github.com/samber/lo"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]

	// Error hooks for failure injection
	GetActiveError    error
	CancelError       error
	ReactivateError   error
	GetExpiresAtError error
}

// NewInMemorySubscriptionStore creates a new in-memory subscription store
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	copied := *sub
	if sub.ExternalRef != nil {
		copied.ExternalRef = lo.ToPtr(*sub.ExternalRef)
	}
	return &copied
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}
	if err := sub.Validate(); err != nil {
		return err
	}
	return s.InMemoryStore.Create(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("subscription not found").
			WithHintf("Subscription with ID %s does not exist", id).
			WithReportableDetails(map[string]interface{}{
				"subscription_id": id,
			}).
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(sub), nil
}

func (s *InMemorySubscriptionStore) GetActive(ctx context.Context, userID string) (*subscription.Subscription, error) {
	if s.GetActiveError != nil {
		return nil, s.GetActiveError
	}

	var latest *subscription.Subscription
	for _, sub := range s.InMemoryStore.All(ctx) {
		if sub.UserID != userID || sub.SubscriptionStatus != types.SubscriptionStatusActive {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			latest = sub
		}
	}
	return copySubscription(latest), nil
}

func (s *InMemorySubscriptionStore) Cancel(ctx context.Context, id, userID string, newExpiresAt time.Time) error {
	if s.CancelError != nil {
		return s.CancelError
	}

	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || sub.UserID != userID || sub.SubscriptionStatus != types.SubscriptionStatusActive {
		return ierr.NewError("active subscription not found").
			WithHintf("No active subscription %s for user %s", id, userID).
			Mark(ierr.ErrNotFound)
	}

	updated := copySubscription(sub)
	updated.SubscriptionStatus = types.SubscriptionStatusCancelled
	updated.ExpiresAt = newExpiresAt
	updated.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, id, updated)
}

func (s *InMemorySubscriptionStore) Reactivate(ctx context.Context, id, userID string, expiresAt time.Time) error {
	if s.ReactivateError != nil {
		return s.ReactivateError
	}

	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil || sub.UserID != userID || sub.SubscriptionStatus != types.SubscriptionStatusCancelled {
		return ierr.NewError("cancelled subscription not found").
			WithHintf("No cancelled subscription %s for user %s", id, userID).
			Mark(ierr.ErrNotFound)
	}

	updated := copySubscription(sub)
	updated.SubscriptionStatus = types.SubscriptionStatusActive
	updated.ExpiresAt = expiresAt
	updated.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, id, updated)
}

func (s *InMemorySubscriptionStore) GetExpiresAt(ctx context.Context, id string) (time.Time, error) {
	if s.GetExpiresAtError != nil {
		return time.Time{}, s.GetExpiresAtError
	}

	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return time.Time{}, ierr.NewError("subscription not found").
			WithHintf("Subscription with ID %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return sub.ExpiresAt, nil
}

// Clear clears the subscription store and error hooks
func (s *InMemorySubscriptionStore) Clear() {
	s.InMemoryStore.Clear()
	s.GetActiveError = nil
	s.CancelError = nil
	s.ReactivateError = nil
	s.GetExpiresAtError = nil
}
