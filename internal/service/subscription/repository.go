package subscription

import (
	"context"
	"time"

	"github.com/naybourhood/naybourhood-server/internal/domain"
)

// Repository defines the data access contract for subscription state.
type Repository interface {
	// GetByUser returns the user's subscription row, or ErrNotFound.
	GetByUser(ctx context.Context, userID string) (*domain.Subscription, error)

	// Upsert inserts or updates a subscription keyed on the Stripe
	// subscription ID (falling back to user ID for rows created before
	// checkout completes).
	Upsert(ctx context.Context, sub *domain.Subscription) error

	// UpdateStatusByStripeSubscription sets the status of the row with
	// the given Stripe subscription ID.
	UpdateStatusByStripeSubscription(ctx context.Context, stripeSubID string, status domain.SubscriptionStatus) error

	// UpdateStatusByStripeCustomer sets the status of all rows for the
	// given Stripe customer.
	UpdateStatusByStripeCustomer(ctx context.Context, customerID string, status domain.SubscriptionStatus) error

	// CountContactsSince counts contact-log rows recorded by the user at
	// or after the given instant.
	CountContactsSince(ctx context.Context, userID string, since time.Time) (int, error)
}
