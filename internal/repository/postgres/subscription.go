package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/service/subscription"
)

// SubscriptionRepo implements subscription.Repository against PostgreSQL.
// One row per user; webhook traffic updates it in place.
type SubscriptionRepo struct{ db *sql.DB }

// NewSubscriptionRepo creates a Postgres-backed subscription repository.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

func (r *SubscriptionRepo) GetByUser(ctx context.Context, userID string) (*domain.Subscription, error) {
	s := &domain.Subscription{}
	var periodEnd sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, tier, status,
		       COALESCE(stripe_customer_id,''), COALESCE(stripe_subscription_id,''),
		       current_period_end, created_at, updated_at
		FROM subscriptions
		WHERE user_id = $1
	`, userID).Scan(
		&s.ID, &s.UserID, &s.Tier, &s.Status,
		&s.StripeCustomerID, &s.StripeSubID,
		&periodEnd, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, subscription.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if periodEnd.Valid {
		s.PeriodEnd = &periodEnd.Time
	}
	return s, nil
}

func (r *SubscriptionRepo) Upsert(ctx context.Context, sub *domain.Subscription) error {
	if sub.UserID == "" {
		// Webhook update for a row we only know by its Stripe IDs.
		return r.updateByStripeSub(ctx, sub)
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	var periodEnd interface{}
	if sub.PeriodEnd != nil {
		periodEnd = *sub.PeriodEnd
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions
			(id, user_id, tier, status, stripe_customer_id, stripe_subscription_id,
			 current_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), $7, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			tier                   = EXCLUDED.tier,
			status                 = EXCLUDED.status,
			stripe_customer_id     = COALESCE(EXCLUDED.stripe_customer_id, subscriptions.stripe_customer_id),
			stripe_subscription_id = COALESCE(EXCLUDED.stripe_subscription_id, subscriptions.stripe_subscription_id),
			current_period_end     = COALESCE(EXCLUDED.current_period_end, subscriptions.current_period_end),
			updated_at             = NOW()
	`, sub.ID, sub.UserID, sub.Tier, sub.Status, sub.StripeCustomerID, sub.StripeSubID, periodEnd)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) updateByStripeSub(ctx context.Context, sub *domain.Subscription) error {
	var periodEnd interface{}
	if sub.PeriodEnd != nil {
		periodEnd = *sub.PeriodEnd
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET
			tier               = COALESCE(NULLIF($2,''), tier),
			status             = $3,
			current_period_end = COALESCE($4, current_period_end),
			updated_at         = NOW()
		WHERE stripe_subscription_id = $1
	`, sub.StripeSubID, sub.Tier, sub.Status, periodEnd)
	if err != nil {
		return fmt.Errorf("update subscription by stripe id: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func (r *SubscriptionRepo) UpdateStatusByStripeSubscription(ctx context.Context, stripeSubID string, status domain.SubscriptionStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = $2, updated_at = NOW()
		WHERE stripe_subscription_id = $1
	`, stripeSubID, status)
	if err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) UpdateStatusByStripeCustomer(ctx context.Context, customerID string, status domain.SubscriptionStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET status = $2, updated_at = NOW()
		WHERE stripe_customer_id = $1
	`, customerID, status)
	if err != nil {
		return fmt.Errorf("update subscription status by customer: %w", err)
	}
	return nil
}

func (r *SubscriptionRepo) CountContactsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM contacts WHERE user_id = $1 AND created_at >= $2
	`, userID, since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}
