package domain

import "time"

// SubscriptionStatus mirrors the payment processor's subscription state.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionTrialing SubscriptionStatus = "trialing"
)

// Subscription is the local record of a user's paid plan, kept in sync by
// the payment processor's webhooks.
type Subscription struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	Tier             string             `json:"tier"`
	Status           SubscriptionStatus `json:"status"`
	StripeCustomerID string             `json:"stripe_customer_id"`
	StripeSubID      string             `json:"stripe_subscription_id"`
	PeriodEnd        *time.Time         `json:"current_period_end"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}
