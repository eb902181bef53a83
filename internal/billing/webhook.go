package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/pkg/logger"
)

// SubscriptionStore is the persistence surface the webhook needs. The
// postgres repository implements it.
type SubscriptionStore interface {
	UpsertByStripeSubscription(ctx context.Context, sub *domain.Subscription) error
	UpdateStatusByStripeSubscription(ctx context.Context, stripeSubID string, status domain.SubscriptionStatus) error
	UpdateStatusByStripeCustomer(ctx context.Context, customerID string, status domain.SubscriptionStatus) error
}

// checkoutSession is the slice of checkout.session.completed we consume.
// Decoding our own struct keeps us independent of Stripe API version
// shuffles in the full event shape.
type checkoutSession struct {
	ID              string `json:"id"`
	Mode            string `json:"mode"`
	Customer        string `json:"customer"`
	Subscription    string `json:"subscription"`
	CustomerEmail   string `json:"customer_email"`
	CustomerDetails struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Metadata map[string]string `json:"metadata"`
}

// subscriptionEvent is the slice of customer.subscription.* we consume.
type subscriptionEvent struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	Items             struct {
		Data []struct {
			CurrentPeriodEnd int64 `json:"current_period_end"`
			Price            struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

func (s *subscriptionEvent) firstPriceID() string {
	for _, item := range s.Items.Data {
		if id := strings.TrimSpace(item.Price.ID); id != "" {
			return id
		}
	}
	return ""
}

func (s *subscriptionEvent) periodEnd() *time.Time {
	for _, item := range s.Items.Data {
		if item.CurrentPeriodEnd > 0 {
			t := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			return &t
		}
	}
	return nil
}

// invoiceEvent is the slice of invoice.payment_failed we consume.
type invoiceEvent struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
}

// WebhookProcessor verifies and applies Stripe webhook events.
type WebhookProcessor struct {
	secret  string
	pricing *Service
	store   SubscriptionStore
}

func NewWebhookProcessor(secret string, pricing *Service, store SubscriptionStore) *WebhookProcessor {
	return &WebhookProcessor{secret: secret, pricing: pricing, store: store}
}

// VerifyEvent checks the Stripe-Signature header against the raw payload
// and returns the decoded event. Any signature or timestamp failure maps
// to ErrInvalidSignature.
func (p *WebhookProcessor) VerifyEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	if strings.TrimSpace(p.secret) == "" {
		return stripe.Event{}, ErrNotConfigured
	}
	event, err := stripewebhook.ConstructEventWithOptions(payload, sigHeader, p.secret, stripewebhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

// HandleEvent applies one verified event to the subscription store.
// Unknown event types are logged and acknowledged.
func (p *WebhookProcessor) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session checkoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return fmt.Errorf("decode checkout.session: %w", err)
		}
		return p.handleCheckoutCompleted(ctx, session)

	case "customer.subscription.updated":
		var sub subscriptionEvent
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return p.handleSubscriptionUpdated(ctx, sub)

	case "customer.subscription.deleted":
		var sub subscriptionEvent
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return p.store.UpdateStatusByStripeSubscription(ctx, sub.ID, domain.SubscriptionCanceled)

	case "invoice.payment_failed":
		var inv invoiceEvent
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return p.store.UpdateStatusByStripeCustomer(ctx, inv.Customer, domain.SubscriptionPastDue)

	default:
		logger.Info("stripe webhook ignored", "type", string(event.Type), "event_id", event.ID)
		return nil
	}
}

func (p *WebhookProcessor) handleCheckoutCompleted(ctx context.Context, session checkoutSession) error {
	if session.Mode != "" && session.Mode != "subscription" {
		logger.Info("non-subscription checkout ignored", "session_id", session.ID, "mode", session.Mode)
		return nil
	}
	userID := strings.TrimSpace(session.Metadata["user_id"])
	tierName := strings.TrimSpace(session.Metadata["tier"])
	if userID == "" || tierName == "" {
		return fmt.Errorf("checkout session %s missing user_id/tier metadata", session.ID)
	}

	return p.store.UpsertByStripeSubscription(ctx, &domain.Subscription{
		UserID:           userID,
		Tier:             tierName,
		Status:           domain.SubscriptionActive,
		StripeCustomerID: session.Customer,
		StripeSubID:      session.Subscription,
	})
}

func (p *WebhookProcessor) handleSubscriptionUpdated(ctx context.Context, sub subscriptionEvent) error {
	status := mapStripeStatus(sub.Status)

	update := &domain.Subscription{
		StripeCustomerID: sub.Customer,
		StripeSubID:      sub.ID,
		Status:           status,
		PeriodEnd:        sub.periodEnd(),
	}
	if userID := strings.TrimSpace(sub.Metadata["user_id"]); userID != "" {
		update.UserID = userID
	}
	if t, ok := p.pricing.TierForPrice(sub.firstPriceID()); ok {
		update.Tier = string(t)
	} else if name := strings.TrimSpace(sub.Metadata["tier"]); name != "" {
		update.Tier = name
	}
	if update.Tier == "" {
		// Keep the stored tier; only the status and period change.
		return p.store.UpdateStatusByStripeSubscription(ctx, sub.ID, status)
	}
	return p.store.UpsertByStripeSubscription(ctx, update)
}

// mapStripeStatus folds Stripe's subscription statuses onto ours. The
// unpaid and incomplete states gate access the same way past_due does.
func mapStripeStatus(s string) domain.SubscriptionStatus {
	switch s {
	case "active":
		return domain.SubscriptionActive
	case "trialing":
		return domain.SubscriptionTrialing
	case "canceled", "incomplete_expired":
		return domain.SubscriptionCanceled
	default:
		return domain.SubscriptionPastDue
	}
}
