package billing

import (
	"context"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	stripesession "github.com/stripe/stripe-go/v82/checkout/session"

	"github.com/naybourhood/naybourhood-server/internal/config"
	"github.com/naybourhood/naybourhood-server/internal/tier"
)

// Service creates Stripe checkout and billing-portal sessions. The
// session constructors are injectable so tests never touch the network.
type Service struct {
	cfg config.StripeConfig

	createCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	createPortalSession   func(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
}

func NewService(cfg config.StripeConfig) *Service {
	stripe.Key = strings.TrimSpace(cfg.SecretKey)
	return &Service{
		cfg:                   cfg,
		createCheckoutSession: stripesession.New,
		createPortalSession:   portalsession.New,
	}
}

// Configured reports whether billing can operate at all.
func (s *Service) Configured() bool {
	return strings.TrimSpace(s.cfg.SecretKey) != ""
}

// CreateCheckout starts a hosted checkout for upgrading userID to the
// given tier and returns the redirect URL. The user and tier ride in
// session metadata so the completion webhook can attribute the purchase.
func (s *Service) CreateCheckout(_ context.Context, userID, email string, target tier.Tier) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	priceID := strings.TrimSpace(s.cfg.PriceIDs[string(target)])
	if priceID == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownTier, target)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:    stripe.String(s.cfg.SiteURL + "/settings/billing?checkout=success"),
		CancelURL:     stripe.String(s.cfg.SiteURL + "/settings/billing?checkout=cancelled"),
		CustomerEmail: stripe.String(email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"user_id": userID,
			"tier":    string(target),
		},
	}

	session, err := s.createCheckoutSession(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		return "", fmt.Errorf("create checkout session: empty redirect URL")
	}
	return session.URL, nil
}

// CreatePortal returns a billing-portal URL for an existing customer to
// manage payment methods, invoices, and cancellation.
func (s *Service) CreatePortal(_ context.Context, customerID string) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(customerID) == "" {
		return "", fmt.Errorf("billing: customer ID is required")
	}

	session, err := s.createPortalSession(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(s.cfg.SiteURL + "/settings/billing"),
	})
	if err != nil {
		return "", fmt.Errorf("create portal session: %w", err)
	}
	if session == nil || strings.TrimSpace(session.URL) == "" {
		return "", fmt.Errorf("create portal session: empty redirect URL")
	}
	return session.URL, nil
}

// TierForPrice reverse-maps a Stripe price ID to the tier it sells.
// Returns false when the price is not one of ours.
func (s *Service) TierForPrice(priceID string) (tier.Tier, bool) {
	priceID = strings.TrimSpace(priceID)
	for name, id := range s.cfg.PriceIDs {
		if id == priceID && priceID != "" {
			return tier.Tier(name), true
		}
	}
	return "", false
}
