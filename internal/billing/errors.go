package billing

import "errors"

var (
	// ErrNotConfigured means the Stripe secret key or webhook secret is
	// absent, so billing endpoints must refuse rather than half-work.
	ErrNotConfigured = errors.New("billing: stripe is not configured")

	// ErrUnknownTier means the requested tier has no configured price ID.
	ErrUnknownTier = errors.New("billing: no price configured for tier")

	// ErrInvalidSignature means the webhook payload failed signature
	// verification and must be rejected with a 400.
	ErrInvalidSignature = errors.New("billing: invalid webhook signature")
)
