package api

import (
	"errors"
	"net/http"

	"github.com/naybourhood/naybourhood-server/internal/billing"
	"github.com/naybourhood/naybourhood-server/internal/pkg/httputil"
	"github.com/naybourhood/naybourhood-server/internal/service/subscription"
	"github.com/naybourhood/naybourhood-server/internal/tier"
)

// GetSubscription returns the caller's tier and quota usage.
func (h *Handlers) GetSubscription(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	usage, err := h.subscriptions.Usage(r.Context(), session.UserID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, usage)
}

type checkoutRequest struct {
	Tier string `json:"tier"`
}

// CreateCheckout starts a hosted checkout for a paid tier.
func (h *Handlers) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	var req checkoutRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	target := tier.Tier(req.Tier)
	if !tier.Valid(target) || target == tier.Access {
		httputil.BadRequest(w, "tier must be growth or enterprise")
		return
	}

	url, err := h.subscriptions.InitiateCheckout(r.Context(), session.UserID, session.Email, target)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrNotConfigured):
			httputil.Error(w, http.StatusServiceUnavailable, "billing is not configured")
		case errors.Is(err, billing.ErrUnknownTier):
			httputil.BadRequest(w, "no price configured for that tier")
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.OK(w, map[string]string{"url": url})
}

// CreatePortal returns a billing-portal URL for an existing customer.
func (h *Handlers) CreatePortal(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	url, err := h.subscriptions.OpenPortal(r.Context(), session.UserID)
	if err != nil {
		switch {
		case errors.Is(err, subscription.ErrNotFound):
			httputil.NotFound(w, "no subscription to manage")
		case errors.Is(err, billing.ErrNotConfigured):
			httputil.Error(w, http.StatusServiceUnavailable, "billing is not configured")
		default:
			httputil.InternalError(w, err)
		}
		return
	}
	httputil.OK(w, map[string]string{"url": url})
}
