package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/naybourhood/naybourhood-server/internal/notify"
	"github.com/naybourhood/naybourhood-server/internal/pkg/httputil"
	"github.com/naybourhood/naybourhood-server/internal/pkg/logger"
)

// Stripe's documented maximum webhook payload size.
const maxWebhookBody = 65536

// StripeWebhook verifies and applies one Stripe event. Signature
// failures are 400; processing failures are 500 so Stripe retries.
func (h *Handlers) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.webhook == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "billing is not configured")
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		httputil.BadRequest(w, "could not read payload")
		return
	}

	event, err := h.webhook.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		logger.Warn("stripe webhook signature rejected", "error", err.Error())
		httputil.BadRequest(w, "invalid signature")
		return
	}

	if err := h.webhook.HandleEvent(r.Context(), event); err != nil {
		logger.Error("stripe webhook processing failed",
			"type", string(event.Type), "event_id", event.ID, "error", err.Error())
		httputil.InternalError(w, err)
		return
	}

	if event.Type == "invoice.payment_failed" {
		h.sendPaymentFailureNotice(event.Data.Raw)
	}

	httputil.OK(w, map[string]string{"received": "true"})
}

// sendPaymentFailureNotice emails the customer named on the failed
// invoice. Best effort; the webhook is already acknowledged.
func (h *Handlers) sendPaymentFailureNotice(raw json.RawMessage) {
	var inv struct {
		CustomerEmail string `json:"customer_email"`
	}
	if err := json.Unmarshal(raw, &inv); err != nil || inv.CustomerEmail == "" {
		return
	}

	portalURL := h.siteURL + "/settings/billing"
	go func(email string) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.notifier.Send(ctx, notify.PaymentFailureNotice(email, portalURL)); err != nil {
			logger.Warn("payment failure notice failed", "error", err.Error())
		}
	}(inv.CustomerEmail)
}
