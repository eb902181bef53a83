package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripewebhook "github.com/stripe/stripe-go/v82/webhook"

	"github.com/naybourhood/naybourhood-server/internal/service/subscription"
	"github.com/naybourhood/naybourhood-server/internal/tier"
)

func TestGetSubscriptionDefaultsToAccess(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	w := env.do(t, http.MethodGet, "/api/subscription", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var usage subscription.Usage
	decodeBody(t, w, &usage)
	assert.Equal(t, tier.Access, usage.Tier)
	assert.Equal(t, 25, usage.Config.ContactQuota)
	assert.Equal(t, 25, usage.ContactsRemaining)
}

func TestGetSubscriptionGrowthUsage(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.setTier(t, "growth")
	env.subRepo.contacts[devUserID] = 40

	w := env.do(t, http.MethodGet, "/api/subscription", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var usage subscription.Usage
	decodeBody(t, w, &usage)
	assert.Equal(t, tier.Growth, usage.Tier)
	assert.Equal(t, 40, usage.ContactsUsed)
	assert.Equal(t, 60, usage.ContactsRemaining)
}

func TestCreateCheckoutRejectsBadTier(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	for _, body := range []string{`{"tier":"access"}`, `{"tier":"platinum"}`, `{}`} {
		w := env.do(t, http.MethodPost, "/api/subscription/checkout", strings.NewReader(body))
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)
	}
}

func TestCreatePortalWithoutSubscription(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	w := env.do(t, http.MethodPost, "/api/subscription/portal", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// --- Stripe webhook ---

func signedWebhookRequest(t *testing.T, payload string) *http.Request {
	t.Helper()
	signed := stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func TestStripeWebhookInvalidSignature(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe",
		strings.NewReader(`{"type":"checkout.session.completed"}`))
	req.Header.Set("Stripe-Signature", "t=123,v1=bogus")

	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStripeWebhookMissingSignature(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	w := env.do(t, http.MethodPost, "/webhooks/stripe",
		strings.NewReader(`{"type":"checkout.session.completed"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStripeWebhookCheckoutCompleted(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	payload := `{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"mode": "subscription",
			"customer": "cus_9",
			"subscription": "sub_stripe_9",
			"metadata": {"user_id": "` + devUserID + `", "tier": "growth"}
		}}
	}`

	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, signedWebhookRequest(t, payload))
	require.Equal(t, http.StatusOK, w.Code)

	sub, err := env.subRepo.GetByUser(context.Background(), devUserID)
	require.NoError(t, err)
	assert.Equal(t, "growth", sub.Tier)
	assert.Equal(t, "cus_9", sub.StripeCustomerID)

	// The upgrade is live on the next tier read.
	bw := env.do(t, http.MethodGet, "/api/buyers", nil)
	var resp buyersResponse
	decodeBody(t, bw, &resp)
	assert.Equal(t, "growth", resp.Tier)
}

func TestStripeWebhookIgnoresUnknownEvents(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, signedWebhookRequest(t, `{"id":"evt_2","type":"charge.refunded","data":{"object":{}}}`))
	assert.Equal(t, http.StatusOK, w.Code)
}
