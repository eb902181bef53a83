package api

import (
	"net/http"
	"time"

	"github.com/naybourhood/naybourhood-server/internal/ai"
	"github.com/naybourhood/naybourhood-server/internal/airtable"
	"github.com/naybourhood/naybourhood-server/internal/auth"
	"github.com/naybourhood/naybourhood-server/internal/billing"
	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/notify"
	"github.com/naybourhood/naybourhood-server/internal/pkg/httputil"
	"github.com/naybourhood/naybourhood-server/internal/service/assignment"
	"github.com/naybourhood/naybourhood-server/internal/service/messaging"
	"github.com/naybourhood/naybourhood-server/internal/service/subscription"
	"github.com/naybourhood/naybourhood-server/internal/storage"
)

// BuyerSource is the read model handlers consult for buyer records.
// *airtable.Collector satisfies it.
type BuyerSource interface {
	Buyers() []domain.Buyer
	Buyer(id string) (domain.Buyer, bool)
	GetStatus() airtable.Status
}

// Handlers holds every dependency the HTTP layer needs.
type Handlers struct {
	buyers        BuyerSource
	assignments   *assignment.Service
	messaging     *messaging.Service
	subscriptions *subscription.Service
	aiService     *ai.Service
	webhook       *billing.WebhookProcessor
	store         storage.Store
	airtable      *airtable.Client
	notifier      notify.Notifier
	siteURL       string
	startedAt     time.Time
}

// NewHandlers wires the handler set. aiService may be nil when the
// provider is disabled; the AI routes then answer 503.
func NewHandlers(
	buyers BuyerSource,
	assignments *assignment.Service,
	messagingSvc *messaging.Service,
	subscriptions *subscription.Service,
	aiService *ai.Service,
	webhook *billing.WebhookProcessor,
	store storage.Store,
	airtableClient *airtable.Client,
	notifier notify.Notifier,
	siteURL string,
) *Handlers {
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}
	return &Handlers{
		buyers:        buyers,
		assignments:   assignments,
		messaging:     messagingSvc,
		subscriptions: subscriptions,
		aiService:     aiService,
		webhook:       webhook,
		store:         store,
		airtable:      airtableClient,
		notifier:      notifier,
		siteURL:       siteURL,
		startedAt:     time.Now(),
	}
}

// HealthCheck answers liveness probes.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// SystemStatus reports collector freshness for the operations view.
func (h *Handlers) SystemStatus(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"collector": h.buyers.GetStatus(),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	})
}

// caller returns the authenticated session, guaranteed non-nil under
// the auth middleware.
func caller(r *http.Request) *auth.Session {
	return auth.SessionFromContext(r.Context())
}
