package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/naybourhood/naybourhood-server/internal/auth"
	"github.com/naybourhood/naybourhood-server/internal/pkg/httputil"
)

// SetupRoutes configures the router. The /api subtree carries the auth
// middleware; health, auth, and the Stripe webhook stay public. The
// rate limiter guards only the AI routes.
func SetupRoutes(h *Handlers, authManager *auth.Manager, limiter *RateLimiter, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.HealthCheck)

	if authManager != nil {
		r.Get("/auth/login", authManager.HandleLogin)
		r.Get("/auth/callback", authManager.HandleCallback)
		r.Get("/auth/logout", authManager.HandleLogout)
		r.Get("/auth/user", authManager.HandleUserInfo)
	}

	// Stripe calls this unauthenticated; the signature is the auth.
	r.Post("/webhooks/stripe", h.StripeWebhook)

	r.Route("/api", func(r chi.Router) {
		if authManager != nil {
			r.Use(authManager.Middleware)
		}

		r.Route("/buyers", func(r chi.Router) {
			r.Get("/", h.ListBuyers)
			r.Get("/{id}", h.GetBuyer)
			r.Post("/{id}/assign", h.AssignBuyer)
			r.Post("/{id}/first-refusal", h.ClaimFirstRefusal)
			r.Delete("/{id}/first-refusal", h.ReleaseFirstRefusal)
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.ListAssignments)
			r.Get("/{id}/contacts", h.ListContacts)
			r.Post("/{id}/contact", h.RecordContact)
			r.Post("/{id}/transition", h.TransitionAssignment)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.ListConversations)
			r.Post("/", h.StartConversation)
			r.Get("/{id}/messages", h.ListMessages)
			r.Post("/{id}/messages", h.SendMessage)
			r.Post("/{id}/read", h.MarkConversationRead)
		})

		r.Route("/subscription", func(r chi.Router) {
			r.Get("/", h.GetSubscription)
			r.Post("/checkout", h.CreateCheckout)
			r.Post("/portal", h.CreatePortal)
		})

		r.Route("/ai", func(r chi.Router) {
			if limiter != nil {
				r.Use(limiter.Middleware)
			}
			r.Post("/lead-scoring", h.ScoreLead)
			r.Post("/master-agent", h.MasterAgent)
			r.Post("/analyze-data", h.AnalyzeData)
			r.Post("/recommend-cities", h.RecommendCities)
		})

		r.Post("/airtable", h.AirtableProxy)

		r.Route("/uploads", func(r chi.Router) {
			r.Get("/", h.ListUploads)
			r.Post("/", h.Upload)
			r.Get("/{name}", h.GetUpload)
			r.Delete("/{name}", h.DeleteUpload)
		})

		r.Get("/system/status", h.SystemStatus)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.NotFound(w, "not found")
	})

	return r
}
