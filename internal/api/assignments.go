package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/pkg/httputil"
	"github.com/naybourhood/naybourhood-server/internal/service/assignment"
	"github.com/naybourhood/naybourhood-server/internal/tier"
)

// ListAssignments returns the caller's assignments, newest first.
func (h *Handlers) ListAssignments(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	list, err := h.assignments.ListByUser(r.Context(), session.UserID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if list == nil {
		list = []domain.Assignment{}
	}
	httputil.OK(w, map[string]any{"assignments": list})
}

// ListContacts returns the contact log for one of the caller's
// assignments.
func (h *Handlers) ListContacts(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	id := chi.URLParam(r, "id")

	a, err := h.assignments.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, assignment.ErrNotFound) {
			httputil.NotFound(w, "assignment not found")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	if a.UserID != session.UserID {
		httputil.Error(w, http.StatusForbidden, "assignment belongs to another user")
		return
	}

	contacts, err := h.assignments.ListContacts(r.Context(), id)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if contacts == nil {
		contacts = []domain.Contact{}
	}
	httputil.OK(w, map[string]any{"contacts": contacts})
}

type recordContactRequest struct {
	Channel string `json:"channel"`
	Outcome string `json:"outcome"`
	Note    string `json:"note"`
}

// RecordContact logs one contact attempt against the caller's quota.
func (h *Handlers) RecordContact(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	var req recordContactRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	channel := domain.ContactChannel(req.Channel)
	if !domain.ValidChannel(channel) {
		httputil.BadRequest(w, "unknown contact channel")
		return
	}

	contact, err := h.assignments.RecordContact(r.Context(), chi.URLParam(r, "id"), session.UserID, channel, req.Outcome, req.Note)
	if err != nil {
		callerTier := h.tierOrDefault(r, session.UserID)
		h.writeAssignmentError(w, err, callerTier)
		return
	}
	httputil.Created(w, contact)
}

type transitionRequest struct {
	Status string `json:"status"`
}

// TransitionAssignment moves the caller's assignment along its
// lifecycle.
func (h *Handlers) TransitionAssignment(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	var req transitionRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.Status == "" {
		httputil.BadRequest(w, "status is required")
		return
	}

	a, err := h.assignments.Transition(r.Context(), chi.URLParam(r, "id"), session.UserID, domain.AssignmentStatus(req.Status))
	if err != nil {
		h.writeAssignmentError(w, err, tier.Access)
		return
	}
	httputil.OK(w, a)
}

// tierOrDefault resolves the caller's tier for error envelopes; lookup
// failures fall back to access so the response still renders.
func (h *Handlers) tierOrDefault(r *http.Request, userID string) tier.Tier {
	t, err := h.subscriptions.CurrentTier(r.Context(), userID)
	if err != nil {
		return tier.Access
	}
	return t
}
