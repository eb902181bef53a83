package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/notify"
	"github.com/naybourhood/naybourhood-server/internal/pkg/httputil"
	"github.com/naybourhood/naybourhood-server/internal/pkg/logger"
	"github.com/naybourhood/naybourhood-server/internal/service/assignment"
	"github.com/naybourhood/naybourhood-server/internal/service/subscription"
	"github.com/naybourhood/naybourhood-server/internal/tier"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// ListBuyers returns the buyer pool visible to the caller's tier.
// Buyers under the tier's score floor are filtered out entirely.
func (h *Handlers) ListBuyers(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	callerTier, err := h.subscriptions.CurrentTier(r.Context(), session.UserID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	floor := tier.VisibleScoreFloor(callerTier)

	q := r.URL.Query()
	status := q.Get("status")
	development := strings.ToLower(q.Get("development"))
	search := strings.ToLower(q.Get("q"))
	minScore, _ := strconv.Atoi(q.Get("min_score"))

	var filtered []domain.Buyer
	for _, b := range h.buyers.Buyers() {
		if b.Score() < floor || b.Score() < minScore {
			continue
		}
		if status != "" && string(b.Status) != status {
			continue
		}
		if development != "" && !strings.Contains(strings.ToLower(b.Development), development) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(b.Name), search) &&
			!strings.Contains(strings.ToLower(b.Location), search) {
			continue
		}
		filtered = append(filtered, b)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].Score() != filtered[j].Score() {
			return filtered[i].Score() > filtered[j].Score()
		}
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	total := len(filtered)
	limit := clampLimit(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := filtered[offset:end]
	if page == nil {
		page = []domain.Buyer{}
	}

	httputil.OK(w, map[string]any{
		"buyers": page,
		"total":  total,
		"limit":  limit,
		"offset": offset,
		"tier":   callerTier,
	})
}

// GetBuyer returns one buyer. Buyers under the caller's score floor are
// indistinguishable from missing ones.
func (h *Handlers) GetBuyer(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	buyer, ok := h.buyers.Buyer(chi.URLParam(r, "id"))
	if !ok {
		httputil.NotFound(w, "buyer not found")
		return
	}

	callerTier, err := h.subscriptions.CurrentTier(r.Context(), session.UserID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if buyer.Score() < tier.VisibleScoreFloor(callerTier) {
		httputil.NotFound(w, "buyer not found")
		return
	}

	httputil.OK(w, buyer)
}

// AssignBuyer claims the buyer exclusively for the caller and emails
// the lead details. The alert is fire-and-forget.
func (h *Handlers) AssignBuyer(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	buyer, ok := h.buyers.Buyer(chi.URLParam(r, "id"))
	if !ok {
		httputil.NotFound(w, "buyer not found")
		return
	}

	callerTier, err := h.subscriptions.CurrentTier(r.Context(), session.UserID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if buyer.Score() < tier.VisibleScoreFloor(callerTier) {
		httputil.NotFound(w, "buyer not found")
		return
	}

	a, err := h.assignments.Assign(r.Context(), buyer.ID, session.UserID)
	if err != nil {
		h.writeAssignmentError(w, err, callerTier)
		return
	}

	if session.Email != "" {
		go func(email string, b domain.Buyer) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.notifier.Send(ctx, notify.AssignmentAlert(email, &b)); err != nil {
				logger.Warn("assignment alert failed", "error", err.Error())
			}
		}(session.Email, buyer)
	}

	httputil.Created(w, a)
}

// ClaimFirstRefusal places a time-boxed hold on a high-score buyer.
func (h *Handlers) ClaimFirstRefusal(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	buyer, ok := h.buyers.Buyer(chi.URLParam(r, "id"))
	if !ok {
		httputil.NotFound(w, "buyer not found")
		return
	}

	callerTier, err := h.subscriptions.CurrentTier(r.Context(), session.UserID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}

	hold, err := h.assignments.ClaimFirstRefusal(r.Context(), &buyer, session.UserID, callerTier)
	if err != nil {
		switch {
		case errors.Is(err, assignment.ErrTierRequired):
			httputil.TierGated(w, "first refusal requires the enterprise plan", string(tier.Enterprise))
		case errors.Is(err, assignment.ErrScoreBelowThreshold):
			httputil.BadRequest(w, err.Error())
		case errors.Is(err, assignment.ErrHoldExists):
			httputil.Conflict(w, "buyer already has a first-refusal hold")
		default:
			httputil.InternalError(w, err)
		}
		return
	}

	httputil.Created(w, hold)
}

// ReleaseFirstRefusal drops the caller's hold before it expires.
func (h *Handlers) ReleaseFirstRefusal(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	if err := h.assignments.ReleaseFirstRefusal(r.Context(), chi.URLParam(r, "id"), session.UserID); err != nil {
		if errors.Is(err, assignment.ErrNotFound) {
			httputil.NotFound(w, "no hold to release")
			return
		}
		httputil.InternalError(w, err)
		return
	}
	httputil.NoContent(w)
}

func (h *Handlers) writeAssignmentError(w http.ResponseWriter, err error, callerTier tier.Tier) {
	switch {
	case errors.Is(err, assignment.ErrAlreadyAssigned):
		httputil.Conflict(w, "buyer is already assigned")
	case errors.Is(err, assignment.ErrBuyerSaturated):
		httputil.Conflict(w, "buyer has reached the contact limit")
	case errors.Is(err, assignment.ErrBuyerHeld):
		httputil.Conflict(w, "buyer is under a first-refusal hold")
	case errors.Is(err, assignment.ErrNotFound):
		httputil.NotFound(w, "assignment not found")
	case errors.Is(err, assignment.ErrNotOwner):
		httputil.Error(w, http.StatusForbidden, "assignment belongs to another user")
	case errors.Is(err, assignment.ErrAlreadyContacted),
		errors.Is(err, assignment.ErrInvalidTransition):
		httputil.Conflict(w, err.Error())
	case errors.Is(err, subscription.ErrQuotaExceeded),
		errors.Is(err, assignment.ErrQuotaExceeded):
		httputil.QuotaExceeded(w, err.Error(), string(tier.UpgradePath(callerTier)))
	default:
		httputil.InternalError(w, err)
	}
}

func clampLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}
