package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/pkg/httputil"
	"github.com/naybourhood/naybourhood-server/internal/service/messaging"
)

// ListConversations returns the caller's conversation threads.
func (h *Handlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	list, err := h.messaging.ListByUser(r.Context(), session.UserID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	if list == nil {
		list = []domain.Conversation{}
	}
	httputil.OK(w, map[string]any{"conversations": list})
}

type startConversationRequest struct {
	BuyerID string `json:"buyer_id"`
}

// StartConversation opens (or returns) the thread with a buyer.
func (h *Handlers) StartConversation(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	var req startConversationRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.BuyerID == "" {
		httputil.BadRequest(w, "buyer_id is required")
		return
	}
	if _, ok := h.buyers.Buyer(req.BuyerID); !ok {
		httputil.NotFound(w, "buyer not found")
		return
	}

	conv, err := h.messaging.StartConversation(r.Context(), session.UserID, req.BuyerID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.Created(w, conv)
}

// ListMessages returns a conversation's ordered message log.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	msgs, err := h.messaging.ListMessages(r.Context(), chi.URLParam(r, "id"), session.UserID)
	if err != nil {
		h.writeMessagingError(w, err)
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	httputil.OK(w, map[string]any{"messages": msgs})
}

type sendMessageRequest struct {
	Body   string `json:"body"`
	Sender string `json:"sender"`
}

// SendMessage appends one message. Sender defaults to the user side;
// "buyer" is accepted for inbound relays.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	var req sendMessageRequest
	if !httputil.Decode(w, r, &req) {
		return
	}

	sender := domain.SenderUser
	if req.Sender == string(domain.SenderBuyer) {
		sender = domain.SenderBuyer
	}

	msg, err := h.messaging.SendMessage(r.Context(), chi.URLParam(r, "id"), session.UserID, sender, req.Body)
	if err != nil {
		h.writeMessagingError(w, err)
		return
	}
	httputil.Created(w, msg)
}

// MarkConversationRead zeroes the caller's unread counter.
func (h *Handlers) MarkConversationRead(w http.ResponseWriter, r *http.Request) {
	session := caller(r)
	if err := h.messaging.MarkRead(r.Context(), chi.URLParam(r, "id"), session.UserID, domain.SenderUser); err != nil {
		h.writeMessagingError(w, err)
		return
	}
	httputil.NoContent(w)
}

func (h *Handlers) writeMessagingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, messaging.ErrNotFound):
		httputil.NotFound(w, "conversation not found")
	case errors.Is(err, messaging.ErrNotParticipant):
		httputil.Error(w, http.StatusForbidden, "not part of this conversation")
	case errors.Is(err, messaging.ErrEmptyBody):
		httputil.BadRequest(w, "message body is empty")
	default:
		httputil.InternalError(w, err)
	}
}
