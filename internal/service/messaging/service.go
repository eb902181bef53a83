package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/naybourhood/naybourhood-server/internal/domain"
)

// Service implements conversation business logic. It is safe for
// concurrent use.
type Service struct {
	repo Repository
}

// NewService creates a messaging service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// StartConversation returns the thread between the user and buyer,
// creating it on first use. Calling it twice never creates a second
// thread.
func (s *Service) StartConversation(ctx context.Context, userID, buyerID string) (*domain.Conversation, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(buyerID) == "" {
		return nil, fmt.Errorf("user and buyer are required")
	}
	return s.repo.GetOrCreate(ctx, &domain.Conversation{
		ID:      uuid.NewString(),
		UserID:  userID,
		BuyerID: buyerID,
	})
}

// Get returns one conversation after checking the caller belongs to it.
func (s *Service) Get(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	conv, err := s.repo.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrNotParticipant
	}
	return conv, nil
}

// ListByUser returns the user's conversations, most recently updated
// first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return s.repo.ListByUser(ctx, userID)
}

// SendMessage appends one message. The repository assigns the position
// and bumps the other side's unread counter atomically.
func (s *Service) SendMessage(ctx context.Context, conversationID, userID string, sender domain.MessageSender, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if sender != domain.SenderUser && sender != domain.SenderBuyer {
		return nil, fmt.Errorf("unknown sender %q", sender)
	}

	conv, err := s.repo.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	// The buyer side is relayed through the owning user's session, so
	// both senders require the caller to belong to the thread.
	if conv.UserID != userID {
		return nil, ErrNotParticipant
	}

	msg := &domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Sender:         sender,
		Body:           body,
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the conversation's log in position order, after
// checking the caller belongs to it.
func (s *Service) ListMessages(ctx context.Context, conversationID, userID string) ([]domain.Message, error) {
	if _, err := s.Get(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, conversationID)
}

// MarkRead zeroes the caller's unread counter.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID string, side domain.MessageSender) error {
	conv, err := s.repo.Get(ctx, conversationID)
	if err != nil {
		return err
	}
	if conv.UserID != userID {
		return ErrNotParticipant
	}
	return s.repo.MarkRead(ctx, conversationID, side)
}
