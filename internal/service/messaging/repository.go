package messaging

import (
	"context"

	"github.com/naybourhood/naybourhood-server/internal/domain"
)

// Repository defines the data access contract for conversations.
type Repository interface {
	// GetOrCreate returns the (user, buyer) conversation, creating it if
	// absent. Concurrent callers for the same pair get the same row.
	GetOrCreate(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error)

	// Get returns one conversation, or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Conversation, error)

	// ListByUser returns the user's conversations, most recently
	// updated first.
	ListByUser(ctx context.Context, userID string) ([]domain.Conversation, error)

	// AppendMessage inserts the message with the next position for its
	// conversation and increments the recipient's unread counter, in
	// one transaction. The assigned position lands in msg.Position.
	AppendMessage(ctx context.Context, msg *domain.Message) error

	// ListMessages returns a conversation's messages ordered by
	// position.
	ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error)

	// MarkRead zeroes the given side's unread counter.
	MarkRead(ctx context.Context, conversationID string, side domain.MessageSender) error
}
