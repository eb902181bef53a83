package domain

import "time"

// Conversation is a message thread between a platform user and a buyer.
// One conversation exists per (user, buyer) pair.
type Conversation struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	BuyerID     string    `json:"buyer_id"`
	UserUnread  int       `json:"user_unread"`
	BuyerUnread int       `json:"buyer_unread"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MessageSender identifies which side of a conversation sent a message.
type MessageSender string

const (
	SenderUser  MessageSender = "user"
	SenderBuyer MessageSender = "buyer"
)

// Message is one entry in a conversation's ordered log. Position is a
// per-conversation sequence number assigned by the repository, never by
// the caller.
type Message struct {
	ID             string        `json:"id"`
	ConversationID string        `json:"conversation_id"`
	Sender         MessageSender `json:"sender"`
	Body           string        `json:"body"`
	Position       int           `json:"position"`
	CreatedAt      time.Time     `json:"created_at"`
}
