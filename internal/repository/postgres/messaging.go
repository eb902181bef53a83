package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/service/messaging"
)

// ConversationRepo implements messaging.Repository against PostgreSQL.
// Message positions are assigned in the INSERT itself, under the unique
// (conversation_id, position) constraint.
type ConversationRepo struct{ db *sql.DB }

// NewConversationRepo creates a Postgres-backed conversation repository.
func NewConversationRepo(db *sql.DB) *ConversationRepo { return &ConversationRepo{db: db} }

func (r *ConversationRepo) GetOrCreate(ctx context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	out := &domain.Conversation{}
	// The no-op DO UPDATE makes RETURNING yield the existing row on
	// conflict.
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO conversations (id, user_id, buyer_id, user_unread, buyer_unread, created_at, updated_at)
		VALUES ($1, $2, $3, 0, 0, NOW(), NOW())
		ON CONFLICT (user_id, buyer_id)
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING id, user_id, buyer_id, user_unread, buyer_unread, created_at, updated_at
	`, conv.ID, conv.UserID, conv.BuyerID).Scan(
		&out.ID, &out.UserID, &out.BuyerID, &out.UserUnread, &out.BuyerUnread,
		&out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get or create conversation: %w", err)
	}
	return out, nil
}

func (r *ConversationRepo) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, buyer_id, user_unread, buyer_unread, created_at, updated_at
		FROM conversations WHERE id = $1
	`, id).Scan(&c.ID, &c.UserID, &c.BuyerID, &c.UserUnread, &c.BuyerUnread, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, messaging.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID string) ([]domain.Conversation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, buyer_id, user_unread, buyer_unread, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.BuyerID, &c.UserUnread, &c.BuyerUnread, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ConversationRepo) AppendMessage(ctx context.Context, msg *domain.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin message tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender, body, position, created_at)
		VALUES ($1, $2, $3, $4,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM messages WHERE conversation_id = $2),
			NOW())
		RETURNING position, created_at
	`, msg.ID, msg.ConversationID, msg.Sender, msg.Body).Scan(&msg.Position, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	counter := "buyer_unread"
	if msg.Sender == domain.SenderBuyer {
		counter = "user_unread"
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE conversations SET `+counter+` = `+counter+` + 1, updated_at = NOW()
		WHERE id = $1
	`, msg.ConversationID)
	if err != nil {
		return fmt.Errorf("bump unread counter: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return messaging.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit message tx: %w", err)
	}
	return nil
}

func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender, body, position, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY position ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Body, &m.Position, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *ConversationRepo) MarkRead(ctx context.Context, conversationID string, side domain.MessageSender) error {
	counter := "user_unread"
	if side == domain.SenderBuyer {
		counter = "buyer_unread"
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE conversations SET `+counter+` = 0, updated_at = NOW()
		WHERE id = $1
	`, conversationID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return messaging.ErrNotFound
	}
	return nil
}
