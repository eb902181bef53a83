package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/service/messaging"
)

func TestGetOrCreateReturnsExistingRowOnConflict(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO conversations").
		WithArgs("new-id", "user-1", "buyer-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "user_id", "buyer_id", "user_unread", "buyer_unread", "created_at", "updated_at"},
		).AddRow("existing-id", "user-1", "buyer-1", 2, 0, now, now))

	repo := NewConversationRepo(db)
	got, err := repo.GetOrCreate(context.Background(), &domain.Conversation{
		ID: "new-id", UserID: "user-1", BuyerID: "buyer-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "existing-id", got.ID)
	assert.Equal(t, 2, got.UserUnread)
}

func TestAppendMessageAssignsPositionAndBumpsUnread(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs("m-1", "conv-1", "user", "Hello").
		WillReturnRows(sqlmock.NewRows([]string{"position", "created_at"}).AddRow(3, now))
	mock.ExpectExec("UPDATE conversations SET buyer_unread").
		WithArgs("conv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewConversationRepo(db)
	msg := &domain.Message{ID: "m-1", ConversationID: "conv-1", Sender: domain.SenderUser, Body: "Hello"}
	require.NoError(t, repo.AppendMessage(context.Background(), msg))
	assert.Equal(t, 3, msg.Position)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMessageFromBuyerBumpsUserUnread(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO messages").
		WillReturnRows(sqlmock.NewRows([]string{"position", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectExec("UPDATE conversations SET user_unread").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewConversationRepo(db)
	msg := &domain.Message{ID: "m-1", ConversationID: "conv-1", Sender: domain.SenderBuyer, Body: "Hi"}
	require.NoError(t, repo.AppendMessage(context.Background(), msg))
}

func TestAppendMessageMissingConversation(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO messages").
		WillReturnRows(sqlmock.NewRows([]string{"position", "created_at"}).AddRow(1, time.Now()))
	mock.ExpectExec("UPDATE conversations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewConversationRepo(db)
	msg := &domain.Message{ID: "m-1", ConversationID: "gone", Sender: domain.SenderUser, Body: "Hi"}
	assert.ErrorIs(t, repo.AppendMessage(context.Background(), msg), messaging.ErrNotFound)
}

func TestGetConversationNotFound(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectQuery("SELECT id, user_id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	repo := NewConversationRepo(db)
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, messaging.ErrNotFound)
}

func TestListMessagesOrderedByPosition(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery("SELECT id, conversation_id, sender, body, position").
		WithArgs("conv-1").
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "conversation_id", "sender", "body", "position", "created_at"},
		).
			AddRow("m-1", "conv-1", "user", "one", 1, now).
			AddRow("m-2", "conv-1", "buyer", "two", 2, now))

	repo := NewConversationRepo(db)
	msgs, err := repo.ListMessages(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, 1, msgs[0].Position)
	assert.Equal(t, domain.SenderBuyer, msgs[1].Sender)
}

func TestMarkReadZeroesCounter(t *testing.T) {
	db, mock, cleanup := setupTestDB(t)
	defer cleanup()

	mock.ExpectExec("UPDATE conversations SET user_unread = 0").
		WithArgs("conv-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewConversationRepo(db)
	require.NoError(t, repo.MarkRead(context.Background(), "conv-1", domain.SenderUser))
	assert.NoError(t, mock.ExpectationsWereMet())
}
