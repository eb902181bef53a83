package messaging

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naybourhood/naybourhood-server/internal/domain"
)

// mockRepo is an in-memory repository mirroring the transactional
// guarantees of the postgres implementation.
type mockRepo struct {
	mu       sync.Mutex
	byID     map[string]*domain.Conversation
	byPair   map[string]string // "user:buyer" -> conversation ID
	messages map[string][]domain.Message
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		byID:     make(map[string]*domain.Conversation),
		byPair:   make(map[string]string),
		messages: make(map[string][]domain.Message),
	}
}

func (m *mockRepo) GetOrCreate(_ context.Context, conv *domain.Conversation) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := conv.UserID + ":" + conv.BuyerID
	if id, ok := m.byPair[key]; ok {
		cp := *m.byID[id]
		return &cp, nil
	}
	cp := *conv
	m.byID[conv.ID] = &cp
	m.byPair[key] = conv.ID
	out := cp
	return &out, nil
}

func (m *mockRepo) Get(_ context.Context, id string) (*domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *conv
	return &cp, nil
}

func (m *mockRepo) ListByUser(_ context.Context, userID string) ([]domain.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Conversation
	for _, c := range m.byID {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *mockRepo) AppendMessage(_ context.Context, msg *domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.byID[msg.ConversationID]
	if !ok {
		return ErrNotFound
	}
	msg.Position = len(m.messages[msg.ConversationID]) + 1
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], *msg)
	if msg.Sender == domain.SenderUser {
		conv.BuyerUnread++
	} else {
		conv.UserUnread++
	}
	return nil
}

func (m *mockRepo) ListMessages(_ context.Context, conversationID string) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Message(nil), m.messages[conversationID]...), nil
}

func (m *mockRepo) MarkRead(_ context.Context, conversationID string, side domain.MessageSender) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.byID[conversationID]
	if !ok {
		return ErrNotFound
	}
	if side == domain.SenderUser {
		conv.UserUnread = 0
	} else {
		conv.BuyerUnread = 0
	}
	return nil
}

func TestStartConversationIdempotent(t *testing.T) {
	svc := NewService(newMockRepo())

	first, err := svc.StartConversation(context.Background(), "user-1", "buyer-1")
	require.NoError(t, err)
	second, err := svc.StartConversation(context.Background(), "user-1", "buyer-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// A different pair gets its own thread.
	other, err := svc.StartConversation(context.Background(), "user-1", "buyer-2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestSendMessageAssignsPositions(t *testing.T) {
	svc := NewService(newMockRepo())
	conv, err := svc.StartConversation(context.Background(), "user-1", "buyer-1")
	require.NoError(t, err)

	m1, err := svc.SendMessage(context.Background(), conv.ID, "user-1", domain.SenderUser, "Hello")
	require.NoError(t, err)
	m2, err := svc.SendMessage(context.Background(), conv.ID, "user-1", domain.SenderUser, "Are you still interested?")
	require.NoError(t, err)

	assert.Equal(t, 1, m1.Position)
	assert.Equal(t, 2, m2.Position)
}

func TestSendMessageBumpsRecipientUnread(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	conv, err := svc.StartConversation(context.Background(), "user-1", "buyer-1")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), conv.ID, "user-1", domain.SenderUser, "Hello")
	require.NoError(t, err)
	got, err := svc.Get(context.Background(), conv.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.BuyerUnread)
	assert.Equal(t, 0, got.UserUnread)

	_, err = svc.SendMessage(context.Background(), conv.ID, "user-1", domain.SenderBuyer, "Yes, very much")
	require.NoError(t, err)
	got, err = svc.Get(context.Background(), conv.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.UserUnread)
}

func TestSendMessageEmptyBody(t *testing.T) {
	svc := NewService(newMockRepo())
	conv, err := svc.StartConversation(context.Background(), "user-1", "buyer-1")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), conv.ID, "user-1", domain.SenderUser, "   \n ")
	assert.ErrorIs(t, err, ErrEmptyBody)
}

func TestSendMessageWrongUser(t *testing.T) {
	svc := NewService(newMockRepo())
	conv, err := svc.StartConversation(context.Background(), "user-1", "buyer-1")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), conv.ID, "user-2", domain.SenderUser, "hi")
	assert.ErrorIs(t, err, ErrNotParticipant)

	// The buyer relay goes through the owner's session too, so a
	// non-owner cannot inject inbound messages either.
	_, err = svc.SendMessage(context.Background(), conv.ID, "user-2", domain.SenderBuyer, "hi")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestMarkReadWrongUser(t *testing.T) {
	svc := NewService(newMockRepo())
	conv, err := svc.StartConversation(context.Background(), "user-1", "buyer-1")
	require.NoError(t, err)

	err = svc.MarkRead(context.Background(), conv.ID, "user-2", domain.SenderBuyer)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestListMessagesOrdered(t *testing.T) {
	svc := NewService(newMockRepo())
	conv, err := svc.StartConversation(context.Background(), "user-1", "buyer-1")
	require.NoError(t, err)

	for _, body := range []string{"one", "two", "three"} {
		_, err := svc.SendMessage(context.Background(), conv.ID, "user-1", domain.SenderUser, body)
		require.NoError(t, err)
	}

	msgs, err := svc.ListMessages(context.Background(), conv.ID, "user-1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, msg := range msgs {
		assert.Equal(t, i+1, msg.Position)
	}
}

func TestListMessagesWrongUser(t *testing.T) {
	svc := NewService(newMockRepo())
	conv, err := svc.StartConversation(context.Background(), "user-1", "buyer-1")
	require.NoError(t, err)

	_, err = svc.ListMessages(context.Background(), conv.ID, "user-2")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestMarkReadZeroesOwnCounterOnly(t *testing.T) {
	svc := NewService(newMockRepo())
	conv, err := svc.StartConversation(context.Background(), "user-1", "buyer-1")
	require.NoError(t, err)

	_, err = svc.SendMessage(context.Background(), conv.ID, "user-1", domain.SenderBuyer, "hello")
	require.NoError(t, err)
	_, err = svc.SendMessage(context.Background(), conv.ID, "user-1", domain.SenderUser, "hi back")
	require.NoError(t, err)

	require.NoError(t, svc.MarkRead(context.Background(), conv.ID, "user-1", domain.SenderUser))

	got, err := svc.Get(context.Background(), conv.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, got.UserUnread)
	assert.Equal(t, 1, got.BuyerUnread, "buyer's counter untouched")
}

func TestGetUnknownConversation(t *testing.T) {
	svc := NewService(newMockRepo())
	_, err := svc.Get(context.Background(), "missing", "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
