package subscription

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naybourhood/naybourhood-server/internal/billing"
	"github.com/naybourhood/naybourhood-server/internal/config"
	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/tier"
)

// mockRepo is an in-memory repository for testing.
type mockRepo struct {
	mu       sync.RWMutex
	byUser   map[string]*domain.Subscription
	contacts map[string][]time.Time // userID -> contact timestamps
	err      error
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		byUser:   make(map[string]*domain.Subscription),
		contacts: make(map[string][]time.Time),
	}
}

func (m *mockRepo) GetByUser(_ context.Context, userID string) (*domain.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	sub, ok := m.byUser[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *sub
	return &cp, nil
}

func (m *mockRepo) Upsert(_ context.Context, sub *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *sub
	m.byUser[sub.UserID] = &cp
	return nil
}

func (m *mockRepo) UpdateStatusByStripeSubscription(_ context.Context, id string, status domain.SubscriptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.byUser {
		if sub.StripeSubID == id {
			sub.Status = status
		}
	}
	return nil
}

func (m *mockRepo) UpdateStatusByStripeCustomer(_ context.Context, id string, status domain.SubscriptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.byUser {
		if sub.StripeCustomerID == id {
			sub.Status = status
		}
	}
	return nil
}

func (m *mockRepo) CountContactsSince(_ context.Context, userID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	n := 0
	for _, at := range m.contacts[userID] {
		if !at.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) addContacts(userID string, n int, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.contacts[userID] = append(m.contacts[userID], at)
	}
}

func newTestService(repo Repository) *Service {
	billingSvc := billing.NewService(config.StripeConfig{
		SecretKey: "sk_test",
		SiteURL:   "https://app.naybourhood.test",
		PriceIDs:  map[string]string{"growth": "price_growth"},
	})
	return NewService(repo, billingSvc)
}

func TestCurrentTierNoRowIsAccess(t *testing.T) {
	svc := newTestService(newMockRepo())
	got, err := svc.CurrentTier(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, tier.Access, got)
}

func TestCurrentTierActiveRow(t *testing.T) {
	repo := newMockRepo()
	repo.byUser["user-1"] = &domain.Subscription{UserID: "user-1", Tier: "growth", Status: domain.SubscriptionActive}
	svc := newTestService(repo)

	got, err := svc.CurrentTier(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, tier.Growth, got)
}

func TestCurrentTierCanceledFallsBackToAccess(t *testing.T) {
	repo := newMockRepo()
	repo.byUser["user-1"] = &domain.Subscription{UserID: "user-1", Tier: "enterprise", Status: domain.SubscriptionCanceled}
	svc := newTestService(repo)

	got, err := svc.CurrentTier(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, tier.Access, got)
}

func TestUsageCountsCurrentMonthOnly(t *testing.T) {
	repo := newMockRepo()
	repo.byUser["user-1"] = &domain.Subscription{UserID: "user-1", Tier: "growth", Status: domain.SubscriptionActive}
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	repo.addContacts("user-1", 3, time.Date(2026, 8, 2, 9, 0, 0, 0, time.UTC))
	repo.addContacts("user-1", 5, time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)) // previous month

	svc := newTestService(repo)
	svc.now = func() time.Time { return now }

	usage, err := svc.Usage(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, tier.Growth, usage.Tier)
	assert.Equal(t, 3, usage.ContactsUsed)
	assert.Equal(t, 97, usage.ContactsRemaining)
}

func TestUsagePropagatesRepositoryError(t *testing.T) {
	repo := newMockRepo()
	repo.err = assert.AnError
	svc := newTestService(repo)

	_, err := svc.Usage(context.Background(), "user-1")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestUsageNeverNegativeRemaining(t *testing.T) {
	repo := newMockRepo()
	now := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	// Access tier quota is 25; record more than that.
	repo.addContacts("user-1", 30, now.Add(-time.Hour))

	svc := newTestService(repo)
	svc.now = func() time.Time { return now }

	usage, err := svc.Usage(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 30, usage.ContactsUsed)
	assert.Equal(t, 0, usage.ContactsRemaining)
}

func TestConsumeAllowedWithinQuota(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)
	assert.NoError(t, svc.ConsumeAllowed(context.Background(), "user-1"))
}

func TestConsumeAllowedAtQuota(t *testing.T) {
	repo := newMockRepo()
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	repo.addContacts("user-1", 25, monthStart.Add(time.Hour))

	svc := newTestService(repo)
	err := svc.ConsumeAllowed(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestConsumeAllowedUnlimited(t *testing.T) {
	repo := newMockRepo()
	repo.byUser["user-1"] = &domain.Subscription{UserID: "user-1", Tier: "enterprise", Status: domain.SubscriptionActive}
	now := time.Now().UTC()
	repo.addContacts("user-1", 10_000, now.Add(-time.Minute))

	svc := newTestService(repo)
	assert.NoError(t, svc.ConsumeAllowed(context.Background(), "user-1"))
}

func TestContactBudget(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	quota, since, err := svc.ContactBudget(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 25, quota, "access tier cap")
	now := time.Now().UTC()
	assert.Equal(t, time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), since)

	repo.byUser["user-1"] = &domain.Subscription{UserID: "user-1", Tier: "enterprise", Status: domain.SubscriptionActive}
	quota, _, err = svc.ContactBudget(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, tier.UnlimitedContacts, quota)
}

func TestUsageCacheInvalidatedOnWebhookUpsert(t *testing.T) {
	repo := newMockRepo()
	svc := newTestService(repo)

	usage, err := svc.Usage(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, tier.Access, usage.Tier)

	// Webhook lands an active growth subscription.
	require.NoError(t, svc.UpsertByStripeSubscription(context.Background(), &domain.Subscription{
		UserID: "user-1",
		Tier:   "growth",
		Status: domain.SubscriptionActive,
	}))

	usage, err = svc.Usage(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, tier.Growth, usage.Tier, "cached access-tier snapshot must not survive the upsert")
}

func TestUsageCacheInvalidatedExplicitly(t *testing.T) {
	repo := newMockRepo()
	now := time.Now().UTC()
	svc := newTestService(repo)

	usage, err := svc.Usage(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, usage.ContactsUsed)

	repo.addContacts("user-1", 1, now)
	svc.Invalidate("user-1")

	usage, err = svc.Usage(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, usage.ContactsUsed)
}

func TestOpenPortalNoSubscription(t *testing.T) {
	svc := newTestService(newMockRepo())
	_, err := svc.OpenPortal(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNotFound)
}
