package subscription

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/naybourhood/naybourhood-server/internal/billing"
	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/tier"
)

// Usage is the caller-facing quota snapshot for one user.
type Usage struct {
	Tier              tier.Tier                 `json:"tier"`
	Config            tier.Config               `json:"config"`
	Status            domain.SubscriptionStatus `json:"status"`
	ContactsUsed      int                       `json:"contacts_used"`
	ContactsRemaining int                       `json:"contacts_remaining"` // tier.UnlimitedContacts when uncapped
	PeriodEnd         *time.Time                `json:"current_period_end,omitempty"`
}

// Service implements subscription business logic. It is safe for
// concurrent use. Usage snapshots are cached briefly and invalidated
// whenever webhook traffic or a recorded contact changes the answer.
type Service struct {
	repo    Repository
	billing *billing.Service
	now     func() time.Time

	mu       sync.Mutex
	cache    map[string]cachedUsage
	cacheTTL time.Duration
}

type cachedUsage struct {
	usage Usage
	at    time.Time
}

// NewService creates a subscription service backed by the given
// repository and Stripe client.
func NewService(repo Repository, billingSvc *billing.Service) *Service {
	return &Service{
		repo:     repo,
		billing:  billingSvc,
		now:      time.Now,
		cache:    make(map[string]cachedUsage),
		cacheTTL: 30 * time.Second,
	}
}

// CurrentTier resolves the user's effective tier. Users with no row, or
// a canceled/past-due one, sit on the base access tier.
func (s *Service) CurrentTier(ctx context.Context, userID string) (tier.Tier, error) {
	sub, err := s.repo.GetByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return tier.Access, nil
	}
	if err != nil {
		return "", err
	}
	if sub.Status != domain.SubscriptionActive && sub.Status != domain.SubscriptionTrialing {
		return tier.Access, nil
	}
	return tier.Tier(sub.Tier), nil
}

// Usage returns the quota snapshot for the current UTC calendar month.
// Repository errors propagate; a partial answer is never fabricated.
func (s *Service) Usage(ctx context.Context, userID string) (*Usage, error) {
	s.mu.Lock()
	if entry, ok := s.cache[userID]; ok && s.now().Sub(entry.at) < s.cacheTTL {
		u := entry.usage
		s.mu.Unlock()
		return &u, nil
	}
	s.mu.Unlock()

	current := tier.Access
	status := domain.SubscriptionStatus("")
	var periodEnd *time.Time

	sub, err := s.repo.GetByUser(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		// Base tier, no row.
	case err != nil:
		return nil, fmt.Errorf("load subscription: %w", err)
	default:
		status = sub.Status
		periodEnd = sub.PeriodEnd
		if sub.Status == domain.SubscriptionActive || sub.Status == domain.SubscriptionTrialing {
			current = tier.Tier(sub.Tier)
		}
	}

	cfg := tier.GetConfig(current)
	used, err := s.repo.CountContactsSince(ctx, userID, s.monthStart())
	if err != nil {
		return nil, fmt.Errorf("count contacts: %w", err)
	}

	usage := Usage{
		Tier:              cfg.Tier,
		Config:            cfg,
		Status:            status,
		ContactsUsed:      used,
		ContactsRemaining: tier.ContactsRemaining(cfg.ContactQuota, used),
		PeriodEnd:         periodEnd,
	}

	s.mu.Lock()
	s.cache[userID] = cachedUsage{usage: usage, at: s.now()}
	s.mu.Unlock()
	return &usage, nil
}

// ConsumeAllowed reports whether the user may record one more contact
// this month. Unlimited tiers always pass.
func (s *Service) ConsumeAllowed(ctx context.Context, userID string) error {
	usage, err := s.Usage(ctx, userID)
	if err != nil {
		return err
	}
	if usage.Config.ContactQuota == tier.UnlimitedContacts {
		return nil
	}
	if usage.ContactsRemaining <= 0 {
		return fmt.Errorf("%w: %d of %d used", ErrQuotaExceeded, usage.ContactsUsed, usage.Config.ContactQuota)
	}
	return nil
}

// ContactBudget returns the caller's monthly contact cap and the start
// of the current period. Unlimited tiers report tier.UnlimitedContacts.
func (s *Service) ContactBudget(ctx context.Context, userID string) (int, time.Time, error) {
	current, err := s.CurrentTier(ctx, userID)
	if err != nil {
		return 0, time.Time{}, err
	}
	return tier.GetConfig(current).ContactQuota, s.monthStart(), nil
}

// InitiateCheckout starts a Stripe checkout for upgrading to target and
// returns the hosted URL.
func (s *Service) InitiateCheckout(ctx context.Context, userID, email string, target tier.Tier) (string, error) {
	return s.billing.CreateCheckout(ctx, userID, email, target)
}

// OpenPortal returns a billing-portal URL for the user's Stripe
// customer. Users who never checked out have no customer to manage.
func (s *Service) OpenPortal(ctx context.Context, userID string) (string, error) {
	sub, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.billing.CreatePortal(ctx, sub.StripeCustomerID)
}

// Invalidate drops the cached usage snapshot for one user. Called after
// contact recording so the next Usage read reflects the spend.
func (s *Service) Invalidate(userID string) {
	s.mu.Lock()
	delete(s.cache, userID)
	s.mu.Unlock()
}

func (s *Service) invalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string]cachedUsage)
	s.mu.Unlock()
}

func (s *Service) monthStart() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// The methods below satisfy billing.SubscriptionStore so webhook events
// flow through this service and invalidate cached usage on the way.

func (s *Service) UpsertByStripeSubscription(ctx context.Context, sub *domain.Subscription) error {
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return err
	}
	if sub.UserID != "" {
		s.Invalidate(sub.UserID)
	} else {
		s.invalidateAll()
	}
	return nil
}

func (s *Service) UpdateStatusByStripeSubscription(ctx context.Context, stripeSubID string, status domain.SubscriptionStatus) error {
	if err := s.repo.UpdateStatusByStripeSubscription(ctx, stripeSubID, status); err != nil {
		return err
	}
	s.invalidateAll()
	return nil
}

func (s *Service) UpdateStatusByStripeCustomer(ctx context.Context, customerID string, status domain.SubscriptionStatus) error {
	if err := s.repo.UpdateStatusByStripeCustomer(ctx, customerID, status); err != nil {
		return err
	}
	s.invalidateAll()
	return nil
}
