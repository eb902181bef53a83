package assignment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/naybourhood/naybourhood-server/internal/config"
	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/pkg/logger"
	"github.com/naybourhood/naybourhood-server/internal/tier"
)

// maxContactUsers closes a buyer to new assignments once this many
// distinct users have contacted them.
const maxContactUsers = 4

// QuotaChecker gates contact recording on the caller's monthly quota.
// The subscription service implements it. ConsumeAllowed is the fast
// cached precheck; ContactBudget supplies the hard cap the repository
// enforces inside the contact transaction.
type QuotaChecker interface {
	ConsumeAllowed(ctx context.Context, userID string) error
	ContactBudget(ctx context.Context, userID string) (quota int, since time.Time, err error)
	Invalidate(userID string)
}

// Service implements assignment business logic. It is safe for
// concurrent use.
type Service struct {
	repo    Repository
	quota   QuotaChecker
	refusal config.RefusalConfig
	now     func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewService creates an assignment service backed by the given
// repository and quota checker.
func NewService(repo Repository, quota QuotaChecker, refusal config.RefusalConfig) *Service {
	return &Service{
		repo:     repo,
		quota:    quota,
		refusal:  refusal,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
}

// Assign claims the buyer for the user. Exclusivity, crowding, and hold
// checks all happen inside the repository's conditional insert, so two
// concurrent claims cannot both succeed.
func (s *Service) Assign(ctx context.Context, buyerID, userID string) (*domain.Assignment, error) {
	if strings.TrimSpace(buyerID) == "" || strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("buyer and user are required")
	}

	a := &domain.Assignment{
		ID:      uuid.NewString(),
		BuyerID: buyerID,
		UserID:  userID,
		Status:  domain.AssignmentAssigned,
	}
	if err := s.repo.CreateExclusive(ctx, a, maxContactUsers); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns one assignment.
func (s *Service) Get(ctx context.Context, id string) (*domain.Assignment, error) {
	return s.repo.Get(ctx, id)
}

// ListByUser returns the user's assignments, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Assignment, error) {
	return s.repo.ListByUser(ctx, userID)
}

// RecordContact logs one contact attempt. The cached quota check runs
// first for a cheap rejection; the hard cap is re-counted inside the
// repository transaction, so concurrent calls cannot overshoot it. The
// contact row and the assigned→contacted advance commit together.
func (s *Service) RecordContact(ctx context.Context, assignmentID, userID string, channel domain.ContactChannel, outcome, note string) (*domain.Contact, error) {
	if !domain.ValidChannel(channel) {
		return nil, fmt.Errorf("unknown contact channel %q", channel)
	}

	a, err := s.repo.Get(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrNotOwner
	}
	if domain.IsTerminalAssignment(a.Status) {
		return nil, fmt.Errorf("%w: assignment is %s", ErrInvalidTransition, a.Status)
	}

	if err := s.quota.ConsumeAllowed(ctx, userID); err != nil {
		return nil, err
	}
	quota, since, err := s.quota.ContactBudget(ctx, userID)
	if err != nil {
		return nil, err
	}

	c := &domain.Contact{
		ID:           uuid.NewString(),
		AssignmentID: assignmentID,
		UserID:       userID,
		Channel:      channel,
		Outcome:      outcome,
		Note:         note,
	}
	advance := a.Status == domain.AssignmentAssigned
	if err := s.repo.RecordContact(ctx, c, advance, quota, since); err != nil {
		return nil, err
	}
	s.quota.Invalidate(userID)
	return c, nil
}

// ListContacts returns an assignment's contact log, oldest first.
func (s *Service) ListContacts(ctx context.Context, assignmentID string) ([]domain.Contact, error) {
	return s.repo.ListContacts(ctx, assignmentID)
}

// Transition moves the assignment to a new status after validating the
// move against the domain transition table. Ownership is enforced here;
// the from-status condition is enforced again in the UPDATE itself.
func (s *Service) Transition(ctx context.Context, assignmentID, userID string, to domain.AssignmentStatus) (*domain.Assignment, error) {
	a, err := s.repo.Get(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, ErrNotOwner
	}
	if a.Status == domain.AssignmentContacted && to == domain.AssignmentContacted {
		return nil, ErrAlreadyContacted
	}
	if !domain.CanTransition(a.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}

	if err := s.repo.UpdateStatus(ctx, assignmentID, a.Status, to); err != nil {
		return nil, err
	}
	a.Status = to
	return a, nil
}

// Release is the explicit give-back action. No timer releases
// assignments automatically.
func (s *Service) Release(ctx context.Context, assignmentID, userID string) (*domain.Assignment, error) {
	return s.Transition(ctx, assignmentID, userID, domain.AssignmentReleased)
}

// ClaimFirstRefusal places a time-boxed exclusive hold on a high-score
// buyer. Enterprise feature; the buyer must clear the score threshold.
func (s *Service) ClaimFirstRefusal(ctx context.Context, buyer *domain.Buyer, userID string, userTier tier.Tier) (*domain.FirstRefusalHold, error) {
	required, ok := tier.RequiredFor(func(c tier.Config) bool { return c.FirstRefusal })
	if !ok || !tier.CanAccessFeature(userTier, required) {
		return nil, ErrTierRequired
	}
	if buyer.Score() < s.refusal.ScoreThreshold {
		return nil, fmt.Errorf("%w: score %d, threshold %d", ErrScoreBelowThreshold, buyer.Score(), s.refusal.ScoreThreshold)
	}

	h := &domain.FirstRefusalHold{
		ID:        uuid.NewString(),
		BuyerID:   buyer.ID,
		UserID:    userID,
		ExpiresAt: s.now().Add(s.refusal.Window()),
	}
	if err := s.repo.CreateHold(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// ReleaseFirstRefusal drops the user's hold before it expires.
func (s *Service) ReleaseFirstRefusal(ctx context.Context, buyerID, userID string) error {
	return s.repo.ReleaseHold(ctx, buyerID, userID)
}

// ActiveHold returns the buyer's unexpired hold, or ErrNotFound.
func (s *Service) ActiveHold(ctx context.Context, buyerID string) (*domain.FirstRefusalHold, error) {
	return s.repo.ActiveHold(ctx, buyerID, s.now())
}

// StartHoldSweep launches the background loop that deletes expired
// first-refusal holds. Holds are the only state a timer touches.
func (s *Service) StartHoldSweep(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := s.repo.DeleteExpiredHolds(context.Background(), s.now())
				if err != nil {
					logger.Error("expired hold sweep failed", "error", err)
					continue
				}
				if n > 0 {
					logger.Info("expired first-refusal holds removed", "count", n)
				}
			case <-s.stopChan:
				return
			}
		}
	}()
}

// Stop halts the hold sweep. Safe to call more than once.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}
