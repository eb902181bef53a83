package assignment

import (
	"context"
	"time"

	"github.com/naybourhood/naybourhood-server/internal/domain"
)

// Repository defines the data access contract for assignments, contacts,
// and first-refusal holds. The conditional operations are atomic: the
// postgres implementation folds each guard into the statement itself
// rather than reading first and writing second.
type Repository interface {
	// CreateExclusive inserts the assignment only if the buyer has no
	// active (non-terminal) assignment, fewer than maxContactUsers
	// distinct users have contacted them, and no unexpired hold by
	// another user exists. Returns ErrAlreadyAssigned, ErrBuyerSaturated,
	// or ErrBuyerHeld.
	CreateExclusive(ctx context.Context, a *domain.Assignment, maxContactUsers int) error

	// Get returns one assignment, or ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Assignment, error)

	// ListByUser returns the user's assignments, newest first.
	ListByUser(ctx context.Context, userID string) ([]domain.Assignment, error)

	// UpdateStatus moves the assignment from one status to another in a
	// single conditional statement. Returns ErrNotFound when no row is
	// in the expected from-status.
	UpdateStatus(ctx context.Context, id string, from, to domain.AssignmentStatus) error

	// RecordContact inserts the contact row and, when advance is set,
	// moves the assignment from assigned to contacted, in one
	// transaction. The user's contacts since the period start are
	// counted inside that transaction and the insert fails with
	// ErrQuotaExceeded at quota; tier.UnlimitedContacts skips the count.
	RecordContact(ctx context.Context, c *domain.Contact, advance bool, quota int, since time.Time) error

	// ListContacts returns an assignment's contact log, oldest first.
	ListContacts(ctx context.Context, assignmentID string) ([]domain.Contact, error)

	// CreateHold inserts a first-refusal hold only if the buyer has no
	// unexpired hold. Returns ErrHoldExists.
	CreateHold(ctx context.Context, h *domain.FirstRefusalHold) error

	// ActiveHold returns the buyer's unexpired hold, or ErrNotFound.
	ActiveHold(ctx context.Context, buyerID string, now time.Time) (*domain.FirstRefusalHold, error)

	// ReleaseHold deletes the user's hold on the buyer.
	ReleaseHold(ctx context.Context, buyerID, userID string) error

	// DeleteExpiredHolds removes holds past their window and reports how
	// many went.
	DeleteExpiredHolds(ctx context.Context, now time.Time) (int, error)
}
