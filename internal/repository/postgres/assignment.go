package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/naybourhood/naybourhood-server/internal/domain"
	"github.com/naybourhood/naybourhood-server/internal/service/assignment"
)

// AssignmentRepo implements assignment.Repository against PostgreSQL.
//
// Exclusivity rests on two layers: the conditional INSERT below, and the
// partial unique index on assignments(buyer_id) WHERE the status is
// non-terminal, which closes the race two concurrent inserts could
// otherwise slip through.
type AssignmentRepo struct{ db *sql.DB }

// NewAssignmentRepo creates a Postgres-backed assignment repository.
func NewAssignmentRepo(db *sql.DB) *AssignmentRepo { return &AssignmentRepo{db: db} }

const activeStatuses = `'assigned','contacted','in_progress'`

func (r *AssignmentRepo) CreateExclusive(ctx context.Context, a *domain.Assignment, maxContactUsers int) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO assignments (id, buyer_id, user_id, status, created_at, updated_at)
		SELECT $1, $2, $3, 'assigned', NOW(), NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM assignments
			WHERE buyer_id = $2 AND status IN (`+activeStatuses+`)
		)
		AND (
			SELECT COUNT(DISTINCT c.user_id)
			FROM contacts c
			JOIN assignments a ON a.id = c.assignment_id
			WHERE a.buyer_id = $2
		) < $4
		AND NOT EXISTS (
			SELECT 1 FROM first_refusal_holds
			WHERE buyer_id = $2 AND expires_at > NOW() AND user_id <> $3
		)
	`, a.ID, a.BuyerID, a.UserID, maxContactUsers)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return assignment.ErrAlreadyAssigned
		}
		return fmt.Errorf("create assignment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	if n == 1 {
		return nil
	}

	// The insert was refused. Re-derive which guard failed; these reads
	// are diagnostic only, the refusal itself was atomic.
	return r.diagnoseRefusal(ctx, a.BuyerID, a.UserID, maxContactUsers)
}

func (r *AssignmentRepo) diagnoseRefusal(ctx context.Context, buyerID, userID string, maxContactUsers int) error {
	var active bool
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM assignments
			WHERE buyer_id = $1 AND status IN (`+activeStatuses+`)
		)
	`, buyerID).Scan(&active); err != nil {
		return fmt.Errorf("diagnose assignment refusal: %w", err)
	}
	if active {
		return assignment.ErrAlreadyAssigned
	}

	var held bool
	if err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM first_refusal_holds
			WHERE buyer_id = $1 AND expires_at > NOW() AND user_id <> $2
		)
	`, buyerID, userID).Scan(&held); err != nil {
		return fmt.Errorf("diagnose assignment refusal: %w", err)
	}
	if held {
		return assignment.ErrBuyerHeld
	}

	var users int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT c.user_id)
		FROM contacts c
		JOIN assignments a ON a.id = c.assignment_id
		WHERE a.buyer_id = $1
	`, buyerID).Scan(&users); err != nil {
		return fmt.Errorf("diagnose assignment refusal: %w", err)
	}
	if users >= maxContactUsers {
		return assignment.ErrBuyerSaturated
	}

	// The blocking row vanished between the insert and the diagnosis.
	return assignment.ErrAlreadyAssigned
}

func (r *AssignmentRepo) Get(ctx context.Context, id string) (*domain.Assignment, error) {
	a := &domain.Assignment{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, buyer_id, user_id, status, created_at, updated_at
		FROM assignments WHERE id = $1
	`, id).Scan(&a.ID, &a.BuyerID, &a.UserID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, assignment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	return a, nil
}

func (r *AssignmentRepo) ListByUser(ctx context.Context, userID string) ([]domain.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, buyer_id, user_id, status, created_at, updated_at
		FROM assignments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.ID, &a.BuyerID, &a.UserID, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AssignmentRepo) UpdateStatus(ctx context.Context, id string, from, to domain.AssignmentStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE assignments SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return assignment.ErrNotFound
	}
	return nil
}

func (r *AssignmentRepo) RecordContact(ctx context.Context, c *domain.Contact, advance bool, quota int, since time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin contact tx: %w", err)
	}
	defer tx.Rollback()

	if quota >= 0 {
		// Serialize the caller's contact inserts so two concurrent
		// requests cannot both pass the count below with one slot left.
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, c.UserID); err != nil {
			return fmt.Errorf("lock contact quota: %w", err)
		}
		var used int
		err = tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM contacts WHERE user_id = $1 AND created_at >= $2
		`, c.UserID, since).Scan(&used)
		if err != nil {
			return fmt.Errorf("count contacts: %w", err)
		}
		if used >= quota {
			return assignment.ErrQuotaExceeded
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO contacts (id, assignment_id, user_id, channel, outcome, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, c.ID, c.AssignmentID, c.UserID, c.Channel, c.Outcome, c.Note)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}

	if advance {
		_, err = tx.ExecContext(ctx, `
			UPDATE assignments SET status = 'contacted', updated_at = NOW()
			WHERE id = $1 AND status = 'assigned'
		`, c.AssignmentID)
		if err != nil {
			return fmt.Errorf("advance assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit contact tx: %w", err)
	}
	return nil
}

func (r *AssignmentRepo) ListContacts(ctx context.Context, assignmentID string) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, assignment_id, user_id, channel, COALESCE(outcome,''), COALESCE(note,''), created_at
		FROM contacts
		WHERE assignment_id = $1
		ORDER BY created_at ASC
	`, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		var c domain.Contact
		if err := rows.Scan(&c.ID, &c.AssignmentID, &c.UserID, &c.Channel, &c.Outcome, &c.Note, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *AssignmentRepo) CreateHold(ctx context.Context, h *domain.FirstRefusalHold) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO first_refusal_holds (id, buyer_id, user_id, expires_at, created_at)
		SELECT $1, $2, $3, $4, NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM first_refusal_holds
			WHERE buyer_id = $2 AND expires_at > NOW()
		)
	`, h.ID, h.BuyerID, h.UserID, h.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create hold: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return assignment.ErrHoldExists
	}
	return nil
}

func (r *AssignmentRepo) ActiveHold(ctx context.Context, buyerID string, now time.Time) (*domain.FirstRefusalHold, error) {
	h := &domain.FirstRefusalHold{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, buyer_id, user_id, expires_at, created_at
		FROM first_refusal_holds
		WHERE buyer_id = $1 AND expires_at > $2
		ORDER BY expires_at DESC
		LIMIT 1
	`, buyerID, now).Scan(&h.ID, &h.BuyerID, &h.UserID, &h.ExpiresAt, &h.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, assignment.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active hold: %w", err)
	}
	return h, nil
}

func (r *AssignmentRepo) ReleaseHold(ctx context.Context, buyerID, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM first_refusal_holds WHERE buyer_id = $1 AND user_id = $2
	`, buyerID, userID)
	if err != nil {
		return fmt.Errorf("release hold: %w", err)
	}
	return nil
}

func (r *AssignmentRepo) DeleteExpiredHolds(ctx context.Context, now time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM first_refusal_holds WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired holds: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
