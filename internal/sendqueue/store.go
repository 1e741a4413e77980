package sendqueue

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store handles queue item persistence. Every state transition is a
// conditional update; the affected-row count is the only lock primitive.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a queue item store
func NewStore(db *sqlx.DB, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

const itemColumns = `
	id, customer_id, enrollment_id, recipient_id, recipient_email,
	sender_identity_id, subject, body, status, scheduled_for, locked_at,
	locked_by, attempt_count, last_error, sent_at, created_at, updated_at
`

// RefreshEnrollment materializes QUEUED items for every recipient of the
// enrollment that does not already have an active item. Safe to call
// repeatedly; the partial unique index makes re-runs no-ops.
func (s *Store) RefreshEnrollment(ctx context.Context, customerID, enrollmentID string) (int, error) {
	query := `
		INSERT INTO queue_items (
			id, customer_id, enrollment_id, recipient_id, recipient_email,
			sender_identity_id, subject, body, status, scheduled_for,
			created_at, updated_at
		)
		SELECT
			gen_random_uuid(), r.customer_id, r.enrollment_id, r.id, r.email,
			r.sender_identity_id, r.subject, r.body, $1, r.next_send_at,
			NOW(), NOW()
		FROM enrollment_recipients r
		WHERE r.customer_id = $2
		  AND r.enrollment_id = $3
		ON CONFLICT (enrollment_id, recipient_id) WHERE status IN ('QUEUED', 'LOCKED')
		DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query, StatusQueued, customerID, enrollmentID)
	if err != nil {
		return 0, fmt.Errorf("failed to refresh enrollment queue: %w", err)
	}

	created, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	s.logger.Info("Enrollment queue refreshed",
		slog.String("customer_id", customerID),
		slog.String("enrollment_id", enrollmentID),
		slog.Int64("created", created),
	)

	return int(created), nil
}

// Cursor is a (created_at, id) position for queue listing pagination
type Cursor struct {
	CreatedAt time.Time
	ItemID    string
}

// ListByEnrollment returns queue items for one enrollment, newest first,
// scoped to the requesting customer. Fetches one extra row so the caller
// can tell whether more results exist.
func (s *Store) ListByEnrollment(ctx context.Context, customerID, enrollmentID string, pageSize int, cursor *Cursor) ([]QueueItem, error) {
	query := `
		SELECT ` + itemColumns + `
		FROM queue_items
		WHERE customer_id = $1
		  AND enrollment_id = $2
	`
	args := []interface{}{customerID, enrollmentID}

	if cursor != nil {
		query += ` AND (created_at, id) < ($3, $4)`
		args = append(args, cursor.CreatedAt, cursor.ItemID)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, pageSize+1)

	var items []QueueItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list queue items: %w", err)
	}

	return items, nil
}

// ClaimDue scans up to limit due items for the customer (oldest due
// first) and attempts the QUEUED -> LOCKED transition on each. Only
// items whose conditional update affected exactly one row are returned;
// lost races are expected and excluded silently.
func (s *Store) ClaimDue(ctx context.Context, customerID string, limit int, lockedBy string) ([]QueueItem, int, error) {
	selectQuery := `
		SELECT ` + itemColumns + `
		FROM queue_items
		WHERE customer_id = $1
		  AND status = $2
		  AND (scheduled_for IS NULL OR scheduled_for <= NOW())
		ORDER BY scheduled_for ASC NULLS FIRST, created_at ASC
		LIMIT $3
	`

	var candidates []QueueItem
	if err := s.db.SelectContext(ctx, &candidates, selectQuery, customerID, StatusQueued, limit); err != nil {
		return nil, 0, fmt.Errorf("failed to scan due items: %w", err)
	}

	claimQuery := `
		UPDATE queue_items
		SET status = $1,
		    locked_at = NOW(),
		    locked_by = $2,
		    attempt_count = attempt_count + 1,
		    updated_at = NOW()
		WHERE id = $3
		  AND status = $4
	`

	claimed := make([]QueueItem, 0, len(candidates))
	for _, candidate := range candidates {
		result, err := s.db.ExecContext(ctx, claimQuery, StatusLocked, lockedBy, candidate.ID, StatusQueued)
		if err != nil {
			return claimed, len(candidates), fmt.Errorf("failed to claim item %s: %w", candidate.ID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return claimed, len(candidates), fmt.Errorf("failed to get rows affected: %w", err)
		}

		if affected != 1 {
			// Another worker won the race for this item.
			continue
		}

		candidate.Status = StatusLocked
		candidate.LockedBy = &lockedBy
		candidate.AttemptCount++
		claimed = append(claimed, candidate)
	}

	s.logger.Debug("Claimed due queue items",
		slog.String("customer_id", customerID),
		slog.Int("scanned", len(candidates)),
		slog.Int("locked", len(claimed)),
	)

	return claimed, len(candidates), nil
}

// Recycle returns a locked item to QUEUED with an error annotation.
// This is the normal exit for both dry-run skips and send failures.
func (s *Store) Recycle(ctx context.Context, itemID, lockedBy, reason string) error {
	query := `
		UPDATE queue_items
		SET status = $1,
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = $2,
		    updated_at = NOW()
		WHERE id = $3
		  AND status = $4
		  AND locked_by = $5
	`

	return s.transition(ctx, query, StatusQueued, TruncateError(reason), itemID, StatusLocked, lockedBy)
}

// MarkSent finalizes a locked item after a successful live send
func (s *Store) MarkSent(ctx context.Context, itemID, lockedBy string) error {
	query := `
		UPDATE queue_items
		SET status = $1,
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = $2,
		    sent_at = NOW(),
		    updated_at = NOW()
		WHERE id = $3
		  AND status = $4
		  AND locked_by = $5
	`

	return s.transition(ctx, query, StatusSent, "", itemID, StatusLocked, lockedBy)
}

// MarkFailed escalates a locked item to the terminal FAILED state.
// Only the attempt-limit policy uses this; the dry-run and live paths
// always recycle instead.
func (s *Store) MarkFailed(ctx context.Context, itemID, lockedBy, reason string) error {
	query := `
		UPDATE queue_items
		SET status = $1,
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = $2,
		    updated_at = NOW()
		WHERE id = $3
		  AND status = $4
		  AND locked_by = $5
	`

	return s.transition(ctx, query, StatusFailed, TruncateError(reason), itemID, StatusLocked, lockedBy)
}

// transition runs a lock-scoped conditional update and verifies it took
// effect on exactly one row
func (s *Store) transition(ctx context.Context, query, newStatus, reason, itemID, expectedStatus, lockedBy string) error {
	result, err := s.db.ExecContext(ctx, query, newStatus, reason, itemID, expectedStatus, lockedBy)
	if err != nil {
		return fmt.Errorf("failed to transition item %s to %s: %w", itemID, newStatus, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return ErrLockLost
	}

	return nil
}

// ReleaseStaleLocks recycles every item whose lock is older than the
// cutoff. Safety net for workers that died between claiming and
// resolving an item.
func (s *Store) ReleaseStaleLocks(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		UPDATE queue_items
		SET status = $1,
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = $2,
		    updated_at = NOW()
		WHERE status = $3
		  AND locked_at < $4
	`

	reason := TruncateError(LockExpiredPrefix + "lock held past TTL, reclaimed")

	result, err := s.db.ExecContext(ctx, query, StatusQueued, reason, StatusLocked, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to release stale locks: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected > 0 {
		s.logger.Warn("Reclaimed stale queue locks",
			slog.Int64("count", affected),
			slog.Time("cutoff", cutoff),
		)
	}

	return int(affected), nil
}

// CustomersWithDueItems returns the customers that currently have at
// least one due QUEUED item, for the cron-driven tick
func (s *Store) CustomersWithDueItems(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT customer_id
		FROM queue_items
		WHERE status = $1
		  AND (scheduled_for IS NULL OR scheduled_for <= NOW())
	`

	var customers []string
	if err := s.db.SelectContext(ctx, &customers, query, StatusQueued); err != nil {
		return nil, fmt.Errorf("failed to list customers with due items: %w", err)
	}

	return customers, nil
}

// GetItem fetches a single queue item, scoped to the owning customer
func (s *Store) GetItem(ctx context.Context, customerID, itemID string) (*QueueItem, error) {
	query := `SELECT ` + itemColumns + ` FROM queue_items WHERE customer_id = $1 AND id = $2`

	var item QueueItem
	if err := s.db.GetContext(ctx, &item, query, customerID, itemID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to get queue item: %w", err)
	}

	return &item, nil
}
