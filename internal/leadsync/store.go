package leadsync

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store handles lead record and sync state persistence
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a lead store
func NewStore(db *sqlx.DB, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

// UpsertLead inserts a lead or refreshes the existing record matching
// the same fingerprint. Returns true when a new row was created.
func (s *Store) UpsertLead(ctx context.Context, lead *LeadRecord) (bool, error) {
	query := `
		INSERT INTO leads (id, customer_id, source, fingerprint, batch_key, fields, owner, created_at, updated_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (customer_id, source, fingerprint)
		DO UPDATE SET
			batch_key = EXCLUDED.batch_key,
			fields = EXCLUDED.fields,
			owner = CASE WHEN EXCLUDED.owner <> '' THEN EXCLUDED.owner ELSE leads.owner END,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := s.db.QueryRowContext(ctx, query,
		lead.CustomerID,
		lead.Source,
		lead.Fingerprint,
		lead.BatchKey,
		lead.Fields,
		lead.Owner,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert lead: %w", err)
	}

	return inserted, nil
}

// CountLeads returns the number of stored leads for a customer+source
func (s *Store) CountLeads(ctx context.Context, customerID, source string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM leads WHERE customer_id = $1 AND source = $2`,
		customerID, source,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}

	return count, nil
}

// AcquireSyncLock sets the running flag for the customer via a
// conditional upsert. Returns false when another sync holds the flag
// and its attempt is younger than staleAfter; an older flag is treated
// as abandoned by a crashed worker and taken over.
func (s *Store) AcquireSyncLock(ctx context.Context, customerID, sourceURL string, staleAfter time.Duration) (bool, error) {
	query := `
		INSERT INTO lead_sync_state (customer_id, source_url, running, last_attempt_at, updated_at)
		VALUES ($1, $2, TRUE, NOW(), NOW())
		ON CONFLICT (customer_id)
		DO UPDATE SET
			running = TRUE,
			source_url = EXCLUDED.source_url,
			last_attempt_at = NOW(),
			updated_at = NOW()
		WHERE lead_sync_state.running = FALSE
		   OR lead_sync_state.last_attempt_at < NOW() - make_interval(secs => $3)
	`

	result, err := s.db.ExecContext(ctx, query, customerID, sourceURL, staleAfter.Seconds())
	if err != nil {
		return false, fmt.Errorf("failed to acquire sync lock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return affected == 1, nil
}

// FinishSync clears the running flag and records the attempt outcome.
// Called on every exit path of a sync, success or not.
func (s *Store) FinishSync(ctx context.Context, customerID string, rowCount int, syncErr error) error {
	errText := ""
	if syncErr != nil {
		errText = syncErr.Error()
	}

	query := `
		UPDATE lead_sync_state
		SET running = FALSE,
		    row_count = $2,
		    last_error = $3,
		    last_success_at = CASE WHEN $3 = '' THEN NOW() ELSE last_success_at END,
		    updated_at = NOW()
		WHERE customer_id = $1
	`

	if _, err := s.db.ExecContext(ctx, query, customerID, rowCount, errText); err != nil {
		return fmt.Errorf("failed to finish sync: %w", err)
	}

	return nil
}

// GetSyncState fetches the sync state for a customer
func (s *Store) GetSyncState(ctx context.Context, customerID string) (*SyncState, error) {
	query := `
		SELECT customer_id, source_url, running, last_attempt_at,
		       last_success_at, last_error, row_count, updated_at
		FROM lead_sync_state
		WHERE customer_id = $1
	`

	var state SyncState
	if err := s.db.GetContext(ctx, &state, query, customerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	return &state, nil
}
