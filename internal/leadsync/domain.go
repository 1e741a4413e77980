package leadsync

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrSyncAlreadyRunning is returned when a sync is requested for a
	// customer whose previous sync is still in flight
	ErrSyncAlreadyRunning = errors.New("lead sync already running for customer")

	// ErrStateNotFound is returned when no sync state exists for a customer
	ErrStateNotFound = errors.New("sync state not found")
)

// FieldBag is the raw key/value data carried over from spreadsheet
// columns, stored as jsonb
type FieldBag map[string]string

// Value implements driver.Valuer
func (f FieldBag) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner
func (f *FieldBag) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*f = nil
		return nil
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		return fmt.Errorf("cannot scan %T into FieldBag", src)
	}
}

// LeadRecord is one ingested lead row scoped to a tenant. The
// fingerprint is unique per (customer, source), which is what keeps
// repeated syncs from duplicating the same logical lead.
type LeadRecord struct {
	ID          string    `db:"id"`
	CustomerID  string    `db:"customer_id"`
	Source      string    `db:"source"`
	Fingerprint string    `db:"fingerprint"`
	BatchKey    string    `db:"batch_key"`
	Fields      FieldBag  `db:"fields"`
	Owner       string    `db:"owner"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// SyncState tracks ingestion health for one customer. Attempt and
// success timestamps are distinct signals: observers can always see
// "when did we last try" separately from "when did we last succeed".
type SyncState struct {
	CustomerID    string     `db:"customer_id"`
	SourceURL     string     `db:"source_url"`
	Running       bool       `db:"running"`
	LastAttemptAt *time.Time `db:"last_attempt_at"`
	LastSuccessAt *time.Time `db:"last_success_at"`
	LastError     string     `db:"last_error"`
	RowCount      int        `db:"row_count"`
	UpdatedAt     time.Time  `db:"updated_at"`
}
