package sendqueue

import (
	"errors"
	"time"
)

// Queue item status constants
const (
	StatusQueued  = "QUEUED"
	StatusLocked  = "LOCKED"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
	StatusSkipped = "SKIPPED"
)

// MaxErrorLen bounds the last_error annotation stored on an item
const MaxErrorLen = 500

// DryRunReason is the diagnostic annotation left on items recycled by
// the dry-run gate.
const DryRunReason = "DRY_RUN: sending disabled"

// Annotation prefixes distinguishing failure classes in last_error
const (
	SendFailedPrefix  = "SEND_FAILED: "
	LockExpiredPrefix = "LOCK_EXPIRED: "
)

// ClaimAbortedReason annotates items released because the batch claim
// failed partway through; the items were locked but never processed.
const ClaimAbortedReason = "CLAIM_ABORTED: batch claim failed"

var (
	// ErrLockLost is returned when a lock-scoped update matched no row,
	// meaning another process released or reclaimed the lock first
	ErrLockLost = errors.New("lock no longer held for queue item")

	// ErrItemNotFound is returned when a queue item cannot be found
	ErrItemNotFound = errors.New("queue item not found")
)

// QueueItem is one pending or completed unit of outbound work,
// scoped to exactly one customer.
type QueueItem struct {
	ID               string     `db:"id"`
	CustomerID       string     `db:"customer_id"`
	EnrollmentID     string     `db:"enrollment_id"`
	RecipientID      string     `db:"recipient_id"`
	RecipientEmail   string     `db:"recipient_email"`
	SenderIdentityID string     `db:"sender_identity_id"`
	Subject          string     `db:"subject"`
	Body             string     `db:"body"`
	Status           string     `db:"status"`
	ScheduledFor     *time.Time `db:"scheduled_for"`
	LockedAt         *time.Time `db:"locked_at"`
	LockedBy         *string    `db:"locked_by"`
	AttemptCount     int        `db:"attempt_count"`
	LastError        string     `db:"last_error"`
	SentAt           *time.Time `db:"sent_at"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
}

// OutcomeKind tags the result of processing one locked item
type OutcomeKind int

const (
	// OutcomeSent means live sending was allowed and the send succeeded
	OutcomeSent OutcomeKind = iota
	// OutcomeDryRun means the gate forced the safe no-op path
	OutcomeDryRun
	// OutcomeSendFailed means the live send attempt failed
	OutcomeSendFailed
	// OutcomeContention means another worker claimed the item first
	OutcomeContention
)

// Outcome is the typed result of processing one item. Callers branch on
// Kind instead of matching string prefixes in last_error.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

// String returns the kind name for logs and metrics labels
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSent:
		return "sent"
	case OutcomeDryRun:
		return "dry_run"
	case OutcomeSendFailed:
		return "send_failed"
	case OutcomeContention:
		return "contention"
	default:
		return "unknown"
	}
}

// TruncateError bounds an error annotation to MaxErrorLen
func TruncateError(msg string) string {
	if len(msg) > MaxErrorLen {
		return msg[:MaxErrorLen]
	}
	return msg
}
