package sendqueue

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewStore(sqlx.NewDb(db, "sqlmock"), testLogger()), mock
}

var itemColumnNames = []string{
	"id", "customer_id", "enrollment_id", "recipient_id", "recipient_email",
	"sender_identity_id", "subject", "body", "status", "scheduled_for", "locked_at",
	"locked_by", "attempt_count", "last_error", "sent_at", "created_at", "updated_at",
}

func candidateRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows(itemColumnNames)
	now := time.Now()

	for _, id := range ids {
		rows.AddRow(
			id, "cust-1", "enr-1", "rcpt-"+id, id+"@example.com",
			"sender-1", "Hello", "Body", StatusQueued, nil, nil,
			nil, 0, "", nil, now, now,
		)
	}

	return rows
}

func TestStore_ClaimDue(t *testing.T) {
	t.Run("raced item is excluded and the loop continues", func(t *testing.T) {
		store, mock := newMockStore(t)
		lockedBy := "worker-1"

		mock.ExpectQuery("FROM queue_items").
			WithArgs("cust-1", StatusQueued, 10).
			WillReturnRows(candidateRows("item-a", "item-b", "item-c"))

		// item-b loses the conditional update: zero rows affected.
		mock.ExpectExec("UPDATE queue_items").
			WithArgs(StatusLocked, lockedBy, "item-a", StatusQueued).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE queue_items").
			WithArgs(StatusLocked, lockedBy, "item-b", StatusQueued).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("UPDATE queue_items").
			WithArgs(StatusLocked, lockedBy, "item-c", StatusQueued).
			WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, scanned, err := store.ClaimDue(context.Background(), "cust-1", 10, lockedBy)
		require.NoError(t, err)

		assert.Equal(t, 3, scanned)
		require.Len(t, claimed, 2)
		assert.Equal(t, "item-a", claimed[0].ID)
		assert.Equal(t, "item-c", claimed[1].ID)

		for _, item := range claimed {
			assert.Equal(t, StatusLocked, item.Status)
			require.NotNil(t, item.LockedBy)
			assert.Equal(t, lockedBy, *item.LockedBy)
			assert.Equal(t, 1, item.AttemptCount)
		}

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("all candidates lost returns an empty claim", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery("FROM queue_items").
			WithArgs("cust-1", StatusQueued, 10).
			WillReturnRows(candidateRows("item-a", "item-b"))

		mock.ExpectExec("UPDATE queue_items").
			WithArgs(StatusLocked, "worker-1", "item-a", StatusQueued).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("UPDATE queue_items").
			WithArgs(StatusLocked, "worker-1", "item-b", StatusQueued).
			WillReturnResult(sqlmock.NewResult(0, 0))

		claimed, scanned, err := store.ClaimDue(context.Background(), "cust-1", 10, "worker-1")
		require.NoError(t, err)

		assert.Equal(t, 2, scanned)
		assert.Empty(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec failure mid-batch returns the items claimed so far", func(t *testing.T) {
		store, mock := newMockStore(t)

		mock.ExpectQuery("FROM queue_items").
			WithArgs("cust-1", StatusQueued, 10).
			WillReturnRows(candidateRows("item-a", "item-b", "item-c"))

		mock.ExpectExec("UPDATE queue_items").
			WithArgs(StatusLocked, "worker-1", "item-a", StatusQueued).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE queue_items").
			WithArgs(StatusLocked, "worker-1", "item-b", StatusQueued).
			WillReturnError(sql.ErrConnDone)

		claimed, scanned, err := store.ClaimDue(context.Background(), "cust-1", 10, "worker-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "item-b")

		assert.Equal(t, 3, scanned)
		require.Len(t, claimed, 1)
		assert.Equal(t, "item-a", claimed[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStore_Recycle_LockLost(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE queue_items").
		WithArgs(StatusQueued, DryRunReason, "item-a", StatusLocked, "worker-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Recycle(context.Background(), "item-a", "worker-1", DryRunReason)
	require.ErrorIs(t, err, ErrLockLost)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MarkSent_LockScoped(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE queue_items").
		WithArgs(StatusSent, "", "item-a", StatusLocked, "worker-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.MarkSent(context.Background(), "item-a", "worker-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
