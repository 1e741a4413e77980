package leadsync

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLeadStore keeps leads in memory keyed by fingerprint
type fakeLeadStore struct {
	locked    bool
	lockErr   error
	upsertErr error

	leads map[string]*LeadRecord

	finishCalls int
	finishRows  int
	finishErr   error
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{leads: make(map[string]*LeadRecord)}
}

func (s *fakeLeadStore) UpsertLead(_ context.Context, lead *LeadRecord) (bool, error) {
	if s.upsertErr != nil {
		return false, s.upsertErr
	}

	key := lead.CustomerID + "|" + lead.Source + "|" + lead.Fingerprint
	_, exists := s.leads[key]
	s.leads[key] = lead
	return !exists, nil
}

func (s *fakeLeadStore) AcquireSyncLock(_ context.Context, _, _ string, _ time.Duration) (bool, error) {
	if s.lockErr != nil {
		return false, s.lockErr
	}
	if s.locked {
		return false, nil
	}
	s.locked = true
	return true, nil
}

func (s *fakeLeadStore) FinishSync(_ context.Context, _ string, rowCount int, syncErr error) error {
	s.locked = false
	s.finishCalls++
	s.finishRows = rowCount
	s.finishErr = syncErr
	return nil
}

// fakeFetcher returns canned rows or an error
type fakeFetcher struct {
	rows []Row
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) ([]Row, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSyncer_Sync(t *testing.T) {
	rows := []Row{
		{"email": "jane@example.com", "company": "Acme"},
		{"email": "bob@example.com", "company": "Globex"},
	}

	t.Run("first run inserts every row", func(t *testing.T) {
		store := newFakeLeadStore()
		syncer := NewSyncer(store, &fakeFetcher{rows: rows}, time.Minute, time.UTC, discardLogger())

		result, err := syncer.Sync(context.Background(), "cust-1", "https://sheet.example.com/export.csv")
		require.NoError(t, err)

		assert.Equal(t, 2, result.Rows)
		assert.Equal(t, 2, result.Inserted)
		assert.Equal(t, 0, result.Updated)
		assert.Equal(t, 0, result.Errors)

		assert.Equal(t, 1, store.finishCalls)
		assert.Equal(t, 2, store.finishRows)
		assert.NoError(t, store.finishErr)
		assert.False(t, store.locked, "running flag must be cleared")
	})

	t.Run("second run is idempotent", func(t *testing.T) {
		store := newFakeLeadStore()
		syncer := NewSyncer(store, &fakeFetcher{rows: rows}, time.Minute, time.UTC, discardLogger())

		_, err := syncer.Sync(context.Background(), "cust-1", "https://sheet.example.com/export.csv")
		require.NoError(t, err)

		result, err := syncer.Sync(context.Background(), "cust-1", "https://sheet.example.com/export.csv")
		require.NoError(t, err)

		assert.Equal(t, 0, result.Inserted)
		assert.Equal(t, 2, result.Updated)
		assert.Len(t, store.leads, 2, "re-syncing the same rows must not duplicate leads")
	})

	t.Run("concurrent sync is rejected", func(t *testing.T) {
		store := newFakeLeadStore()
		store.locked = true
		syncer := NewSyncer(store, &fakeFetcher{rows: rows}, time.Minute, time.UTC, discardLogger())

		_, err := syncer.Sync(context.Background(), "cust-1", "https://sheet.example.com/export.csv")
		require.ErrorIs(t, err, ErrSyncAlreadyRunning)
		assert.Equal(t, 0, store.finishCalls, "a rejected run must not overwrite the holder's state")
	})

	t.Run("fetch failure is recorded and clears the running flag", func(t *testing.T) {
		store := newFakeLeadStore()
		syncer := NewSyncer(store, &fakeFetcher{err: errors.New("export returned status 500")}, time.Minute, time.UTC, discardLogger())

		_, err := syncer.Sync(context.Background(), "cust-1", "https://sheet.example.com/export.csv")
		require.Error(t, err)

		assert.Equal(t, 1, store.finishCalls)
		require.Error(t, store.finishErr)
		assert.Contains(t, store.finishErr.Error(), "status 500")
		assert.False(t, store.locked)
	})

	t.Run("row failures are counted but do not abort the run", func(t *testing.T) {
		store := newFakeLeadStore()
		store.upsertErr = errors.New("value too long")
		syncer := NewSyncer(store, &fakeFetcher{rows: rows}, time.Minute, time.UTC, discardLogger())

		result, err := syncer.Sync(context.Background(), "cust-1", "https://sheet.example.com/export.csv")
		require.NoError(t, err)

		assert.Equal(t, 2, result.Rows)
		assert.Equal(t, 2, result.Errors)
		assert.Equal(t, 0, result.Inserted)
	})

	t.Run("rows are bucketed by batch key in the reporting zone", func(t *testing.T) {
		newYork, err := time.LoadLocation("America/New_York")
		require.NoError(t, err)

		store := newFakeLeadStore()
		syncer := NewSyncer(store, &fakeFetcher{rows: []Row{
			{"email": "jane@example.com", "company": "Acme", "job title": "VP Sales"},
			{"email": "bob@example.com", "company": "Acme", "job title": "VP Sales"},
			{"email": "amy@example.com"},
		}}, time.Minute, newYork, discardLogger())

		// 03:30 UTC is still the previous business day in New York.
		syncer.now = func() time.Time {
			return time.Date(2025, 3, 11, 3, 30, 0, 0, time.UTC)
		}

		result, err := syncer.Sync(context.Background(), "cust-1", "https://sheet.example.com/export.csv")
		require.NoError(t, err)

		assert.Equal(t, map[string]int{
			"2025-03-10|client=acme|job=vp sales": 2,
			"2025-03-10|client=(none)|job=(none)": 1,
		}, result.Batches)

		for _, lead := range store.leads {
			date, _, _, parseErr := ParseBatchKey(lead.BatchKey)
			require.NoError(t, parseErr)
			assert.Equal(t, "2025-03-10", date)
		}
	})

	t.Run("customer id is required", func(t *testing.T) {
		syncer := NewSyncer(newFakeLeadStore(), &fakeFetcher{}, time.Minute, time.UTC, discardLogger())

		_, err := syncer.Sync(context.Background(), "", "https://sheet.example.com/export.csv")
		require.Error(t, err)
	})
}

func TestCandidateFromRow(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		want Candidate
	}{
		{
			name: "canonical headers",
			row: Row{
				"email":      "jane@example.com",
				"linkedin":   "linkedin.com/in/janedoe",
				"first name": "Jane",
				"last name":  "Doe",
				"company":    "Acme",
				"role":       "VP",
			},
			want: Candidate{
				Email:      "jane@example.com",
				ProfileURL: "linkedin.com/in/janedoe",
				FirstName:  "Jane",
				LastName:   "Doe",
				Company:    "Acme",
				Role:       "VP",
			},
		},
		{
			name: "alias headers",
			row: Row{
				"work email":  "jane@example.com",
				"profile url": "linkedin.com/in/janedoe",
				"firstname":   "Jane",
				"lastname":    "Doe",
				"client":      "Acme",
				"job title":   "VP",
			},
			want: Candidate{
				Email:      "jane@example.com",
				ProfileURL: "linkedin.com/in/janedoe",
				FirstName:  "Jane",
				LastName:   "Doe",
				Company:    "Acme",
				Role:       "VP",
			},
		},
		{
			name: "preferred alias wins over later ones",
			row: Row{
				"email":      "primary@example.com",
				"work email": "secondary@example.com",
			},
			want: Candidate{Email: "primary@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := candidateFromRow(tt.row)

			assert.Equal(t, tt.want.Email, got.Email)
			assert.Equal(t, tt.want.ProfileURL, got.ProfileURL)
			assert.Equal(t, tt.want.FirstName, got.FirstName)
			assert.Equal(t, tt.want.LastName, got.LastName)
			assert.Equal(t, tt.want.Company, got.Company)
			assert.Equal(t, tt.want.Role, got.Role)
		})
	}
}
