package leadsync

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LeadStore is the persistence surface the syncer needs
type LeadStore interface {
	UpsertLead(ctx context.Context, lead *LeadRecord) (bool, error)
	AcquireSyncLock(ctx context.Context, customerID, sourceURL string, staleAfter time.Duration) (bool, error)
	FinishSync(ctx context.Context, customerID string, rowCount int, syncErr error) error
}

// SyncResult holds the counts of one reconciliation run. Batches maps
// each batch key seen during the run to the number of rows it grouped.
type SyncResult struct {
	CustomerID string         `json:"customerId"`
	Rows       int            `json:"rows"`
	Inserted   int            `json:"inserted"`
	Updated    int            `json:"updated"`
	Errors     int            `json:"errors"`
	Batches    map[string]int `json:"batches"`
}

// Syncer reconciles external spreadsheet rows against stored leads.
// Rows with an unseen fingerprint are inserted; rows matching an
// existing fingerprint refresh it in place.
type Syncer struct {
	store      LeadStore
	fetcher    SourceFetcher
	staleAfter time.Duration
	loc        *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

// NewSyncer creates a lead syncer. staleAfter is the age past which a
// leftover running flag is treated as abandoned; loc is the reporting
// zone used to bucket rows into batch keys.
func NewSyncer(store LeadStore, fetcher SourceFetcher, staleAfter time.Duration, loc *time.Location, logger *slog.Logger) *Syncer {
	if loc == nil {
		loc = time.UTC
	}
	return &Syncer{
		store:      store,
		fetcher:    fetcher,
		staleAfter: staleAfter,
		loc:        loc,
		now:        time.Now,
		logger:     logger,
	}
}

// Sync runs one reconciliation for a customer. The outcome is recorded
// into sync state on every exit path, so a failed fetch never leaves
// the running flag set or the attempt invisible.
func (s *Syncer) Sync(ctx context.Context, customerID, sourceURL string) (result *SyncResult, err error) {
	if customerID == "" {
		return nil, fmt.Errorf("customer id is required")
	}

	acquired, err := s.store.AcquireSyncLock(ctx, customerID, sourceURL, s.staleAfter)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		return nil, ErrSyncAlreadyRunning
	}

	result = &SyncResult{CustomerID: customerID}

	defer func() {
		if finishErr := s.store.FinishSync(ctx, customerID, result.Rows, err); finishErr != nil {
			s.logger.Error("Failed to record sync outcome",
				slog.String("customer_id", customerID),
				slog.Any("error", finishErr),
			)
		}

		label := "success"
		if err != nil {
			label = "failure"
		}
		syncRuns.WithLabelValues(label).Inc()
	}()

	rows, err := s.fetcher.Fetch(ctx, sourceURL)
	if err != nil {
		return result, fmt.Errorf("failed to fetch source: %w", err)
	}

	result.Rows = len(rows)
	result.Batches = make(map[string]int)
	source := sourceURL
	syncedAt := s.now()

	for i, row := range rows {
		candidate := candidateFromRow(row)
		batchKey := BuildBatchKey(syncedAt, candidate.Company, candidate.Role, s.loc)
		result.Batches[batchKey]++

		lead := &LeadRecord{
			CustomerID:  customerID,
			Source:      source,
			Fingerprint: Fingerprint(candidate),
			BatchKey:    batchKey,
			Fields:      FieldBag(row),
			Owner:       row["owner"],
		}

		inserted, upsertErr := s.store.UpsertLead(ctx, lead)
		if upsertErr != nil {
			result.Errors++
			s.logger.Warn("Failed to upsert lead row",
				slog.String("customer_id", customerID),
				slog.Int("row", i+2),
				slog.Any("error", upsertErr),
			)
			continue
		}

		if inserted {
			result.Inserted++
			leadRows.WithLabelValues("inserted").Inc()
		} else {
			result.Updated++
			leadRows.WithLabelValues("updated").Inc()
		}
	}

	s.logger.Info("Lead sync complete",
		slog.String("customer_id", customerID),
		slog.Int("rows", result.Rows),
		slog.Int("inserted", result.Inserted),
		slog.Int("updated", result.Updated),
		slog.Int("errors", result.Errors),
		slog.Int("batches", len(result.Batches)),
	)

	return result, nil
}

// Header aliases accepted for each identity field
var (
	emailHeaders   = []string{"email", "e-mail", "email address", "work email"}
	profileHeaders = []string{"linkedin", "linkedin url", "profile", "profile url", "social profile"}
	firstHeaders   = []string{"first name", "firstname", "first"}
	lastHeaders    = []string{"last name", "lastname", "last"}
	companyHeaders = []string{"company", "company name", "client", "account"}
	roleHeaders    = []string{"role", "job title", "title", "position"}
)

// candidateFromRow maps spreadsheet columns onto identity fields
func candidateFromRow(row Row) Candidate {
	return Candidate{
		Email:      firstValue(row, emailHeaders),
		ProfileURL: firstValue(row, profileHeaders),
		FirstName:  firstValue(row, firstHeaders),
		LastName:   firstValue(row, lastHeaders),
		Company:    firstValue(row, companyHeaders),
		Role:       firstValue(row, roleHeaders),
		Raw:        row,
	}
}

func firstValue(row Row, headers []string) string {
	for _, h := range headers {
		if v, ok := row[h]; ok && v != "" {
			return v
		}
	}
	return ""
}
