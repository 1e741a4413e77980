package sendqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/casthq/outreach-core/internal/config"
)

// QueueStore is the persistence surface the tick executor needs
type QueueStore interface {
	ClaimDue(ctx context.Context, customerID string, limit int, lockedBy string) ([]QueueItem, int, error)
	Recycle(ctx context.Context, itemID, lockedBy, reason string) error
	MarkSent(ctx context.Context, itemID, lockedBy string) error
	MarkFailed(ctx context.Context, itemID, lockedBy, reason string) error
}

// Sender performs the actual outbound delivery for one item
type Sender interface {
	Send(ctx context.Context, item *QueueItem) error
}

// TickReport holds the counts returned by one tick. Counts are always
// reported, even when individual items failed.
type TickReport struct {
	CustomerID string `json:"customerId"`
	Limit      int    `json:"limit"`
	LockedBy   string `json:"lockedBy"`
	Scanned    int    `json:"scanned"`
	Locked     int    `json:"locked"`
	Processed  int    `json:"processed"`
	Requeued   int    `json:"requeued"`
	Skipped    int    `json:"skipped"`
	Errors     int    `json:"errors"`
}

// Ticker claims a bounded batch of due items and drives each through
// the dry-run/live gate
type Ticker struct {
	store       QueueStore
	sender      Sender
	gate        *Gate
	maxAttempts int
	liveCap     int
	logger      *slog.Logger
}

// NewTicker creates a tick executor
func NewTicker(store QueueStore, sender Sender, gate *Gate, cfg *config.Config, logger *slog.Logger) *Ticker {
	return &Ticker{
		store:       store,
		sender:      sender,
		gate:        gate,
		maxAttempts: cfg.Queue.MaxAttempts,
		liveCap:     cfg.Sending.MaxLivePerTick,
		logger:      logger,
	}
}

// Tick claims up to limit due items for the customer and processes
// each. When forceDryRun is set (the admin endpoint always sets it),
// every item takes the dry-run path regardless of the gate.
func (t *Ticker) Tick(ctx context.Context, customerID string, limit int, forceDryRun bool) (*TickReport, error) {
	if customerID == "" {
		return nil, errors.New("customer id is required")
	}

	if limit < 1 || limit > config.MaxTickLimit {
		limit = config.DefaultTickLimit
	}

	lockedBy := uuid.NewString()

	report := &TickReport{
		CustomerID: customerID,
		Limit:      limit,
		LockedBy:   lockedBy,
	}

	claimed, scanned, err := t.store.ClaimDue(ctx, customerID, limit, lockedBy)
	report.Scanned = scanned
	report.Locked = len(claimed)
	// Contention losses are expected, not errors.
	report.Skipped = scanned - len(claimed)

	if err != nil {
		// A failed claim can still have locked part of the batch.
		// Release those items now instead of leaving them for the
		// stale-lock reclaim pass.
		t.releaseAborted(ctx, claimed, lockedBy, report)
		return report, fmt.Errorf("failed to claim due items: %w", err)
	}

	liveBudget := t.liveCap

	for i := range claimed {
		item := &claimed[i]

		outcome := t.processItem(ctx, item, lockedBy, forceDryRun, &liveBudget)
		report.Processed++

		switch outcome.Kind {
		case OutcomeSent:
			t.logger.Info("Queue item sent",
				slog.String("item_id", item.ID),
				slog.String("customer_id", item.CustomerID),
				slog.Int("attempt", item.AttemptCount),
			)
		case OutcomeDryRun:
			report.Requeued++
		case OutcomeSendFailed:
			report.Requeued++
			report.Errors++
			t.logger.Warn("Queue item send failed, recycled",
				slog.String("item_id", item.ID),
				slog.String("customer_id", item.CustomerID),
				slog.String("reason", outcome.Reason),
			)
		}

		itemsProcessed.WithLabelValues(outcome.Kind.String()).Inc()
	}

	ticksTotal.Inc()

	t.logger.Info("Tick complete",
		slog.String("customer_id", customerID),
		slog.String("locked_by", lockedBy),
		slog.Int("scanned", report.Scanned),
		slog.Int("locked", report.Locked),
		slog.Int("requeued", report.Requeued),
		slog.Int("errors", report.Errors),
	)

	return report, nil
}

// releaseAborted recycles items that were locked by a claim that then
// failed. No send was attempted for these, so they go straight back to
// QUEUED with an annotation.
func (t *Ticker) releaseAborted(ctx context.Context, items []QueueItem, lockedBy string, report *TickReport) {
	for i := range items {
		if err := t.store.Recycle(ctx, items[i].ID, lockedBy, ClaimAbortedReason); err != nil {
			report.Errors++
			t.logger.Error("Failed to release item from aborted claim",
				slog.String("item_id", items[i].ID),
				slog.Any("error", err),
			)
			continue
		}
		report.Requeued++
	}
}

// processItem resolves exactly one locked item. A locked item must
// never be left LOCKED: the deferred cleanup recycles on every exit
// path that does not finalize the item, including panics in the sender.
func (t *Ticker) processItem(ctx context.Context, item *QueueItem, lockedBy string, forceDryRun bool, liveBudget *int) (outcome Outcome) {
	settled := false

	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{
				Kind:   OutcomeSendFailed,
				Reason: fmt.Sprintf("panic during send: %v", r),
			}
		}

		if settled {
			return
		}

		t.resolve(ctx, item, lockedBy, outcome)
	}()

	live := !forceDryRun && t.gate.Decide(item) == DecisionLive && *liveBudget > 0

	if !live {
		outcome = Outcome{Kind: OutcomeDryRun, Reason: DryRunReason}
		return outcome
	}

	*liveBudget--

	if err := t.sender.Send(ctx, item); err != nil {
		outcome = Outcome{Kind: OutcomeSendFailed, Reason: err.Error()}
		return outcome
	}

	if err := t.store.MarkSent(ctx, item.ID, lockedBy); err != nil {
		// Sent but not recorded; recycle so the state stays visible.
		// The annotation makes the double-send hazard explicit.
		outcome = Outcome{Kind: OutcomeSendFailed, Reason: fmt.Sprintf("sent but finalize failed: %v", err)}
		return outcome
	}

	settled = true
	outcome = Outcome{Kind: OutcomeSent}
	return outcome
}

// resolve writes the non-SENT outcome back to the store. Dry-run skips
// and send failures both recycle to QUEUED; a failure only escalates to
// FAILED when the attempt-limit policy is enabled and exceeded.
func (t *Ticker) resolve(ctx context.Context, item *QueueItem, lockedBy string, outcome Outcome) {
	var err error

	switch outcome.Kind {
	case OutcomeDryRun:
		err = t.store.Recycle(ctx, item.ID, lockedBy, DryRunReason)
	case OutcomeSendFailed:
		reason := SendFailedPrefix + outcome.Reason
		if t.maxAttempts > 0 && item.AttemptCount >= t.maxAttempts {
			err = t.store.MarkFailed(ctx, item.ID, lockedBy, reason)
		} else {
			err = t.store.Recycle(ctx, item.ID, lockedBy, reason)
		}
	default:
		return
	}

	if err != nil {
		// The item stays LOCKED until the stale-lock reclaim pass
		// picks it up; nothing more can be done here.
		t.logger.Error("Failed to resolve locked item",
			slog.String("item_id", item.ID),
			slog.String("outcome", outcome.Kind.String()),
			slog.Any("error", err),
		)
	}
}
