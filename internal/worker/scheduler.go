package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/casthq/outreach-core/internal/sendqueue"
)

// startScheduler registers the cron entries for queue ticks and
// stale-lock reclaim
func (w *Worker) startScheduler(ctx context.Context) error {
	w.cron = cron.New()

	if _, err := w.cron.AddFunc(w.tickSchedule, func() { w.runTicks(ctx) }); err != nil {
		return fmt.Errorf("invalid tick schedule %q: %w", w.tickSchedule, err)
	}

	if w.reclaimSchedule != "" {
		if _, err := w.cron.AddFunc(w.reclaimSchedule, func() { w.runReclaim(ctx) }); err != nil {
			return fmt.Errorf("invalid reclaim schedule %q: %w", w.reclaimSchedule, err)
		}
	}

	w.cron.Start()

	w.logger.Info("Scheduler started",
		slog.String("tick_schedule", w.tickSchedule),
		slog.String("reclaim_schedule", w.reclaimSchedule),
	)

	return nil
}

// runTicks executes one tick per customer with due items
func (w *Worker) runTicks(ctx context.Context) {
	if !w.sendEnabled {
		w.logger.Debug("Queue worker disabled, skipping tick schedule")
		return
	}

	customers, err := w.queue.CustomersWithDueItems(ctx)
	if err != nil {
		w.logger.Error("Failed to list customers with due items",
			slog.Any("error", err),
		)
		return
	}

	for _, customerID := range customers {
		report, err := w.ticker.Tick(ctx, customerID, w.tickLimit, false)
		if err != nil {
			w.logger.Error("Scheduled tick failed",
				slog.String("customer_id", customerID),
				slog.Any("error", err),
			)
			continue
		}

		if report.Errors > 0 {
			w.logger.Warn("Scheduled tick finished with errors",
				slog.String("customer_id", customerID),
				slog.Int("errors", report.Errors),
				slog.Int("requeued", report.Requeued),
			)
		}
	}
}

// runReclaim recycles items whose lock outlived the TTL
func (w *Worker) runReclaim(ctx context.Context) {
	cutoff := time.Now().Add(-w.lockTTL)

	count, err := w.queue.ReleaseStaleLocks(ctx, cutoff)
	if err != nil {
		w.logger.Error("Stale lock reclaim failed", slog.Any("error", err))
		return
	}

	if count > 0 {
		sendqueue.RecordStaleReclaim(count)
	}
}
