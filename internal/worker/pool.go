package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/casthq/outreach-core/internal/leadsync"
)

// spawnPool starts the sync-job goroutines
func (w *Worker) spawnPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.poolLoop(ctx, i)
	}
}

// poolLoop is the processing loop for one pool goroutine
func (w *Worker) poolLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return

		case <-ctx.Done():
			return

		case job, ok := <-w.jobsChan:
			if !ok {
				return
			}

			err := w.runSync(ctx, job)

			channel := w.rabbitClient.Channel()
			if channel == nil {
				w.logger.Error("No RabbitMQ channel for ack",
					slog.String("customer_id", job.CustomerID),
					slog.Int("worker_num", workerNum),
				)
				continue
			}

			if err != nil {
				// The outcome is already recorded in sync state, so
				// the tenant stays retryable without a broker requeue.
				if nackErr := channel.Nack(job.DeliveryTag, false, false); nackErr != nil {
					w.logger.Error("Failed to NACK sync job",
						slog.String("customer_id", job.CustomerID),
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			if ackErr := channel.Ack(job.DeliveryTag, false); ackErr != nil {
				w.logger.Error("Failed to ACK sync job",
					slog.String("customer_id", job.CustomerID),
					slog.String("error", ackErr.Error()),
				)
			}
		}
	}
}

// runSync executes one sync job with the configured timeout
func (w *Worker) runSync(ctx context.Context, job *syncJob) error {
	syncCtx, cancel := context.WithTimeout(ctx, w.syncTimeout)
	defer cancel()

	w.logger.Info("Running lead sync",
		slog.String("customer_id", job.CustomerID),
		slog.String("worker_id", w.workerID),
	)

	result, err := w.syncer.Sync(syncCtx, job.CustomerID, job.SourceURL)
	if err != nil {
		if errors.Is(err, leadsync.ErrSyncAlreadyRunning) {
			w.logger.Warn("Sync already running, dropping duplicate job",
				slog.String("customer_id", job.CustomerID),
			)
			return err
		}

		w.logger.Error("Lead sync failed",
			slog.String("customer_id", job.CustomerID),
			slog.String("error", err.Error()),
		)
		return err
	}

	w.logger.Info("Lead sync succeeded",
		slog.String("customer_id", job.CustomerID),
		slog.Int("rows", result.Rows),
		slog.Int("inserted", result.Inserted),
		slog.Int("updated", result.Updated),
	)

	return nil
}
