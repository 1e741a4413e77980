package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/casthq/outreach-core/internal/leadsync"
	"github.com/casthq/outreach-core/internal/sendqueue"
	"github.com/casthq/outreach-core/shared/rabbitmq"
)

// TickRunner runs one send-queue tick for a customer
type TickRunner interface {
	Tick(ctx context.Context, customerID string, limit int, forceDryRun bool) (*sendqueue.TickReport, error)
}

// SyncRunner runs one lead-sync reconciliation
type SyncRunner interface {
	Sync(ctx context.Context, customerID, sourceURL string) (*leadsync.SyncResult, error)
}

// QueueMaintainer is the store surface the schedules need
type QueueMaintainer interface {
	CustomersWithDueItems(ctx context.Context) ([]string, error)
	ReleaseStaleLocks(ctx context.Context, cutoff time.Time) (int, error)
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Ticker        TickRunner
	Syncer        SyncRunner
	Queue         QueueMaintainer
	Concurrency   int
	PrefetchCount int
	SyncTimeout   time.Duration
	LockTTL       time.Duration

	TickSchedule    string
	ReclaimSchedule string
	TickLimit       int

	// SendWorkerEnabled gates the cron tick schedule; the safe default
	// is off, leaving only the admin dry-run endpoint active.
	SendWorkerEnabled bool
}

// Worker is one worker-service process: a cron scheduler for queue
// maintenance plus a pool of goroutines consuming sync jobs.
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	ticker        TickRunner
	syncer        SyncRunner
	queue         QueueMaintainer
	concurrency   int
	prefetchCount int
	syncTimeout   time.Duration
	lockTTL       time.Duration

	tickSchedule    string
	reclaimSchedule string
	tickLimit       int
	sendEnabled     bool

	workerID string
	jobsChan chan *syncJob
	stopChan chan struct{}
	wg       sync.WaitGroup
	cron     *cron.Cron
}

// syncJob is one sync request pulled off the bus
type syncJob struct {
	CustomerID  string
	SourceURL   string
	DeliveryTag uint64
}

// NewWorker creates a worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:          cfg.Logger,
		rabbitClient:    cfg.RabbitClient,
		ticker:          cfg.Ticker,
		syncer:          cfg.Syncer,
		queue:           cfg.Queue,
		concurrency:     cfg.Concurrency,
		prefetchCount:   cfg.PrefetchCount,
		syncTimeout:     cfg.SyncTimeout,
		lockTTL:         cfg.LockTTL,
		tickSchedule:    cfg.TickSchedule,
		reclaimSchedule: cfg.ReclaimSchedule,
		tickLimit:       cfg.TickLimit,
		sendEnabled:     cfg.SendWorkerEnabled,
		workerID:        fmt.Sprintf("worker-%s", uuid.NewString()[:8]),
		jobsChan:        make(chan *syncJob),
		stopChan:        make(chan struct{}),
	}
}

// Start runs the scheduler and the consumer pool until the context is
// canceled
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Bool("send_worker_enabled", w.sendEnabled),
	)

	if err := w.startScheduler(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnPool(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.dispatch(ctx, deliveries)
	}()

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping")

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker", slog.String("worker_id", w.workerID))

	if w.cron != nil {
		cronCtx := w.cron.Stop()
		<-cronCtx.Done()
	}

	close(w.stopChan)
	w.wg.Wait()

	w.logger.Info("Worker stopped", slog.String("worker_id", w.workerID))
}
