package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/casthq/outreach-core/internal/leadsync"
	"github.com/casthq/outreach-core/internal/sendqueue"
)

// TickRunner executes one send-queue tick
type TickRunner interface {
	Tick(ctx context.Context, customerID string, limit int, forceDryRun bool) (*sendqueue.TickReport, error)
}

// QueueReader serves the enrollment queue endpoints
type QueueReader interface {
	RefreshEnrollment(ctx context.Context, customerID, enrollmentID string) (int, error)
	ListByEnrollment(ctx context.Context, customerID, enrollmentID string, pageSize int, cursor *sendqueue.Cursor) ([]sendqueue.QueueItem, error)
	GetItem(ctx context.Context, customerID, itemID string) (*sendqueue.QueueItem, error)
}

// SyncStateReader serves the sync status endpoint
type SyncStateReader interface {
	GetSyncState(ctx context.Context, customerID string) (*leadsync.SyncState, error)
	CountLeads(ctx context.Context, customerID, source string) (int, error)
}

// SyncPublisher hands sync jobs to the worker service
type SyncPublisher interface {
	Publish(ctx context.Context, body []byte, contentType string) error
}

// Dependencies holds everything the handlers need
type Dependencies struct {
	Logger    *slog.Logger
	Ticker    TickRunner
	Queue     QueueReader
	SyncState SyncStateReader
	Publisher SyncPublisher
}

// Handler serves the HTTP API
type Handler struct {
	logger    *slog.Logger
	ticker    TickRunner
	queue     QueueReader
	syncState SyncStateReader
	publisher SyncPublisher
}

// New creates a Handler
func New(deps *Dependencies) *Handler {
	return &Handler{
		logger:    deps.Logger,
		ticker:    deps.Ticker,
		queue:     deps.Queue,
		syncState: deps.SyncState,
		publisher: deps.Publisher,
	}
}

const timeFormat = time.RFC3339

// formatTime renders an optional timestamp for DTOs
func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(timeFormat)
}
