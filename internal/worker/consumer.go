package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// setupConsumer starts consuming sync jobs from RabbitMQ
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	deliveries, err := w.rabbitClient.Consume(w.workerID, w.prefetchCount)
	if err != nil {
		return nil, err
	}

	w.logger.Info("Sync job consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	return deliveries, nil
}

// dispatch reads deliveries and hands parsed sync jobs to the pool
func (w *Worker) dispatch(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Message dispatcher started", slog.String("worker_id", w.workerID))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case <-w.stopChan:
			w.logger.Info("Message dispatcher stopped - worker stopping")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			var msg struct {
				CustomerID string `json:"customerId"`
				SourceURL  string `json:"sourceUrl"`
			}

			if err := json.Unmarshal(delivery.Body, &msg); err != nil || msg.CustomerID == "" || msg.SourceURL == "" {
				w.logger.Error("Discarding malformed sync job",
					slog.String("body", string(delivery.Body)),
				)
				// Malformed messages never become valid; no requeue.
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			job := &syncJob{
				CustomerID:  msg.CustomerID,
				SourceURL:   msg.SourceURL,
				DeliveryTag: delivery.DeliveryTag,
			}

			select {
			case w.jobsChan <- job:
				w.logger.Debug("Sync job dispatched",
					slog.String("customer_id", job.CustomerID),
					slog.Uint64("delivery_tag", job.DeliveryTag),
				)
			case <-ctx.Done():
				// Requeue so another worker picks it up after shutdown.
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return
			}
		}
	}
}
