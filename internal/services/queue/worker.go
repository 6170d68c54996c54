package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/phambaophuc/image-seo-metadata/internal/models"
)

// EventHandler processes one consumed event. A returned error requeues it.
type EventHandler func(ctx context.Context, ev models.Event) error

func (q *QueueService) StartWorker(ctx context.Context, workerID int, handle EventHandler) error {
	msgs, err := q.channel.Consume(
		q.queueName,                        // queue
		fmt.Sprintf("worker-%d", workerID), // consumer
		false,                              // auto-ack
		false,                              // exclusive
		false,                              // no-local
		false,                              // no-wait
		nil,                                // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	q.logger.Info("Worker started", zap.Int("worker_id", workerID))

	go func() {
		for {
			select {
			case <-ctx.Done():
				q.logger.Info("Worker stopping", zap.Int("worker_id", workerID))
				return
			case msg, ok := <-msgs:
				if !ok {
					q.logger.Warn("Message channel closed", zap.Int("worker_id", workerID))
					return
				}

				q.processMessage(ctx, msg, workerID, handle)
			}
		}
	}()

	return nil
}

func (q *QueueService) processMessage(ctx context.Context, msg amqp.Delivery, workerID int, handle EventHandler) {
	var ev models.Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		q.logger.Error("Failed to unmarshal event",
			zap.Error(err),
			zap.Int("worker_id", workerID))
		msg.Nack(false, false) // Don't requeue malformed messages
		return
	}

	if err := handle(ctx, ev); err != nil {
		q.logger.Error("Event handling failed",
			zap.String("batch_id", ev.BatchID),
			zap.String("type", string(ev.Type)),
			zap.Error(err))
		msg.Nack(false, !msg.Redelivered)
		return
	}

	if err := msg.Ack(false); err != nil {
		q.logger.Error("Failed to ack message",
			zap.String("batch_id", ev.BatchID),
			zap.Error(err))
	}
}
