package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AdkHex/AudioSyncMaster/internal/domain/entity"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// CancelHandler is invoked for each cancel request. Idempotent if no job is
// active.
type CancelHandler func(msg entity.CancelMessage)

// CancelConsumer listens on the cancel queue and triggers the handler. It
// runs on its own channel so cancel requests are seen while a job delivery
// is still being processed.
type CancelConsumer struct {
	channel *amqp.Channel
	queue   string
	handler CancelHandler
	logger  *zap.Logger
}

func NewCancelConsumer(conn *amqp.Connection, queue string, handler CancelHandler, logger *zap.Logger) (*CancelConsumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open cancel channel: %w", err)
	}
	return &CancelConsumer{channel: ch, queue: queue, handler: handler, logger: logger}, nil
}

func (c *CancelConsumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue,
		"",
		true, // autoAck: a cancel request needs no redelivery
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume cancel queue: %w", err)
	}

	go func() {
		for d := range deliveries {
			var msg entity.CancelMessage
			if err := json.Unmarshal(d.Body, &msg); err != nil {
				c.logger.Warn("invalid cancel message", zap.Error(err))
				continue
			}
			c.logger.Info("cancel requested", zap.String("job_id", msg.JobID.String()))
			c.handler(msg)
		}
	}()
	return nil
}

func (c *CancelConsumer) Close() error {
	return c.channel.Close()
}
