package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"gymnotifier/internal/entity"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DeliveryHandler consumes one delivery message. A returned error means
// the sink failed; the message is still acked and the failure is
// recorded on the notification record.
type DeliveryHandler func(ctx context.Context, msg entity.DeliveryMessage) error

type Consumer struct {
	client  *Client
	handler DeliveryHandler
	log     *zap.Logger
}

func NewConsumer(client *Client, handler DeliveryHandler, log *zap.Logger) *Consumer {
	return &Consumer{client: client, handler: handler, log: log}
}

// Run consumes one channel's queue until the context is cancelled.
func (c *Consumer) Run(ctx context.Context, channel entity.Channel) error {
	const op = "amqp.Consumer.Run"

	queue, err := c.client.DeclareChannelQueue(channel)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	deliveries, err := c.client.ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("%s: consume: %w", op, err)
	}

	c.log.Info("delivery consumer started", zap.String("queue", queue))

	for {
		select {
		case <-ctx.Done():
			c.log.Info("delivery consumer stopped", zap.String("queue", queue))
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%s: delivery channel closed", op)
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp091.Delivery) {
	var msg entity.DeliveryMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.log.Error("malformed delivery message", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := c.handler(ctx, msg); err != nil {
		c.log.Warn("delivery sink failed",
			zap.String("notification_id", msg.NotificationID.String()),
			zap.String("channel", string(msg.Channel)),
			zap.Error(err),
		)
	}

	// Sink failures are recorded per record by the handler; redelivery
	// would double-send for every other channel.
	_ = d.Ack(false)
}
