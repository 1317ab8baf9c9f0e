// Package amqp is the broker hand-off between the dispatch engine and
// the delivery sinks: one topic exchange, one queue per external
// channel, routing key = channel.
package amqp

import (
	"context"
	"fmt"
	"time"

	"gymnotifier/internal/entity"

	amqp091 "github.com/rabbitmq/amqp091-go"
)

const _contentType = "application/json"

type Client struct {
	conn     *amqp091.Connection
	ch       *amqp091.Channel
	exchange string
}

func NewClient(url, exchange, connectionName string, connectTimeout time.Duration) (*Client, error) {
	const op = "amqp.NewClient"

	cfg := amqp091.Config{
		Properties: amqp091.Table{"connection_name": connectionName},
		Dial:       amqp091.DefaultDial(connectTimeout),
	}

	conn, err := amqp091.DialConfig(url, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: dial: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: channel: %w", op, err)
	}

	if err = ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("%s: declare exchange: %w", op, err)
	}

	return &Client{conn: conn, ch: ch, exchange: exchange}, nil
}

// DeclareChannelQueue binds a durable queue for one delivery channel.
func (c *Client) DeclareChannelQueue(channel entity.Channel) (string, error) {
	const op = "amqp.Client.DeclareChannelQueue"

	name := queueName(channel)
	if _, err := c.ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return "", fmt.Errorf("%s: declare queue: %w", op, err)
	}
	if err := c.ch.QueueBind(name, string(channel), c.exchange, false, nil); err != nil {
		return "", fmt.Errorf("%s: bind queue: %w", op, err)
	}

	return name, nil
}

func (c *Client) Close() error {
	if c.ch != nil {
		if err := c.ch.Close(); err != nil {
			return fmt.Errorf("amqp.Client.Close: channel: %w", err)
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			return fmt.Errorf("amqp.Client.Close: connection: %w", err)
		}
	}
	return nil
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	return c.ch.PublishWithContext(ctx, c.exchange, routingKey, false, false, amqp091.Publishing{
		ContentType:  _contentType,
		DeliveryMode: amqp091.Persistent,
		Body:         body,
	})
}

func queueName(channel entity.Channel) string {
	return "notifications." + string(channel)
}
