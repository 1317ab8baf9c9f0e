package amqp

import (
	"context"
	"encoding/json"
	"fmt"

	"gymnotifier/internal/entity"
)

type Publisher struct {
	client *Client
}

func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// PublishDelivery routes one record/channel pair to that channel's
// queue.
func (p *Publisher) PublishDelivery(ctx context.Context, msg entity.DeliveryMessage) error {
	const op = "amqp.Publisher.PublishDelivery"

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}

	if err := p.client.publish(ctx, string(msg.Channel), body); err != nil {
		return fmt.Errorf("%s: publish: %w", op, err)
	}

	return nil
}
