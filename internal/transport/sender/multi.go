package sender

import (
	"context"
	"fmt"

	"gymnotifier/internal/entity"
)

// MultiSink routes a delivery to the sink for its channel. A nil sink
// means the channel is not configured in this deployment.
type MultiSink struct {
	email Sink
	sms   Sink
	push  Sink
}

func NewMultiSink(email, sms, push Sink) *MultiSink {
	return &MultiSink{email: email, sms: sms, push: push}
}

func (s *MultiSink) Send(ctx context.Context, msg entity.DeliveryMessage) error {
	const op = "sender.MultiSink.Send"

	var sink Sink
	switch msg.Channel {
	case entity.ChannelEmail:
		sink = s.email
	case entity.ChannelSMS:
		sink = s.sms
	case entity.ChannelPush:
		sink = s.push
	default:
		return fmt.Errorf("%s: unsupported channel %q", op, msg.Channel)
	}

	if sink == nil {
		return fmt.Errorf("%s: channel %q has no configured sink", op, msg.Channel)
	}

	return sink.Send(ctx, msg)
}
