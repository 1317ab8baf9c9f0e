// Package sender holds the delivery sinks the engine hands messages to.
// Transport success is coarse: the latest failure lands on the record,
// per-channel sub-records are not kept.
package sender

import (
	"context"

	"gymnotifier/internal/entity"
)

type Sink interface {
	Send(ctx context.Context, msg entity.DeliveryMessage) error
}
