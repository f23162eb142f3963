package chat

import (
	"context"
	"errors"

	"intern-portal/backend/pkg/logger"
	"intern-portal/backend/pkg/observability"
)

// Broadcaster fans a delivered message out to a room. Delivery is best
// effort; an error means the fan-out could not be started at all.
type Broadcaster interface {
	Broadcast(ctx context.Context, projectID uint, msg *Delivered) error
}

// LocalBroadcaster delivers to the connections of this process
type LocalBroadcaster struct {
	registry *Registry
	log      *logger.Logger
	metrics  *observability.ChatMetrics
}

// NewLocalBroadcaster creates a broadcaster over registry
func NewLocalBroadcaster(registry *Registry, log *logger.Logger, metrics *observability.ChatMetrics) *LocalBroadcaster {
	return &LocalBroadcaster{registry: registry, log: log, metrics: metrics}
}

// Broadcast encodes msg once and pushes it to every current subscriber
func (b *LocalBroadcaster) Broadcast(ctx context.Context, projectID uint, msg *Delivered) error {
	frame, err := EncodeDelivered(msg)
	if err != nil {
		return err
	}
	b.Deliver(ctx, projectID, frame)
	return nil
}

// Deliver pushes an encoded frame to the room's snapshot and returns how many
// subscribers accepted it. A failed push never stops the others.
func (b *LocalBroadcaster) Deliver(ctx context.Context, projectID uint, frame []byte) int {
	subscribers := b.registry.SubscribersOf(projectID)

	delivered, dropped := 0, 0
	for _, c := range subscribers {
		if err := c.Send(frame); err != nil {
			dropped++
			reason := "closed"
			if errors.Is(err, ErrSendBufferFull) {
				reason = "buffer_full"
			}
			b.log.Debug("Delivery dropped",
				"conn_id", c.ID(),
				"project_id", projectID,
				"reason", reason,
			)
			continue
		}
		delivered++
	}

	b.metrics.Dropped(ctx, dropped)
	return delivered
}
