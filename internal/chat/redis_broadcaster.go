package chat

import (
	"context"
	"fmt"

	"intern-portal/backend/pkg/logger"
	"intern-portal/backend/pkg/pubsub"

	"github.com/google/uuid"
)

const (
	roomChannelPrefix  = "chat:project:"
	roomChannelPattern = roomChannelPrefix + "*"
	eventDelivered     = "delivered"
)

// RoomChannel is the bus channel carrying a project's deliveries
func RoomChannel(projectID uint) string {
	return fmt.Sprintf("%s%d", roomChannelPrefix, projectID)
}

// RedisBroadcaster delivers locally and relays every delivery over the bus
// so subscribers connected to other instances receive it too.
type RedisBroadcaster struct {
	local    *LocalBroadcaster
	bus      pubsub.PubSub
	instance string
	log      *logger.Logger
}

// NewRedisBroadcaster wraps local with cross-instance relay over bus
func NewRedisBroadcaster(local *LocalBroadcaster, bus pubsub.PubSub, log *logger.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{
		local:    local,
		bus:      bus,
		instance: uuid.NewString(),
		log:      log,
	}
}

// Broadcast delivers to this instance's subscribers and then publishes the
// frame for the others. A bus failure is returned after local delivery.
func (b *RedisBroadcaster) Broadcast(ctx context.Context, projectID uint, msg *Delivered) error {
	frame, err := EncodeDelivered(msg)
	if err != nil {
		return err
	}

	b.local.Deliver(ctx, projectID, frame)

	event := pubsub.NewEvent(eventDelivered, b.instance, projectID, frame)
	if err := b.bus.Publish(ctx, RoomChannel(projectID), event); err != nil {
		return fmt.Errorf("relay delivery for project %d: %w", projectID, err)
	}
	return nil
}

// Run consumes relayed deliveries until ctx is cancelled. Events this
// instance published itself are skipped.
func (b *RedisBroadcaster) Run(ctx context.Context) error {
	events, err := b.bus.SubscribePattern(ctx, roomChannelPattern)
	if err != nil {
		return err
	}

	b.log.Info("Relaying chat deliveries", "pattern", roomChannelPattern, "instance", b.instance)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			b.handle(ctx, ev)
		}
	}
}

func (b *RedisBroadcaster) handle(ctx context.Context, ev *pubsub.Event) {
	if ev.Type != eventDelivered || ev.Origin == b.instance {
		return
	}
	if ev.RoomID == 0 {
		b.log.Debug("Dropping relayed delivery without room", "origin", ev.Origin)
		return
	}
	b.local.Deliver(ctx, ev.RoomID, ev.Payload)
}
