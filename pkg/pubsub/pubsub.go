package pubsub

import (
	"context"
	"encoding/json"
	"time"
)

// Event is the envelope carried on the bus
type Event struct {
	Type      string          `json:"type"`
	Origin    string          `json:"origin"`
	RoomID    uint            `json:"room_id"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType, origin string, roomID uint, payload []byte) *Event {
	return &Event{
		Type:      eventType,
		Origin:    origin,
		RoomID:    roomID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Publisher publishes events to the event bus
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// Subscriber subscribes to events from the event bus
type Subscriber interface {
	SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error)
}

// PubSub combines Publisher and Subscriber
type PubSub interface {
	Publisher
	Subscriber
	Close() error
}
