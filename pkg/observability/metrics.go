package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// ChatMetrics holds the chat gateway instruments. A nil *ChatMetrics records nothing.
type ChatMetrics struct {
	published metric.Int64Counter
	rejected  metric.Int64Counter
	dropped   metric.Int64Counter
	active    metric.Int64UpDownCounter
}

// NewChatMetrics registers the chat instruments on meter
func NewChatMetrics(meter metric.Meter) (*ChatMetrics, error) {
	published, err := meter.Int64Counter("chat_messages_published",
		metric.WithDescription("Messages persisted and handed to fan-out"))
	if err != nil {
		return nil, err
	}
	rejected, err := meter.Int64Counter("chat_publish_rejected",
		metric.WithDescription("Publish attempts rejected, by reason"))
	if err != nil {
		return nil, err
	}
	dropped, err := meter.Int64Counter("chat_deliveries_dropped",
		metric.WithDescription("Deliveries that could not be queued to a subscriber"))
	if err != nil {
		return nil, err
	}
	active, err := meter.Int64UpDownCounter("chat_active_connections",
		metric.WithDescription("Currently registered chat connections"))
	if err != nil {
		return nil, err
	}

	return &ChatMetrics{published: published, rejected: rejected, dropped: dropped, active: active}, nil
}

// NoopChatMetrics returns instruments that discard every measurement
func NoopChatMetrics() *ChatMetrics {
	m, _ := NewChatMetrics(noop.NewMeterProvider().Meter("noop"))
	return m
}

func (m *ChatMetrics) Published(ctx context.Context) {
	if m == nil {
		return
	}
	m.published.Add(ctx, 1)
}

func (m *ChatMetrics) Rejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *ChatMetrics) Dropped(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.dropped.Add(ctx, int64(n))
}

func (m *ChatMetrics) ConnectionOpened(ctx context.Context) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1)
}

func (m *ChatMetrics) ConnectionClosed(ctx context.Context) {
	if m == nil {
		return
	}
	m.active.Add(ctx, -1)
}
