package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pscheid92/taskpulse/internal/adapter/metrics"
	"github.com/pscheid92/taskpulse/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	defaultQueueSize = 256
	publishTimeout   = 2 * time.Second
)

// Mirror publishes events to a Redis channel from a background worker.
// Enqueue never blocks: when the queue is full the event is dropped.
type Mirror struct {
	rdb     goredis.UniversalClient
	channel string
	queue   chan domain.Event
	metrics *metrics.Mirror
}

func NewMirror(rdb goredis.UniversalClient, channel string, queueSize int, m *metrics.Mirror) *Mirror {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Mirror{
		rdb:     rdb,
		channel: channel,
		queue:   make(chan domain.Event, queueSize),
		metrics: m,
	}
}

func (m *Mirror) Enqueue(ev domain.Event) {
	select {
	case m.queue <- ev:
	default:
		m.metrics.Dropped.Inc()
		slog.Warn("Mirror queue full, dropping event", "kind", ev.Kind, "channel", m.channel)
	}
}

// Run drains the queue until ctx is done, then publishes whatever is still
// queued before returning.
func (m *Mirror) Run(ctx context.Context) {
	for {
		select {
		case ev := <-m.queue:
			m.publishOne(ctx, ev)
		case <-ctx.Done():
			m.drain()
			return
		}
	}
}

func (m *Mirror) drain() {
	for {
		select {
		case ev := <-m.queue:
			m.publishOne(context.Background(), ev)
		default:
			return
		}
	}
}

func (m *Mirror) publishOne(ctx context.Context, ev domain.Event) {
	if err := m.publish(ctx, ev); err != nil {
		m.metrics.Failed.Inc()
		slog.Warn("Failed to mirror event", "kind", ev.Kind, "channel", m.channel, "error", err)
		return
	}
	m.metrics.Published.Inc()
}

func (m *Mirror) publish(ctx context.Context, ev domain.Event) error {
	data, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := m.rdb.Publish(ctx, m.channel, data).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", m.channel, err)
	}
	return nil
}
