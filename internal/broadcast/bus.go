package broadcast

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/taskpulse/internal/adapter/metrics"
	"github.com/pscheid92/taskpulse/internal/domain"
)

// FailureHandler observes a delivery failure on an open connection. It runs
// under the publish lock, before the bus closes that connection.
type FailureHandler func(c *Conn, err *DeliveryError)

// Bus fans events out to the registry with snapshot-then-deliver semantics.
// Publishes are serialized, so every mailbox sees the same global order.
type Bus struct {
	registry  *Registry
	clock     clockwork.Clock
	metrics   *metrics.Broadcast
	onFailure FailureHandler

	publishMu sync.Mutex
}

func NewBus(registry *Registry, clock clockwork.Clock, m *metrics.Broadcast) *Bus {
	return &Bus{
		registry: registry,
		clock:    clock,
		metrics:  m,
	}
}

// OnFailure installs the failure handler. The connection is closed after it
// returns, whatever the handler does.
func (b *Bus) OnFailure(h FailureHandler) {
	b.publishMu.Lock()
	b.onFailure = h
	b.publishMu.Unlock()
}

func (b *Bus) Subscribe(c *Conn) {
	b.registry.Add(c)
}

func (b *Bus) Unsubscribe(id uuid.UUID) bool {
	return b.registry.Remove(id)
}

func (b *Bus) Registry() *Registry {
	return b.registry
}

// Publish never fails from the caller's point of view. Connections that join
// after the snapshot is taken do not receive the event.
func (b *Bus) Publish(ev domain.Event) {
	data, err := ev.Encode()
	if err != nil {
		slog.Error("Failed to encode event", "kind", ev.Kind, "error", err)
		return
	}

	b.publishMu.Lock()
	defer b.publishMu.Unlock()

	start := b.clock.Now()
	targets := b.registry.Snapshot()

	var failed int
	for _, c := range targets {
		if err := c.enqueue(data); err != nil {
			failed++
			b.handleFailure(c, &DeliveryError{ConnID: c.ID(), Err: err})
		}
	}

	b.metrics.EventsPublished.WithLabelValues(string(ev.Kind)).Inc()
	b.metrics.FanoutWidth.Observe(float64(len(targets)))
	b.metrics.FanoutDuration.Observe(b.clock.Since(start).Seconds())

	if failed > 0 {
		slog.Debug("Event fan-out finished with failures",
			"kind", ev.Kind,
			"targets", len(targets),
			"failed", failed,
		)
	}
}

func (b *Bus) handleFailure(c *Conn, err *DeliveryError) {
	if errors.Is(err, domain.ErrConnectionClosed) {
		// Its release is already under way and will unregister it.
		b.metrics.DeliveryFailures.WithLabelValues(string(domain.ReasonClosing)).Inc()
		return
	}

	reason := domain.ReasonWriteFailed
	if errors.Is(err, domain.ErrMailboxFull) {
		reason = domain.ReasonMailboxFull
	}
	b.metrics.DeliveryFailures.WithLabelValues(string(reason)).Inc()

	if b.onFailure != nil {
		b.onFailure(c, err)
	}
	c.fail(err.Err)
}
