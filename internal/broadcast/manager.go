package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/taskpulse/internal/adapter/metrics"
	"github.com/pscheid92/taskpulse/internal/domain"
)

// ManagerConfig controls per-connection resources.
type ManagerConfig struct {
	MaxConnections int
	MailboxSize    int
	PingInterval   time.Duration

	// NotifyDisconnect broadcasts a ClientDisconnected event to the remaining
	// connections whenever an open connection is released.
	NotifyDisconnect bool
}

// Manager accepts connections, moves them through their lifecycle and frees
// them exactly once.
type Manager struct {
	bus      *Bus
	clock    clockwork.Clock
	metrics  *metrics.Broadcast
	logger   *slog.Logger
	cfg      ManagerConfig
	capacity *capacity

	mu       sync.RWMutex
	stopping bool
}

func NewManager(bus *Bus, clock clockwork.Clock, m *metrics.Broadcast, logger *slog.Logger, cfg ManagerConfig) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MailboxSize <= 0 {
		cfg.MailboxSize = 16
	}
	mgr := &Manager{
		bus:      bus,
		clock:    clock,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
		capacity: newCapacity(cfg.MaxConnections),
	}
	bus.OnFailure(mgr.deliveryFailed)
	return mgr
}

// Accept runs the handshake for a transport that has already been upgraded.
// On success the connection is open, registered and its writer is running.
// On failure the transport has been closed and a *HandshakeError is returned.
func (m *Manager) Accept(ctx context.Context, sender domain.Sender, meta Meta) (*Conn, error) {
	c := newConn(sender, meta, connConfig{
		mailboxSize:  m.cfg.MailboxSize,
		pingInterval: m.cfg.PingInterval,
		clock:        m.clock,
		logger:       m.logger,
		metrics:      m.metrics,
	})

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, m.reject(c, "canceled", err)
	}
	if m.stopping {
		return nil, m.reject(c, "shutting_down", errors.New("server shutting down"))
	}
	if !m.capacity.acquire() {
		return nil, m.reject(c, "capacity", domain.ErrCapacityReached)
	}

	c.onRelease = m.release
	m.bus.Subscribe(c)

	if err := c.open(); err != nil {
		// Closed between subscribe and open; release already ran.
		m.metrics.HandshakesRejected.WithLabelValues("closed").Inc()
		return nil, &HandshakeError{Reason: "closed", Err: err}
	}

	m.metrics.ConnectionsOpened.Inc()
	m.metrics.ActiveConnections.Inc()
	c.logger.Info("Connection opened",
		"remote_addr", meta.RemoteAddr,
		"connections", m.bus.Registry().Len(),
		"capacity_pct", m.capacity.utilization(),
	)
	return c, nil
}

func (m *Manager) reject(c *Conn, reason string, err error) error {
	c.Close(domain.ReasonRejected)
	m.metrics.HandshakesRejected.WithLabelValues(reason).Inc()
	c.logger.Warn("Rejecting connection", "reason", reason, "remote_addr", c.Meta().RemoteAddr)
	return &HandshakeError{Reason: reason, Err: err}
}

// release is the onRelease hook for every accepted connection.
func (m *Manager) release(c *Conn) {
	m.bus.Unsubscribe(c.ID())
	m.capacity.release()

	if !c.WasOpened() {
		return
	}

	reason := c.Reason()
	m.metrics.ActiveConnections.Dec()
	m.metrics.ConnectionsClosed.WithLabelValues(string(reason)).Inc()
	c.logger.Info("Connection closed",
		"reason", reason,
		"duration", m.clock.Since(c.OpenedAt()),
		"connections", m.bus.Registry().Len(),
	)

	if m.cfg.NotifyDisconnect && reason != domain.ReasonShutdown {
		m.bus.Publish(domain.ClientDisconnectedEvent())
	}
}

// deliveryFailed is the bus failure handler. The bus closes c right after.
func (m *Manager) deliveryFailed(c *Conn, err *DeliveryError) {
	c.logger.Warn("Dropping connection that cannot keep up",
		"remote_addr", c.Meta().RemoteAddr,
		"mailbox_size", m.cfg.MailboxSize,
		"open_for", m.clock.Since(c.OpenedAt()),
		"error", err,
	)
}

// Disconnect handles a peer-initiated close.
func (m *Manager) Disconnect(c *Conn) {
	c.Close(domain.ReasonPeerClosed)
}

func (m *Manager) Count() int {
	return m.bus.Registry().Len()
}

// Stop refuses new connections, closes every open one and waits for all of
// them to be released or for ctx to end.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.stopping = true
	m.mu.Unlock()

	conns := m.bus.Registry().Snapshot()
	for _, c := range conns {
		c.Close(domain.ReasonShutdown)
	}

	var pending int
	for _, c := range conns {
		if err := c.Wait(ctx); err != nil {
			pending++
		}
	}
	if pending > 0 {
		m.logger.Warn("Connections still draining at shutdown deadline", "pending", pending)
		return fmt.Errorf("stop connections: %d still open: %w", pending, ctx.Err())
	}

	m.logger.Info("All connections closed", "count", len(conns))
	return nil
}
