package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/taskpulse/internal/adapter/metrics"
	"github.com/pscheid92/taskpulse/internal/domain"
	"github.com/pscheid92/taskpulse/internal/platform/logging"
)

// Meta describes where a connection came from.
type Meta struct {
	RemoteAddr string
	UserAgent  string
}

// Conn is one client connection and its writer goroutine.
//
// The mailbox channel is never closed. Closing is signalled through done, and
// closed is closed once every resource has been released.
type Conn struct {
	id       uuid.UUID
	topic    string
	meta     Meta
	openedAt time.Time

	sender       domain.Sender
	clock        clockwork.Clock
	pingInterval time.Duration
	logger       *slog.Logger
	metrics      *metrics.Broadcast

	mailbox chan []byte
	done    chan struct{}
	closed  chan struct{}

	state     atomic.Int32
	opened    atomic.Bool
	closeOnce sync.Once
	reason    atomic.Value // domain.CloseReason

	onRelease func(*Conn)
}

type connConfig struct {
	mailboxSize  int
	pingInterval time.Duration
	clock        clockwork.Clock
	logger       *slog.Logger
	metrics      *metrics.Broadcast
}

func newConn(sender domain.Sender, meta Meta, cfg connConfig) *Conn {
	id := uuid.New()
	c := &Conn{
		id:           id,
		topic:        domain.GlobalTopic,
		meta:         meta,
		openedAt:     cfg.clock.Now(),
		sender:       sender,
		clock:        cfg.clock,
		pingInterval: cfg.pingInterval,
		logger:       logging.WithConnection(cfg.logger, id),
		metrics:      cfg.metrics,
		mailbox:      make(chan []byte, cfg.mailboxSize),
		done:         make(chan struct{}),
		closed:       make(chan struct{}),
	}
	c.state.Store(int32(domain.StateConnecting))
	return c
}

func (c *Conn) ID() uuid.UUID { return c.id }

func (c *Conn) Topic() string { return c.topic }

func (c *Conn) Meta() Meta { return c.meta }

func (c *Conn) OpenedAt() time.Time { return c.openedAt }

func (c *Conn) State() domain.ConnState { return domain.ConnState(c.state.Load()) }

// WasOpened reports whether the handshake ever completed.
func (c *Conn) WasOpened() bool { return c.opened.Load() }

// Done is closed as soon as the connection starts closing.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Released is closed after the connection reached the closed state and its
// resources were freed.
func (c *Conn) Released() <-chan struct{} { return c.closed }

// Reason is empty until the connection starts closing.
func (c *Conn) Reason() domain.CloseReason {
	r, _ := c.reason.Load().(domain.CloseReason)
	return r
}

// open moves Connecting to Open and starts the writer goroutine.
func (c *Conn) open() error {
	if !c.state.CompareAndSwap(int32(domain.StateConnecting), int32(domain.StateOpen)) {
		return domain.ErrConnectionClosed
	}
	c.opened.Store(true)
	go c.run()
	return nil
}

// Deliver queues an event for this connection only, e.g. a reply to
// something the client sent.
func (c *Conn) Deliver(ev domain.Event) error {
	data, err := ev.Encode()
	if err != nil {
		return err
	}
	if err := c.enqueue(data); err != nil {
		c.fail(err)
		return &DeliveryError{ConnID: c.id, Err: err}
	}
	return nil
}

// enqueue never blocks. A full mailbox is reported, not waited on.
func (c *Conn) enqueue(data []byte) error {
	select {
	case <-c.done:
		return domain.ErrConnectionClosed
	default:
	}

	select {
	case c.mailbox <- data:
		return nil
	case <-c.done:
		return domain.ErrConnectionClosed
	default:
		return domain.ErrMailboxFull
	}
}

// fail starts closing the connection after a delivery error.
func (c *Conn) fail(err error) {
	reason := domain.ReasonWriteFailed
	if errors.Is(err, domain.ErrMailboxFull) {
		reason = domain.ReasonMailboxFull
	}
	if c.Close(reason) {
		c.logger.Debug("Closing connection after delivery failure", "reason", reason, "error", err)
	}
}

// Close starts closing the connection and returns immediately. It reports
// whether this call was the one that triggered the close. A connection that
// never opened is released right here since it has no writer goroutine.
func (c *Conn) Close(reason domain.CloseReason) bool {
	triggered := false
	c.closeOnce.Do(func() {
		triggered = true
		c.reason.Store(reason)

		for {
			if c.state.CompareAndSwap(int32(domain.StateOpen), int32(domain.StateClosing)) {
				close(c.done)
				return
			}
			if c.state.CompareAndSwap(int32(domain.StateConnecting), int32(domain.StateClosing)) {
				close(c.done)
				c.release()
				return
			}
			if c.State() >= domain.StateClosing {
				return
			}
		}
	})
	return triggered
}

// Wait blocks until the connection is released or ctx ends.
func (c *Conn) Wait(ctx context.Context) error {
	select {
	case <-c.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) run() {
	defer c.release()

	var pings <-chan time.Time
	pinger, canPing := c.sender.(domain.Pinger)
	if canPing && c.pingInterval > 0 {
		ticker := c.clock.NewTicker(c.pingInterval)
		defer ticker.Stop()
		pings = ticker.Chan()
	}

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.mailbox:
			start := c.clock.Now()
			if err := c.sender.Send(msg); err != nil {
				c.metrics.DeliveryFailures.WithLabelValues(string(domain.ReasonWriteFailed)).Inc()
				c.fail(err)
				return
			}
			c.metrics.SendDuration.Observe(c.clock.Since(start).Seconds())
		case <-pings:
			if err := pinger.Ping(); err != nil {
				c.metrics.PingFailures.Inc()
				if c.Close(domain.ReasonPingFailed) {
					c.logger.Debug("Ping failed", "error", err)
				}
				return
			}
		}
	}
}

// release is the only place a connection's resources are freed. It runs once:
// either on writer exit or inline when a never-opened connection is closed.
func (c *Conn) release() {
	var err error
	if rc, ok := c.sender.(domain.ReasonCloser); ok {
		err = rc.CloseWithReason(c.Reason())
	} else {
		err = c.sender.Close()
	}
	if err != nil {
		c.logger.Debug("Transport close returned error", "error", err)
	}

	if c.onRelease != nil {
		c.onRelease(c)
	}

	c.state.Store(int32(domain.StateClosed))
	close(c.closed)
}
