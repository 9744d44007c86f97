package broadcast

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/taskpulse/internal/adapter/metrics"
	"github.com/pscheid92/taskpulse/internal/domain"
)

const (
	waitFor   = 2 * time.Second
	pollEvery = 5 * time.Millisecond
)

var errBrokenPipe = errors.New("broken pipe")

// fakeSender records what the writer goroutine sends.
type fakeSender struct {
	mu      sync.Mutex
	frames  [][]byte
	sendErr error

	// entered receives once per Send call; release gates Send when non-nil.
	entered chan struct{}
	release chan struct{}

	// closeGate, when non-nil, holds CloseWithReason until it is closed.
	closeGate chan struct{}

	closeOnce   sync.Once
	closed      chan struct{}
	closeCalls  int
	closeReason domain.CloseReason
}

func newFakeSender() *fakeSender {
	return &fakeSender{closed: make(chan struct{})}
}

func (f *fakeSender) Send(data []byte) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.frames = append(f.frames, data)
	return nil
}

func (f *fakeSender) Close() error {
	return f.CloseWithReason("")
}

func (f *fakeSender) CloseWithReason(reason domain.CloseReason) error {
	if f.closeGate != nil {
		<-f.closeGate
	}
	f.mu.Lock()
	f.closeCalls++
	f.closeReason = reason
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeSender) events(t *testing.T) []domain.Event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.Event, 0, len(f.frames))
	for _, frame := range f.frames {
		var ev domain.Event
		require.NoError(t, json.Unmarshal(frame, &ev))
		out = append(out, ev)
	}
	return out
}

func (f *fakeSender) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func (f *fakeSender) reason() domain.CloseReason {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeReason
}

func (f *fakeSender) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

// fakePinger adds keepalive support to a fakeSender.
type fakePinger struct {
	*fakeSender
	pings   chan struct{}
	pingErr error
}

func (p *fakePinger) Ping() error {
	p.pings <- struct{}{}
	return p.pingErr
}

type fixture struct {
	clock   clockwork.Clock
	metrics *metrics.Broadcast
	bus     *Bus
	manager *Manager
}

func newFixture(t *testing.T, cfg ManagerConfig) *fixture {
	t.Helper()
	return newFixtureWithClock(t, clockwork.NewRealClock(), cfg)
}

func newFixtureWithClock(t *testing.T, clock clockwork.Clock, cfg ManagerConfig) *fixture {
	t.Helper()
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 100
	}
	if cfg.MailboxSize == 0 {
		cfg.MailboxSize = 16
	}

	m := metrics.NewBroadcast(prometheus.NewRegistry())
	bus := NewBus(NewRegistry(), clock, m)
	return &fixture{
		clock:   clock,
		metrics: m,
		bus:     bus,
		manager: NewManager(bus, clock, m, nil, cfg),
	}
}

func waitReleased(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case <-c.Released():
	case <-time.After(waitFor):
		t.Fatalf("connection %s was not released", c.ID())
	}
}
