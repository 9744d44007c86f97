package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/taskpulse/internal/adapter/eventpublisher"
	"github.com/pscheid92/taskpulse/internal/adapter/metrics"
	"github.com/pscheid92/taskpulse/internal/broadcast"
	"github.com/pscheid92/taskpulse/internal/domain"
	"github.com/pscheid92/taskpulse/internal/platform/config"
	"github.com/pscheid92/taskpulse/internal/tasks"
)

const (
	waitFor   = 2 * time.Second
	pollEvery = 5 * time.Millisecond
)

type testEnv struct {
	srv     *Server
	ts      *httptest.Server
	store   *tasks.Store
	manager *broadcast.Manager
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:                  "development",
		Port:                    "0",
		AppURL:                  "http://localhost:8080",
		MaxTitleLength:          20,
		MaxWebSocketConnections: 100,
		MailboxSize:             16,
		WriteTimeout:            time.Second,
		PingInterval:            time.Minute,
		PongTimeout:             time.Minute,
		CreateRateLimit:         1000,
		CreateRateBurst:         1000,
	}
}

func newTestEnv(t *testing.T, opts ...func(*config.Config, *Deps)) *testEnv {
	t.Helper()

	cfg := testConfig()
	deps := Deps{}
	for _, opt := range opts {
		opt(cfg, &deps)
	}

	reg := prometheus.NewRegistry()
	bm := metrics.NewBroadcast(reg)
	clock := clockwork.NewRealClock()
	bus := broadcast.NewBus(broadcast.NewRegistry(), clock, bm)
	manager := broadcast.NewManager(bus, clock, bm, nil, broadcast.ManagerConfig{
		MaxConnections:   cfg.MaxWebSocketConnections,
		MailboxSize:      cfg.MailboxSize,
		PingInterval:     cfg.PingInterval,
		NotifyDisconnect: true,
	})
	publisher := eventpublisher.New(bus, nil)
	store := tasks.NewStore(cfg.MaxTitleLength, publisher, metrics.NewTasks(reg))

	deps.Tasks = store
	deps.Connections = manager
	deps.Events = publisher
	deps.HTTPMetrics = metrics.NewHTTP(reg)
	deps.MetricsHandler = metrics.Handler(reg)
	deps.Clock = clock

	srv := NewServer(cfg, deps)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = manager.Stop(ctx)
		ts.Close()
	})

	return &testEnv{srv: srv, ts: ts, store: store, manager: manager}
}

func withHealthChecks(checks ...HealthCheck) func(*config.Config, *Deps) {
	return func(_ *config.Config, d *Deps) { d.HealthChecks = checks }
}

func withConfig(mutate func(*config.Config)) func(*config.Config, *Deps) {
	return func(c *config.Config, _ *Deps) { mutate(c) }
}

// dial opens a WebSocket and waits until the server has registered it.
func (e *testEnv) dial(t *testing.T) *gorillaws.Conn {
	t.Helper()

	before := e.manager.Count()
	conn, _, err := gorillaws.DefaultDialer.Dial(e.wsURL(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return e.manager.Count() == before+1 }, waitFor, pollEvery)
	return conn
}

func (e *testEnv) wsURL() string {
	return "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws"
}

func (e *testEnv) postTask(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(e.ts.URL+"/tasks", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readEvent(t *testing.T, conn *gorillaws.Conn) domain.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(waitFor)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev domain.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func timeNowPlus(d time.Duration) time.Time {
	return time.Now().Add(d)
}

func testContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), waitFor)
}

// expectSilence asserts nothing arrives on conn within a short window.
func expectSilence(t *testing.T, conn *gorillaws.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", data)
}
