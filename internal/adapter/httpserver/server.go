package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/taskpulse/internal/adapter/metrics"
	"github.com/pscheid92/taskpulse/internal/adapter/websocket"
	"github.com/pscheid92/taskpulse/internal/broadcast"
	"github.com/pscheid92/taskpulse/internal/domain"
	"github.com/pscheid92/taskpulse/internal/platform/config"
)

type taskService interface {
	List() []domain.Task
	Get(id uint64) (domain.Task, bool)
	Create(title string) (domain.Task, error)
}

type connectionManager interface {
	Accept(ctx context.Context, sender domain.Sender, meta broadcast.Meta) (*broadcast.Conn, error)
	Disconnect(c *broadcast.Conn)
	Count() int
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	tasks       taskService
	connections connectionManager
	events      domain.EventPublisher

	upgrader      *gorillaws.Upgrader
	transportOpts websocket.Options

	httpMetrics    *metrics.HTTP
	metricsHandler http.Handler
	healthChecks   []HealthCheck
	startTime      time.Time
}

// Deps are the collaborators the HTTP layer drives. HTTPMetrics and
// MetricsHandler may be nil.
type Deps struct {
	Tasks          taskService
	Connections    connectionManager
	Events         domain.EventPublisher
	HTTPMetrics    *metrics.HTTP
	MetricsHandler http.Handler
	HealthChecks   []HealthCheck
	Clock          clockwork.Clock
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	// Clients cannot pick their own rate-limit bucket through X-Forwarded-For.
	e.IPExtractor = echo.ExtractIPDirect()

	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	srv := &Server{
		echo:        e,
		config:      cfg,
		clock:       clock,
		tasks:       deps.Tasks,
		connections: deps.Connections,
		events:      deps.Events,
		upgrader:    websocket.NewUpgrader(websocket.NewCheckOrigin(cfg.AppURL, !cfg.IsProduction())),
		transportOpts: websocket.Options{
			WriteTimeout: cfg.WriteTimeout,
			PongTimeout:  cfg.PongTimeout,
			ReadLimit:    websocket.ReadLimitFor(cfg.MaxTitleLength),
			Clock:        clock,
		},
		httpMetrics:    deps.HTTPMetrics,
		metricsHandler: deps.MetricsHandler,
		healthChecks:   deps.HealthChecks,
		startTime:      clock.Now(),
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}
