package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/taskpulse/internal/adapter/eventpublisher"
	"github.com/pscheid92/taskpulse/internal/adapter/httpserver"
	"github.com/pscheid92/taskpulse/internal/adapter/metrics"
	"github.com/pscheid92/taskpulse/internal/adapter/redis"
	"github.com/pscheid92/taskpulse/internal/broadcast"
	"github.com/pscheid92/taskpulse/internal/platform/config"
	"github.com/pscheid92/taskpulse/internal/platform/logging"
	"github.com/pscheid92/taskpulse/internal/platform/version"
	"github.com/pscheid92/taskpulse/internal/tasks"
	goredis "github.com/redis/go-redis/v9"
)

type mirrorResult struct {
	client *goredis.Client
	mirror *redis.Mirror
	check  httpserver.HealthCheck
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupMirror(ctx context.Context, cfg *config.Config, clock clockwork.Clock, m *metrics.Mirror) mirrorResult {
	client, err := redis.NewClient(cfg.RedisURL, redis.NewCircuitBreakerHook(m))
	if err != nil {
		slog.Error("Failed to create Redis client", "error", err)
		os.Exit(1)
	}

	if err := redis.WaitReady(ctx, clock, client); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	return mirrorResult{
		client: client,
		mirror: redis.NewMirror(client, cfg.RedisEventsChannel, 0, m),
		check: httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		},
	}
}

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, manager *broadcast.Manager, stopMirror func()) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := manager.Stop(shutdownCtx); err != nil {
			slog.Error("Connections did not close in time", "error", err)
		}
		stopMirror()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logger := logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().String())

	reg := metrics.NewRegistry()
	broadcastMetrics := metrics.NewBroadcast(reg)
	taskMetrics := metrics.NewTasks(reg)
	httpMetrics := metrics.NewHTTP(reg)
	mirrorMetrics := metrics.NewMirror(reg)

	bus := broadcast.NewBus(broadcast.NewRegistry(), clock, broadcastMetrics)
	manager := broadcast.NewManager(bus, clock, broadcastMetrics, logger, broadcast.ManagerConfig{
		MaxConnections:   cfg.MaxWebSocketConnections,
		MailboxSize:      cfg.MailboxSize,
		PingInterval:     cfg.PingInterval,
		NotifyDisconnect: true,
	})

	var (
		publisher    *eventpublisher.EventPublisher
		healthChecks []httpserver.HealthCheck
		stopMirror   = func() {}
	)
	if cfg.MirrorEnabled() {
		mirrorCtx, cancelMirror := context.WithCancel(context.Background())
		mr := setupMirror(mirrorCtx, cfg, clock, mirrorMetrics)

		mirrorDone := make(chan struct{})
		go func() {
			defer close(mirrorDone)
			mr.mirror.Run(mirrorCtx)
		}()

		stopMirror = func() {
			cancelMirror()
			<-mirrorDone
			if err := mr.client.Close(); err != nil {
				slog.Error("Failed to close Redis client", "error", err)
			}
		}

		// Pass the mirror only when it exists so the publisher never sees a typed nil
		publisher = eventpublisher.New(bus, mr.mirror)
		healthChecks = append(healthChecks, mr.check)
		slog.Info("Redis event mirror enabled", "channel", cfg.RedisEventsChannel)
	} else {
		publisher = eventpublisher.New(bus, nil)
	}

	store := tasks.NewStore(cfg.MaxTitleLength, publisher, taskMetrics)

	srv := httpserver.NewServer(cfg, httpserver.Deps{
		Tasks:          store,
		Connections:    manager,
		Events:         publisher,
		HTTPMetrics:    httpMetrics,
		MetricsHandler: metrics.Handler(reg),
		HealthChecks:   healthChecks,
		Clock:          clock,
	})

	done := runGracefulShutdown(cfg, srv, manager, stopMirror)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
