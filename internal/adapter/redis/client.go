package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/taskpulse/internal/platform/retry"
	goredis "github.com/redis/go-redis/v9"
)

// NewClient parses a redis:// URL and installs hooks on the resulting client.
// It does not connect; use WaitReady for that.
func NewClient(redisURL string, hooks ...goredis.Hook) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	for _, h := range hooks {
		rdb.AddHook(h)
	}
	return rdb, nil
}

var startupPolicy = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Redis not ready, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

// WaitReady pings Redis until it answers or the startup policy gives up.
func WaitReady(ctx context.Context, clock clockwork.Clock, rdb goredis.UniversalClient) error {
	classify := func(err error) retry.Action {
		if errors.Is(err, context.Canceled) || errors.Is(err, circuitbreaker.ErrOpen) {
			return retry.Stop
		}
		return retry.Retry
	}

	err := retry.Do(ctx, clock, startupPolicy, classify, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
