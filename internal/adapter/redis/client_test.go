package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/taskpulse/internal/adapter/metrics"
)

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("not-a-redis-url")
	assert.Error(t, err)
}

func TestWaitReady(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb, err := NewClient("redis://"+mr.Addr(), NewCircuitBreakerHook(nil))
	require.NoError(t, err)
	defer rdb.Close()

	assert.NoError(t, WaitReady(context.Background(), clockwork.NewRealClock(), rdb))
}

func TestWaitReady_StopsOnCanceledContext(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	rdb, err := NewClient("redis://" + addr)
	require.NoError(t, err)
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = WaitReady(ctx, clockwork.NewRealClock(), rdb)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCircuitBreakerHook_OpensAfterConsecutiveFailures(t *testing.T) {
	m := metrics.NewMirror(prometheus.NewRegistry())
	hook := NewCircuitBreakerHook(m)
	ctx := context.Background()

	calls := 0
	failing := hook.ProcessHook(func(context.Context, goredis.Cmder) error {
		calls++
		return errors.New("connection refused")
	})

	for i := 0; i < breakerFailureThreshold; i++ {
		assert.Error(t, failing(ctx, goredis.NewIntCmd(ctx, "publish", "c", "m")))
	}
	assert.Equal(t, circuitbreaker.OpenState, hook.State())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerState.WithLabelValues("redis")))

	err := failing(ctx, goredis.NewIntCmd(ctx, "publish", "c", "m"))
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, breakerFailureThreshold, calls, "open breaker does not reach redis")
}

func TestCircuitBreakerHook_NilIsNotAFailure(t *testing.T) {
	hook := NewCircuitBreakerHook(nil)
	ctx := context.Background()

	miss := hook.ProcessHook(func(context.Context, goredis.Cmder) error { return goredis.Nil })
	for i := 0; i < breakerFailureThreshold*2; i++ {
		assert.ErrorIs(t, miss(ctx, goredis.NewStringCmd(ctx, "get", "k")), goredis.Nil)
	}
	assert.Equal(t, circuitbreaker.ClosedState, hook.State())
}
