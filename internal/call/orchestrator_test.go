package call_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodesh/nodesh/internal/call"
	"github.com/nodesh/nodesh/pkg/adapters/loopback"
	"github.com/nodesh/nodesh/pkg/domain"
	"github.com/nodesh/nodesh/pkg/options"
)

// newOrchestrator wires an orchestrator over a loopback tree with timings
// tight enough for tests.
func newOrchestrator(t *testing.T, root *loopback.Node, set map[string]string) (*call.Orchestrator, *options.Config) {
	t.Helper()
	cfg := options.NewConfig()
	reg := options.NewRegistry(cfg)
	defaults := map[string]string{
		"call_timeout":       "50ms",
		"call_query_timeout": "20ms",
		"call_retry_timeout": "0",
		"call_attempts":      "2",
		"autoget_timeout":    "20ms",
	}
	for k, v := range defaults {
		require.NoError(t, reg.Set(k, v))
	}
	for k, v := range set {
		require.NoError(t, reg.Set(k, v))
	}
	conn, err := loopback.New(root).Dial(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return call.New(conn, cfg, nil), cfg
}

func valueTree(v any) *loopback.Node {
	root := loopback.NewTree()
	root.Ensure("dev").SetValue(v)
	return root
}

func TestInvoke_Completed(t *testing.T) {
	o, _ := newOrchestrator(t, valueTree(int64(7)), nil)

	out := o.Invoke(context.Background(), "dev", "get", nil, call.Direct)
	assert.Equal(t, call.Completed, out.State)
	assert.Equal(t, int64(7), out.Result)
	assert.NoError(t, out.Err)
	assert.Equal(t, 1, out.Attempts)
}

func TestInvoke_RemoteErrorIsFailed(t *testing.T) {
	root := loopback.NewTree()
	root.Ensure("dev").Fail("get", &domain.RPCError{Code: domain.RPCMethodError, Message: "broken"})
	o, _ := newOrchestrator(t, root, nil)

	out := o.Invoke(context.Background(), "dev", "get", nil, call.Direct)
	assert.Equal(t, call.Failed, out.State)
	var rpcErr *domain.RPCError
	require.True(t, errors.As(out.Err, &rpcErr))
	assert.Equal(t, domain.RPCMethodError, rpcErr.Code)
}

func TestInvoke_TimesOutAfterBoundedAttempts(t *testing.T) {
	root := loopback.NewTree()
	root.Ensure("dev").Delay(time.Hour).SetValue(1)
	o, _ := newOrchestrator(t, root, map[string]string{"call_timeout": "10ms", "call_attempts": "3"})

	start := time.Now()
	out := o.Invoke(context.Background(), "dev", "get", nil, call.Direct)
	assert.Equal(t, call.TimedOut, out.State)
	assert.ErrorIs(t, out.Err, domain.ErrTimeout)
	assert.Equal(t, 3, out.Attempts)
	assert.Less(t, time.Since(start), time.Second)
}

func TestInvoke_CancelledMidFlight(t *testing.T) {
	root := loopback.NewTree()
	root.Ensure("dev").Delay(time.Hour).SetValue(1)
	o, _ := newOrchestrator(t, root, map[string]string{"call_timeout": "10s"})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	out := o.Invoke(ctx, "dev", "get", nil, call.Direct)
	assert.Equal(t, call.Cancelled, out.State)
	assert.ErrorIs(t, out.Err, domain.ErrCancelled)
}

func TestInvoke_CancelledDuringRetryGap(t *testing.T) {
	root := loopback.NewTree()
	root.Ensure("dev").Delay(time.Hour).SetValue(1)
	o, _ := newOrchestrator(t, root, map[string]string{
		"call_timeout":       "10ms",
		"call_retry_timeout": "10s",
		"call_attempts":      "2",
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	out := o.Invoke(ctx, "dev", "get", nil, call.Direct)
	assert.Equal(t, call.Cancelled, out.State)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestInvoke_QueryFirstFastPath(t *testing.T) {
	o, _ := newOrchestrator(t, valueTree("ok"), nil)

	out := o.Invoke(context.Background(), "dev", "get", nil, call.QueryFirst)
	assert.Equal(t, call.Completed, out.State)
	assert.Equal(t, 1, out.Attempts)
}

func TestInvoke_QueryFirstFallsBackToDirect(t *testing.T) {
	root := loopback.NewTree()
	// Slower than the query bound, faster than the direct bound.
	root.Ensure("dev").Delay(60 * time.Millisecond).SetValue("late")
	o, _ := newOrchestrator(t, root, map[string]string{
		"call_query_timeout": "10ms",
		"call_timeout":       "5s",
	})

	out := o.Invoke(context.Background(), "dev", "get", nil, call.QueryFirst)
	assert.Equal(t, call.Completed, out.State)
	assert.Equal(t, "late", out.Result)
	assert.Equal(t, 2, out.Attempts)
}

func TestInvoke_QueryFirstRemoteErrorIsConclusive(t *testing.T) {
	root := loopback.NewTree()
	root.Ensure("dev").Fail("get", &domain.RPCError{Code: domain.RPCMethodNotFound, Message: "nope"})
	o, _ := newOrchestrator(t, root, nil)

	out := o.Invoke(context.Background(), "dev", "get", nil, call.QueryFirst)
	assert.Equal(t, call.Failed, out.State)
	assert.Equal(t, 1, out.Attempts)
}

func TestAutoGet_DegradesToNoValue(t *testing.T) {
	root := loopback.NewTree()
	root.Ensure("fast").SetValue(1.5)
	root.Ensure("slow").Delay(time.Hour).SetValue(1)
	root.Ensure("bad").Fail("get", errors.New("boom"))
	o, _ := newOrchestrator(t, root, nil)

	v, ok := o.AutoGet(context.Background(), "fast", "get")
	require.True(t, ok)
	assert.Equal(t, 1.5, v)

	_, ok = o.AutoGet(context.Background(), "slow", "get")
	assert.False(t, ok)
	_, ok = o.AutoGet(context.Background(), "bad", "get")
	assert.False(t, ok)
}
