package discover_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodesh/nodesh/internal/call"
	"github.com/nodesh/nodesh/internal/discover"
	"github.com/nodesh/nodesh/pkg/adapters/loopback"
	"github.com/nodesh/nodesh/pkg/cache"
	"github.com/nodesh/nodesh/pkg/domain"
	"github.com/nodesh/nodesh/pkg/options"
)

func path(t *testing.T, s string) domain.NodePath {
	t.Helper()
	p, err := domain.ParsePath(s)
	require.NoError(t, err)
	return p
}

func newEngine(t *testing.T, root *loopback.Node, set map[string]string) (*discover.Engine, *cache.Cache) {
	t.Helper()
	cfg := options.NewConfig()
	reg := options.NewRegistry(cfg)
	require.NoError(t, reg.Set("call_query_timeout", "100ms"))
	require.NoError(t, reg.Set("call_timeout", "100ms"))
	require.NoError(t, reg.Set("call_attempts", "1"))
	for k, v := range set {
		require.NoError(t, reg.Set(k, v))
	}
	conn, err := loopback.New(root).Dial(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := cache.New()
	return discover.New(call.New(conn, cfg, nil), c, cfg, nil), c
}

func demoTree() *loopback.Node {
	root := loopback.NewTree()
	root.Ensure("dev/temperature").SetValue(21.0)
	root.Ensure("dev/temperature").Signal(domain.SignalDesc{Name: "chng", Source: "get"})
	root.Ensure("dev/label").SetValue("x")
	root.Ensure("other")
	return root
}

func TestLs_MergesChildren(t *testing.T) {
	e, c := newEngine(t, demoTree(), nil)

	children, err := e.Ls(context.Background(), path(t, "/dev"))
	require.NoError(t, err)
	assert.Equal(t, []string{"label", "temperature"}, children)

	entry, ok := c.Lookup(path(t, "/dev"))
	require.True(t, ok)
	assert.Equal(t, domain.FreshChildren, entry.Fresh)
	assert.Equal(t, []string{"label", "temperature"}, entry.Children)

	// Ancestors learned the chain too.
	root, ok := c.Lookup(domain.Root())
	require.True(t, ok)
	assert.True(t, root.HasChild("dev"))
}

func TestLs_ReplacesStaleChildren(t *testing.T) {
	tree := demoTree()
	e, c := newEngine(t, tree, nil)

	// Cache remembers a child the listing no longer carries.
	c.Merge(path(t, "/dev/removed"), nil, nil, nil, domain.FreshShallow)

	_, err := e.Ls(context.Background(), path(t, "/dev"))
	require.NoError(t, err)

	entry, _ := c.Lookup(path(t, "/dev"))
	assert.False(t, entry.HasChild("removed"))
	_, ok := c.Lookup(path(t, "/dev/removed"))
	assert.False(t, ok)
}

func TestLs_RemoteErrorInvalidates(t *testing.T) {
	tree := demoTree()
	tree.Ensure("dev").Fail("ls", &domain.RPCError{Code: domain.RPCMethodError, Message: "denied"})
	e, c := newEngine(t, tree, nil)

	c.Merge(path(t, "/dev/temperature"), nil, nil, nil, domain.FreshShallow)

	_, err := e.Ls(context.Background(), path(t, "/dev"))
	require.Error(t, err)
	_, ok := c.Lookup(path(t, "/dev"))
	assert.False(t, ok)
	_, ok = c.Lookup(path(t, "/dev/temperature"))
	assert.False(t, ok)
}

func TestDir_MergesMethodsAndSignals(t *testing.T) {
	e, c := newEngine(t, demoTree(), nil)

	methods, err := e.Dir(context.Background(), path(t, "/dev/temperature"))
	require.NoError(t, err)

	var names []string
	for _, m := range methods {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"dir", "get", "ls"}, names)

	entry, ok := c.Lookup(path(t, "/dev/temperature"))
	require.True(t, ok)
	assert.GreaterOrEqual(t, entry.Fresh, domain.FreshShallow)
	m, found := entry.Method("get")
	require.True(t, found)
	assert.True(t, m.IsGetter())
	assert.Equal(t, []domain.SignalDesc{{Name: "chng", Source: "get"}}, entry.Signals)
}

func TestProbe_SkipsFreshEntries(t *testing.T) {
	tree := demoTree()
	e, c := newEngine(t, tree, nil)

	require.NoError(t, e.Probe(context.Background(), path(t, "/dev")))
	entry, _ := c.Lookup(path(t, "/dev"))
	assert.Equal(t, domain.FreshChildren, entry.Fresh)

	// A fully fresh entry survives the remote going away.
	tree.Ensure("dev").Fail("*", &domain.RPCError{Code: domain.RPCMethodError, Message: "down"})
	assert.NoError(t, e.Probe(context.Background(), path(t, "/dev")))
}

func TestAutoprobe_GatedOnOption(t *testing.T) {
	e, c := newEngine(t, demoTree(), map[string]string{"noautoprobe": ""})

	e.Autoprobe(context.Background(), path(t, "/dev"))
	assert.Equal(t, 0, c.Len())
}

func TestScan_FailingBranchDoesNotAbort(t *testing.T) {
	tree := demoTree()
	tree.Ensure("dev").Fail("*", &domain.RPCError{Code: domain.RPCMethodError, Message: "broken"})
	e, c := newEngine(t, tree, map[string]string{"noautoget": ""})

	var visited []string
	err := e.Scan(context.Background(), domain.Root(), 2, func(p domain.NodePath) {
		visited = append(visited, p.String())
	})
	require.NoError(t, err)

	// The failing branch was visited, recorded as merely known, and its
	// siblings still probed.
	assert.Contains(t, visited, "/dev")
	assert.Contains(t, visited, "/other")
	entry, ok := c.Lookup(path(t, "/dev"))
	require.True(t, ok)
	assert.Equal(t, domain.FreshUnknown, entry.Fresh)
	other, ok := c.Lookup(path(t, "/other"))
	require.True(t, ok)
	assert.Equal(t, domain.FreshChildren, other.Fresh)
}

func TestScan_RespectsDepthBound(t *testing.T) {
	root := loopback.NewTree()
	root.Ensure("a/b/c/d")
	e, c := newEngine(t, root, map[string]string{"noautoget": ""})

	require.NoError(t, e.Scan(context.Background(), domain.Root(), 2, nil))

	// Depth 2 probes the root and its children; grandchildren appear in
	// their parent's listing but are not probed themselves.
	a, ok := c.Lookup(path(t, "/a"))
	require.True(t, ok)
	assert.Equal(t, domain.FreshChildren, a.Fresh)
	assert.True(t, a.HasChild("b"))
	_, ok = c.Lookup(path(t, "/a/b"))
	assert.False(t, ok)
}

func TestScan_CancelledPropagates(t *testing.T) {
	e, _ := newEngine(t, demoTree(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Scan(ctx, domain.Root(), 3, nil)
	assert.ErrorIs(t, err, domain.ErrCancelled)
}
