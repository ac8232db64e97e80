package complete

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

// newProvider builds a provider over a pre-populated cache with the probe
// replaced by a recorder, so tests stay synchronous.
func newProvider(t *testing.T, set map[string]string) (*Provider, *cache.Cache, *[]string) {
	t.Helper()
	cfg := options.NewConfig()
	reg := options.NewRegistry(cfg)
	for k, v := range set {
		require.NoError(t, reg.Set(k, v))
	}
	c := cache.New()
	p := New(c, nil, cfg, []string{"tree", "scan", "set"})

	var probed []string
	p.probe = func(path domain.NodePath) { probed = append(probed, path.String()) }
	return p, c, &probed
}

func TestComplete_Builtins(t *testing.T) {
	p, _, _ := newProvider(t, nil)

	assert.Equal(t, []string{"!scan", "!set", "!tree"}, p.Complete(domain.Root(), "!"))
	assert.Equal(t, []string{"!scan", "!set"}, p.Complete(domain.Root(), "!s"))
	assert.Empty(t, p.Complete(domain.Root(), "!x"))
}

func TestComplete_ChildrenAndMethods(t *testing.T) {
	p, c, _ := newProvider(t, nil)
	c.Merge(path(t, "/dev"), []string{"label", "temperature"},
		[]domain.MethodDesc{{Name: "reset"}}, nil, domain.FreshChildren)

	got := p.Complete(domain.Root(), "dev/")
	assert.Equal(t, []string{"label", "temperature"}, got)

	got = p.Complete(domain.Root(), "dev/te")
	assert.Equal(t, []string{"temperature"}, got)

	// After a colon only methods and signals complete; ls and dir are
	// always on offer.
	got = p.Complete(domain.Root(), "dev:")
	assert.Equal(t, []string{"dir", "ls", "reset"}, got)

	got = p.Complete(domain.Root(), "dev:r")
	assert.Equal(t, []string{"reset"}, got)
}

func TestComplete_BareTokenMixesChildrenAndPrefixMethods(t *testing.T) {
	p, c, _ := newProvider(t, nil)
	c.Merge(domain.Root(), []string{"dev", "dir-like"},
		[]domain.MethodDesc{{Name: "device"}}, nil, domain.FreshChildren)

	got := p.Complete(domain.Root(), "d")
	assert.Equal(t, []string{"dev", "dir-like", "device", "dir"}, got)
}

func TestComplete_SignalsCompleteWithSourceLabel(t *testing.T) {
	p, c, _ := newProvider(t, nil)
	c.Merge(path(t, "/dev"), nil, nil,
		[]domain.SignalDesc{{Name: "chng", Source: "get"}}, domain.FreshChildren)

	got := p.Complete(domain.Root(), "dev:get")
	assert.Contains(t, got, "get:chng")
}

func TestComplete_NotCallableMethodsHidden(t *testing.T) {
	p, c, _ := newProvider(t, nil)
	c.Merge(path(t, "/dev"), nil,
		[]domain.MethodDesc{{Name: "anchor", Flags: domain.FlagNotCallable}},
		nil, domain.FreshChildren)

	got := p.Complete(domain.Root(), "dev:")
	assert.NotContains(t, got, "anchor")
}

func TestComplete_FiresProbeForUnknownPaths(t *testing.T) {
	p, c, probed := newProvider(t, nil)

	assert.Empty(t, p.Complete(domain.Root(), "dev/"))
	assert.Equal(t, []string{"/dev"}, *probed)

	// Fresh entries are not re-probed.
	c.Merge(path(t, "/dev"), []string{"x"}, nil, nil, domain.FreshChildren)
	*probed = nil
	p.Complete(domain.Root(), "dev/")
	assert.Empty(t, *probed)
}

func TestComplete_ProbeGatedOnAutoprobe(t *testing.T) {
	p, _, probed := newProvider(t, map[string]string{"noautoprobe": ""})

	p.Complete(domain.Root(), "dev/")
	assert.Empty(t, *probed)
}
