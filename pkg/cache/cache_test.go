package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodesh/nodesh/pkg/cache"
	"github.com/nodesh/nodesh/pkg/domain"
)

func path(t *testing.T, s string) domain.NodePath {
	t.Helper()
	p, err := domain.ParsePath(s)
	require.NoError(t, err)
	return p
}

func TestMerge_MaterializesAncestors(t *testing.T) {
	c := cache.New()
	c.Merge(path(t, "/a/b/c"), []string{"d"}, nil, nil, domain.FreshChildren)

	root, ok := c.Lookup(domain.Root())
	require.True(t, ok)
	assert.True(t, root.HasChild("a"))

	a, ok := c.Lookup(path(t, "/a"))
	require.True(t, ok)
	assert.True(t, a.HasChild("b"))

	leaf, ok := c.Lookup(path(t, "/a/b/c"))
	require.True(t, ok)
	assert.Equal(t, []string{"d"}, leaf.Children)
	assert.Equal(t, domain.FreshChildren, leaf.Fresh)
}

func TestMerge_CommutativeAndIdempotent(t *testing.T) {
	p := path(t, "/dev")
	m1 := domain.MethodDesc{Name: "get", Flags: domain.FlagGetter, Result: "Int"}
	m2 := domain.MethodDesc{Name: "get", Access: domain.AccessRead, Param: "Null"}

	apply := func(first, second domain.MethodDesc) domain.NodeEntry {
		c := cache.New()
		c.Merge(p, []string{"x"}, []domain.MethodDesc{first}, nil, domain.FreshShallow)
		c.Merge(p, []string{"x", "y"}, []domain.MethodDesc{second}, nil, domain.FreshShallow)
		e, ok := c.Lookup(p)
		require.True(t, ok)
		return e
	}

	ab := apply(m1, m2)
	ba := apply(m2, m1)
	assert.Equal(t, ab, ba)
	assert.Equal(t, []string{"x", "y"}, ab.Children)

	got, ok := ab.Method("get")
	require.True(t, ok)
	assert.Equal(t, domain.FlagGetter, got.Flags)
	assert.Equal(t, domain.AccessRead, got.Access)
	assert.Equal(t, "Int", got.Result)
	assert.Equal(t, "Null", got.Param)

	// Replaying a merge changes nothing.
	c := cache.New()
	c.Merge(p, []string{"x"}, []domain.MethodDesc{m1}, nil, domain.FreshShallow)
	once, _ := c.Lookup(p)
	c.Merge(p, []string{"x"}, []domain.MethodDesc{m1}, nil, domain.FreshShallow)
	twice, _ := c.Lookup(p)
	assert.Equal(t, once, twice)
}

func TestMerge_FreshnessOnlyMovesUp(t *testing.T) {
	c := cache.New()
	p := path(t, "/dev")

	c.Merge(p, nil, nil, nil, domain.FreshChildren)
	c.Merge(p, nil, nil, nil, domain.FreshUnknown)

	e, ok := c.Lookup(p)
	require.True(t, ok)
	assert.Equal(t, domain.FreshChildren, e.Fresh)
}

func TestMarkMethod(t *testing.T) {
	c := cache.New()
	p := path(t, "/dev")

	c.MarkMethod(p, "reset")
	e, ok := c.Lookup(p)
	require.True(t, ok)
	_, found := e.Method("reset")
	assert.True(t, found)

	// Marking never downgrades an existing descriptor.
	c.Merge(p, nil, []domain.MethodDesc{{Name: "reset", Flags: domain.FlagSetter}}, nil, domain.FreshShallow)
	c.MarkMethod(p, "reset")
	e, _ = c.Lookup(p)
	m, _ := e.Method("reset")
	assert.Equal(t, domain.FlagSetter, m.Flags)

	c.MarkMethod(p, "")
	e, _ = c.Lookup(p)
	assert.Len(t, e.Methods, 1)
}

func TestInvalidate_Recursive(t *testing.T) {
	c := cache.New()
	c.Merge(path(t, "/a/b/c"), nil, nil, nil, domain.FreshShallow)
	c.Merge(path(t, "/a/bb"), nil, nil, nil, domain.FreshShallow)

	c.Invalidate(path(t, "/a/b"), true)

	_, ok := c.Lookup(path(t, "/a/b"))
	assert.False(t, ok)
	_, ok = c.Lookup(path(t, "/a/b/c"))
	assert.False(t, ok)

	// Removal is exact: the sibling sharing the name prefix survives.
	_, ok = c.Lookup(path(t, "/a/bb"))
	assert.True(t, ok)

	// The parent stops listing the invalidated child.
	a, ok := c.Lookup(path(t, "/a"))
	require.True(t, ok)
	assert.False(t, a.HasChild("b"))
	assert.True(t, a.HasChild("bb"))
}

func TestInvalidate_NonRecursiveKeepsDescendants(t *testing.T) {
	c := cache.New()
	c.Merge(path(t, "/a/b/c"), nil, nil, nil, domain.FreshShallow)

	c.Invalidate(path(t, "/a/b"), false)

	_, ok := c.Lookup(path(t, "/a/b"))
	assert.False(t, ok)
	_, ok = c.Lookup(path(t, "/a/b/c"))
	assert.True(t, ok)
}

func TestPaths_Sorted(t *testing.T) {
	c := cache.New()
	c.Merge(path(t, "/b"), nil, nil, nil, domain.FreshUnknown)
	c.Merge(path(t, "/a/x"), nil, nil, nil, domain.FreshUnknown)

	var got []string
	for _, p := range c.Paths() {
		got = append(got, p.String())
	}
	assert.Equal(t, []string{"/", "/a", "/a/x", "/b"}, got)
}
