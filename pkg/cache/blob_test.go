package cache_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodesh/nodesh/pkg/adapters/memory"
	"github.com/nodesh/nodesh/pkg/cache"
	"github.com/nodesh/nodesh/pkg/domain"
)

func TestBlob_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	c := cache.New()
	c.Merge(path(t, "/dev"), []string{"status"},
		[]domain.MethodDesc{{Name: "get", Flags: domain.FlagGetter}},
		[]domain.SignalDesc{{Name: "chng", Source: "get"}},
		domain.FreshChildren)
	require.NoError(t, c.Save(ctx, store, "tcp://host"))

	restored := cache.New()
	require.NoError(t, restored.Load(ctx, store, "tcp://host"))

	want, _ := c.Lookup(path(t, "/dev"))
	got, ok := restored.Lookup(path(t, "/dev"))
	require.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, c.Len(), restored.Len())
}

func TestBlob_MissingKeyLeavesCacheEmpty(t *testing.T) {
	c := cache.New()
	require.NoError(t, c.Load(context.Background(), memory.NewStore(), "absent"))
	assert.Equal(t, 0, c.Len())
}

func TestBlob_CorruptBlobBehavesLikeNoBlob(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	for _, blob := range []string{"not json", `{"version":99,"entries":{}}`} {
		require.NoError(t, store.Put(ctx, "k", []byte(blob)))
		c := cache.New()
		require.NoError(t, c.Load(ctx, store, "k"))
		assert.Equal(t, 0, c.Len())
	}
}
