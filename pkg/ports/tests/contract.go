// Package tests carries the shared contract every BlobStore adapter must
// satisfy. Adapter test files call RunBlobStoreContract with a fresh store.
package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodesh/nodesh/pkg/domain"
	"github.com/nodesh/nodesh/pkg/ports"
)

// RunBlobStoreContract exercises the BlobStore semantics the node cache
// relies on: missing keys report domain.ErrNotFound, puts replace, and
// values round-trip byte-exact.
func RunBlobStoreContract(t *testing.T, store ports.BlobStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "absent")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.Put(ctx, "key", []byte(`{"v":1}`)))
	got, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":1}`), got)

	require.NoError(t, store.Put(ctx, "key", []byte("second")))
	got, err = store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	// Keys are independent.
	require.NoError(t, store.Put(ctx, "other", []byte("x")))
	got, err = store.Get(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)
}
