package ports

import "context"

// BlobStore persists opaque blobs under string keys. The node cache uses it
// keyed by the normalized connection target, so discovered tree knowledge
// survives across process invocations.
type BlobStore interface {
	// Get returns the blob stored under key, or domain.ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores the blob under key, replacing any previous value.
	Put(ctx context.Context, key string, blob []byte) error
}
