// Package file provides the default on-disk BlobStore. Blobs live as
// individual files under a base directory, one per cache key.
package file

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/nodesh/nodesh/pkg/domain"
)

// Store implements ports.BlobStore on the local filesystem.
type Store struct {
	BasePath string
}

// NewStore creates a file store rooted at basePath. An empty basePath
// defaults to ~/.nodesh/cache (falling back to a relative directory when
// the home directory is unknown).
func NewStore(basePath string) *Store {
	if basePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		basePath = filepath.Join(home, ".nodesh", "cache")
	}
	return &Store{BasePath: basePath}
}

// path maps a cache key to a file name. Keys are connection targets and may
// contain separators, so they get escaped.
func (s *Store) path(key string) string {
	return filepath.Join(s.BasePath, url.PathEscape(key)+".json")
}

// Get reads the blob stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	return data, nil
}

// Put writes the blob under key, creating the base directory if needed.
func (s *Store) Put(ctx context.Context, key string, blob []byte) error {
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure cache directory: %w", err)
	}
	if err := os.WriteFile(s.path(key), blob, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}
