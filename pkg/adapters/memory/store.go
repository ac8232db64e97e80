// Package memory provides an in-memory BlobStore, mainly for tests and for
// sessions running with persistence disabled.
package memory

import (
	"context"
	"sync"

	"github.com/nodesh/nodesh/pkg/domain"
)

// Store implements ports.BlobStore in memory. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns a copy of the blob stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

// Put stores a copy of the blob under key.
func (s *Store) Put(ctx context.Context, key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), blob...)
	return nil
}
