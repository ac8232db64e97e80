package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nodesh/nodesh/pkg/domain"
	"github.com/nodesh/nodesh/pkg/ports"
)

// blobVersion guards the persisted format. Bumping it simply discards old
// caches, they are only hints.
const blobVersion = 1

type blob struct {
	Version int                         `json:"version"`
	Entries map[string]domain.NodeEntry `json:"entries"`
}

// Load replaces the cache content with the blob stored under key. A missing
// or corrupt blob leaves the cache empty and returns nil: persisted state
// must never abort startup. Only genuine store failures are returned, and
// even those the caller may choose to log and ignore.
func (c *Cache) Load(ctx context.Context, store ports.BlobStore, key string) error {
	data, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("cache load: %w", err)
	}

	var b blob
	if err := json.Unmarshal(data, &b); err != nil || b.Version != blobVersion {
		// Corrupt or outdated blob behaves exactly like no blob at all.
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*domain.NodeEntry, len(b.Entries))
	for k, e := range b.Entries {
		e := e
		c.entries[k] = &e
	}
	return nil
}

// Save writes the cache content under key.
func (c *Cache) Save(ctx context.Context, store ports.BlobStore, key string) error {
	c.mu.RLock()
	b := blob{Version: blobVersion, Entries: make(map[string]domain.NodeEntry, len(c.entries))}
	for k, e := range c.entries {
		b.Entries[k] = copyEntry(e)
	}
	c.mu.RUnlock()

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("cache save: %w", err)
	}
	if err := store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("cache save: %w", err)
	}
	return nil
}
