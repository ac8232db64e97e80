// Package cache is the discovery cache: everything the session has learned
// about the shape of the remote tree, keyed by absolute path. The cache is
// a best-effort hint, it may always be stale relative to the live tree.
package cache

import (
	"sort"
	"strings"
	"sync"

	"github.com/nodesh/nodesh/pkg/domain"
)

// Cache maps absolute node paths to cached knowledge. It owns its entries
// exclusively; lookups return copies. Safe for concurrent use: the
// completion provider probes from a background goroutine.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*domain.NodeEntry
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[string]*domain.NodeEntry)}
}

// Lookup returns a copy of the entry for the given path.
func (c *Cache) Lookup(p domain.NodePath) (domain.NodeEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[p.Key()]
	if !ok {
		return domain.NodeEntry{}, false
	}
	return copyEntry(e), true
}

// Merge unions fresh discovery results into the entry for path, creating it
// if needed. Parent entries learn the path's segments as children so the
// tree stays navigable. The freshness marker only ever moves up. Merge is
// commutative and idempotent, so interleaved merges are always safe.
func (c *Cache) Merge(p domain.NodePath, children []string, methods []domain.MethodDesc, signals []domain.SignalDesc, fresh domain.Freshness) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.materializeLocked(p)
	e := c.entries[p.Key()]

	for _, child := range children {
		e.Children = insertString(e.Children, child)
	}
	for _, m := range methods {
		e.Methods = mergeMethod(e.Methods, m)
	}
	for _, s := range signals {
		e.Signals = mergeSignal(e.Signals, s)
	}
	if fresh > e.Fresh {
		e.Fresh = fresh
	}
}

// MarkMethod records that a method exists on path without describing it.
// Every call outcome except "method not found" teaches the cache this much.
func (c *Cache) MarkMethod(p domain.NodePath, name string) {
	if name == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.materializeLocked(p)
	e := c.entries[p.Key()]
	e.Methods = mergeMethod(e.Methods, domain.MethodDesc{Name: name})
}

// materializeLocked ensures entries exist for the path and all ancestors,
// and that each ancestor lists the next segment as a child.
func (c *Cache) materializeLocked(p domain.NodePath) {
	cur := domain.Root()
	for i := 0; i <= len(p.Segments); i++ {
		key := cur.Key()
		if _, ok := c.entries[key]; !ok {
			c.entries[key] = &domain.NodeEntry{}
		}
		if i < len(p.Segments) {
			e := c.entries[key]
			e.Children = insertString(e.Children, p.Segments[i])
			cur = cur.Child(p.Segments[i])
		}
	}
}

// Invalidate removes the entry for path, and with recursive also every
// entry whose path extends it. The path is also removed from its parent's
// child list, so lookups and completion stop offering it.
func (c *Cache) Invalidate(p domain.NodePath, recursive bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := p.Key()
	delete(c.entries, key)
	if recursive {
		prefix := key + "/"
		if key == "" {
			prefix = ""
		}
		for k := range c.entries {
			if k != "" && strings.HasPrefix(k, prefix) {
				delete(c.entries, k)
			}
		}
	}
	if name := p.Name(); name != "" {
		if parent, ok := c.entries[p.Parent().Key()]; ok {
			parent.Children = removeString(parent.Children, name)
		}
	}
}

// Paths returns all cached paths in sorted order.
func (c *Cache) Paths() []domain.NodePath {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.NodePath, 0, len(keys))
	for _, k := range keys {
		p, err := domain.ParsePath("/" + k)
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func copyEntry(e *domain.NodeEntry) domain.NodeEntry {
	return domain.NodeEntry{
		Children: append([]string(nil), e.Children...),
		Methods:  append([]domain.MethodDesc(nil), e.Methods...),
		Signals:  append([]domain.SignalDesc(nil), e.Signals...),
		Fresh:    e.Fresh,
	}
}

// insertString inserts s into a sorted slice, keeping it unique.
func insertString(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	if i < len(list) && list[i] == s {
		return list
	}
	list = append(list, "")
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}

func removeString(list []string, s string) []string {
	i := sort.SearchStrings(list, s)
	if i < len(list) && list[i] == s {
		return append(list[:i], list[i+1:]...)
	}
	return list
}

// mergeMethod unions a descriptor into a sorted method list. Two
// descriptors for the same name combine field-wise with a deterministic,
// order-independent resolution so Merge stays commutative.
func mergeMethod(list []domain.MethodDesc, m domain.MethodDesc) []domain.MethodDesc {
	i := sort.Search(len(list), func(i int) bool { return list[i].Name >= m.Name })
	if i < len(list) && list[i].Name == m.Name {
		old := &list[i]
		old.Flags |= m.Flags
		if m.Access > old.Access {
			old.Access = m.Access
		}
		old.Param = pickString(old.Param, m.Param)
		old.Result = pickString(old.Result, m.Result)
		return list
	}
	list = append(list, domain.MethodDesc{})
	copy(list[i+1:], list[i:])
	list[i] = m
	return list
}

func mergeSignal(list []domain.SignalDesc, s domain.SignalDesc) []domain.SignalDesc {
	i := sort.Search(len(list), func(i int) bool {
		if list[i].Name == s.Name {
			return list[i].Source >= s.Source
		}
		return list[i].Name > s.Name
	})
	if i < len(list) && list[i] == s {
		return list
	}
	list = append(list, domain.SignalDesc{})
	copy(list[i+1:], list[i:])
	list[i] = s
	return list
}

// pickString resolves two competing string fields without caring about
// merge order: non-empty beats empty, ties break lexicographically.
func pickString(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if a >= b {
		return a
	}
	return b
}
