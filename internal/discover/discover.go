// Package discover populates the node cache: on-demand autoprobing of
// single nodes and explicit bounded scans of whole subtrees.
package discover

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mitchellh/mapstructure"

	"github.com/nodesh/nodesh/internal/call"
	"github.com/nodesh/nodesh/pkg/cache"
	"github.com/nodesh/nodesh/pkg/domain"
	"github.com/nodesh/nodesh/pkg/options"
)

// DefaultScanDepth bounds a scan when the user gives no explicit depth.
const DefaultScanDepth = 3

// Engine drives discovery through the call orchestrator and records the
// results in the cache. It is the only component that writes tree knowledge.
type Engine struct {
	calls *call.Orchestrator
	cache *cache.Cache
	cfg   *options.Config
	log   *slog.Logger
}

// New creates a discovery engine.
func New(calls *call.Orchestrator, c *cache.Cache, cfg *options.Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{calls: calls, cache: c, cfg: cfg, log: log}
}

// Ls lists the children of path, merging the result into the cache. A
// remote error invalidates the path recursively: the remote said the node
// is not what we remembered.
func (e *Engine) Ls(ctx context.Context, p domain.NodePath) ([]string, error) {
	out := e.calls.Invoke(ctx, p.Key(), "ls", nil, call.QueryFirst)
	if out.Err != nil {
		var rpcErr *domain.RPCError
		if errors.As(out.Err, &rpcErr) {
			e.cache.Invalidate(p, true)
		}
		return nil, out.Err
	}
	children, err := decodeChildren(out.Result)
	if err != nil {
		return nil, err
	}
	// Replace semantics: the listing is the authoritative child set.
	if entry, ok := e.cache.Lookup(p); ok {
		for _, old := range entry.Children {
			if !contains(children, old) {
				e.cache.Invalidate(p.Child(old), true)
			}
		}
	}
	e.cache.Merge(p, children, nil, nil, domain.FreshChildren)
	return children, nil
}

// Dir lists the methods and signals of path, merging the result.
func (e *Engine) Dir(ctx context.Context, p domain.NodePath) ([]domain.MethodDesc, error) {
	out := e.calls.Invoke(ctx, p.Key(), "dir", nil, call.QueryFirst)
	if out.Err != nil {
		var rpcErr *domain.RPCError
		if errors.As(out.Err, &rpcErr) {
			e.cache.Invalidate(p, true)
		}
		return nil, out.Err
	}
	methods, signals, err := decodeDir(out.Result)
	if err != nil {
		return nil, err
	}
	e.cache.Merge(p, nil, methods, signals, domain.FreshShallow)
	return methods, nil
}

// Probe discovers both methods and children of a node, skipping whatever
// the cache already holds at sufficient freshness.
func (e *Engine) Probe(ctx context.Context, p domain.NodePath) error {
	entry, ok := e.cache.Lookup(p)
	if !ok || entry.Fresh < domain.FreshShallow {
		if _, err := e.Dir(ctx, p); err != nil {
			return err
		}
	}
	entry, ok = e.cache.Lookup(p)
	if !ok || entry.Fresh < domain.FreshChildren {
		if _, err := e.Ls(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Autoprobe is the opportunistic background discovery behind completion.
// It does nothing unless the autoprobe option is set and the cache entry is
// absent or shallow, and it never reports failure to the user.
func (e *Engine) Autoprobe(ctx context.Context, p domain.NodePath) {
	if !e.cfg.AutoProbe() {
		return
	}
	if entry, ok := e.cache.Lookup(p); ok && entry.Fresh >= domain.FreshChildren {
		return
	}
	if err := e.Probe(ctx, p); err != nil {
		e.log.Debug("autoprobe failed", "path", p.String(), "err", err)
	}
}

// ScanProgress is invoked per visited path during a scan.
type ScanProgress func(p domain.NodePath)

// Scan walks the subtree under path breadth-first, bounded by depth. Every
// visited node gets probed; when the autoget option is set, getter values
// are prefetched too so the cache warms up for listings. One failing branch
// records that sub-path as unknown and never aborts the traversal, and
// siblings are visited in sorted order so output is reproducible.
func (e *Engine) Scan(ctx context.Context, p domain.NodePath, depth int, progress ScanProgress) error {
	if depth <= 0 {
		depth = DefaultScanDepth
	}
	type item struct {
		path  domain.NodePath
		depth int
	}
	queue := []item{{path: p, depth: depth}}
	for len(queue) > 0 {
		if ctx.Err() != nil {
			return domain.ErrCancelled
		}
		cur := queue[0]
		queue = queue[1:]
		if progress != nil {
			progress(cur.path)
		}
		if err := e.Probe(ctx, cur.path); err != nil {
			if errors.Is(err, domain.ErrCancelled) {
				return err
			}
			e.log.Debug("scan branch failed", "path", cur.path.String(), "err", err)
			// Record the sub-path as merely known-about and move on to
			// siblings; one failing branch never aborts the whole scan.
			e.cache.Merge(cur.path, nil, nil, nil, domain.FreshUnknown)
			continue
		}
		entry, ok := e.cache.Lookup(cur.path)
		if !ok {
			continue
		}
		if e.cfg.AutoGet() {
			for _, m := range entry.Methods {
				if m.IsGetter() {
					e.calls.AutoGet(ctx, cur.path.Key(), m.Name)
				}
			}
		}
		if cur.depth > 1 {
			for _, child := range entry.Children {
				queue = append(queue, item{path: cur.path.Child(child), depth: cur.depth - 1})
			}
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// decodeChildren coerces an "ls" result into child names. Adapters may hand
// back []string directly or the generic []any a wire codec produces.
func decodeChildren(result any) ([]string, error) {
	switch t := result.(type) {
	case nil:
		return nil, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			s, ok := v.(string)
			if !ok {
				return nil, errors.New("listing returned a non-string child name")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, errors.New("listing returned an unexpected result shape")
	}
}

// decodeDir coerces a "dir" result into method and signal descriptors.
// Typed descriptors pass through; generic maps decode via mapstructure.
func decodeDir(result any) ([]domain.MethodDesc, []domain.SignalDesc, error) {
	items, ok := result.([]any)
	if !ok {
		if typed, ok := result.([]domain.MethodDesc); ok {
			return typed, nil, nil
		}
		return nil, nil, errors.New("dir returned an unexpected result shape")
	}
	var methods []domain.MethodDesc
	var signals []domain.SignalDesc
	for _, item := range items {
		switch t := item.(type) {
		case domain.MethodDesc:
			methods = append(methods, t)
		case domain.SignalDesc:
			signals = append(signals, t)
		case map[string]any:
			var m domain.MethodDesc
			if err := mapstructure.Decode(t, &m); err != nil || m.Name == "" {
				continue
			}
			methods = append(methods, m)
		}
	}
	return methods, signals, nil
}
