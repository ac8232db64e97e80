package session

import (
	"context"

	"github.com/nodesh/nodesh/internal/render"
	"github.com/nodesh/nodesh/pkg/domain"
	"github.com/nodesh/nodesh/pkg/parser"
)

// runLs is the cached, structured rendition of the ls method. With autoget
// enabled, children exposing a conventional getter show their current value
// inline; a failed prefetch degrades to the bare name.
func (s *Session) runLs(ctx context.Context, cmd parser.Command) error {
	path := cmd.PathWithSuffix()
	children, err := s.disc.Ls(ctx, path)
	if err != nil {
		return err
	}

	items := make([]render.LsItem, 0, len(children))
	for _, name := range children {
		childPath := path.Child(name)
		entry, ok := s.cache.Lookup(childPath)
		if s.cfg.AutoGet() && (!ok || entry.Fresh < domain.FreshShallow) {
			// Probe the child so we know whether it has a getter; failures
			// only cost the value column.
			if _, derr := s.disc.Dir(ctx, childPath); derr == nil {
				entry, ok = s.cache.Lookup(childPath)
			}
			if ctx.Err() != nil {
				return domain.ErrCancelled
			}
		}

		item := render.LsItem{Name: name}
		if ok {
			e := entry
			item.Entry = &e
			if s.cfg.AutoGet() {
				if m, found := e.Method("get"); found && m.IsGetter() {
					if v, got := s.calls.AutoGet(ctx, childPath.Key(), m.Name); got {
						item.Value, item.Got = v, true
					}
				}
			}
		}
		items = append(items, item)
	}
	s.rend.Ls(items)
	return nil
}

// runDir is the structured rendition of the dir method: methods colored by
// shape, getter values inline when autoget is on, signals listed after.
func (s *Session) runDir(ctx context.Context, cmd parser.Command) error {
	path := cmd.PathWithSuffix()
	methods, err := s.disc.Dir(ctx, path)
	if err != nil {
		return err
	}

	items := make([]render.DirItem, 0, len(methods))
	for _, m := range methods {
		if m.Flags&domain.FlagNotCallable != 0 {
			continue
		}
		item := render.DirItem{Method: m}
		if s.cfg.AutoGet() && m.IsGetter() {
			if v, got := s.calls.AutoGet(ctx, path.Key(), m.Name); got {
				item.Value, item.Got = v, true
			}
		}
		if ctx.Err() != nil {
			return domain.ErrCancelled
		}
		items = append(items, item)
	}

	var signals []domain.SignalDesc
	if entry, ok := s.cache.Lookup(path); ok {
		signals = entry.Signals
	}
	s.rend.Dir(items, signals)
	return nil
}
