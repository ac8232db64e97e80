// Package complete produces ranked candidates for interactive completion.
// It reads only the cache; discovery happens opportunistically in the
// background so candidate production never blocks.
package complete

import (
	"context"
	"sort"
	"strings"

	"github.com/nodesh/nodesh/internal/discover"
	"github.com/nodesh/nodesh/pkg/cache"
	"github.com/nodesh/nodesh/pkg/domain"
	"github.com/nodesh/nodesh/pkg/options"
)

// Provider supplies completion candidates from cached tree knowledge.
type Provider struct {
	cache    *cache.Cache
	disc     *discover.Engine
	cfg      *options.Config
	builtins []string

	// probe launches the background autoprobe; replaced in tests to keep
	// them deterministic.
	probe func(p domain.NodePath)
}

// New creates a provider. builtins is the directive name list offered for
// `!`-prefixed tokens.
func New(c *cache.Cache, disc *discover.Engine, cfg *options.Config, builtins []string) *Provider {
	p := &Provider{cache: c, disc: disc, cfg: cfg, builtins: append([]string(nil), builtins...)}
	sort.Strings(p.builtins)
	p.probe = func(path domain.NodePath) {
		go disc.Autoprobe(context.Background(), path)
	}
	return p
}

// Complete returns candidates for the partial token under the current
// prefix, ordered: builtin directives first (when the token looks like
// one), then cached child, method and signal names at the resolved path.
//
// Only already-cached knowledge is returned. When the resolved path is
// absent or shallow and autoprobing is enabled, a background probe is
// fired; its results serve the next completion request.
func (p *Provider) Complete(prefix domain.NodePath, partial string) []string {
	if strings.HasPrefix(partial, "!") {
		return p.completeBuiltin(partial)
	}

	// Split the token into the finished path part and the fragment still
	// being typed.
	pathPart, fragment := "", partial
	hasColon := false
	if i := strings.IndexByte(partial, ':'); i >= 0 {
		pathPart, fragment = partial[:i], partial[i+1:]
		hasColon = true
	} else if i := strings.LastIndexByte(partial, '/'); i >= 0 {
		pathPart, fragment = partial[:i], partial[i+1:]
	}

	base, err := domain.ParsePath(pathPart)
	if err != nil {
		return nil
	}
	at := base.Resolve(prefix)

	if entry, ok := p.cache.Lookup(at); !ok || entry.Fresh < domain.FreshChildren {
		if p.cfg.AutoProbe() {
			p.probe(at)
		}
	}

	entry, ok := p.cache.Lookup(at)
	if !ok {
		return nil
	}

	var out []string
	if !hasColon {
		for _, child := range entry.Children {
			if strings.HasPrefix(child, fragment) {
				out = append(out, child)
			}
		}
	}
	// Methods complete after a colon, and also for bare tokens (a token
	// without a separator may still become a method on the prefix).
	if hasColon || !strings.Contains(partial, "/") {
		names := methodNames(entry)
		for _, name := range names {
			if strings.HasPrefix(name, fragment) && !contains(out, name) {
				out = append(out, name)
			}
		}
		for _, sig := range entry.Signals {
			label := sig.Source + ":" + sig.Name
			if strings.HasPrefix(label, fragment) && !contains(out, label) {
				out = append(out, label)
			}
		}
	}
	return out
}

func (p *Provider) completeBuiltin(partial string) []string {
	name := strings.TrimPrefix(partial, "!")
	var out []string
	for _, b := range p.builtins {
		if strings.HasPrefix(b, name) {
			out = append(out, "!"+b)
		}
	}
	return out
}

// methodNames returns cached method names, always including the standard
// listing methods every node answers.
func methodNames(entry domain.NodeEntry) []string {
	names := []string{"dir", "ls"}
	for _, m := range entry.Methods {
		if m.Flags&domain.FlagNotCallable != 0 {
			continue
		}
		if !contains(names, m.Name) {
			names = append(names, m.Name)
		}
	}
	sort.Strings(names)
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
