// Package session implements the interactive session loop: it sequences
// parsing, resolution, invocation and rendering, owns the current path
// prefix, and keeps subscribed-event delivery from tearing into whatever
// the user is typing.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/nodesh/nodesh/internal/call"
	"github.com/nodesh/nodesh/internal/complete"
	"github.com/nodesh/nodesh/internal/discover"
	"github.com/nodesh/nodesh/internal/render"
	"github.com/nodesh/nodesh/pkg/cache"
	"github.com/nodesh/nodesh/pkg/domain"
	"github.com/nodesh/nodesh/pkg/options"
	"github.com/nodesh/nodesh/pkg/parser"
	"github.com/nodesh/nodesh/pkg/ports"
)

// Session is the top-level state machine of one interactive connection.
// At most one command is in flight at a time; the loop suspends only while
// waiting for input or for a call outcome, and both waits are cancellable.
type Session struct {
	conn   ports.Connection
	cache  *cache.Cache
	cfg    *options.Config
	reg    *options.Registry
	calls  *call.Orchestrator
	disc   *discover.Engine
	comp   *complete.Provider
	rend   *render.Renderer
	reader LineReader
	log    *slog.Logger

	// interrupts delivers user interrupt pulses; each one cancels the
	// command in flight, never the session.
	interrupts <-chan struct{}

	prefix domain.NodePath

	// Local subscription bookkeeping, for display only. The authoritative
	// state lives on the remote side.
	subs []string

	// Buffered asynchronous events; flushed at the Idle boundary so they
	// never interleave mid-line with user input.
	evMu   sync.Mutex
	events []ports.Event
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithReader replaces the line source.
func WithReader(r LineReader) Option {
	return func(s *Session) { s.reader = r }
}

// WithRenderer replaces the output renderer.
func WithRenderer(r *render.Renderer) Option {
	return func(s *Session) { s.rend = r }
}

// WithInterrupts wires the channel delivering user interrupts.
func WithInterrupts(ch <-chan struct{}) Option {
	return func(s *Session) { s.interrupts = ch }
}

// New assembles a session over an established connection. The cache may be
// preloaded from the persistent store; the session mutates it only through
// the discovery engine.
func New(conn ports.Connection, c *cache.Cache, cfg *options.Config, reg *options.Registry, opts ...Option) *Session {
	s := &Session{
		conn:   conn,
		cache:  c,
		cfg:    cfg,
		reg:    reg,
		prefix: domain.Root(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.rend == nil {
		s.rend = render.NewPlain(io.Discard)
	}
	s.calls = call.New(conn, cfg, s.log)
	s.disc = discover.New(s.calls, c, cfg, s.log)
	s.comp = complete.New(c, s.disc, cfg, builtinNames())
	return s
}

// Prefix returns the current path prefix.
func (s *Session) Prefix() domain.NodePath { return s.prefix }

// Complete exposes completion candidates to the line editor collaborator.
func (s *Session) Complete(partial string) []string {
	return s.comp.Complete(s.prefix, partial)
}

// Subscriptions returns the locally remembered subscription list.
func (s *Session) Subscriptions() []string {
	return append([]string(nil), s.subs...)
}

// Startup performs the after-connect conveniences: initial subscriptions
// and, when requested, an initial scan.
func (s *Session) Startup(ctx context.Context, subs []string, scan bool, scanDepth int) error {
	for _, raw := range subs {
		ri, err := domain.ParseRI(raw, domain.Root())
		if err != nil {
			return fmt.Errorf("invalid subscription %q: %w", raw, err)
		}
		if err := s.subscribe(ctx, ri); err != nil {
			return err
		}
	}
	if scan {
		return s.disc.Scan(ctx, domain.Root(), scanDepth, nil)
	}
	return nil
}

// Run drives the loop until input ends, the connection drops, or an
// internal defect surfaces. An interrupt only ever aborts the command in
// flight; the loop itself keeps accepting input.
func (s *Session) Run(ctx context.Context) error {
	go s.collectEvents()

	for {
		s.flushEvents()
		if ctx.Err() != nil || s.disconnected() {
			return nil
		}

		_, known := s.cache.Lookup(s.prefix)
		line, err := s.reader.ReadLine(ctx, s.rend.Prompt(s.prefix, known))
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, domain.ErrCancelled):
			// Interrupt at the prompt: drop the partial line and re-prompt.
			if ctx.Err() != nil {
				return nil
			}
			s.rend.Println()
			continue
		case err != nil:
			return fmt.Errorf("input error: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmdCtx, cancel := s.commandContext(ctx)
		err = s.handleLine(cmdCtx, line)
		cancel()

		switch {
		case err == nil:
		case errors.Is(err, errExit):
			return nil
		case errors.Is(err, domain.ErrInternal):
			// A violated engine invariant is not an input condition; do not
			// leave the loop limping, surface it and die.
			return err
		case errors.Is(err, domain.ErrCancelled):
			s.rend.Println("call cancelled")
		default:
			s.rend.Error(err)
		}
	}
}

// commandContext derives the per-command context that an interrupt pulse
// cancels. Cancellation is scoped to the one in-flight command.
func (s *Session) commandContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	if s.interrupts == nil {
		return ctx, cancel
	}
	go func() {
		select {
		case <-s.interrupts:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// handleLine runs one command through Parsing, Resolving, Invoking and
// Rendering. Returned errors are recoverable unless they wrap ErrInternal.
func (s *Session) handleLine(ctx context.Context, line string) error {
	cmd, err := parser.Parse(line, s.prefix)
	if err != nil {
		return err
	}

	if cmd.Builtin != "" {
		return s.runBuiltin(ctx, cmd)
	}
	if cmd.Method == "" {
		return s.changePrefix(ctx, cmd.Path)
	}
	if !s.cfg.Raw() {
		switch cmd.Method {
		case "ls":
			return s.runLs(ctx, cmd)
		case "dir":
			return s.runDir(ctx, cmd)
		}
	}
	return s.runCall(ctx, cmd)
}

// changePrefix validates the new prefix by listing its parent, then adopts
// it. The root is always valid.
func (s *Session) changePrefix(ctx context.Context, p domain.NodePath) error {
	if len(p.Segments) > 0 {
		children, err := s.disc.Ls(ctx, p.Parent())
		if err != nil {
			return fmt.Errorf("invalid path %s: %w", p, err)
		}
		valid := false
		for _, c := range children {
			if c == p.Name() {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("invalid path: %s", p)
		}
	}
	s.prefix = p
	return nil
}

// runCall invokes an ordinary method. Every outcome except "method not
// found" additionally teaches the cache that the method exists.
func (s *Session) runCall(ctx context.Context, cmd parser.Command) error {
	path := cmd.PathWithSuffix()
	var param any
	if cmd.ArgKind == parser.ArgLiteral {
		param = cmd.Literal
	}

	out := s.calls.Invoke(ctx, path.Key(), cmd.Method, param, call.Direct)
	switch out.State {
	case call.Completed:
		s.cache.MarkMethod(path, cmd.Method)
		s.rend.Value(out.Result)
		return nil
	case call.Failed:
		var rpcErr *domain.RPCError
		if errors.As(out.Err, &rpcErr) && rpcErr.Code != domain.RPCMethodNotFound {
			s.cache.MarkMethod(path, cmd.Method)
		}
		return out.Err
	case call.TimedOut, call.Cancelled:
		return out.Err
	default:
		return fmt.Errorf("%w: call resolved in non-terminal state %s", domain.ErrInternal, out.State)
	}
}

// disconnected reports whether the connection has gone away.
func (s *Session) disconnected() bool {
	select {
	case <-s.conn.Done():
		return true
	default:
		return false
	}
}

func (s *Session) subscribe(ctx context.Context, ri domain.RI) error {
	if err := s.conn.Subscribe(ctx, ri.String()); err != nil {
		return err
	}
	for _, existing := range s.subs {
		if existing == ri.String() {
			return nil
		}
	}
	s.subs = append(s.subs, ri.String())
	return nil
}

func (s *Session) unsubscribe(ctx context.Context, ri domain.RI) error {
	if err := s.conn.Unsubscribe(ctx, ri.String()); err != nil {
		return err
	}
	for i, existing := range s.subs {
		if existing == ri.String() {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			break
		}
	}
	return nil
}

// collectEvents buffers asynchronous notifications until the loop reaches
// a safe boundary. Each event also teaches the cache that the emitting
// path and method exist, and a children-change notification invalidates
// the affected entry so the next listing refreshes it.
func (s *Session) collectEvents() {
	for ev := range s.conn.Events() {
		if p, err := domain.ParsePath("/" + ev.Path); err == nil {
			if ev.Signal == "lschng" {
				s.cache.Invalidate(p, true)
			} else {
				s.cache.MarkMethod(p, ev.Source)
			}
		}
		s.evMu.Lock()
		s.events = append(s.events, ev)
		s.evMu.Unlock()
	}
}

// flushEvents renders everything buffered since the last Idle boundary.
func (s *Session) flushEvents() {
	s.evMu.Lock()
	pending := s.events
	s.events = nil
	s.evMu.Unlock()
	for _, ev := range pending {
		s.rend.Event(ev.Path, ev.Source, ev.Signal, ev.Value)
	}
}
