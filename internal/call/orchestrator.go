// Package call is the call orchestrator: it issues RPC calls through the
// connection collaborator with bounded latency, retry and cancellation.
package call

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/nodesh/nodesh/pkg/domain"
	"github.com/nodesh/nodesh/pkg/options"
	"github.com/nodesh/nodesh/pkg/ports"
)

// State is the lifecycle state of one pending call. Transitions are
// one-directional: Pending → Sent → one terminal state; no state is ever
// revisited.
type State int

const (
	Pending State = iota
	Sent
	Completed
	Failed
	TimedOut
	Cancelled
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Sent:
		return "sent"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed out"
	case Cancelled:
		return "cancelled"
	default:
		return "invalid"
	}
}

// Mode selects the invocation strategy.
type Mode int

const (
	// Direct sends the call and waits through the full retry cycle.
	Direct Mode = iota
	// QueryFirst probes with a cheap, tightly bounded attempt first and
	// only falls back to the Direct sequence when the probe is
	// inconclusive. Used for operations expected to usually be fast.
	QueryFirst
)

// Outcome is the terminal result of one invocation.
type Outcome struct {
	State    State
	Result   any
	Err      error
	Attempts int
}

// Orchestrator issues calls on a connection according to the session
// configuration. At most one call per command is in flight; the type itself
// carries no per-call state between invocations.
type Orchestrator struct {
	conn ports.Connection
	cfg  *options.Config
	log  *slog.Logger
}

// New creates an orchestrator.
func New(conn ports.Connection, cfg *options.Config, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{conn: conn, cfg: cfg, log: log}
}

// Invoke performs one call and resolves it to a terminal outcome. The
// context carries user cancellation: cancelling it while the call is
// Pending or Sent yields a Cancelled outcome and nothing else.
func (o *Orchestrator) Invoke(ctx context.Context, path, method string, param any, mode Mode) Outcome {
	pc := pendingCall{path: path, method: method, param: param}

	if mode == QueryFirst {
		out, conclusive := o.query(ctx, &pc)
		if conclusive {
			return out
		}
	}
	return o.direct(ctx, &pc)
}

// AutoGet is the value prefetch used while rendering listings. It is a
// single attempt under the dedicated autoget timeout; any failure degrades
// to "no value" instead of failing the enclosing listing.
func (o *Orchestrator) AutoGet(ctx context.Context, path, method string) (any, bool) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AutoGetTimeout())
	defer cancel()
	res, err := o.conn.Call(attemptCtx, path, method, nil)
	if err != nil {
		o.log.Debug("autoget failed", "path", path, "method", method, "err", err)
		return nil, false
	}
	return res, true
}

type pendingCall struct {
	path     string
	method   string
	param    any
	state    State
	attempts int
}

// advance enforces the one-directional state machine. Going backwards is an
// engine defect, not an input condition.
func (pc *pendingCall) advance(next State) error {
	if next <= pc.state {
		return domain.ErrInternal
	}
	pc.state = next
	return nil
}

// query issues the cheap status probe of QueryFirst mode. The second return
// reports whether the probe was conclusive.
func (o *Orchestrator) query(ctx context.Context, pc *pendingCall) (Outcome, bool) {
	res, err := o.attempt(ctx, pc, o.cfg.CallQueryTimeout())
	switch {
	case err == nil:
		return o.resolve(pc, Completed, res, nil), true
	case ctx.Err() != nil:
		return o.resolve(pc, Cancelled, nil, domain.ErrCancelled), true
	case errors.Is(err, context.DeadlineExceeded):
		// Inconclusive; fall back to the direct sequence.
		pc.state = Pending
		return Outcome{}, false
	default:
		return o.resolve(pc, Failed, nil, err), true
	}
}

// direct runs the full bounded retry cycle: up to call_attempts sends, each
// waiting call_timeout for a response, with a call_retry_timeout gap before
// the next send. Exhausting the cycle resolves to TimedOut, never a hang.
func (o *Orchestrator) direct(ctx context.Context, pc *pendingCall) Outcome {
	attempts := o.cfg.CallAttempts()
	for {
		res, err := o.attempt(ctx, pc, o.cfg.CallTimeout())
		switch {
		case err == nil:
			return o.resolve(pc, Completed, res, nil)
		case ctx.Err() != nil:
			return o.resolve(pc, Cancelled, nil, domain.ErrCancelled)
		case errors.Is(err, context.DeadlineExceeded):
			if pc.attempts >= attempts {
				return o.resolve(pc, TimedOut, nil, domain.ErrTimeout)
			}
			o.log.Debug("call attempt timed out, retrying",
				"path", pc.path, "method", pc.method, "attempt", pc.attempts)
			if !o.sleep(ctx, o.cfg.CallRetryTimeout()) {
				return o.resolve(pc, Cancelled, nil, domain.ErrCancelled)
			}
			pc.state = Pending
		default:
			return o.resolve(pc, Failed, nil, err)
		}
	}
}

// attempt sends once and waits up to timeout.
func (o *Orchestrator) attempt(ctx context.Context, pc *pendingCall, timeout time.Duration) (any, error) {
	if err := pc.advance(Sent); err != nil {
		return nil, err
	}
	pc.attempts++
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return o.conn.Call(attemptCtx, pc.path, pc.method, pc.param)
}

// sleep waits for the retry gap, abandoning it on cancellation.
func (o *Orchestrator) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) resolve(pc *pendingCall, state State, res any, err error) Outcome {
	pc.state = state
	o.log.Debug("call resolved",
		"path", pc.path, "method", pc.method, "state", state.String(), "attempts", pc.attempts)
	return Outcome{State: state, Result: res, Err: err, Attempts: pc.attempts}
}
