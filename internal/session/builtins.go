package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nodesh/nodesh/internal/call"
	"github.com/nodesh/nodesh/internal/discover"
	"github.com/nodesh/nodesh/pkg/domain"
	"github.com/nodesh/nodesh/pkg/parser"
)

// errExit is returned by the exit directive; the loop treats it as a clean
// end of input.
var errExit = errors.New("exit")

// subscriptionsNode is where the remote side exposes the authoritative
// subscription list of this client.
const subscriptionsNode = ".broker/currentClient"

const helpText = `# Directives

Lines starting with ` + "`!`" + ` are handled locally instead of being sent.

| Directive | Effect |
|---|---|
| ` + "`!cd [PATH]`" + ` | Change the path prefix without validating it. |
| ` + "`!tree [PATH]`" + `, ` + "`!t`" + ` | Render the cached subtree. |
| ` + "`!scanN [PATH]`" + ` | Discover the subtree up to depth N (default 3). |
| ` + "`!sub RI...`" + ` | Subscribe to signals matching each RI. |
| ` + "`!usub RI...`" + ` | Drop matching subscriptions. |
| ` + "`!subs`" + ` | Show current subscriptions. |
| ` + "`!set [OPT[=VALUE]]`" + `, ` + "`!s`" + ` | Show or change options; ` + "`noOPT`" + ` clears a boolean. |
| ` + "`!exit`" + `, ` + "`!q`" + ` | Leave the session. |
| ` + "`!help`" + `, ` + "`!h`" + ` | This text. |

An RI is ` + "`PATH[:METHOD[:SIGNAL]]`" + `; omitted parts match everything.
`

// builtinNames lists the canonical directive names offered to completion.
func builtinNames() []string {
	return []string{"cd", "exit", "help", "scan", "set", "sub", "subs", "tree", "usub"}
}

// canonicalBuiltin resolves aliases and splits the scan depth suffix.
func canonicalBuiltin(name string) (string, int) {
	if rest, ok := strings.CutPrefix(name, "scan"); ok {
		if rest == "" {
			return "scan", 0
		}
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			return "scan", n
		}
		return name, 0
	}
	switch name {
	case "t":
		return "tree", 0
	case "s":
		return "set", 0
	case "h":
		return "help", 0
	case "q", "quit":
		return "exit", 0
	case "subscribe":
		return "sub", 0
	case "unsubscribe":
		return "usub", 0
	case "subscriptions":
		return "subs", 0
	}
	return name, 0
}

// runBuiltin dispatches a `!` directive. Builtin arguments are interpreted
// here, not by the argument classifier.
func (s *Session) runBuiltin(ctx context.Context, cmd parser.Command) error {
	name, depth := canonicalBuiltin(cmd.Builtin)
	switch name {
	case "cd":
		// Deliberately unvalidated; the prompt colors unknown paths instead.
		p, err := s.builtinPath(cmd)
		if err != nil {
			return err
		}
		s.prefix = p
		return nil
	case "tree":
		p, err := s.builtinPath(cmd)
		if err != nil {
			return err
		}
		s.rend.Tree(s.cache, p)
		return nil
	case "scan":
		p, err := s.builtinPath(cmd)
		if err != nil {
			return err
		}
		if depth <= 0 {
			depth = discover.DefaultScanDepth
		}
		return s.disc.Scan(ctx, p, depth, func(p domain.NodePath) {
			s.rend.Println(p.String())
		})
	case "sub":
		return s.runSub(ctx, cmd, s.subscribe)
	case "usub":
		return s.runSub(ctx, cmd, s.unsubscribe)
	case "subs":
		return s.runSubs(ctx)
	case "set":
		return s.runSet(cmd.RawArg)
	case "help":
		s.rend.Help(helpText)
		return nil
	case "exit":
		return errExit
	default:
		return fmt.Errorf("unknown directive: !%s", cmd.Builtin)
	}
}

// builtinPath resolves the optional path argument of a directive against the
// directive's own path (which already carries the session prefix).
func (s *Session) builtinPath(cmd parser.Command) (domain.NodePath, error) {
	if !cmd.HasArg {
		return cmd.Path, nil
	}
	p, err := domain.ParsePath(cmd.RawArg)
	if err != nil {
		return domain.NodePath{}, err
	}
	return p.Resolve(cmd.Path), nil
}

func (s *Session) runSub(ctx context.Context, cmd parser.Command, apply func(context.Context, domain.RI) error) error {
	ris, err := parser.ParseRIList(cmd.RawArg, cmd.Path)
	if err != nil {
		return err
	}
	if len(ris) == 0 {
		return fmt.Errorf("%w: at least one RI is required", domain.ErrParse)
	}
	for _, ri := range ris {
		if err := apply(ctx, ri); err != nil {
			return err
		}
	}
	return nil
}

// runSubs asks the remote side for the authoritative subscription list and
// falls back to the local bookkeeping when that node is unavailable.
func (s *Session) runSubs(ctx context.Context) error {
	out := s.calls.Invoke(ctx, subscriptionsNode, "subscriptions", nil, call.QueryFirst)
	if out.State == call.Completed {
		s.rend.Value(out.Result)
		return nil
	}
	if errors.Is(out.Err, domain.ErrCancelled) {
		return out.Err
	}
	for _, ri := range s.subs {
		s.rend.Println(ri)
	}
	return nil
}

// runSet shows or changes options. A bare `!set` lists everything; an
// assignment takes either `name=value` or `name value` form.
func (s *Session) runSet(raw string) error {
	if raw == "" {
		for _, name := range s.reg.Names() {
			d, _, _ := s.reg.Lookup(name)
			s.rend.Printf("%s=%s\n", name, d.Get())
		}
		return nil
	}
	name, value := raw, ""
	if i := strings.IndexAny(raw, "= \t"); i >= 0 {
		name, value = raw[:i], strings.TrimSpace(raw[i+1:])
	}
	return s.reg.Set(name, value)
}
