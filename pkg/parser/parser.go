// Package parser turns raw command lines into structured commands. It is a
// pure function of the input and the current path prefix; no component
// state is consulted.
package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nodesh/nodesh/pkg/cpon"
	"github.com/nodesh/nodesh/pkg/domain"
)

// ArgKind tags the result of the two-stage argument classification.
type ArgKind int

const (
	// ArgNone means the command carried no argument.
	ArgNone ArgKind = iota
	// ArgLiteral means the argument parsed as a structured literal.
	ArgLiteral
	// ArgPathSuffix means the argument is a bare path fragment to append to
	// the command path before the method applies.
	ArgPathSuffix
)

// Command is one parsed command line. Exactly one of the interpretations
// applies: a builtin directive (Builtin != ""), a method call
// (Method != ""), or a bare path-prefix change.
type Command struct {
	// Path is the resolved absolute path the command operates on.
	Path domain.NodePath
	// Method is the method to call; empty for a bare path change.
	Method string
	// Builtin is the directive name for `!name` commands, without the bang.
	Builtin string

	// RawArg is the argument text exactly as typed.
	RawArg string
	// HasArg reports whether an argument position was present at all.
	HasArg bool
	// ArgKind is the classification of RawArg.
	ArgKind ArgKind
	// Literal is the decoded value when ArgKind == ArgLiteral.
	Literal any
}

// PathWithSuffix returns the command path extended by the argument when it
// classified as a path suffix, the plain command path otherwise.
func (c Command) PathWithSuffix() domain.NodePath {
	if c.ArgKind != ArgPathSuffix {
		return c.Path
	}
	p, err := c.Path.Join(c.RawArg)
	if err != nil {
		return c.Path
	}
	return p
}

// Parse parses a single command line against the current prefix.
//
// Grammar: `[PATH][:METHOD][ ARGUMENT]`. The head token splits on the first
// colon into path and method; a head without a colon is a path when it
// contains a separator and a method otherwise. An absolute path replaces
// the prefix, a relative one extends it.
//
// The argument classifier is an explicit two-stage branch: a successful
// structured-literal parse wins; otherwise the text is a path suffix; text
// that is valid as neither is a parse error.
func Parse(line string, prefix domain.NodePath) (Command, error) {
	line = strings.TrimLeft(line, " \t")
	head, arg, hasArg := strings.Cut(line, " ")

	var cmd Command
	var rawPath string
	switch {
	case strings.Contains(head, ":"):
		p, m, _ := strings.Cut(head, ":")
		rawPath, cmd.Method = p, m
	case strings.Contains(head, "/"):
		rawPath = head
	default:
		cmd.Method = head
	}

	if strings.HasPrefix(cmd.Method, "!") {
		cmd.Builtin = cmd.Method[1:]
		cmd.Method = ""
	}

	p, err := domain.ParsePath(rawPath)
	if err != nil {
		return Command{}, err
	}
	cmd.Path = p.Resolve(prefix)

	if hasArg {
		cmd.HasArg = true
		cmd.RawArg = strings.TrimSpace(arg)
		if cmd.Builtin != "" {
			// Builtins interpret their own argument in Resolving.
			return cmd, nil
		}
		if err := classify(&cmd); err != nil {
			return Command{}, err
		}
	}
	return cmd, nil
}

// classify implements the literal-first argument policy. An empty argument
// counts as no argument at all.
func classify(cmd *Command) error {
	if cmd.RawArg == "" {
		cmd.ArgKind = ArgNone
		cmd.HasArg = false
		return nil
	}
	if v, err := cpon.Decode(cmd.RawArg); err == nil {
		cmd.ArgKind = ArgLiteral
		cmd.Literal = v
		return nil
	}
	if pathSuffixOK(cmd.RawArg) {
		cmd.ArgKind = ArgPathSuffix
		return nil
	}
	return fmt.Errorf("%w: argument %q is neither a literal nor a path", domain.ErrParse, cmd.RawArg)
}

// pathSuffixOK reports whether the text can stand as a path fragment. Path
// segments never contain whitespace, colons or bracketing characters.
func pathSuffixOK(s string) bool {
	if s == "" {
		return false
	}
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	return !strings.ContainsAny(s, ":\"[]{}<>")
}

// ParseRIList parses a whitespace separated list of RI shorthands as used
// by the subscribe and unsubscribe builtins. Each token resolves its path
// component against the given base path.
func ParseRIList(raw string, base domain.NodePath) ([]domain.RI, error) {
	var out []domain.RI
	for _, token := range strings.Fields(raw) {
		ri, err := domain.ParseRI(token, base)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid RI %q", domain.ErrParse, token)
		}
		out = append(out, ri)
	}
	return out, nil
}
