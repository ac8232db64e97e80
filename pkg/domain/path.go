package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// NodePath is an ordered sequence of non-empty path segments plus an
// "absolute" flag. Paths are immutable; every method returns a new value.
//
// There are no `..`/`.` semantics: both are ordinary segment names. This is
// a policy choice, relative navigation happens through the session prefix.
type NodePath struct {
	Segments []string
	Absolute bool
}

// Root is the absolute root path.
func Root() NodePath {
	return NodePath{Absolute: true}
}

// ParsePath parses a textual path. A leading separator marks the path as
// absolute. Empty segments are dropped, so normalization is idempotent.
// Segments must not contain whitespace.
func ParsePath(s string) (NodePath, error) {
	p := NodePath{Absolute: strings.HasPrefix(s, "/")}
	for _, seg := range strings.Split(s, "/") {
		if seg == "" {
			continue
		}
		if strings.IndexFunc(seg, unicode.IsSpace) >= 0 {
			return NodePath{}, fmt.Errorf("%w: path segment %q contains whitespace", ErrParse, seg)
		}
		p.Segments = append(p.Segments, seg)
	}
	return p, nil
}

// Resolve applies this path against a prefix. An absolute path replaces the
// prefix entirely; a relative one extends it segment-wise. The result is
// always absolute.
func (p NodePath) Resolve(prefix NodePath) NodePath {
	if p.Absolute {
		return NodePath{Segments: append([]string(nil), p.Segments...), Absolute: true}
	}
	segs := make([]string, 0, len(prefix.Segments)+len(p.Segments))
	segs = append(segs, prefix.Segments...)
	segs = append(segs, p.Segments...)
	return NodePath{Segments: segs, Absolute: true}
}

// Join appends a textual suffix to the path.
func (p NodePath) Join(suffix string) (NodePath, error) {
	sp, err := ParsePath(suffix)
	if err != nil {
		return NodePath{}, err
	}
	segs := make([]string, 0, len(p.Segments)+len(sp.Segments))
	segs = append(segs, p.Segments...)
	segs = append(segs, sp.Segments...)
	return NodePath{Segments: segs, Absolute: p.Absolute}, nil
}

// Parent returns the path without its last segment. The root is its own
// parent.
func (p NodePath) Parent() NodePath {
	if len(p.Segments) == 0 {
		return p
	}
	return NodePath{Segments: append([]string(nil), p.Segments[:len(p.Segments)-1]...), Absolute: p.Absolute}
}

// Name returns the final segment, or "" for the root.
func (p NodePath) Name() string {
	if len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[len(p.Segments)-1]
}

// Child returns the path extended by one segment.
func (p NodePath) Child(name string) NodePath {
	segs := make([]string, 0, len(p.Segments)+1)
	segs = append(segs, p.Segments...)
	segs = append(segs, name)
	return NodePath{Segments: segs, Absolute: p.Absolute}
}

// HasPrefix reports whether p equals prefix or extends it.
func (p NodePath) HasPrefix(prefix NodePath) bool {
	if len(prefix.Segments) > len(p.Segments) {
		return false
	}
	for i, seg := range prefix.Segments {
		if p.Segments[i] != seg {
			return false
		}
	}
	return true
}

// Equal reports segment-wise equality. The absolute flag is ignored, two
// resolved paths are always absolute.
func (p NodePath) Equal(other NodePath) bool {
	if len(p.Segments) != len(other.Segments) {
		return false
	}
	for i, seg := range p.Segments {
		if other.Segments[i] != seg {
			return false
		}
	}
	return true
}

// String renders the path. Absolute paths carry a leading separator; the
// absolute root renders as "/".
func (p NodePath) String() string {
	joined := strings.Join(p.Segments, "/")
	if p.Absolute {
		return "/" + joined
	}
	return joined
}

// Key is the canonical cache key of a resolved path: the joined segments
// without a leading separator, so the root keys as "".
func (p NodePath) Key() string {
	return strings.Join(p.Segments, "/")
}
