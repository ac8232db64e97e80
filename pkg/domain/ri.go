package domain

import "strings"

// RI is a path:method:signal subscription pattern. Components left empty by
// the user default to "match all". The session only keeps RIs locally for
// bookkeeping; the authoritative subscription state lives on the remote side.
type RI struct {
	Path   string
	Method string
	Signal string
}

// ParseRI parses the shorthand RI syntax `PATH[:METHOD[:SIGNAL]]` and fills
// in wildcard defaults for the omitted components. The path component is
// resolved against the given prefix; an empty path means "everything below
// the prefix".
func ParseRI(token string, prefix NodePath) (RI, error) {
	parts := strings.SplitN(token, ":", 3)
	ri := RI{Path: parts[0], Method: "*", Signal: "*"}
	if len(parts) >= 2 && parts[1] != "" {
		ri.Method = parts[1]
	}
	if len(parts) == 3 && parts[2] != "" {
		ri.Signal = parts[2]
	}
	switch {
	case ri.Path == "":
		ri.Path = "**"
		fallthrough
	case strings.Contains(ri.Path, "*"):
		// Wildcard patterns stay textual, they only get the prefix glued on.
		if len(prefix.Segments) > 0 {
			ri.Path = prefix.Key() + "/" + ri.Path
		}
	default:
		p, err := ParsePath(ri.Path)
		if err != nil {
			return RI{}, err
		}
		ri.Path = p.Resolve(prefix).Key()
	}
	return ri, nil
}

// String renders the canonical path:method:signal form forwarded to the
// remote subscription method.
func (ri RI) String() string {
	return ri.Path + ":" + ri.Method + ":" + ri.Signal
}
