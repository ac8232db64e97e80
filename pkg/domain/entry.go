package domain

// Freshness records how much of a node's shape has actually been probed.
// The ordering matters: cache merges may only move freshness up.
type Freshness int

const (
	// FreshUnknown means the node is only known to exist (it appeared in a
	// parent listing or in a signal), nothing about it was probed.
	FreshUnknown Freshness = iota
	// FreshShallow means methods and signals were probed but children were
	// not listed yet.
	FreshShallow
	// FreshChildren means both methods and the child list were probed.
	FreshChildren
)

func (f Freshness) String() string {
	switch f {
	case FreshShallow:
		return "shallow"
	case FreshChildren:
		return "children"
	default:
		return "unknown"
	}
}

// Access is the minimal access level a method requires.
type Access int

const (
	AccessBrowse Access = iota
	AccessRead
	AccessWrite
	AccessService
	AccessAdmin
)

// MethodFlags describe method behavior hints carried by discovery results.
type MethodFlags uint

const (
	// FlagGetter marks a method callable without an argument that returns a
	// value; eligible for auto-get during listing.
	FlagGetter MethodFlags = 1 << iota
	// FlagSetter marks a value-setting method.
	FlagSetter
	// FlagLargeResult hints the result is too big to prefetch inline.
	FlagLargeResult
	// FlagNotCallable marks descriptors that only anchor signals.
	FlagNotCallable
)

// MethodDesc is the cached descriptor of one method on one node.
type MethodDesc struct {
	Name   string      `json:"name"`
	Access Access      `json:"access"`
	Flags  MethodFlags `json:"flags"`
	Param  string      `json:"param,omitempty"`
	Result string      `json:"result,omitempty"`
}

// IsGetter reports whether the method should be auto-got while rendering a
// listing: a getter without the large-result hint.
func (m MethodDesc) IsGetter() bool {
	return m.Flags&FlagGetter != 0 && m.Flags&FlagLargeResult == 0
}

// SignalDesc is the cached descriptor of one signal a node may emit.
type SignalDesc struct {
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
}

// StdLs and StdDir are the listing methods every node is assumed to have
// even before it was probed.
func StdLs() MethodDesc {
	return MethodDesc{Name: "ls", Access: AccessBrowse}
}

func StdDir() MethodDesc {
	return MethodDesc{Name: "dir", Access: AccessBrowse}
}

// NodeEntry is the cached knowledge about one absolute path.
// Children are unique and sorted; Methods and Signals are sorted by name.
type NodeEntry struct {
	Children []string     `json:"children,omitempty"`
	Methods  []MethodDesc `json:"methods,omitempty"`
	Signals  []SignalDesc `json:"signals,omitempty"`
	Fresh    Freshness    `json:"fresh"`
}

// Method returns the descriptor of the named method, if cached.
func (e NodeEntry) Method(name string) (MethodDesc, bool) {
	for _, m := range e.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return MethodDesc{}, false
}

// HasChild reports whether the entry lists the named child.
func (e NodeEntry) HasChild(name string) bool {
	for _, c := range e.Children {
		if c == name {
			return true
		}
	}
	return false
}
