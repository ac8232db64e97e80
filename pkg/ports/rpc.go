package ports

import "context"

// Event is one asynchronous signal notification delivered by the remote
// side: a value emitted by a signal of a method on a path.
type Event struct {
	Path   string
	Source string
	Signal string
	Value  any
}

// Connection is one established link to a remote node tree. The wire
// protocol and transport behind it are not part of the core; nodesh only
// consumes this contract.
//
// Call conventions: the "ls" method returns the child name list and "dir"
// returns method descriptors; see Listing in the render package for how the
// session interprets them. Remote failures surface as *domain.RPCError,
// context expiry as the usual context errors.
type Connection interface {
	Call(ctx context.Context, path, method string, param any) (any, error)
	Subscribe(ctx context.Context, ri string) error
	Unsubscribe(ctx context.Context, ri string) error

	// Events yields asynchronous signal notifications. The channel closes
	// when the connection goes away.
	Events() <-chan Event

	// Done is closed on disconnect.
	Done() <-chan struct{}

	Close() error
}

// Dialer establishes connections to a target URL.
type Dialer interface {
	Dial(ctx context.Context, target string) (Connection, error)
}
