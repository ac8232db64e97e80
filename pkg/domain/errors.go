package domain

import (
	"errors"
	"fmt"
)

// ErrParse is returned when a command line or argument cannot be parsed.
var ErrParse = errors.New("parse error")

// ErrTimeout is returned when a call exhausted its attempts without any
// response. It is deliberately distinct from RPCError so users can tell
// "server said no" apart from "server never answered".
var ErrTimeout = errors.New("call timed out")

// ErrCancelled is returned when an in-flight call was aborted by the user.
var ErrCancelled = errors.New("call cancelled")

// ErrNotFound is returned by blob stores when a key has no value.
var ErrNotFound = errors.New("not found")

// ErrInternal marks a violated engine invariant. Unlike every other error
// in this taxonomy it is not recoverable: the session loop terminates the
// process with a non-zero status instead of limping on.
var ErrInternal = errors.New("internal error")

// RPCError is an explicit error returned by the remote side of a call.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rpc error %d", e.Code)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Well known RPC error codes.
const (
	RPCMethodNotFound = 2
	RPCInvalidParam   = 3
	RPCMethodError    = 8
)
