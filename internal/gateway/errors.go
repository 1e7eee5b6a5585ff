package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout marks a command that got no answer within the client timeout.
	ErrTimeout = errors.New("gateway: request timeout")
	// ErrUnreachable marks a command that never reached the backend.
	ErrUnreachable = errors.New("gateway: backend unreachable")
	// ErrRejected marks a command the backend answered with a failure status.
	ErrRejected = errors.New("gateway: command rejected")
	// ErrInvalidRequest marks a command refused locally before sending.
	ErrInvalidRequest = errors.New("gateway: invalid request")
)

const (
	timeoutMessage = "Request timeout - Backend server may be unavailable"
	genericMessage = "Server error"
)

// CommandError is returned by every failed gateway call.
type CommandError struct {
	Command    string
	StatusCode int    // 0 when no HTTP response was received
	Message    string // operator-facing reason
	Err        error  // one of the sentinels above, or the transport error
}

func (e *CommandError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Command, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

func (e *CommandError) Unwrap() error { return e.Err }
