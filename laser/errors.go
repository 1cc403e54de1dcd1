package laser

import (
	"errors"
	"fmt"
)

// Session and transaction failure kinds. Every public operation returns one
// of these (or a *protocol.DeviceError / *protocol.InvalidPowerError), never
// a bare generic failure, so callers can decide whether retrying is safe:
// safe for ErrTimeout and the transport kinds, unsafe for ErrProtocol
// without reopening the session.
var (
	// ErrSessionNotOpen indicates an operation on a Closed or Faulted session
	ErrSessionNotOpen = errors.New("session not open")

	// ErrSessionBusy indicates another transaction is already in flight
	ErrSessionBusy = errors.New("session busy")

	// ErrAlreadyOpen indicates Open on a session that is already Open
	ErrAlreadyOpen = errors.New("session already open")

	// ErrTimeout indicates no matching response arrived within the
	// deadline after all retries
	ErrTimeout = errors.New("transaction timeout")

	// ErrProtocol indicates a malformed or mismatched response; the
	// device's protocol state is unknown and the session is Faulted
	ErrProtocol = errors.New("protocol error")

	// ErrTransportWrite indicates the request report could not be written
	ErrTransportWrite = errors.New("transport write error")

	// ErrTransportRead indicates a transport-layer read failure other
	// than a timeout
	ErrTransportRead = errors.New("transport read error")

	// ErrCancelled indicates the caller's context was cancelled while a
	// transaction was in flight
	ErrCancelled = errors.New("operation cancelled")
)

// TimeoutError reports an exchange that exhausted its retry budget without
// receiving a matching response.
type TimeoutError struct {
	// Operation is the command that timed out
	Operation string

	// Attempts is the number of request reports written
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: no response after %d attempts", e.Operation, e.Attempts)
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ProtocolViolationError reports a response that arrived but was wrong:
// undecodable framing or a command echo that does not match the request.
// Never retried; the owning session transitions to Faulted.
type ProtocolViolationError struct {
	// Operation is the command whose exchange failed
	Operation string

	// Cause is the underlying codec or mismatch failure
	Cause error
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("%s: protocol error: %v", e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ProtocolViolationError) Unwrap() error { return e.Cause }

// Is reports whether target is ErrProtocol.
func (e *ProtocolViolationError) Is(target error) bool {
	return target == ErrProtocol
}

// EchoMismatchError is the cause of a ProtocolViolationError when the
// device echoed a different command code than was requested.
type EchoMismatchError struct {
	Sent   byte
	Echoed byte
}

func (e *EchoMismatchError) Error() string {
	return fmt.Sprintf("command echo mismatch: sent 0x%02X, device echoed 0x%02X", e.Sent, e.Echoed)
}
