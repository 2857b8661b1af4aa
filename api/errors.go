// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error taxonomy of the engine. All of these surface through the
// future/result mechanism to the immediate awaiter; the engine never
// terminates the process for them. Genuine defects (double-settling a
// promise, double-leaving a gate token, arming an armed timer) panic
// instead of corrupting shared shard state.

package api

import "fmt"

// Sentinel errors used across the engine.
var (
	// ErrBrokenPromise reports a promise destroyed before completion.
	ErrBrokenPromise = fmt.Errorf("broken promise")
	// ErrGateClosed reports an Enter on a closing or closed gate.
	ErrGateClosed = fmt.Errorf("gate closed")
	// ErrNotRunning reports an operation on a stopped service group or engine.
	ErrNotRunning = fmt.Errorf("not running")
	// ErrGroupsExhausted reports that the scheduling-group id space is full.
	ErrGroupsExhausted = fmt.Errorf("scheduling group id space exhausted")
	// ErrShardUnavailable reports a cross-shard submit to an unreachable core.
	ErrShardUnavailable = fmt.Errorf("target shard unavailable")
	// ErrTimedOut reports a future that lost its race against a timer.
	ErrTimedOut = fmt.Errorf("operation timed out")
)

// ErrorCode represents specific failure conditions in the engine.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeBrokenPromise
	ErrCodeClosed
	ErrCodeConstruction
	ErrCodeExhausted
	ErrCodeTransport
	ErrCodeTimeout
	ErrCodeInternal
)

// Error is a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the cause for errors.Is / errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates a structured error around a cause.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// PanicError wraps a value recovered from a panicking task so it can
// propagate through the task's future like any other failure.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}
