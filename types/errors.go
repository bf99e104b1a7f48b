// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"errors"
	"fmt"
)

// Kind sentinels. Match them with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrRouting        = errors.New("routing error")
	ErrExecution      = errors.New("execution error")
	ErrReply          = errors.New("reply error")
	ErrRecursionLimit = errors.New("recursion limit exceeded")
)

// Error is the error every module, the router and the engine report.
// [Kind] is one of the sentinels above.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches [target] against the kind of [e].
func (e *Error) Is(target error) bool { return e.Kind == target }

func newError(kind error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Validationf reports malformed input: a bad address, an unknown or malformed
// denomination, insufficient balance.
func Validationf(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

// Routingf reports an operation no module is registered for.
func Routingf(format string, args ...interface{}) error {
	return newError(ErrRouting, format, args...)
}

// Executionf reports a failure inside a module or a contract.
func Executionf(format string, args ...interface{}) error {
	return newError(ErrExecution, format, args...)
}

// NewExecutionError wraps a failure returned by a contract entry point.
func NewExecutionError(err error) error {
	return &Error{Kind: ErrExecution, Err: err}
}

// NewReplyError wraps the failure of a reply entry point for submessage [id].
func NewReplyError(id uint64, err error) error {
	return &Error{Kind: ErrReply, Err: fmt.Errorf("reply %d: %w", id, err)}
}

// RecursionLimitf reports a call stack deeper than allowed.
func RecursionLimitf(format string, args ...interface{}) error {
	return newError(ErrRecursionLimit, format, args...)
}

// KindOf returns the kind of the outermost taxonomy error in [err]'s chain,
// or nil if there is none.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}
