package queue

import "errors"

var (
	// ErrNotFound is returned for queries referencing an unknown operation id.
	ErrNotFound = errors.New("operation not found")

	// ErrTimeout is returned by the wait helpers on deadline expiry.
	// The underlying operation keeps running; waiting does not cancel it.
	ErrTimeout = errors.New("wait timed out")

	// ErrClosed is returned when submitting to a queue after Shutdown.
	ErrClosed = errors.New("queue is shut down")

	// ErrHandlerNotRegistered is returned when an operation names a handler
	// that was never registered. The operation fails; it is not retried.
	ErrHandlerNotRegistered = errors.New("handler not registered")

	// ErrUnknownMethod is returned by handlers for a method they do not
	// route. It is the same failure class as an unregistered handler.
	ErrUnknownMethod = errors.New("unknown method")
)
