package errors

import "errors"

// Common error types used across the taskflow library

var (
	// ErrClosed indicates that an operation was attempted on a closed
	// channel, pipe or stream end. It marks normal shutdown paths and must
	// be distinguished from genuine failures by callers.
	ErrClosed = errors.New("resource is closed")

	// ErrAborted indicates that a task was cancelled through its abort handle.
	ErrAborted = errors.New("task aborted")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// IsClosed reports whether err indicates a closed resource, treating it as
// "stream ended" rather than a bug.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsAborted reports whether err originates from a task abort.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
