package nursery

import (
	"errors"
	"fmt"
	"runtime"
)

// TaskError wraps the first failure observed in a nursery together with the
// index and name of the task that produced it. It is the error returned by
// Run, so callers can attribute the failure to a specific task.
type TaskError struct {
	// Index is the spawn-order index of the failed task. The nursery body
	// itself runs as task 0.
	Index int64

	// Name is the name the task was spawned with.
	Name string

	// Err is the underlying failure.
	Err error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("nursery: task %d (%q) failed: %v", e.Index, e.Name, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsTaskError reports whether err (or any error in its chain) is a [*TaskError].
func IsTaskError(err error) bool {
	if err == nil {
		return false
	}
	var te *TaskError
	return errors.As(err, &te)
}

// CauseOf unwraps the first [*TaskError] in err's chain and returns its
// underlying cause. If err is not a TaskError, it is returned as-is.
func CauseOf(err error) error {
	if err == nil {
		return nil
	}

	var te *TaskError
	if errors.As(err, &te) {
		return te.Err
	}
	return err
}

// PanicError wraps a recovered panic value together with the goroutine
// stack trace captured at the point of the panic. Panics in tasks are
// converted to *PanicError and propagated like any other task failure.
type PanicError struct {
	// Value is the original value passed to panic().
	Value any

	// Stack is the goroutine stack trace at the point of panic.
	Stack string
}

// Error returns a human-readable representation of the panic,
// including the value and the full stack trace.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", e.Value, e.Stack)
}

func newPanicError(v any) *PanicError {
	// 8 KiB is enough for most stack traces. runtime.Stack truncates
	// gracefully if the buffer is too small.
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{
		Value: v,
		Stack: string(buf[:n]),
	}
}
