package nursery

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/lunascript/taskflow/pkg/common/errors"
)

// Handle is a non-owning capability reference to one spawned task. It allows
// requesting cancellation of that task and observing its outcome; the task
// itself remains owned by the nursery that spawned it.
type Handle struct {
	index  int64
	name   string
	cancel context.CancelCauseFunc

	done     chan struct{}
	doneOnce sync.Once
	credit   func()
	onAbort  func()

	aborted atomic.Bool
	err     atomic.Pointer[error]
}

// Abort requests cooperative cancellation of the task. The task's context is
// cancelled with ErrAborted, and its share of the nursery join is credited
// immediately so the scope cannot stall on an aborted-but-not-yet-unwound
// task. Abort is idempotent.
func (h *Handle) Abort() {
	if h.aborted.Swap(true) {
		return
	}
	h.cancel(errors.ErrAborted)
	if h.onAbort != nil {
		h.onAbort()
	}
	h.markDone()
}

// markDone credits the task's waitgroup share and closes the done channel.
// Called at true task completion and at abort, whichever comes first.
func (h *Handle) markDone() {
	h.doneOnce.Do(func() {
		h.credit()
		close(h.done)
	})
}

// Aborted reports whether Abort has been called on this handle.
func (h *Handle) Aborted() bool {
	return h.aborted.Load()
}

// Index returns the task's spawn-order index within its nursery.
func (h *Handle) Index() int64 {
	return h.index
}

// Name returns the name the task was spawned with.
func (h *Handle) Name() string {
	return h.name
}

// Done returns a channel closed when the task has been accounted for:
// at true completion, or at abort, whichever comes first.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task's failure, or nil if the task succeeded or has not
// finished executing yet.
func (h *Handle) Err() error {
	if p := h.err.Load(); p != nil {
		return *p
	}
	return nil
}
