// Package nursery implements structured concurrency: a nursery owns every
// task spawned within its scope and guarantees that all of them have reached
// a terminal state before Run returns. The first task failure is propagated
// to the caller; remaining siblings are cancelled cooperatively through the
// shared context and still joined before the failure surfaces.
//
// Example:
//
//	err := nursery.Run(ctx, func(ctx context.Context, n *nursery.Nursery) error {
//		n.Go("producer", produce)
//		n.Go("consumer", consume)
//		return nil
//	})
package nursery

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	taskerrors "github.com/lunascript/taskflow/pkg/common/errors"
	"github.com/lunascript/taskflow/pkg/sync/channel"
	"github.com/lunascript/taskflow/pkg/sync/waitgroup"
)

// TaskFunc is the signature for a task running within a nursery. The context
// is cancelled when the task is aborted or when the nursery fails.
type TaskFunc func(ctx context.Context) error

// Body is the nursery scope body. It runs as the root task of the scope and
// receives the Nursery to spawn siblings through.
type Body func(ctx context.Context, n *Nursery) error

// State describes the lifecycle of a nursery scope.
type State int32

const (
	// StateRunning means the body is executing and tasks may be spawned.
	StateRunning State = iota

	// StateDraining means the body has returned (or a failure was observed)
	// and the nursery is waiting for outstanding tasks.
	StateDraining

	// StateDone means every task has reached a terminal state.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Nursery owns the tasks spawned within one Run scope. It is only valid
// inside the body passed to Run; spawning after the scope has finished is a
// usage error and panics.
type Nursery struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	cfg    config

	wg      *waitgroup.WaitGroup
	relayTx *channel.Sender[*TaskError]
	relayRx *channel.Receiver[*TaskError]

	state      atomic.Int32
	open       atomic.Bool
	nextIndex  atomic.Int64
	active     atomic.Int64
	suppressed atomic.Int64
}

// Run opens a nursery scope, executes body as its root task, and waits for
// every spawned task to reach a terminal state before returning.
//
// On success Run returns nil once the scope has fully drained. On the first
// task failure Run cancels the scope context (cooperatively aborting the
// remaining siblings), still joins every task, and returns the failure
// wrapped in a *TaskError. Failures observed after the first are counted,
// optionally logged, and discarded: first fatal error wins.
func Run(parent context.Context, body Body, opts ...Option) error {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	relayTx, relayRx := channel.New[*TaskError](1)
	n := &Nursery{
		ctx:     ctx,
		cancel:  cancel,
		cfg:     cfg,
		wg:      waitgroup.New(),
		relayTx: relayTx,
		relayRx: relayRx,
	}
	n.open.Store(true)

	// The body is the root task of the scope; it is spawned and accounted
	// for exactly like its siblings.
	n.Go("body", func(ctx context.Context) error {
		defer n.state.CompareAndSwap(int32(StateRunning), int32(StateDraining))
		return body(ctx, n)
	})

	// Watcher: once every task has been accounted for, close the relay to
	// signal that no more failures are coming.
	go func() {
		_ = n.wg.Wait(context.Background())
		_ = relayRx.Close()
	}()

	drainStart := time.Now()

	// First of: a failure arrives on the relay, or the relay closes empty.
	te, ok, _ := relayRx.Recv(context.Background())
	if ok {
		n.state.Store(int32(StateDraining))
		cancel(te)
		_ = n.wg.Wait(context.Background())
		n.finish(drainStart)
		return te
	}

	// Relay closed with no failure: the scope drained cleanly.
	n.finish(drainStart)

	// Surface external cancellation even when no task reported it.
	if err := parent.Err(); err != nil {
		return err
	}
	return nil
}

func (n *Nursery) finish(drainStart time.Time) {
	n.open.Store(false)
	n.state.Store(int32(StateDone))
	if n.cfg.reg != nil {
		n.cfg.reg.NurseryJoinDuration.WithLabelValues(n.cfg.name).
			Observe(time.Since(drainStart).Seconds())
	}
}

// Go spawns fn as a new task of the scope and returns its abort handle.
// Tasks may spawn further tasks through the same Nursery while the scope is
// live. Calling Go after the scope has finished panics.
func (n *Nursery) Go(name string, fn TaskFunc) *Handle {
	// Check open BEFORE wg.Add to avoid a TOCTOU race with the watcher's
	// wg.Wait.
	if !n.open.Load() {
		panic("nursery: Go called after scope shutdown")
	}

	n.wg.Add(1)
	index := n.nextIndex.Add(1) - 1

	tctx, tcancel := context.WithCancelCause(n.ctx)
	h := &Handle{
		index:  index,
		name:   name,
		cancel: tcancel,
		done:   make(chan struct{}),
	}
	h.credit = func() { n.wg.Done() }
	h.onAbort = func() {
		if n.cfg.reg != nil {
			n.cfg.reg.TasksAborted.WithLabelValues(n.cfg.name).Inc()
		}
	}

	n.active.Add(1)
	if n.cfg.reg != nil {
		n.cfg.reg.TasksSpawned.WithLabelValues(n.cfg.name).Inc()
		n.cfg.reg.NurseryActiveTasks.WithLabelValues(n.cfg.name).Set(float64(n.active.Load()))
	}

	go func() {
		defer tcancel(nil)
		defer h.markDone()

		start := time.Now()
		err := n.exec(tctx, fn)
		elapsed := time.Since(start)

		n.active.Add(-1)
		if n.cfg.reg != nil {
			n.cfg.reg.NurseryActiveTasks.WithLabelValues(n.cfg.name).Set(float64(n.active.Load()))
			n.cfg.reg.TaskDuration.WithLabelValues(n.cfg.name).Observe(elapsed.Seconds())
		}

		if err != nil {
			h.err.Store(&err)
		}
		n.record(h, err)
	}()

	return h
}

// exec runs a task function with panic recovery.
func (n *Nursery) exec(ctx context.Context, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newPanicError(r)
		}
	}()
	return fn(ctx)
}

// record routes a finished task's outcome to the failure relay.
func (n *Nursery) record(h *Handle, err error) {
	if err == nil {
		if n.cfg.reg != nil {
			n.cfg.reg.TasksCompleted.WithLabelValues(n.cfg.name).Inc()
		}
		return
	}

	// A task that unwound because the scope (or its own handle) was
	// cancelled is not a new failure: the real cause is already recorded.
	if errors.Is(err, context.Canceled) || taskerrors.IsAborted(err) {
		if h.Aborted() || n.ctx.Err() != nil {
			return
		}
	}

	if n.cfg.reg != nil {
		n.cfg.reg.TasksFailed.WithLabelValues(n.cfg.name).Inc()
	}

	te := &TaskError{Index: h.index, Name: h.name, Err: err}
	if sent, _ := n.relayTx.TrySend(te); !sent {
		// The relay already carries the first failure (or has closed):
		// later failures are intentionally discarded, first fatal wins.
		n.suppressed.Add(1)
		if n.cfg.reg != nil {
			n.cfg.reg.FailuresSuppressed.WithLabelValues(n.cfg.name).Inc()
		}
		if n.cfg.logger != nil {
			n.cfg.logger.Debug("nursery: suppressed task failure",
				slog.String("nursery", n.cfg.name),
				slog.Int64("task", h.index),
				slog.String("task_name", h.name),
				slog.Any("error", err),
			)
		}
	}
}

// State returns the current lifecycle state of the scope.
func (n *Nursery) State() State {
	return State(n.state.Load())
}

// Context returns the scope context, cancelled when the nursery fails or
// finishes.
func (n *Nursery) Context() context.Context {
	return n.ctx
}

// Cancel cancels the scope context with the given cause, cooperatively
// aborting all tasks of the scope.
func (n *Nursery) Cancel(err error) {
	n.cancel(err)
}

// ActiveTasks returns the number of tasks currently executing.
func (n *Nursery) ActiveTasks() int64 {
	return n.active.Load()
}

// SuppressedFailures returns the number of task failures discarded after the
// first failure claimed the relay.
func (n *Nursery) SuppressedFailures() int64 {
	return n.suppressed.Load()
}
