package nursery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lunascript/taskflow/internal/testutil"
	"github.com/lunascript/taskflow/pkg/sync/channel"
)

func TestRunEmptyBody(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		return nil
	})
	testutil.AssertNoError(t, err)
}

func TestStructuredJoin(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	const tasks = 50
	var completed atomic.Int32

	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		for i := 0; i < tasks; i++ {
			n.Go(fmt.Sprintf("task-%d", i), func(ctx context.Context) error {
				time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
				completed.Add(1)
				return nil
			})
		}
		return nil
	})
	testutil.AssertNoError(t, err)

	// Every task reached its terminal state before Run returned.
	testutil.AssertEqual(t, completed.Load(), tasks)
}

func TestTasksInterleave(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	const tasks = 1000
	tx, rx := channel.New[int](tasks)

	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		for i := 0; i < tasks; i++ {
			n.Go("sender", func(ctx context.Context) error {
				time.Sleep(time.Microsecond)
				return tx.Send(ctx, i)
			})
		}
		return nil
	})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, tx.Close())

	strictlyIncreasing := true
	prev := -1
	count := 0
	for {
		v, ok, err := rx.Recv(ctx)
		testutil.AssertNoError(t, err)
		if !ok {
			break
		}
		if v < prev {
			strictlyIncreasing = false
		}
		prev = v
		count++
	}

	testutil.AssertEqual(t, count, tasks)
	if strictlyIncreasing {
		t.Error("completion order strictly increasing: execution was serial, not concurrent")
	}
}

func TestFirstFailureWins(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	errA := errors.New("failure a")
	errB := errors.New("failure b")

	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		n.Go("a", func(ctx context.Context) error { return errA })
		n.Go("b", func(ctx context.Context) error { return errB })
		time.Sleep(20 * time.Millisecond)
		return nil
	})

	testutil.AssertError(t, err)
	if !IsTaskError(err) {
		t.Fatalf("expected *TaskError, got %T: %v", err, err)
	}

	// Exactly one failure surfaces; the other was claimed second and discarded.
	first := errors.Is(err, errA)
	second := errors.Is(err, errB)
	if first == second {
		t.Errorf("exactly one of the two failures must propagate, got %v", err)
	}
}

func TestFailureAbortsSiblings(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	boom := errors.New("boom")
	var siblingUnblocked atomic.Bool

	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		n.Go("stuck", func(ctx context.Context) error {
			// Suspend on a channel no one ever sends to; only scope
			// cancellation can release this task.
			_, rx := channel.New[int](0)
			_, _, err := rx.Recv(ctx)
			siblingUnblocked.Store(true)
			return err
		})
		n.Go("failing", func(ctx context.Context) error {
			return boom
		})
		return nil
	})

	testutil.AssertError(t, err)
	testutil.AssertEqual(t, errors.Is(err, boom), true)
	testutil.AssertEqual(t, siblingUnblocked.Load(), true)
}

func TestBodyFailurePropagates(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	boom := errors.New("body boom")
	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		return boom
	})

	testutil.AssertError(t, err)
	testutil.AssertEqual(t, errors.Is(err, boom), true)

	// The body runs as task 0 of the scope.
	var te *TaskError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TaskError, got %T", err)
	}
	testutil.AssertEqual(t, te.Index, 0)
}

func TestAbortSuppressesCompletion(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	var reached atomic.Bool

	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		tx, rx := channel.New[int](0)
		_ = tx

		h := n.Go("victim", func(ctx context.Context) error {
			// Suspends forever unless aborted.
			if _, _, err := rx.Recv(ctx); err != nil {
				return err
			}
			reached.Store(true)
			return nil
		})

		time.Sleep(10 * time.Millisecond)
		h.Abort()
		<-h.Done()
		return nil
	})

	testutil.AssertNoError(t, err)
	// Code past the cancellation point never ran.
	testutil.AssertEqual(t, reached.Load(), false)
}

func TestAbortedTaskDoesNotStallJoin(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	start := time.Now()
	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		h := n.Go("slow", func(ctx context.Context) error {
			select {
			case <-time.After(10 * time.Second):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		h.Abort()
		return nil
	})

	testutil.AssertNoError(t, err)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("nursery stalled on aborted task: %v", elapsed)
	}
}

func TestPanicBecomesTaskError(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		n.Go("panicker", func(ctx context.Context) error {
			panic("kaboom")
		})
		return nil
	})

	testutil.AssertError(t, err)

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError in chain, got %v", err)
	}
	testutil.AssertEqual(t, pe.Value.(string), "kaboom")
	if pe.Stack == "" {
		t.Error("panic stack trace missing")
	}
}

func TestNestedSpawning(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	var completed atomic.Int32
	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		n.Go("parent", func(ctx context.Context) error {
			for i := 0; i < 3; i++ {
				n.Go("child", func(ctx context.Context) error {
					completed.Add(1)
					return nil
				})
			}
			completed.Add(1)
			return nil
		})
		return nil
	})

	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, completed.Load(), 4)
}

func TestGoAfterShutdownPanics(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	var leaked *Nursery
	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		leaked = n
		return nil
	})
	testutil.AssertNoError(t, err)

	defer func() {
		if recover() == nil {
			t.Error("Go after scope shutdown should panic")
		}
	}()
	leaked.Go("late", func(ctx context.Context) error { return nil })
}

func TestStateTransitions(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	var leaked *Nursery
	var running State

	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		leaked = n
		running = n.State()
		return nil
	})
	testutil.AssertNoError(t, err)

	testutil.AssertEqual(t, running, StateRunning)
	testutil.AssertEqual(t, leaked.State(), StateDone)
}

func TestExternalCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- Run(ctx, func(ctx context.Context, n *Nursery) error {
			n.Go("waiter", func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			})
			return nil
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	err := <-errCh
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, errors.Is(err, context.Canceled), true)
}

func TestAbortHandleErrNil(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		h := n.Go("ok", func(ctx context.Context) error { return nil })
		<-h.Done()
		testutil.AssertEqual(t, h.Err(), nil)
		testutil.AssertEqual(t, h.Aborted(), false)
		return nil
	})
	testutil.AssertNoError(t, err)
}

func TestAbortIsNotAFailure(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	err := Run(ctx, func(ctx context.Context, n *Nursery) error {
		tx, rx := channel.New[int](0)
		_ = tx

		h := n.Go("victim", func(ctx context.Context) error {
			_, _, err := rx.Recv(ctx)
			return err
		})
		time.Sleep(10 * time.Millisecond)
		h.Abort()
		<-h.Done()
		testutil.AssertEqual(t, h.Aborted(), true)
		return nil
	})

	// An aborted task's cancellation error must not propagate as a
	// nursery-level failure.
	testutil.AssertNoError(t, err)
}
