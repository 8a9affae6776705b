package sched

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lunascript/taskflow/internal/testutil"
	taskerrors "github.com/lunascript/taskflow/pkg/common/errors"
	"github.com/lunascript/taskflow/pkg/nursery"
	"github.com/lunascript/taskflow/pkg/sync/channel"
)

func TestAfterDelivers(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	start := time.Now()
	rx := After(ctx, 20*time.Millisecond)

	_, ok, err := rx.Recv(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, ok, true)
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("fired after %v, want at least 20ms", elapsed)
	}

	// One shot: the channel is closed after delivery.
	_, ok, err = rx.Recv(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, ok, false)
}

func TestAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rx := After(ctx, time.Hour)
	cancel()

	// Cancellation closes the channel without a delivery.
	_, ok, err := rx.Recv(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, ok, false)
}

func TestTickDeliversRepeatedly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rx := Tick(ctx, 10*time.Millisecond)

	for i := 0; i < 3; i++ {
		_, ok, err := rx.Recv(ctx)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, ok, true)
	}
	cancel()

	// After cancellation the channel drains and closes.
	deadline := context.Background()
	for {
		_, ok, err := rx.Recv(deadline)
		testutil.AssertNoError(t, err)
		if !ok {
			break
		}
	}
}

func TestTimeoutComposesWithSelect(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	// A receive that never completes loses the race against the timer.
	_, rx := channel.New[int](0)
	timeout := After(ctx, 10*time.Millisecond)

	var timedOut bool
	err := channel.Select(ctx,
		channel.Recv(rx, func(v int, ok bool) {}),
		channel.Recv(timeout, func(time.Time, bool) { timedOut = true }),
	)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, timedOut, true)
}

func TestSleep(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	start := time.Now()
	testutil.AssertNoError(t, Sleep(ctx, 15*time.Millisecond))
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("woke after %v, want at least 15ms", elapsed)
	}

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	err := Sleep(cancelled, time.Hour)
	testutil.AssertEqual(t, errors.Is(err, context.Canceled), true)
}

func TestTimeout(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	// The operation outlasts its deadline.
	err := Timeout(ctx, 10*time.Millisecond, func(ctx context.Context) error {
		return Sleep(ctx, time.Hour)
	})
	testutil.AssertEqual(t, errors.Is(err, taskerrors.ErrTimeout), true)

	// The operation finishes in time.
	err = Timeout(ctx, time.Hour, func(ctx context.Context) error {
		return nil
	})
	testutil.AssertNoError(t, err)

	// Outer cancellation is not a timeout.
	outer, cancelOuter := context.WithCancel(context.Background())
	cancelOuter()
	err = Timeout(outer, time.Hour, func(ctx context.Context) error {
		return Sleep(ctx, time.Hour)
	})
	testutil.AssertEqual(t, errors.Is(err, context.Canceled), true)
}

func TestSchedulerValidate(t *testing.T) {
	s := New()
	testutil.AssertNoError(t, s.Validate("*/5 * * * * *"))
	testutil.AssertNoError(t, s.Validate("@hourly"))

	err := s.Validate("not a cron expr")
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, errors.Is(err, taskerrors.ErrInvalidConfiguration), true)
}

func TestSchedulerNext(t *testing.T) {
	s := New()
	from := time.Date(2026, time.January, 1, 12, 0, 0, 0, time.UTC)

	next, err := s.Next("0 0 * * * *", from)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, next, time.Date(2026, time.January, 1, 13, 0, 0, 0, time.UTC))

	_, err = s.Next("bogus", from)
	testutil.AssertError(t, err)
}

func TestScheduleMaxRuns(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	s := New()
	var runs atomic.Int32

	err := nursery.Run(ctx, func(ctx context.Context, n *nursery.Nursery) error {
		h, err := s.Schedule(n, "counter", "@every 1s", func(ctx context.Context) error {
			runs.Add(1)
			return nil
		}, WithMaxRuns(2))
		if err != nil {
			return err
		}
		<-h.Done()
		return nil
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, runs.Load(), 2)
}

func TestScheduleFailurePropagates(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	s := New()
	boom := errors.New("run failed")

	err := nursery.Run(ctx, func(ctx context.Context, n *nursery.Nursery) error {
		_, err := s.Schedule(n, "failing", "@every 1s", func(ctx context.Context) error {
			return boom
		})
		return err
	})
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, errors.Is(err, boom), true)
}

func TestScheduleAbortStopsRecurrence(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	s := New()
	var runs atomic.Int32

	err := nursery.Run(ctx, func(ctx context.Context, n *nursery.Nursery) error {
		h, err := s.Schedule(n, "aborted", "@every 1s", func(ctx context.Context) error {
			runs.Add(1)
			return nil
		})
		if err != nil {
			return err
		}
		h.Abort()
		<-h.Done()
		return nil
	})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, runs.Load(), 0)
}

func TestScheduleRejectsBadExpression(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	s := New()
	err := nursery.Run(ctx, func(ctx context.Context, n *nursery.Nursery) error {
		_, err := s.Schedule(n, "broken", "definitely not cron", func(ctx context.Context) error {
			return nil
		})
		testutil.AssertError(t, err)
		return nil
	})
	testutil.AssertNoError(t, err)
}
