package channel

import (
	"context"
	"testing"
	"time"

	"github.com/lunascript/taskflow/internal/testutil"
)

func TestSelectReadyRecv(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	tx, rx := New[int](1)
	testutil.AssertNoError(t, tx.Send(ctx, 42))

	got := 0
	err := Select(ctx,
		Recv(rx, func(v int, ok bool) {
			testutil.AssertEqual(t, ok, true)
			got = v
		}),
	)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got, 42)
}

func TestSelectReadySend(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	tx, rx := New[int](1)

	fired := false
	err := Select(ctx, Send(tx, 9, func() { fired = true }))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, fired, true)

	v, _, _ := rx.Recv(ctx)
	testutil.AssertEqual(t, v, 9)
}

func TestSelectDefault(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	_, rx := New[int](1)

	viaDefault := false
	err := Select(ctx,
		Recv(rx, func(int, bool) { t.Error("recv case fired on empty channel") }),
		Default(func() { viaDefault = true }),
	)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, viaDefault, true)
}

func TestSelectSuspendsUntilReady(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	tx, rx := New[int](0)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = tx.Send(ctx, 1)
	}()

	got := 0
	err := Select(ctx, Recv(rx, func(v int, ok bool) { got = v }))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got, 1)
}

func TestSelectRecvWakesForParkedSender(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	tx, rx := New[int](0)

	// The sender parks on the rendezvous after the select has subscribed;
	// parking must wake the select, which then completes the handoff.
	sendErr := make(chan error, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		sendErr <- tx.Send(ctx, 9)
	}()

	got := 0
	err := Select(ctx, Recv(rx, func(v int, ok bool) {
		testutil.AssertEqual(t, ok, true)
		got = v
	}))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, got, 9)
	testutil.AssertNoError(t, <-sendErr)
}

func TestSelectSendWakesForParkedReceiver(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	tx, rx := New[int](0)

	// Mirror direction: a plain receiver parking on the rendezvous must
	// wake a select suspended on the send case.
	got := make(chan int, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		v, ok, err := rx.Recv(ctx)
		if err != nil || !ok {
			t.Errorf("recv: ok=%v err=%v", ok, err)
		}
		got <- v
	}()

	delivered := false
	err := Select(ctx, Send(tx, 7, func() { delivered = true }))
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, delivered, true)
	testutil.AssertEqual(t, <-got, 7)
}

func TestSelectClosedRecvIsReady(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	tx, rx := New[int](1)
	testutil.AssertNoError(t, tx.Close())

	sawClosed := false
	err := Select(ctx,
		Recv(rx, func(v int, ok bool) {
			testutil.AssertEqual(t, ok, false)
			sawClosed = true
		}),
	)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, sawClosed, true)
}

func TestSelectSendOnClosed(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	tx, _ := New[int](1)
	testutil.AssertNoError(t, tx.Close())

	err := Select(ctx, Send(tx, 1, func() { t.Error("handler ran for closed channel") }))
	testutil.AssertEqual(t, err, ErrClosed)
}

func TestSelectCancellationLeavesNoWaiters(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	txA, rxA := New[int](0)
	txB, rxB := New[int](0)
	_ = txA
	_ = txB

	errCh := make(chan error, 1)
	go func() {
		errCh <- Select(ctx,
			Recv(rxA, func(int, bool) {}),
			Recv(rxB, func(int, bool) {}),
		)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	testutil.AssertEqual(t, <-errCh, context.Canceled)

	// No registration artifacts may survive an abandoned select.
	for _, rx := range []*Receiver[int]{rxA, rxB} {
		rx.c.mu.Lock()
		testutil.AssertEqual(t, len(rx.c.subs), 0)
		rx.c.mu.Unlock()
	}
}

func TestSelectFairness(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	txA, rxA := New[int](1)
	txB, rxB := New[int](1)

	const rounds = 400
	hits := map[string]int{}
	for i := 0; i < rounds; i++ {
		testutil.AssertNoError(t, txA.Send(ctx, 1))
		testutil.AssertNoError(t, txB.Send(ctx, 2))

		err := Select(ctx,
			Recv(rxA, func(int, bool) { hits["a"]++ }),
			Recv(rxB, func(int, bool) { hits["b"]++ }),
		)
		testutil.AssertNoError(t, err)

		// Drain whichever value was left behind.
		for {
			if _, ok, _ := rxA.TryRecv(); ok {
				continue
			}
			if _, ok, _ := rxB.TryRecv(); ok {
				continue
			}
			break
		}
	}

	// Both cases ready on every round: registration order must not decide.
	// With uniform choice each side wins ~200 times; 40 is far beyond any
	// plausible random fluctuation.
	if hits["a"] < 40 || hits["b"] < 40 {
		t.Errorf("select starved a ready case: a=%d b=%d", hits["a"], hits["b"])
	}
}

func TestSelectTimeoutComposition(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	_, rx := New[int](0)

	// Timeouts are expressed by racing a timer channel, not by an intrinsic
	// deadline on the operation.
	timerTx, timerRx := New[time.Time](1)
	go func() {
		time.Sleep(5 * time.Millisecond)
		_ = timerTx.Send(ctx, time.Now())
	}()

	timedOut := false
	err := Select(ctx,
		Recv(rx, func(int, bool) { t.Error("data case fired unexpectedly") }),
		Recv(timerRx, func(time.Time, bool) { timedOut = true }),
	)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, timedOut, true)
}

func TestSelectOnlyDefault(t *testing.T) {
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	ran := false
	testutil.AssertNoError(t, Select(ctx, Default(func() { ran = true })))
	testutil.AssertEqual(t, ran, true)
}
