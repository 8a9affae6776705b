// Package sched provides the timer surface of the runtime. After and Tick
// deliver time over channel Receivers, so deadlines and periodic work
// compose with Select the same way any other channel does. Scheduler adds
// cron expression support for recurring tasks spawned into a nursery.
package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/lunascript/taskflow/pkg/common/errors"
	"github.com/lunascript/taskflow/pkg/sync/channel"
)

// After returns a receiver that delivers the current time once, d after the
// call. If ctx is cancelled first the channel closes without delivering.
// Racing an After receiver against an operation in a Select is the idiom
// for timeouts.
func After(ctx context.Context, d time.Duration) *channel.Receiver[time.Time] {
	tx, rx := channel.New[time.Time](1)
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case t := <-timer.C:
			// Capacity 1 and a single send: this cannot suspend.
			tx.TrySend(t)
		case <-ctx.Done():
		}
		tx.Close()
	}()
	return rx
}

// Tick returns a receiver delivering the time every d until ctx is
// cancelled, at which point the channel closes. A slow consumer misses
// ticks rather than backing the ticker up.
func Tick(ctx context.Context, d time.Duration) *channel.Receiver[time.Time] {
	tx, rx := channel.New[time.Time](1)
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case t := <-ticker.C:
				tx.TrySend(t)
			case <-ctx.Done():
				tx.Close()
				return
			}
		}
	}()
	return rx
}

// Sleep suspends until d elapses or ctx is cancelled, returning ctx.Err()
// in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Timeout runs op under a deadline d. If the deadline expires before op
// returns, op's context is cancelled and Timeout reports ErrTimeout; a
// cancellation of the outer ctx is passed through unchanged.
func Timeout(ctx context.Context, d time.Duration, op func(ctx context.Context) error) error {
	tctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	err := op(tctx)
	if err != nil && ctx.Err() == nil && tctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w after %v: %v", errors.ErrTimeout, d, err)
	}
	return err
}
