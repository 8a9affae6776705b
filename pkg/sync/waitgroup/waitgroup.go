// Package waitgroup provides a counter-based join primitive: Wait suspends
// the caller until the counter reaches zero. Unlike sync.WaitGroup it
// supports context cancellation while waiting, which the nursery scheduler
// relies on for cooperative aborts.
package waitgroup

import (
	"context"
	"sync"
)

// WaitGroup tracks a counter of outstanding work. Add increments it, Done
// decrements it, and Wait suspends until it reaches zero. Driving the counter
// negative is a programming error and panics.
type WaitGroup struct {
	mu      sync.Mutex
	count   int
	waiters []chan struct{}
}

// New creates a WaitGroup with a zero counter.
func New() *WaitGroup {
	return &WaitGroup{}
}

// Add adds delta, which may be negative, to the counter. If the counter
// reaches zero every suspended Wait call is released together. If the
// counter goes negative, Add panics.
func (wg *WaitGroup) Add(delta int) {
	wg.mu.Lock()
	defer wg.mu.Unlock()

	wg.count += delta
	if wg.count < 0 {
		panic("waitgroup: negative counter")
	}
	if wg.count == 0 {
		for _, w := range wg.waiters {
			close(w)
		}
		wg.waiters = nil
	}
}

// Done decrements the counter by one.
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Count returns the current counter value.
func (wg *WaitGroup) Count() int {
	wg.mu.Lock()
	defer wg.mu.Unlock()
	return wg.count
}

// Wait suspends until the counter reaches zero or ctx is cancelled. A
// counter already at zero returns immediately.
func (wg *WaitGroup) Wait(ctx context.Context) error {
	wg.mu.Lock()
	if wg.count == 0 {
		wg.mu.Unlock()
		return nil
	}

	w := make(chan struct{})
	wg.waiters = append(wg.waiters, w)
	wg.mu.Unlock()

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		wg.mu.Lock()
		for i, o := range wg.waiters {
			if o == w {
				wg.waiters = append(wg.waiters[:i], wg.waiters[i+1:]...)
				break
			}
		}
		wg.mu.Unlock()
		return ctx.Err()
	}
}
