// Package mutex provides an asynchronous mutual-exclusion wrapper that owns
// the value it guards. Lock suspends the calling task instead of blocking a
// worker thread, and access to the value is only reachable through the
// returned Guard, so a caller cannot touch the value without holding the lock.
package mutex

import (
	"context"
	"sync/atomic"
)

// Mutex owns a single value of type T and serializes access to it.
// The zero value is not usable; create one with New.
type Mutex[T any] struct {
	sem chan struct{}
	val T
}

// Guard represents a held lock. The protected value is reached through
// Value/Set and released with Unlock. Unlocking a guard twice is a no-op:
// the second Unlock releases nothing and grants nothing.
type Guard[T any] struct {
	m        *Mutex[T]
	released atomic.Bool
}

// New creates a Mutex owning v.
func New[T any](v T) *Mutex[T] {
	m := &Mutex[T]{
		sem: make(chan struct{}, 1),
		val: v,
	}
	m.sem <- struct{}{}
	return m
}

// Lock suspends until the mutex is free and returns a Guard holding it.
// It returns ctx.Err() if the context is cancelled while suspended.
func (m *Mutex[T]) Lock(ctx context.Context) (*Guard[T], error) {
	select {
	case <-m.sem:
		return &Guard[T]{m: m}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryLock attempts to take the mutex without suspending.
func (m *Mutex[T]) TryLock() (*Guard[T], bool) {
	select {
	case <-m.sem:
		return &Guard[T]{m: m}, true
	default:
		return nil, false
	}
}

// With locks the mutex, runs fn with the protected value, and releases the
// lock when fn returns, including when fn panics. The value returned by fn
// replaces the protected value.
func (m *Mutex[T]) With(ctx context.Context, fn func(v T) T) error {
	g, err := m.Lock(ctx)
	if err != nil {
		return err
	}
	defer g.Unlock()

	g.Set(fn(g.Value()))
	return nil
}

// Value returns the protected value. Calling Value after Unlock panics:
// the guard no longer confers access.
func (g *Guard[T]) Value() T {
	if g.released.Load() {
		panic("mutex: Value on released guard")
	}
	return g.m.val
}

// Set replaces the protected value. Calling Set after Unlock panics.
func (g *Guard[T]) Set(v T) {
	if g.released.Load() {
		panic("mutex: Set on released guard")
	}
	g.m.val = v
}

// Unlock releases the mutex. A second Unlock on the same guard is a no-op.
func (g *Guard[T]) Unlock() {
	if g.released.Swap(true) {
		return
	}
	g.m.sem <- struct{}{}
}
