package channel

import (
	"context"
	"sync"

	"github.com/lunascript/taskflow/pkg/common/errors"
	"github.com/lunascript/taskflow/pkg/metrics"
)

// ErrClosed is returned by Send when the channel has been closed. Receives
// never return it through Recv; a closed, drained channel yields (zero, false).
var ErrClosed = errors.ErrClosed

// Unbounded is the capacity value for a channel whose buffer grows without limit.
const Unbounded = -1

// recvResult carries a handed-off value to a suspended receiver.
type recvResult[T any] struct {
	val T
	ok  bool
}

// sendWaiter is a suspended sender. done receives nil once the value has been
// taken, or ErrClosed if the channel closed first.
type sendWaiter[T any] struct {
	val  T
	done chan error
}

// recvWaiter is a suspended receiver.
type recvWaiter[T any] struct {
	res chan recvResult[T]
}

// core is the shared state behind a Sender/Receiver pair.
//
// Waiters on each end are served first-in-first-out so no caller starves.
// Select subscribers are notified (non-blocking) on every state change so
// suspended selects can re-poll readiness.
type core[T any] struct {
	mu       sync.Mutex
	buf      []T
	capacity int // 0 = rendezvous, >0 = bounded, Unbounded = growable
	closed   bool
	sendq    []*sendWaiter[T]
	recvq    []*recvWaiter[T]
	subs     map[chan struct{}]int

	name string
	reg  *metrics.Registry
}

// Sender is the sending half of a channel. A Sender may be cloned and shared
// across tasks; all clones refer to the same channel.
type Sender[T any] struct {
	c *core[T]
}

// Receiver is the receiving half of a channel.
type Receiver[T any] struct {
	c *core[T]
}

// New creates a channel with the given capacity and returns its two halves.
// Capacity 0 creates a rendezvous channel: a send suspends until a receiver
// is waiting. A negative capacity (see Unbounded) creates a channel whose
// buffer grows without limit, so sends never suspend.
func New[T any](capacity int) (*Sender[T], *Receiver[T]) {
	c := &core[T]{
		capacity: capacity,
		subs:     make(map[chan struct{}]int),
	}
	return &Sender[T]{c: c}, &Receiver[T]{c: c}
}

// NewUnbounded creates a channel whose buffer grows without limit.
func NewUnbounded[T any]() (*Sender[T], *Receiver[T]) {
	return New[T](Unbounded)
}

// NewWithMetrics creates a channel instrumented with the default metrics registry.
func NewWithMetrics[T any](capacity int, name string) (*Sender[T], *Receiver[T]) {
	return NewWithRegistry[T](capacity, name, metrics.DefaultRegistry)
}

// NewWithRegistry creates a channel instrumented with a custom metrics registry.
func NewWithRegistry[T any](capacity int, name string, reg *metrics.Registry) (*Sender[T], *Receiver[T]) {
	tx, rx := New[T](capacity)
	tx.c.name = name
	tx.c.reg = reg
	return tx, rx
}

// Send delivers v to the channel, suspending until buffer space is available
// or a receiver is waiting. It returns ErrClosed if the channel is or becomes
// closed before the value is taken, and ctx.Err() if the context is cancelled
// while suspended.
func (s *Sender[T]) Send(ctx context.Context, v T) error {
	c := s.c
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	// Direct handoff to the oldest waiting receiver.
	if len(c.recvq) > 0 {
		rw := c.recvq[0]
		c.recvq = c.recvq[1:]
		rw.res <- recvResult[T]{val: v, ok: true}
		c.countSendLocked()
		c.notifyLocked()
		c.mu.Unlock()
		return nil
	}

	if c.hasSpaceLocked() {
		c.buf = append(c.buf, v)
		c.countSendLocked()
		c.notifyLocked()
		c.mu.Unlock()
		return nil
	}

	w := &sendWaiter[T]{val: v, done: make(chan error, 1)}
	c.sendq = append(c.sendq, w)
	c.countBlockedLocked("send")
	// A parked sender makes the channel recv-ready; wake subscribers.
	c.notifyLocked()
	c.mu.Unlock()

	select {
	case err := <-w.done:
		return err
	case <-ctx.Done():
		c.mu.Lock()
		removed := c.removeSendLocked(w)
		c.mu.Unlock()
		if !removed {
			// A receiver (or Close) already resolved this waiter; honor the
			// outcome so the handed-off value is not lost.
			return <-w.done
		}
		return ctx.Err()
	}
}

// TrySend attempts to deliver v without suspending. It reports whether the
// value was delivered, and returns ErrClosed if the channel is closed.
func (s *Sender[T]) TrySend(v T) (bool, error) {
	c := s.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrClosed
	}

	if len(c.recvq) > 0 {
		rw := c.recvq[0]
		c.recvq = c.recvq[1:]
		rw.res <- recvResult[T]{val: v, ok: true}
		c.countSendLocked()
		c.notifyLocked()
		return true, nil
	}

	if c.hasSpaceLocked() {
		c.buf = append(c.buf, v)
		c.countSendLocked()
		c.notifyLocked()
		return true, nil
	}

	return false, nil
}

// Close closes the channel. Suspended senders are woken with ErrClosed and
// suspended receivers with (zero, false). Values already buffered remain
// drainable. Close is idempotent.
func (s *Sender[T]) Close() error { return s.c.close() }

// IsClosed reports whether the channel has been closed.
func (s *Sender[T]) IsClosed() bool { return s.c.isClosed() }

// Clone returns a new Sender sharing the same channel.
func (s *Sender[T]) Clone() *Sender[T] { return &Sender[T]{c: s.c} }

// Recv takes the next value from the channel, suspending until one is
// available. On a closed and drained channel it returns (zero, false, nil);
// closure is not an error for receivers. It returns ctx.Err() if the context
// is cancelled while suspended.
func (r *Receiver[T]) Recv(ctx context.Context) (T, bool, error) {
	c := r.c
	c.mu.Lock()

	if v, ok := c.takeLocked(); ok {
		c.mu.Unlock()
		return v, true, nil
	}

	if c.closed {
		c.mu.Unlock()
		var zero T
		return zero, false, nil
	}

	w := &recvWaiter[T]{res: make(chan recvResult[T], 1)}
	c.recvq = append(c.recvq, w)
	c.countBlockedLocked("recv")
	// A parked receiver makes the channel send-ready; wake subscribers.
	c.notifyLocked()
	c.mu.Unlock()

	select {
	case res := <-w.res:
		return res.val, res.ok, nil
	case <-ctx.Done():
		c.mu.Lock()
		removed := c.removeRecvLocked(w)
		c.mu.Unlock()
		if !removed {
			res := <-w.res
			return res.val, res.ok, nil
		}
		var zero T
		return zero, false, ctx.Err()
	}
}

// TryRecv attempts to take a value without suspending. It reports whether a
// value was taken; on an empty open channel it returns (zero, false, nil) and
// on a closed, drained channel (zero, false, ErrClosed).
func (r *Receiver[T]) TryRecv() (T, bool, error) {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()

	if v, ok := c.takeLocked(); ok {
		return v, true, nil
	}

	var zero T
	if c.closed {
		return zero, false, ErrClosed
	}
	return zero, false, nil
}

// Close closes the channel from the receiving side. See Sender.Close.
func (r *Receiver[T]) Close() error { return r.c.close() }

// IsClosed reports whether the channel has been closed.
func (r *Receiver[T]) IsClosed() bool { return r.c.isClosed() }

// Len returns the current number of buffered values.
func (r *Receiver[T]) Len() int {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	return len(r.c.buf)
}

// Cap returns the channel capacity. Negative means unbounded.
func (r *Receiver[T]) Cap() int { return r.c.capacity }

func (c *core[T]) hasSpaceLocked() bool {
	if c.capacity < 0 {
		return true
	}
	return c.capacity > 0 && len(c.buf) < c.capacity
}

// takeLocked removes and returns the next value, serving buffered values
// first and then suspended senders in FIFO order. When a buffer slot frees
// up, the oldest suspended sender's value is promoted into it.
func (c *core[T]) takeLocked() (T, bool) {
	if len(c.buf) > 0 {
		v := c.buf[0]
		c.buf = c.buf[1:]
		if len(c.sendq) > 0 && c.capacity > 0 {
			sw := c.sendq[0]
			c.sendq = c.sendq[1:]
			c.buf = append(c.buf, sw.val)
			sw.done <- nil
		}
		c.countRecvLocked()
		c.notifyLocked()
		return v, true
	}

	if len(c.sendq) > 0 {
		sw := c.sendq[0]
		c.sendq = c.sendq[1:]
		sw.done <- nil
		c.countRecvLocked()
		c.notifyLocked()
		return sw.val, true
	}

	var zero T
	return zero, false
}

func (c *core[T]) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	for _, rw := range c.recvq {
		var zero T
		rw.res <- recvResult[T]{val: zero, ok: false}
	}
	c.recvq = nil

	for _, sw := range c.sendq {
		sw.done <- ErrClosed
	}
	c.sendq = nil

	if c.reg != nil {
		c.reg.ChannelCloses.WithLabelValues(c.name).Inc()
	}
	c.notifyLocked()
	return nil
}

func (c *core[T]) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *core[T]) removeSendLocked(w *sendWaiter[T]) bool {
	for i, sw := range c.sendq {
		if sw == w {
			c.sendq = append(c.sendq[:i], c.sendq[i+1:]...)
			return true
		}
	}
	return false
}

func (c *core[T]) removeRecvLocked(w *recvWaiter[T]) bool {
	for i, rw := range c.recvq {
		if rw == w {
			c.recvq = append(c.recvq[:i], c.recvq[i+1:]...)
			return true
		}
	}
	return false
}

// subscribe registers a select wakeup channel. Reference counted so several
// cases of one select may target the same channel.
func (c *core[T]) subscribe(ch chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs[ch]++
}

func (c *core[T]) unsubscribe(ch chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.subs[ch]; n > 1 {
		c.subs[ch] = n - 1
	} else {
		delete(c.subs, ch)
	}
}

func (c *core[T]) notifyLocked() {
	for ch := range c.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (c *core[T]) countSendLocked() {
	if c.reg != nil {
		c.reg.ChannelSends.WithLabelValues(c.name).Inc()
		c.reg.ChannelDepth.WithLabelValues(c.name).Set(float64(len(c.buf)))
	}
}

func (c *core[T]) countRecvLocked() {
	if c.reg != nil {
		c.reg.ChannelReceives.WithLabelValues(c.name).Inc()
		c.reg.ChannelDepth.WithLabelValues(c.name).Set(float64(len(c.buf)))
	}
}

func (c *core[T]) countBlockedLocked(op string) {
	if c.reg != nil {
		c.reg.ChannelBlocked.WithLabelValues(c.name, op).Inc()
	}
}
