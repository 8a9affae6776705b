package channel

import (
	"context"
	"math/rand"

	"github.com/lunascript/taskflow/pkg/metrics"
)

// Case is one branch of a Select. Build cases with Recv, Send and Default.
type Case interface {
	// attempt polls the case once. fired reports that the case resolved the
	// select; err is non-nil when resolution carries a failure (send on a
	// closed channel).
	attempt() (fired bool, err error)
	subscribe(ch chan struct{})
	unsubscribe(ch chan struct{})
}

type recvCase[T any] struct {
	r  *Receiver[T]
	fn func(v T, ok bool)
}

func (c *recvCase[T]) attempt() (bool, error) {
	v, ok, err := c.r.TryRecv()
	switch {
	case ok:
		c.fn(v, true)
		return true, nil
	case err != nil:
		// Closed and drained: the receive is ready and yields (zero, false).
		var zero T
		c.fn(zero, false)
		return true, nil
	default:
		return false, nil
	}
}

func (c *recvCase[T]) subscribe(ch chan struct{})   { c.r.c.subscribe(ch) }
func (c *recvCase[T]) unsubscribe(ch chan struct{}) { c.r.c.unsubscribe(ch) }

type sendCase[T any] struct {
	s  *Sender[T]
	v  T
	fn func()
}

func (c *sendCase[T]) attempt() (bool, error) {
	sent, err := c.s.TrySend(c.v)
	switch {
	case err != nil:
		return true, err
	case sent:
		if c.fn != nil {
			c.fn()
		}
		return true, nil
	default:
		return false, nil
	}
}

func (c *sendCase[T]) subscribe(ch chan struct{})   { c.s.c.subscribe(ch) }
func (c *sendCase[T]) unsubscribe(ch chan struct{}) { c.s.c.unsubscribe(ch) }

type defaultCase struct {
	fn func()
}

func (c *defaultCase) attempt() (bool, error)    { return false, nil }
func (c *defaultCase) subscribe(chan struct{})   {}
func (c *defaultCase) unsubscribe(chan struct{}) {}

// Recv builds a case that fires when r has a value available or is closed
// and drained; fn receives the value and its validity flag.
func Recv[T any](r *Receiver[T], fn func(v T, ok bool)) Case {
	return &recvCase[T]{r: r, fn: fn}
}

// Send builds a case that fires when v can be delivered on s without
// suspending. fn runs after a successful delivery and may be nil. If the
// channel is closed the select resolves with ErrClosed and fn does not run.
func Send[T any](s *Sender[T], v T, fn func()) Case {
	return &sendCase[T]{s: s, v: v, fn: fn}
}

// Default builds the non-blocking branch: it fires only when no other case
// is ready at the first readiness pass.
func Default(fn func()) Case {
	return &defaultCase{fn: fn}
}

// Select waits for the first ready case among cases and runs its handler.
//
// Readiness is polled in uniformly random order on every pass, so
// simultaneously-ready cases are chosen fairly rather than by registration
// order. When nothing is ready, a Default case (if present) fires
// immediately; otherwise Select suspends until a case becomes ready or ctx
// is cancelled. On cancellation all channel registrations are removed before
// returning, leaving no phantom waiters behind.
func Select(ctx context.Context, cases ...Case) error {
	return selectWith(ctx, nil, cases)
}

// SelectWithMetrics is Select instrumented with the given metrics registry.
func SelectWithMetrics(ctx context.Context, reg *metrics.Registry, cases ...Case) error {
	return selectWith(ctx, reg, cases)
}

func selectWith(ctx context.Context, reg *metrics.Registry, cases []Case) error {
	var def *defaultCase
	active := make([]Case, 0, len(cases))
	for _, c := range cases {
		if d, ok := c.(*defaultCase); ok {
			if def != nil {
				panic("channel: multiple Default cases in Select")
			}
			def = d
			continue
		}
		active = append(active, c)
	}

	if len(active) == 0 {
		if def == nil {
			panic("channel: Select requires at least one case")
		}
		def.fn()
		return nil
	}

	order := rand.Perm(len(active))
	poll := func() (bool, error) {
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, i := range order {
			if fired, err := active[i].attempt(); fired {
				return true, err
			}
		}
		return false, nil
	}

	if fired, err := poll(); fired {
		countRound(reg, "ready")
		return err
	}

	if def != nil {
		countRound(reg, "default")
		if reg != nil {
			reg.SelectDefaults.WithLabelValues("default").Inc()
		}
		def.fn()
		return nil
	}

	wake := make(chan struct{}, 1)
	for _, c := range active {
		c.subscribe(wake)
	}
	defer func() {
		for _, c := range active {
			c.unsubscribe(wake)
		}
	}()

	for {
		// Poll again after subscribing so a state change between the first
		// pass and registration is not missed.
		if fired, err := poll(); fired {
			countRound(reg, "ready")
			return err
		}

		select {
		case <-wake:
		case <-ctx.Done():
			countRound(reg, "cancelled")
			return ctx.Err()
		}
	}
}

func countRound(reg *metrics.Registry, outcome string) {
	if reg != nil {
		reg.SelectRounds.WithLabelValues(outcome).Inc()
	}
}
