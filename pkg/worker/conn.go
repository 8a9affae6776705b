// Package worker provides the framing and stream plumbing used to talk to
// worker processes. Messages travel as length prefixed frames: nine ASCII
// decimal digits followed by that many payload bytes. Conn wraps a shared
// stream pair and serializes concurrently posting callers with a mutex, so
// frames from different tasks never interleave on the wire.
package worker

import (
	"context"
	"io"

	"github.com/lunascript/taskflow/pkg/metrics"
	"github.com/lunascript/taskflow/pkg/sync/mutex"
)

// Conn is a framed connection over a shared stream pair. Many tasks may
// call Post and Receive concurrently; each frame is written or read under
// the corresponding lock.
type Conn struct {
	w *mutex.Mutex[io.Writer]
	r *mutex.Mutex[io.Reader]

	name string
	reg  *metrics.Registry
}

// Option configures a Conn.
type Option func(*Conn)

// WithName sets the stream name used in metric labels.
func WithName(name string) Option {
	return func(c *Conn) { c.name = name }
}

// WithMetrics records per-frame counters in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(c *Conn) { c.reg = reg }
}

// NewConn wraps an input and an output stream. The two directions lock
// independently, so a blocked Receive never delays a Post.
func NewConn(r io.Reader, w io.Writer, opts ...Option) *Conn {
	c := &Conn{
		w:    mutex.New[io.Writer](w),
		r:    mutex.New[io.Reader](r),
		name: "worker",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Post writes payload as one frame. Concurrent posters are serialized;
// the lock is held for the duration of the write so a frame is never
// interleaved with another poster's.
func (c *Conn) Post(ctx context.Context, payload []byte) error {
	g, err := c.w.Lock(ctx)
	if err != nil {
		return err
	}
	defer g.Unlock()

	if err := WriteFrame(g.Value(), payload); err != nil {
		return err
	}
	if c.reg != nil {
		c.reg.FramesWritten.WithLabelValues(c.name).Inc()
		c.reg.FrameBytes.WithLabelValues(c.name).Add(float64(len(payload)))
	}
	return nil
}

// Receive reads the next frame's payload. Concurrent receivers are
// serialized; io.EOF reports a clean end of stream.
func (c *Conn) Receive(ctx context.Context) ([]byte, error) {
	g, err := c.r.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer g.Unlock()

	return ReadFrame(g.Value())
}
