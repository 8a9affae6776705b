// Package pipe provides an in-memory byte pipe built on channels with
// explicit flow control. The writer hands a chunk to the reader and then
// suspends until the reader has acknowledged every byte of it, so a slow
// reader applies backpressure one chunk at a time.
//
// Closing the writer ends the stream: the reader drains what is in flight
// and then sees io.EOF. Closing the reader tears the pipe down: a blocked
// or subsequent write fails with io.ErrClosedPipe.
package pipe

import (
	"context"
	"errors"
	"io"

	"github.com/lunascript/taskflow/pkg/sync/channel"
	"github.com/lunascript/taskflow/pkg/sync/mutex"
)

// Reader is the consuming end of a pipe.
type Reader struct {
	data *channel.Receiver[[]byte]
	ack  *channel.Sender[int]

	// buf holds the unconsumed remainder of the chunk in flight. Read is
	// not safe for concurrent use; calls must be serialized by the caller.
	buf []byte
}

// Writer is the producing end of a pipe.
type Writer struct {
	data *channel.Sender[[]byte]
	ack  *channel.Receiver[int]

	// mu serializes concurrent writers so chunk/ack pairs never interleave.
	mu *mutex.Mutex[struct{}]
}

// New creates a connected pipe pair. The data channel is a rendezvous, so a
// write does not complete until a reader is consuming.
func New() (*Reader, *Writer) {
	dataTx, dataRx := channel.New[[]byte](0)
	// Acks are buffered without bound so the reader never suspends while
	// reporting consumed bytes, even if the writer has already given up.
	ackTx, ackRx := channel.NewUnbounded[int]()

	r := &Reader{data: dataRx, ack: ackTx}
	w := &Writer{data: dataTx, ack: ackRx, mu: mutex.New(struct{}{})}
	return r, w
}

// Write delivers p to the reader and suspends until every byte has been
// acknowledged. It returns the number of bytes the reader consumed, which is
// short only on error. Write returns io.ErrClosedPipe once either end is
// closed, and ctx.Err() if the context is cancelled while suspended.
func (w *Writer) Write(ctx context.Context, p []byte) (int, error) {
	g, err := w.mu.Lock(ctx)
	if err != nil {
		return 0, err
	}
	defer g.Unlock()

	if w.data.IsClosed() {
		return 0, io.ErrClosedPipe
	}
	if len(p) == 0 {
		return 0, nil
	}

	// Detach from the caller's buffer; the reader holds the chunk across
	// several reads.
	chunk := make([]byte, len(p))
	copy(chunk, p)

	if err := w.data.Send(ctx, chunk); err != nil {
		if errors.Is(err, channel.ErrClosed) {
			return 0, io.ErrClosedPipe
		}
		return 0, err
	}

	consumed := 0
	for consumed < len(chunk) {
		n, ok, err := w.ack.Recv(ctx)
		if err != nil {
			return consumed, err
		}
		if !ok {
			return consumed, io.ErrClosedPipe
		}
		consumed += n
	}
	return consumed, nil
}

// Close ends the stream. The reader drains any chunk already in flight and
// then observes io.EOF. Close is idempotent.
func (w *Writer) Close() error {
	return w.data.Close()
}

// Read fills p from the chunk in flight, receiving the next chunk when the
// current one is exhausted. Every byte consumed is acknowledged back to the
// writer. Read returns io.EOF once the writer has closed and all chunks are
// drained, and io.ErrClosedPipe after the reader itself is closed.
func (r *Reader) Read(ctx context.Context, p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.ack.IsClosed() {
			return 0, io.ErrClosedPipe
		}
		chunk, ok, err := r.data.Recv(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, io.EOF
		}
		r.buf = chunk
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]

	// The ack channel is unbounded and only this end closes it, so the
	// acknowledgement cannot suspend. A closed-ack error means Close raced
	// us; the bytes were still delivered.
	if _, err := r.ack.TrySend(n); err != nil && !errors.Is(err, channel.ErrClosed) {
		return n, err
	}
	return n, nil
}

// Close tears the pipe down. Blocked and subsequent writes fail with
// io.ErrClosedPipe; any unconsumed chunk is discarded. Close is idempotent.
func (r *Reader) Close() error {
	r.buf = nil
	if err := r.data.Close(); err != nil {
		return err
	}
	return r.ack.Close()
}
