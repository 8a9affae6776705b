// Package channel provides closeable message channels with Sender and
// Receiver handles, plus Select for waiting on the first ready of several
// channel operations.
//
// A channel is created with a capacity: 0 gives rendezvous semantics (a send
// suspends until a receiver takes the value), a positive capacity gives a
// bounded buffer, and Unbounded gives a buffer that grows without limit.
// Suspended senders and receivers on each end are served first-in-first-out.
//
// Closing is idempotent and may be done from either handle. Buffered values
// remain drainable after close; once drained, Recv reports (zero, false) and
// Send reports ErrClosed.
//
// Select multiplexes several channel operations:
//
//	err := channel.Select(ctx,
//		channel.Recv(events, func(e Event, ok bool) { ... }),
//		channel.Recv(timer, func(t time.Time, ok bool) { ... }),
//		channel.Default(func() { ... }),
//	)
//
// Simultaneously-ready cases are chosen uniformly at random.
package channel
