/*
Package taskflow provides the structured-concurrency core of a scripting
runtime: nursery-scoped task execution, channel-based message passing, and
multiplexed waiting, plus the structural type-compatibility engine consumed
by the runtime's static checker.

Synchronization (pkg/sync):
  - channel: rendezvous/bounded/unbounded closeable channels with Sender and
    Receiver handles, plus Select for first-ready multiplexing
  - mutex: value-owning asynchronous mutex with guard-based unlock
  - waitgroup: counter-based join primitive

Scheduling (pkg/nursery, pkg/sched):
  - nursery: structured scopes that own their tasks, propagate the first
    failure, and never return before every spawned task is accounted for
  - sched: timer channels and cron-expression scheduling into a nursery

Interop (pkg/io/pipe, pkg/worker):
  - pipe: channel-backed pipes with bytes-consumed flow control
  - worker: length-prefix framing and mutex-guarded shared streams

Type checking (pkg/types):
  - structural assignability over primitives, constants, structs, unions,
    intersections, tuples, functions, variadics and aliases, with
    composable incompatibility diagnostics

Example usage:

	import (
		"github.com/lunascript/taskflow/pkg/nursery"
		"github.com/lunascript/taskflow/pkg/sync/channel"
	)

	tx, rx := channel.New[int](8)
	err := nursery.Run(ctx, func(ctx context.Context, n *nursery.Nursery) error {
		n.Go("producer", func(ctx context.Context) error {
			defer tx.Close()
			return tx.Send(ctx, 42)
		})
		_, _, err := rx.Recv(ctx)
		return err
	})
*/
package taskflow
