// Package gouchan provides an unbounded, multi-producer/multi-consumer FIFO
// channel with a multi-way receive-select operation.
//
// Unlike a native Go channel, a [Channel] has no fixed capacity: [Channel.Send]
// never blocks (short of allocation), and the channel grows to hold whatever
// has been sent but not yet received. This trades away back-pressure for
// producers that must never stall, at the cost of unbounded memory growth if
// a producer consistently outpaces its consumers — a deliberate design
// choice, not an oversight.
//
// A Channel supports exactly the operations a consumer needs to drive a
// fan-in or worker-pool pipeline: [Channel.Send], blocking [Channel.Receive],
// non-blocking [Channel.TryReceive], [Channel.Close] (after which the
// channel drains but accepts no further sends), and [Channel.Len].
//
// [Select] extends Receive to many channels at once: it blocks until exactly
// one of a set of candidate channels delivers a value, and guarantees that
// none of the other candidates loses a value in the process.
//
// This package also exports a few smaller single-value primitives that
// round out the toolkit: [Value] and [Linked] for a compare-and-swap cell
// with a context-aware wait, [Flag] for a non-blocking single-slot buffer,
// and [ResultStream] for a bounded, context-cancellable fan-in channel.
//
// The companion packages [github.com/gouchan/gouchan/uqueue] and
// [github.com/gouchan/gouchan/countdown] implement the growable queue that
// backs a Channel and a reusable countdown latch often used alongside a
// Channel to know when a pool of producers has finished, respectively.
// [github.com/gouchan/gouchan/throttle] and [github.com/gouchan/gouchan/trigger]
// round out the package with call coalescing and a broadcastable start gate.
package gouchan
