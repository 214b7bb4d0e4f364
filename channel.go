package gouchan

import (
	"sync"

	"github.com/gouchan/gouchan/uqueue"
)

// A Channel is an unbounded, thread-safe FIFO of values of type T, with a
// one-shot close. The zero Channel is not ready for use; construct one with
// [New].
//
// Guarantees:
//   - Per-producer FIFO: the order in which a single goroutine's sends
//     complete matches the order any receiver observes them in.
//   - No ordering is promised across sends made by different goroutines.
//   - After Close, values already enqueued remain receivable without
//     blocking ("closed but not drained"); once the queue is empty,
//     receives return immediately with ok == false ("closed and drained").
//   - Sending on a closed Channel panics, and so does closing a Channel
//     twice: both are programmer errors, not run-time conditions a caller
//     is expected to recover from.
type Channel[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	q      *uqueue.Queue[T]
	closed bool
	stats  *Value[ChannelStats]
}

// ChannelStats is a point-in-time snapshot of a [Channel]'s traffic, kept up
// to date in the [Value] returned by [Channel.Stats].
type ChannelStats struct {
	Sent, Received uint64
	Closed         bool
}

// New constructs an empty, open Channel.
func New[T any]() *Channel[T] {
	ch := &Channel[T]{q: uqueue.New[T](), stats: NewValue(ChannelStats{})}
	ch.cond = sync.NewCond(&ch.mu)
	return ch
}

// Stats returns the live traffic counters for ch. A caller can poll it with
// [Value.Get] or block until the next send, receive, or close with
// [Value.Wait], instead of busy-polling [Channel.Len].
func (ch *Channel[T]) Stats() *Value[ChannelStats] { return ch.stats }

// Send enqueues x. x may be the zero value of T. Send panics if ch has
// already been closed.
func (ch *Channel[T]) Send(x T) {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		panic("gouchan: send on closed channel")
	}
	ch.q.Put(x)
	ch.cond.Broadcast()
	ch.mu.Unlock()

	bump(ch.stats, func(s ChannelStats) ChannelStats {
		s.Sent++
		return s
	})
}

// Close marks ch as closed: no further sends are permitted, but values
// already enqueued remain receivable. Close panics if ch is already closed.
func (ch *Channel[T]) Close() {
	ch.mu.Lock()
	if ch.closed {
		ch.mu.Unlock()
		panic("gouchan: close of closed channel")
	}
	ch.closed = true
	ch.cond.Broadcast()
	ch.mu.Unlock()

	bump(ch.stats, func(s ChannelStats) ChannelStats {
		s.Closed = true
		return s
	})
}

// Len reports the number of values currently buffered in ch. The result is
// stale the instant it is returned, since another goroutine may concurrently
// send or receive.
func (ch *Channel[T]) Len() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.q.Len()
}

// Receive blocks until a value is available or ch is closed and drained. It
// returns (value, true) for a delivered value, or (zero, false) once ch has
// been closed and all previously sent values have been received.
func (ch *Channel[T]) Receive() (T, bool) {
	ch.mu.Lock()
	for ch.q.Empty() && !ch.closed {
		ch.cond.Wait()
	}
	if ch.q.Empty() {
		ch.mu.Unlock()
		var zero T
		return zero, false
	}
	v := ch.q.Get()
	ch.mu.Unlock()

	bump(ch.stats, func(s ChannelStats) ChannelStats {
		s.Received++
		return s
	})
	return v, true
}

// TryReceive returns immediately: (value, true) if a value was available to
// pop, or (zero, false) otherwise. Unlike Receive, TryReceive never consults
// the closed flag, so it cannot distinguish "empty but open" from "empty and
// drained" — callers that need that distinction should use Receive.
func (ch *Channel[T]) TryReceive() (T, bool) {
	ch.mu.Lock()
	if ch.q.Empty() {
		ch.mu.Unlock()
		var zero T
		return zero, false
	}
	v := ch.q.Get()
	ch.mu.Unlock()

	bump(ch.stats, func(s ChannelStats) ChannelStats {
		s.Received++
		return s
	})
	return v, true
}

// receiveSelect is the blocking-receive entry point used by a [Select]
// helper goroutine acting on behalf of candidate idx within session s. It
// reports won == true only if this call both observed a deliverable result
// (a real value, or the closed-and-drained end-of-stream) and successfully
// claimed the session's win; in every other case it returns having popped
// nothing from ch, so no value is ever lost to a losing candidate.
//
// The arbitration — claiming the win — happens while ch.mu is still held,
// which is what makes it safe for two helpers racing on two different
// channels: each can only decide while holding its own channel's lock, and
// session.tryClaim is the single point where the two helpers' decisions are
// serialized against each other.
func (ch *Channel[T]) receiveSelect(s *selectSession, idx int) (value T, ok bool, won bool) {
	ch.mu.Lock()
	for ch.q.Empty() && !ch.closed {
		if s.decided() {
			ch.mu.Unlock()
			return
		}
		ch.cond.Wait()
	}
	if !s.tryClaim(idx) {
		ch.mu.Unlock()
		return
	}
	if ch.q.Empty() {
		ch.mu.Unlock()
		return value, false, true
	}
	v := ch.q.Get()
	ch.mu.Unlock()

	bump(ch.stats, func(s ChannelStats) ChannelStats {
		s.Received++
		return s
	})
	return v, true, true
}

// wakeForSelect wakes any goroutine parked in receiveSelect on ch, so it can
// notice that a session it was participating in has already been decided by
// another candidate. It takes ch's own mutex around the broadcast so that the
// wakeup cannot be lost: a goroutine inside receiveSelect's wait loop either
// already holds ch.mu (and this call blocks until it releases it, which
// happens atomically with registering on the condition), or has already
// returned.
func (ch *Channel[T]) wakeForSelect() {
	ch.mu.Lock()
	ch.cond.Broadcast()
	ch.mu.Unlock()
}
