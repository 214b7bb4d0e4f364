package gouchan

import (
	"context"
	"errors"
	"sync"

	"github.com/gouchan/gouchan/countdown"
)

// ErrClosed is the sentinel error reported by a [ResultStream] that is
// closed before a value could be delivered.
var ErrClosed = errors.New("gouchan: result stream is closed")

// A ResultStream is a context-aware, bounded fan-in channel for a known-size
// pool of producers that all feed a single consumer: many producer
// goroutines call [ResultStream.Send] to deliver values to a single
// consumer reading from [ResultStream.Recv]. Unlike [Channel], a
// ResultStream has a fixed buffer capacity, a Send that can be cancelled by
// a context, and it knows how many producers are expected to report.
//
// A producer calls [ResultStream.ProducerDone] once it has sent its last
// value; once every expected producer has done so, the stream closes
// itself. This replaces the hand-rolled "decrement a countdown, and
// whoever drives it to zero closes the shared channel" dance that
// cmd/gouchan-demo's worker pools would otherwise have to repeat around a
// bare [Channel] and a [countdown.Countdown].
type ResultStream[T any] struct {
	// mu protects the fields below: readers take it for reading to observe
	// ch consistently with a concurrent Close; Close takes it exclusively.
	mu        sync.RWMutex
	ch        chan T
	done      chan struct{}
	producers *countdown.Countdown
}

// NewResultStream creates a new ResultStream with the given channel buffer
// capacity, expecting producers distinct goroutines to each eventually call
// [ResultStream.ProducerDone] exactly once. A capacity of 0 makes every Send
// synchronize directly with a Recv.
func NewResultStream[T any](capacity, producers int) *ResultStream[T] {
	return &ResultStream[T]{
		ch:        make(chan T, capacity),
		done:      make(chan struct{}),
		producers: countdown.New(producers),
	}
}

// Recv returns the channel that delivers sent values. The returned channel
// is closed when the stream is closed; values buffered before the close
// remain receivable from it, including by a caller that fetches it only
// after the stream has closed.
func (rs *ResultStream[T]) Recv() <-chan T {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.ch
}

// Send delivers v to the stream. It blocks until v is delivered, the stream
// is closed, or ctx ends, whichever happens first.
func (rs *ResultStream[T]) Send(ctx context.Context, v T) error {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	select {
	case <-rs.done:
		return ErrClosed
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-rs.done:
		return ErrClosed
	case rs.ch <- v:
		return nil
	}
}

// ProducerDone reports that one of the producers passed to
// [NewResultStream] has finished sending. Once every expected producer has
// called ProducerDone, the stream closes itself; only the one call that
// drives the count to zero actually closes it, so producers never need to
// coordinate among themselves to decide who closes the stream.
func (rs *ResultStream[T]) ProducerDone() {
	if rs.producers.DecAndFinished() {
		rs.Close()
	}
}

// Close closes the stream, closing the channel returned by Recv and failing
// any pending or future Send with [ErrClosed]. Close reports ErrClosed if
// rs is already closed. It is safe to call Close directly instead of
// relying on ProducerDone — for example to cut a stream short on an error —
// and safe to call it concurrently with ProducerDone or with itself.
func (rs *ResultStream[T]) Close() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	select {
	case <-rs.done:
		return ErrClosed
	default:
		close(rs.done)
		close(rs.ch)
		return nil
	}
}
