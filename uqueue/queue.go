// Package uqueue implements a growable ring-buffer FIFO queue.
//
// A Queue is a single-owner data structure: it does no locking of its own,
// so a caller that shares a Queue across goroutines must supply its own
// synchronization. [github.com/gouchan/gouchan.Channel] uses a Queue this
// way, guarding all access with its own mutex.
package uqueue

// initialCapacity is the number of slots a new Queue starts with, and the
// floor below which Get will never shrink the backing array.
const initialCapacity = 512

// A Queue is a FIFO container of values of type T, backed by a circular
// buffer that grows by doubling and shrinks by halving. The zero Queue is
// not ready for use; construct one with [New].
type Queue[T any] struct {
	data []T
	head int // index of the next value to read
	tail int // index of the next slot to write
	n    int // number of live values currently stored
}

// New constructs an empty Queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{data: make([]T, initialCapacity)}
}

// Len reports the number of values currently in q.
func (q *Queue[T]) Len() int { return q.n }

// Empty reports whether q has no values.
func (q *Queue[T]) Empty() bool { return q.n == 0 }

// Put appends x to the tail of q, growing the backing array first if q is
// full. The zero value of T is a legal payload.
func (q *Queue[T]) Put(x T) {
	if q.n == len(q.data) {
		q.grow()
	}
	q.data[q.tail] = x
	q.n++
	q.tail = (q.tail + 1) % len(q.data)
}

// grow doubles the capacity of q, relinearizing the logical sequence
// [head, ...) then [..., tail) into the new array starting at index 0.
func (q *Queue[T]) grow() {
	old := len(q.data)
	next := make([]T, 2*old)
	copied := copy(next, q.data[q.head:])
	copy(next[copied:], q.data[:q.tail])
	q.data = next
	q.head = 0
	q.tail = old
}

// Get removes and returns the value at the head of q. It panics if q is
// empty; callers must check Empty (or Len) first, since a Queue supplies no
// synchronization of its own to make a safe speculative call possible.
func (q *Queue[T]) Get() T {
	if q.Empty() {
		panic("uqueue: Get on empty queue")
	}
	var zero T
	x := q.data[q.head]
	q.data[q.head] = zero // let the old value be collected
	q.n--
	q.head = (q.head + 1) % len(q.data)
	if len(q.data) > initialCapacity && q.n < len(q.data)/4 {
		q.shrink()
	}
	return x
}

// shrink halves the capacity of q (never below initialCapacity),
// relinearizing the live range [head, tail) into the new array starting at
// index 0. The wrapped (head > tail) and linear (head <= tail) cases copy
// differently, since a wrapped range spans the end of the old array.
func (q *Queue[T]) shrink() {
	old := len(q.data)
	newCap := old / 2
	if newCap < initialCapacity {
		newCap = initialCapacity
	}
	next := make([]T, newCap)
	if q.head <= q.tail {
		copy(next, q.data[q.head:q.tail])
	} else {
		copied := copy(next, q.data[q.head:])
		copy(next[copied:], q.data[:q.tail])
	}
	q.data = next
	q.head = 0
	q.tail = q.n
}
