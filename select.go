package gouchan

import (
	"math/rand/v2"
	"sync"
)

// A Case is one candidate of a [Select] call, bound to a specific channel
// and payload type. Construct one with [Recv]. The interface's methods are
// unexported, so Case can only be implemented by values this package
// produces.
type Case interface {
	tryNonBlocking() bool
	run(s *selectSession, idx int)
	wake()
	delivered() bool
}

// A RecvCase is the [Case] implementation returned by [Recv]. After
// [Select] returns, call [RecvCase.Value] on the winning case to retrieve
// its delivered value.
type RecvCase[T any] struct {
	ch       *Channel[T]
	result   T
	hasValue bool
}

// Recv constructs a Select case that receives from ch.
func Recv[T any](ch *Channel[T]) *RecvCase[T] {
	if ch == nil {
		panic("gouchan: select case has a nil channel")
	}
	return &RecvCase[T]{ch: ch}
}

// Value returns the value delivered to this case by the [Select] call that
// produced it, and whether that value was a real send (true) rather than
// the closed-and-drained terminator (false). Calling Value on a case that
// did not win is valid but meaningless: it reports the zero value and false.
func (c *RecvCase[T]) Value() (T, bool) { return c.result, c.hasValue }

func (c *RecvCase[T]) tryNonBlocking() bool {
	v, ok := c.ch.TryReceive()
	c.result, c.hasValue = v, ok
	return ok
}

func (c *RecvCase[T]) run(s *selectSession, idx int) {
	v, ok, won := c.ch.receiveSelect(s, idx)
	if !won {
		return
	}
	c.result, c.hasValue = v, ok
	s.finish(idx)
}

func (c *RecvCase[T]) wake() { c.ch.wakeForSelect() }

func (c *RecvCase[T]) delivered() bool { return c.hasValue }

// selectSession coordinates the helper goroutines spawned by [Select]'s
// Phase B. winner is the index of the candidate that has claimed the right
// to deliver a result, or -1 if undecided; done is set only once that
// candidate has actually finished popping its value and is safe for the
// caller to read.
//
// Lock order: a candidate's own channel mutex, if held, is always acquired
// before the session mutex (see Channel.receiveSelect, which calls tryClaim
// while still holding its channel's lock) — never the reverse. finish does
// not nest the two locks at all: it wakes each losing channel (acquiring and
// releasing that channel's mutex in turn) before it ever takes the session
// mutex to record done.
type selectSession struct {
	mu     sync.Mutex
	cond   *sync.Cond
	cases  []Case
	winner int
	done   bool
}

func newSelectSession(cases []Case) *selectSession {
	s := &selectSession{cases: cases, winner: -1}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *selectSession) decided() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.winner >= 0
}

// tryClaim reports whether idx is (or becomes) the session's winner. At
// most one call across all candidates ever returns true.
func (s *selectSession) tryClaim(idx int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.winner < 0 {
		s.winner = idx
	}
	return s.winner == idx
}

// finish records that the winning candidate idx has finished collecting its
// result, wakes every other candidate's helper so it notices the session is
// decided and returns without consuming a value, and wakes the caller
// blocked in wait.
func (s *selectSession) finish(idx int) {
	for i, c := range s.cases {
		if i != idx {
			c.wake()
		}
	}
	s.mu.Lock()
	s.done = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

func (s *selectSession) wait() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for !s.done {
		s.cond.Wait()
	}
	return s.winner
}

// Select blocks until exactly one of cases delivers a value, then reports
// its index and whether the delivery was a real value (true) or the
// closed-and-drained terminator (false). Every other case is guaranteed to
// be untouched by the call: none of them loses a value, whether or not it
// was ready to deliver one.
//
// Select first makes a single non-blocking pass over cases in random order
// (so repeated calls do not systematically favor low-numbered candidates
// when several are simultaneously ready), then — only if none was
// immediately ready — blocks, spawning one helper goroutine per candidate to
// race for the win.
//
// Select panics if cases is empty.
func Select(cases ...Case) (int, bool) {
	if len(cases) == 0 {
		panic("gouchan: Select requires at least one case")
	}
	for _, i := range rand.Perm(len(cases)) {
		if cases[i].tryNonBlocking() {
			return i, cases[i].delivered()
		}
	}

	s := newSelectSession(cases)
	for i, c := range cases {
		go c.run(s, i)
	}
	idx := s.wait()
	return idx, cases[idx].delivered()
}
