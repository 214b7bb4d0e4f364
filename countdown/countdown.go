// Package countdown implements a reusable integer latch: a countdown that
// broadcasts to any number of waiting goroutines once its value reaches zero
// or below.
package countdown

import (
	"sync"
	"sync/atomic"
)

// A Countdown is a thread-safe latch initialized to a positive count. Any
// number of goroutines may adjust the count concurrently, and any number may
// [Countdown.Wait] for it to reach zero. Once the count has reached zero (or
// gone negative — over-decrementing is allowed and simply means "finished"),
// every current and future call to Wait returns immediately.
//
// A Countdown is reusable in the sense that [Countdown.Set] can raise the
// count again after it has been exhausted, but a Countdown that has been
// [Countdown.Close]d must not be used afterward.
type Countdown struct {
	n    atomic.Int64
	mu   sync.Mutex
	cond *sync.Cond
}

// New constructs a Countdown initialized to n, which must be strictly
// positive.
func New(n int) *Countdown {
	if n <= 0 {
		panic("countdown: initial value must be positive")
	}
	c := &Countdown{}
	c.cond = sync.NewCond(&c.mu)
	c.n.Store(int64(n))
	return c
}

// Add adjusts the count by i, which may be negative. If the result is at
// most zero, every waiter is woken.
func (c *Countdown) Add(i int) { c.adjust(int64(i)) }

// Sub adjusts the count by -i. If the result is at most zero, every waiter
// is woken.
func (c *Countdown) Sub(i int) { c.adjust(-int64(i)) }

// Inc increments the count by one.
func (c *Countdown) Inc() { c.adjust(1) }

// Dec decrements the count by one. If the result is at most zero, every
// waiter is woken.
func (c *Countdown) Dec() { c.adjust(-1) }

// DecAndFinished decrements the count by one and reports whether this call
// was the one that drove it to exactly zero. At most one of any number of
// concurrent DecAndFinished calls against the same Countdown ever reports
// true, which makes it the right primitive for "the last worker to finish
// closes the shared result stream" coordination (the root package's
// ResultStream.ProducerDone uses it this way) without a separate Finished check
// racing against other goroutines' decrements.
func (c *Countdown) DecAndFinished() bool {
	n := c.n.Add(-1)
	if n <= 0 {
		c.cond.Broadcast()
	}
	return n == 0
}

func (c *Countdown) adjust(delta int64) {
	if c.n.Add(delta) <= 0 {
		c.cond.Broadcast()
	}
}

// Set stores i as the current count, replacing whatever was there. If i is
// at most zero, every waiter is woken.
//
// Set may be used to reuse a Countdown for a subsequent round of work: raise
// the count again once all waiters from the previous round have observed
// completion.
func (c *Countdown) Set(i int) {
	c.n.Store(int64(i))
	if i <= 0 {
		c.cond.Broadcast()
	}
}

// Wait blocks the calling goroutine until the count is at most zero.
// Spurious wakeups are tolerated: Wait re-checks the count itself.
func (c *Countdown) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.n.Load() > 0 {
		c.cond.Wait()
	}
}

// Get returns the current count without blocking.
func (c *Countdown) Get() int64 { return c.n.Load() }

// Finished reports whether the count is at most zero.
func (c *Countdown) Finished() bool { return c.n.Load() <= 0 }

// Close wakes any goroutine still blocked in Wait, regardless of the current
// count. Using c after Close is undefined; Close exists so a caller that is
// tearing down a pipeline can guarantee no goroutine is left parked on a
// Countdown that will never again be adjusted.
func (c *Countdown) Close() {
	c.cond.Broadcast()
}
