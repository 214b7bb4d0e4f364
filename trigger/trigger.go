// Package trigger implements a level-triggered signal that many goroutines
// can wait on at once, used in this module's demo CLI as a worker-pool start
// gate: every worker parks on [Cond.Ready] until the gate is [Cond.Set],
// then all of them proceed together.
package trigger

import "sync"

// A Cond is a broadcastable, level-triggered condition. The zero Cond is
// unset and ready for use; a *Cond must not be copied after its first use.
//
// Unlike a one-shot close, a Cond can be set, reset, and set again: once
// [Cond.Set], it stays set (every subsequent [Cond.Ready] channel is already
// closed) until [Cond.Reset] clears it. [Cond.Signal] is for the edge-
// triggered case — it wakes whoever is waiting right now and immediately
// clears itself, so later arrivals wait for the next signal.
type Cond struct {
	mu sync.Mutex
	ch chan struct{}
}

// New constructs an unset Cond. It is equivalent to new(Cond); New exists so
// callers that prefer a constructor over a zero value have one.
func New() *Cond { return new(Cond) }

func (c *Cond) ensureLocked() chan struct{} {
	if c.ch == nil {
		c.ch = make(chan struct{})
	}
	return c.ch
}

// Ready returns a channel that is closed once c is set. The same channel is
// returned to every caller until the next [Cond.Reset] or [Cond.Signal], so
// all of them are woken together.
func (c *Cond) Ready() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLocked()
}

// Set marks c as set, waking every goroutine currently waiting on
// [Cond.Ready] and every future caller until [Cond.Reset]. Set is safe to
// call on an already-set Cond; it has no further effect.
func (c *Cond) Set() {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.ensureLocked()
	select {
	case <-ch:
	default:
		close(ch)
	}
}

// Reset marks c as unset. Reset is safe to call on an already-unset Cond.
func (c *Cond) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.ensureLocked()
	select {
	case <-ch:
		c.ch = make(chan struct{})
	default:
	}
}

// Signal wakes every goroutine currently blocked on [Cond.Ready], then
// immediately resets c so that goroutines arriving after Signal returns wait
// for a subsequent Set or Signal rather than observing this one.
func (c *Cond) Signal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.ensureLocked()
	select {
	case <-ch:
	default:
		close(ch)
	}
	c.ch = make(chan struct{})
}
