package gouchan

import (
	"context"
	"sync"
)

// A Value is a mutable container for a single value of type T that can be
// concurrently read and written by multiple goroutines, and observed with
// [Value.Wait]. A zero Value is ready for use, but must not be copied after
// its first use.
//
// Every [Channel] keeps one of these as its traffic counter (see
// [Channel.Stats]): Send, Receive, and Close each fold their effect into it
// through a [Linked] read-modify-write cycle rather than under the channel's
// own mutex, so a caller watching [Channel.Stats] never contends with a
// sender or receiver for the channel's lock.
type Value[T any] struct {
	mu    sync.Mutex
	x     T
	gen   uint64        // write generation, incremented by Set and a successful StoreCond
	ready chan struct{} // signal channel for Wait
}

// NewValue creates a new Value with the given initial value.
func NewValue[T any](init T) *Value[T] { return &Value[T]{x: init} }

// Set updates the value stored in v to newValue, and wakes any goroutines
// blocked in [Value.Wait]. Set invalidates any linked snapshots open on v,
// even if the new value is equal to the old one.
func (v *Value[T]) Set(newValue T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setLocked(newValue)
}

func (v *Value[T]) setLocked(newValue T) {
	v.x = newValue
	v.gen++
	if v.ready != nil {
		close(v.ready)
		v.ready = nil
	}
}

// Get returns the current value stored in v.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.x
}

// Wait blocks until v.Set is called, or until ctx ends, and returns the
// current value in v. The flag reports whether Set was called (true) or ctx
// ended first (false), in which case Wait returns the value v held when
// Wait was called.
//
// If multiple goroutines set v concurrently with a call to Wait, the Wait
// call returns the value from one of them, but not necessarily the first.
func (v *Value[T]) Wait(ctx context.Context) (T, bool) {
	v.mu.Lock()
	if v.ready == nil {
		v.ready = make(chan struct{})
	}
	old, ready := v.x, v.ready
	v.mu.Unlock()
	select {
	case <-ctx.Done():
		return old, false
	case <-ready:
		v.mu.Lock()
		defer v.mu.Unlock()
		return v.x, true
	}
}

// LoadLink returns a linked snapshot of the current value of v, suitable for
// a read-modify-write cycle that only takes effect if nothing else updated v
// in the meantime.
func (v *Value[T]) LoadLink() *Linked[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	return &Linked[T]{v: v, snap: v.x, gen: v.gen}
}

// A Linked is a snapshot of a [Value] acquired by [Value.LoadLink].
//
// A snapshot is "valid" if a call to [Linked.StoreCond] could succeed at
// some point in the future, and "invalid" otherwise. A valid snapshot may
// become invalid, but an invalid snapshot is permanently so.
type Linked[T any] struct {
	v    *Value[T]
	snap T
	gen  uint64
}

// Get returns the current contents of the snapshot.
func (lv *Linked[T]) Get() T { return lv.snap }

// Set updates the contents of the snapshot. This does not affect the
// underlying Value until a successful call to [Linked.StoreCond].
func (lv *Linked[T]) Set(v T) { lv.snap = v }

// StoreCond attempts to write the snapshot's contents back to the
// underlying Value, and reports whether it succeeded. After StoreCond
// returns, lv is invalid regardless of the outcome.
//
// StoreCond succeeds only if no Set or successful StoreCond has touched the
// underlying Value since the LoadLink that produced lv.
func (lv *Linked[T]) StoreCond() bool {
	lv.v.mu.Lock()
	defer lv.v.mu.Unlock()
	if lv.v.gen == lv.gen {
		lv.v.setLocked(lv.snap)
		return true
	}
	return false
}

// Validate reports whether a call to [Linked.StoreCond] would currently
// succeed. A true result means lv is still valid; a false result means it
// is permanently invalid.
func (lv *Linked[T]) Validate() bool {
	lv.v.mu.Lock()
	defer lv.v.mu.Unlock()
	return lv.v.gen == lv.gen
}

// bump applies delta to a *Value[T] via a LoadLink/StoreCond retry loop,
// spinning only on genuine contention (another bump or an outright Set
// racing in between the load and the store), and returns the value that
// ended up committed.
func bump[T any](v *Value[T], delta func(T) T) T {
	for {
		link := v.LoadLink()
		next := delta(link.Get())
		link.Set(next)
		if link.StoreCond() {
			return next
		}
	}
}
