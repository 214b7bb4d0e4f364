package gouchan_test

import (
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/gouchan/gouchan"
)

// TestSelectNonBlocking reproduces E4: three channels, one already holding a
// value before Select is called. Select must report that channel's index
// and value immediately, leaving the other two untouched.
func TestSelectNonBlocking(t *testing.T) {
	defer leaktest.Check(t)()

	a, b, c := gouchan.New[int](), gouchan.New[int](), gouchan.New[int]()
	b.Send(42)

	ca, cb, cc := gouchan.Recv(a), gouchan.Recv(b), gouchan.Recv(c)
	idx, ok := gouchan.Select(ca, cb, cc)
	if idx != 1 || !ok {
		t.Fatalf("Select: got (%d, %v), want (1, true)", idx, ok)
	}
	if v, ok := cb.Value(); !ok || v != 42 {
		t.Errorf("cb.Value: got (%d, %v), want (42, true)", v, ok)
	}
	if _, ok := ca.Value(); ok {
		t.Error("ca.Value: reported a delivery on a losing case")
	}
	if _, ok := cc.Value(); ok {
		t.Error("cc.Value: reported a delivery on a losing case")
	}

	// a and c are untouched: they're still empty and open.
	if n := a.Len(); n != 0 {
		t.Errorf("a.Len: got %d, want 0", n)
	}
	if n := c.Len(); n != 0 {
		t.Errorf("c.Len: got %d, want 0", n)
	}
}

// TestSelectBlocking reproduces E5: three channels each fed by a producer
// that sleeps for a distinct duration and then sends a distinguishing value.
// Select must report the channel whose producer woke first, and the losing
// channels' later sends must still be observable afterward.
func TestSelectBlocking(t *testing.T) {
	defer leaktest.Check(t)()

	chs := make([]*gouchan.Channel[int], 3)
	sleeps := []time.Duration{30 * time.Millisecond, 5 * time.Millisecond, 60 * time.Millisecond}
	for i := range chs {
		chs[i] = gouchan.New[int]()
		i, sleep := i, sleeps[i]
		go func() {
			time.Sleep(sleep)
			chs[i].Send(10*(i+1) + 0)
		}()
	}

	cases := make([]*gouchan.RecvCase[int], len(chs))
	selCases := make([]gouchan.Case, len(chs))
	for i, ch := range chs {
		cases[i] = gouchan.Recv(ch)
		selCases[i] = cases[i]
	}

	idx, ok := gouchan.Select(selCases...)
	if !ok {
		t.Fatalf("Select: reported no value")
	}
	if idx != 1 {
		t.Errorf("Select: got index %d, want 1 (shortest sleep)", idx)
	}
	if v, _ := cases[idx].Value(); v != 10*(idx+1) {
		t.Errorf("Value: got %d, want %d", v, 10*(idx+1))
	}

	// Give the losing producers time to finish their sends, then confirm
	// their values are still there to be received.
	time.Sleep(100 * time.Millisecond)
	for i, ch := range chs {
		if i == idx {
			continue
		}
		got, ok := ch.Receive()
		want := 10 * (i + 1)
		if !ok || got != want {
			t.Errorf("channel %d: got (%d, %v), want (%d, true)", i, got, ok, want)
		}
	}
}

func TestSelectPanicsOnEmpty(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Select with no cases did not panic")
		}
	}()
	gouchan.Select()
}

func TestSelectPanicsOnNilChannel(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Recv(nil) did not panic")
		}
	}()
	gouchan.Recv[int](nil)
}

func TestSelectClosedChannel(t *testing.T) {
	defer leaktest.Check(t)()

	ch := gouchan.New[int]()
	ch.Close()

	c := gouchan.Recv(ch)
	idx, ok := gouchan.Select(c)
	if idx != 0 || ok {
		t.Fatalf("Select: got (%d, %v), want (0, false)", idx, ok)
	}
}
