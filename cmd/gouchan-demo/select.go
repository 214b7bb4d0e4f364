package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/gouchan/gouchan"
)

// runSelect reproduces E4/E5: a handful of producers each sleep for a
// distinct duration and then send a value distinguishing them; a single
// Select call reports whichever one woke first.
func runSelect(args []string) error {
	fs := newFlagSet("select")
	n := fs.Int("channels", 3, "number of producer channels")
	maxSleep := fs.Duration("max-sleep", 2*time.Second, "upper bound on each producer's delay")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *n < 1 {
		return fmt.Errorf("channels must be at least 1")
	}

	chs := make([]*gouchan.Channel[int], *n)
	for i := range chs {
		chs[i] = gouchan.New[int]()
		i := i
		sleep := rand.N(*maxSleep)
		go func() {
			time.Sleep(sleep)
			chs[i].Send(10*i + 0)
		}()
	}

	cases := make([]gouchan.Case, *n)
	for i, ch := range chs {
		cases[i] = gouchan.Recv(ch)
	}

	started := time.Now()
	idx, ok := gouchan.Select(cases...)
	fmt.Fprintf(os.Stdout, "channel %d won after %s (ok=%v)\n", idx, time.Since(started), ok)

	// Drain the losers so the demo exits cleanly instead of leaking their
	// still-pending sends.
	for i, ch := range chs {
		if i == idx {
			continue
		}
		v, ok := ch.Receive()
		fmt.Fprintf(os.Stderr, "channel %d eventually sent %d (ok=%v)\n", i, v, ok)
	}
	return nil
}
