package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gouchan/gouchan"
	"github.com/gouchan/gouchan/throttle"
	"github.com/gouchan/gouchan/trigger"
)

// runFib reproduces E3: a producer enqueues the same input -tasks times, and a
// pool of workers drains the task channel, computes fib, and forwards the
// result onto a ResultStream that knows how many workers feed it, so it
// closes itself the moment the last one reports ProducerDone rather than
// the workers having to coordinate a countdown of their own.
//
// If -coalesce is set, workers share a throttle.Set keyed by input value, so
// that duplicate concurrent requests for the same n are computed once.
func runFib(args []string) error {
	fs := newFlagSet("fib")
	n := fs.Int("n", 37, "Fibonacci index to compute")
	tasks := fs.Int("tasks", 10, "number of tasks to enqueue")
	workers := fs.Int("workers", 10, "number of worker goroutines")
	coalesce := fs.Bool("coalesce", false, "coalesce duplicate concurrent requests for the same n")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ch := gouchan.New[int]()
	results := gouchan.NewResultStream[uint64](*workers, *workers)
	start := trigger.New()
	ctx := context.Background()

	var fset throttle.Set[int, uint64]
	compute := func(x int) uint64 {
		if !*coalesce {
			return fibN(x)
		}
		v, err := fset.Call(ctx, x, func(context.Context) (uint64, error) {
			return fibN(x), nil
		})
		if err != nil {
			panic(err) // the compute func never itself errors or is cancelled
		}
		return v
	}

	for range *workers {
		go func() {
			<-start.Ready()
			defer results.ProducerDone()
			for {
				x, ok := ch.Receive()
				if !ok {
					return
				}
				if err := results.Send(ctx, compute(x)); err != nil {
					return
				}
			}
		}()
	}

	go func() {
		for range *tasks {
			ch.Send(*n)
		}
		ch.Close()
	}()

	startedAt := time.Now()
	start.Set()

	count := 0
	for v := range results.Recv() {
		fmt.Fprintf(os.Stdout, "fib(%d) = %d\n", *n, v)
		count++
	}
	fmt.Fprintf(os.Stderr, "%d results in %s\n", count, time.Since(startedAt))
	if *coalesce {
		total, coalesced := fset.Stats()
		fmt.Fprintf(os.Stderr, "%d of %d requests were coalesced into an in-flight computation\n", coalesced, total)
	}
	return nil
}

func fibN(n int) uint64 {
	if n < 2 {
		return uint64(n)
	}
	a, b := uint64(0), uint64(1)
	for i := 2; i <= n; i++ {
		a, b = b, a+b
	}
	return b
}
