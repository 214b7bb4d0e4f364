package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/gouchan/gouchan"
	"github.com/gouchan/gouchan/countdown"
)

// interval denotes an inclusive index range [low, high] of the array being
// sorted.
type interval struct{ low, high int }

// runSort reproduces the original's multithreaded non-recursive quicksort:
// workers repeatedly pull an interval from a work channel, partition the
// corresponding slice in place, and push the resulting sub-intervals back
// onto the same channel. A countdown initialized to the array length tracks
// how many elements have reached their final sorted position; once it hits
// zero the work channel is closed and the workers drain out.
func runSort(args []string) error {
	fs := newFlagSet("sort")
	size := fs.Int("size", 1000, "number of elements to sort")
	workers := fs.Int("workers", 8, "number of worker goroutines")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *size < 1 {
		return fmt.Errorf("size must be at least 1")
	}

	arr := make([]int, *size)
	for i := range arr {
		arr[i] = rand.IntN(10 * *size)
	}

	work := gouchan.New[interval]()
	progress := gouchan.NewCoalescingFlag(func(pending, next int) int { return pending + next })
	remaining := countdown.New(*size)

	started := time.Now()
	for range *workers {
		go sortWorker(arr, work, remaining, progress)
	}
	work.Send(interval{0, *size - 1})

	done := make(chan struct{})
	go func() {
		remaining.Wait()
		work.Close()
		close(done)
	}()

	for {
		select {
		case <-done:
			fmt.Fprintf(os.Stdout, "sorted %d elements in %s\n", *size, time.Since(started))
			if !isSorted(arr) {
				return fmt.Errorf("internal error: array is not sorted")
			}
			return nil
		case n := <-progress.Ready():
			fmt.Fprintf(os.Stderr, "%d partitions finished since last report, %d elements remaining\n", n, remaining.Get())
		}
	}
}

func sortWorker(arr []int, work *gouchan.Channel[interval], remaining *countdown.Countdown, progress *gouchan.Flag[int]) {
	for {
		iv, ok := work.Receive()
		if !ok {
			return
		}
		p := partition(arr, iv.low, iv.high)
		remaining.Dec()
		progress.Set(1)

		if nLeft := p - iv.low; nLeft > 1 {
			work.Send(interval{iv.low, p - 1})
		} else if nLeft == 1 {
			remaining.Dec()
		}
		if nRight := iv.high - p; nRight > 1 {
			work.Send(interval{p + 1, iv.high})
		} else if nRight == 1 {
			remaining.Dec()
		}
	}
}

// partition rearranges arr[low:high+1] around a randomly chosen pivot so
// that every element at or before the returned index is <= the pivot and
// every element after it is greater, then returns the pivot's final index.
func partition(arr []int, low, high int) int {
	if low == high {
		return low
	}
	pi := low + rand.IntN(high-low+1)
	arr[pi], arr[low] = arr[low], arr[pi]
	p := arr[low]

	i, j := low+1, high
	for i <= j {
		for i <= j && arr[i] <= p {
			i++
		}
		if i > j {
			break
		}
		for i <= j && arr[j] > p {
			j--
		}
		if i > j {
			break
		}
		arr[i], arr[j] = arr[j], arr[i]
		i++
		j--
	}
	arr[low], arr[j] = arr[j], arr[low]
	return j
}

func isSorted(arr []int) bool {
	for i := 1; i < len(arr); i++ {
		if arr[i-1] > arr[i] {
			return false
		}
	}
	return true
}
