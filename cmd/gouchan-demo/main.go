// Command gouchan-demo runs small worker-pool programs built on the
// gouchan package, to exercise it the way a real caller would rather than
// through unit tests alone.
package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]
	var run func([]string) error
	switch cmd {
	case "fib":
		run = runFib
	case "select":
		run = runSelect
	case "sort":
		run = runSort
	default:
		fmt.Fprintf(os.Stderr, "gouchan-demo: unknown subcommand %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err := run(args); err != nil {
		fmt.Fprintf(os.Stderr, "gouchan-demo %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: gouchan-demo <fib|select|sort> [flags]

  fib     parallel Fibonacci task pool fed by a single producer
  select  three producers race to win a Select
  sort    multithreaded non-recursive quicksort over a work channel`)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}
