package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/vkngwrapper/staticheap/heap"
	"golang.org/x/exp/slog"
)

type demoOptions struct {
	capacity  int
	sizeWidth int
	linkWidth int
	count     int
	size      int
	free      []int
	verbose   bool
	jsonOut   bool
}

func newRootCmd() *cobra.Command {
	options := demoOptions{}

	cmd := &cobra.Command{
		Use:   "heapdemo",
		Short: "Exercise a fixed-capacity heap and print what happens",
		Long: `heapdemo fills a fixed-capacity heap with equally sized allocations, stamps
every payload with a marker, frees some of them and allocates again so that both
exact-fit reuse and coalesced free blocks can be observed. Payload contents are
printed after every phase so that overlapping allocations are easy to spot.

Example:
  heapdemo
  heapdemo --capacity 256 --count 12 --size 16 --free 2,6,7,8
  heapdemo --json -v`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.OutOrStdout(), newLogger(cmd.ErrOrStderr(), options.verbose), options)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&options.capacity, "capacity", heap.DefaultCapacity, "Arena size in bytes")
	flags.IntVar(&options.sizeWidth, "size-width", int(heap.DefaultLayout.SizeWidth), "Width in bytes of the header size field")
	flags.IntVar(&options.linkWidth, "link-width", int(heap.DefaultLayout.LinkWidth), "Width in bytes of the header link field")
	flags.IntVar(&options.count, "count", 10, "Number of allocations to make")
	flags.IntVar(&options.size, "size", 10, "Size in bytes of each allocation")
	flags.IntSliceVar(&options.free, "free", []int{3, 5, 6, 7}, "Indices of the allocations to free")
	flags.BoolVarP(&options.verbose, "verbose", "v", false, "Log every heap operation to stderr")
	flags.BoolVar(&options.jsonOut, "json", false, "Print a JSON map of the heap when done")

	return cmd
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.HandlerOptions{Level: level}.NewTextHandler(w))
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
