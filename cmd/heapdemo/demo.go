package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/staticheap/heap"
	"github.com/vkngwrapper/staticheap/memutils"
	"golang.org/x/exp/slog"
)

const (
	stampPattern     byte = 123
	exactFitPattern  byte = 8
	coalescedPattern byte = 9
)

// demo drives the scenario through the allocation surface only; runDemo keeps the concrete heap for
// validation and statistics
type demo struct {
	out       io.Writer
	allocator heap.Allocator
	handles   []heap.Handle
	size      int
}

func runDemo(out io.Writer, logger *slog.Logger, options demoOptions) error {
	h, err := heap.New(logger, heap.CreateOptions{
		Capacity: options.capacity,
		Layout: heap.Layout{
			SizeWidth: heap.FieldWidth(options.sizeWidth),
			LinkWidth: heap.FieldWidth(options.linkWidth),
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create heap")
	}

	if options.count <= 0 {
		return errors.Newf("count must be positive, got %d", options.count)
	}

	d := &demo{out: out, allocator: h, size: options.size}

	fmt.Fprintf(out, "Heap of %d bytes with %d-byte headers\n", h.Capacity(), h.HeaderSize())

	err = d.allocateAll(options.count)
	if err != nil {
		return err
	}
	d.printContents("Contents after stamping every allocation")

	freed, err := d.free(options.free)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nFreed allocations %v\n", freed)

	// A request the size of a single freed allocation is served by exact fit
	exactFit, err := d.reallocate(d.size, exactFitPattern)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Request of %d bytes returned handle %d\n", d.size, exactFit)

	// A request spanning three freed neighbors only fits once they have been coalesced
	coalesced, err := d.reallocate(3*d.size, coalescedPattern)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Request of %d bytes returned handle %d\n", 3*d.size, coalesced)

	d.printContents("Contents after freeing and reallocating")

	handle, err := h.Allocate(d.size)
	switch {
	case errors.Is(err, heap.ErrOutOfMemory):
		fmt.Fprintf(out, "\nFinal request of %d bytes failed: %v\n", d.size, err)
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "\nFinal request of %d bytes returned handle %d\n", d.size, handle)
		d.handles = append(d.handles, handle)
	}

	err = h.Validate()
	if err != nil {
		return errors.Wrap(err, "heap failed validation")
	}

	var stats memutils.DetailedStatistics
	stats.Clear()
	h.AddDetailedStatistics(&stats)
	fmt.Fprintf(out, "Unused: %d bytes in %d ranges, largest %d, fragmentation %.2f\n",
		stats.UnusedBytes, stats.UnusedRangeCount, stats.UnusedRangeSizes.Max, stats.Fragmentation())

	if options.jsonOut {
		fmt.Fprintln(out, h.BuildStatsString(true))
	}

	return nil
}

func (d *demo) allocateAll(count int) error {
	fmt.Fprintf(d.out, "Allocating %d x %d bytes:", count, d.size)

	for i := 0; i < count; i++ {
		handle, err := d.allocator.Allocate(d.size)
		if err != nil {
			fmt.Fprintln(d.out)
			return errors.Wrapf(err, "allocation %d", i)
		}

		d.stamp(handle, stampPattern)
		d.handles = append(d.handles, handle)
		fmt.Fprintf(d.out, " %d", handle)
	}

	fmt.Fprintln(d.out)
	return nil
}

func (d *demo) free(indices []int) ([]int, error) {
	freed := make([]int, 0, len(indices))
	for _, index := range indices {
		if index < 0 || index >= len(d.handles) {
			return nil, errors.Newf("cannot free allocation %d: only %d were made", index, len(d.handles))
		}

		err := d.allocator.Free(d.handles[index])
		if err != nil {
			return nil, errors.Wrapf(err, "allocation %d", index)
		}
		freed = append(freed, index)
	}

	// Drop freed handles from the live set, highest index first so the rest keep their positions
	sorted := append([]int(nil), freed...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, index := range sorted {
		d.handles = append(d.handles[:index], d.handles[index+1:]...)
	}

	return freed, nil
}

func (d *demo) reallocate(size int, pattern byte) (heap.Handle, error) {
	handle, err := d.allocator.Allocate(size)
	if err != nil {
		return heap.NoHandle, errors.Wrapf(err, "request of %d bytes", size)
	}

	d.stamp(handle, pattern)
	d.handles = append(d.handles, handle)
	return handle, nil
}

func (d *demo) stamp(handle heap.Handle, pattern byte) {
	payload, err := d.allocator.Bytes(handle)
	if err != nil {
		panic(err)
	}

	for i := range payload {
		payload[i] = pattern
	}
}

func (d *demo) printContents(title string) {
	fmt.Fprintf(d.out, "\n%s:\n", title)

	sorted := append([]heap.Handle(nil), d.handles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, handle := range sorted {
		payload, err := d.allocator.Bytes(handle)
		if err != nil {
			panic(err)
		}

		fmt.Fprintf(d.out, "%4d:", handle)
		for _, b := range payload {
			fmt.Fprintf(d.out, " %d", b)
		}
		fmt.Fprintln(d.out)
	}
}
