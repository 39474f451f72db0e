package heap_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/staticheap/heap"
)

type region struct {
	Offset int
	Size   int
}

func newTestHeap(t *testing.T, capacity int) *heap.Heap {
	h, err := heap.New(nil, heap.CreateOptions{Capacity: capacity})
	require.NoError(t, err)
	return h
}

func mustAllocate(t *testing.T, h *heap.Heap, size int) heap.Handle {
	handle, err := h.Allocate(size)
	require.NoError(t, err)
	require.NoError(t, h.Validate())
	return handle
}

func mustFree(t *testing.T, h *heap.Heap, handle heap.Handle) {
	require.NoError(t, h.Free(handle))
	require.NoError(t, h.Validate())
}

func fill(t *testing.T, h *heap.Heap, handle heap.Handle, pattern byte) {
	payload, err := h.Bytes(handle)
	require.NoError(t, err)
	for i := range payload {
		payload[i] = pattern
	}
}

func requireFilled(t *testing.T, h *heap.Heap, handle heap.Handle, size int, pattern byte) {
	payload, err := h.Bytes(handle)
	require.NoError(t, err)
	require.Len(t, payload, size)
	for i, b := range payload {
		require.Equalf(t, pattern, b, "byte %d of handle %d", i, handle)
	}
}

// freeRegions lists the free blocks from the lowest address up
func freeRegions(t *testing.T, h *heap.Heap) []region {
	var regions []region
	err := h.VisitAllRegions(func(handle heap.Handle, offset int, size int, userData any, free bool) error {
		if free {
			regions = append(regions, region{Offset: offset, Size: size})
		}
		return nil
	})
	require.NoError(t, err)
	return regions
}

func requireOutOfMemory(t *testing.T, h *heap.Heap, size int) {
	before := h.BuildStatsString(true)

	handle, err := h.Allocate(size)
	require.ErrorIs(t, err, heap.ErrOutOfMemory)
	require.Equal(t, heap.NoHandle, handle)
	require.Equal(t, before, h.BuildStatsString(true))
}

func TestNewDefaults(t *testing.T) {
	h, err := heap.New(nil, heap.CreateOptions{})
	require.NoError(t, err)

	require.Equal(t, heap.DefaultCapacity, h.Capacity())
	require.Equal(t, heap.DefaultLayout, h.Layout())
	require.Equal(t, 2, h.HeaderSize())
	require.Equal(t, 0, h.FrontierOffset())
	require.Equal(t, 126, h.VirginSize())
	require.Equal(t, 126, h.MaxAllocationSize())
	require.Equal(t, 126, h.SumFreeSize())
	require.Equal(t, 1, h.FreeRegionsCount())
	require.Equal(t, 0, h.AllocationCount())
	require.True(t, h.IsEmpty())
	require.NoError(t, h.Validate())
}

func TestNewTruncatesCapacity(t *testing.T) {
	h, err := heap.New(nil, heap.CreateOptions{
		Capacity: 100,
		Layout:   heap.Layout{SizeWidth: heap.FieldWidth16, LinkWidth: heap.FieldWidth8},
	})
	require.NoError(t, err)
	require.Equal(t, 99, h.Capacity())
	require.Equal(t, 3, h.HeaderSize())
	require.Equal(t, 96, h.MaxAllocationSize())

	h, err = heap.New(nil, heap.CreateOptions{
		Capacity: 101,
		Layout:   heap.Layout{SizeWidth: heap.FieldWidth16, LinkWidth: heap.FieldWidth16},
	})
	require.NoError(t, err)
	require.Equal(t, 100, h.Capacity())
	require.Equal(t, 4, h.HeaderSize())
	require.Equal(t, 96, h.MaxAllocationSize())
}

func TestNewInvalidCapacity(t *testing.T) {
	testCases := []struct {
		name     string
		capacity int
	}{
		{name: "Negative", capacity: -8},
		{name: "OneByte", capacity: 1},
		{name: "OneHeader", capacity: 3},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			h, err := heap.New(nil, heap.CreateOptions{Capacity: testCase.capacity})
			require.ErrorIs(t, err, heap.ErrInvalidCapacity)
			require.Nil(t, h)
		})
	}

	h := newTestHeap(t, 4)
	require.Equal(t, 2, h.MaxAllocationSize())
}

func TestNewEncodingOverflow(t *testing.T) {
	testCases := []struct {
		name     string
		capacity int
		layout   heap.Layout
		err      error
	}{
		{name: "LargestDefault", capacity: 512, layout: heap.DefaultLayout},
		{name: "TooLargeForDefault", capacity: 514, layout: heap.DefaultLayout, err: heap.ErrEncodingOverflow},
		{name: "KilobyteDefault", capacity: 1024, layout: heap.Layout{SizeWidth: heap.FieldWidth8, LinkWidth: heap.FieldWidth8}, err: heap.ErrEncodingOverflow},
		{name: "WideFields", capacity: 1024, layout: heap.Layout{SizeWidth: heap.FieldWidth16, LinkWidth: heap.FieldWidth16}},
		{name: "WideFieldsLimit", capacity: 65536 * 4, layout: heap.Layout{SizeWidth: heap.FieldWidth16, LinkWidth: heap.FieldWidth16}},
		{name: "WideFieldsOverflow", capacity: 65537 * 4, layout: heap.Layout{SizeWidth: heap.FieldWidth16, LinkWidth: heap.FieldWidth16}, err: heap.ErrEncodingOverflow},
		{name: "LinkTooNarrow", capacity: 65537 * 6, layout: heap.Layout{SizeWidth: heap.FieldWidth32, LinkWidth: heap.FieldWidth16}, err: heap.ErrEncodingOverflow},
		{name: "SizeTooNarrow", capacity: 65537 * 6, layout: heap.Layout{SizeWidth: heap.FieldWidth16, LinkWidth: heap.FieldWidth32}, err: heap.ErrEncodingOverflow},
		{name: "WideBoth", capacity: 65537 * 8, layout: heap.Layout{SizeWidth: heap.FieldWidth32, LinkWidth: heap.FieldWidth32}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			h, err := heap.New(nil, heap.CreateOptions{Capacity: testCase.capacity, Layout: testCase.layout})
			if testCase.err != nil {
				require.ErrorIs(t, err, testCase.err)
				require.Nil(t, h)
				return
			}

			require.NoError(t, err)
			require.NoError(t, h.Validate())
		})
	}
}

func TestReset(t *testing.T) {
	h := newTestHeap(t, 128)

	first := mustAllocate(t, h, 10)
	second := mustAllocate(t, h, 20)
	require.NoError(t, h.SetAllocationUserData(second, "second"))
	mustFree(t, h, first)

	h.Reset()
	require.NoError(t, h.Validate())
	require.True(t, h.IsEmpty())
	require.Equal(t, 0, h.FrontierOffset())
	require.Equal(t, 126, h.SumFreeSize())
	require.Empty(t, freeRegions(t, h))

	_, err := h.Bytes(second)
	require.ErrorIs(t, err, heap.ErrInvalidHandle)

	// The first allocation after a reset starts over at the bottom of the arena
	again := mustAllocate(t, h, 20)
	require.Equal(t, first, again)

	userData, err := h.AllocationUserData(again)
	require.NoError(t, err)
	require.Nil(t, userData)
}

func TestIndependentHeaps(t *testing.T) {
	left := newTestHeap(t, 64)
	right := newTestHeap(t, 64)

	leftHandle := mustAllocate(t, left, 16)
	rightHandle := mustAllocate(t, right, 16)
	require.Equal(t, leftHandle, rightHandle)

	fill(t, left, leftHandle, 1)
	fill(t, right, rightHandle, 2)

	requireFilled(t, left, leftHandle, 16, 1)
	requireFilled(t, right, rightHandle, 16, 2)

	mustFree(t, left, leftHandle)
	require.True(t, left.IsEmpty())
	require.False(t, right.IsEmpty())
}

// requireDisjoint checks that the payloads of every live allocation are separated by at least a header
func requireDisjoint(t *testing.T, h *heap.Heap, handles []heap.Handle) {
	sorted := append([]heap.Handle(nil), handles...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for i := 0; i+1 < len(sorted); i++ {
		payload, err := h.Bytes(sorted[i])
		require.NoError(t, err)
		require.LessOrEqualf(t, int(sorted[i])+len(payload)+h.HeaderSize(), int(sorted[i+1]),
			"allocation %d overlaps allocation %d", sorted[i], sorted[i+1])
	}
}
