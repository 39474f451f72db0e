package heap

import (
	"io"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/staticheap/memutils"
	"golang.org/x/exp/slog"
)

const (
	// DefaultCapacity is the capacity in bytes used when CreateOptions.Capacity is left at 0
	DefaultCapacity int = 128

	// noBlock terminates the free list when held in Heap.freeHead
	noBlock int = -1

	createdFillPattern   uint8 = 0xDC
	destroyedFillPattern uint8 = 0xEF
)

// Handle identifies a live allocation. It is the byte offset of the allocation's payload within the
// heap's arena.
type Handle int

const (
	// NoHandle is returned alongside every allocation error
	NoHandle Handle = -1
)

// Allocator is the minimal surface consumed by code that only needs to allocate and free
type Allocator interface {
	Allocate(size int) (Handle, error)
	Free(handle Handle) error
	Bytes(handle Handle) ([]byte, error)
	Reset()
}

// CreateOptions contains optional settings when creating a Heap. It is valid to leave all fields blank.
type CreateOptions struct {
	// Capacity is the size of the arena in bytes. It is truncated down to a whole number of headers.
	Capacity int
	// Layout is the width of the header fields. The zero value selects DefaultLayout.
	Layout Layout
}

// Heap is a fixed-capacity allocator over a single byte arena. The arena is partitioned into blocks,
// each a header followed by its payload. Blocks below the frontier have been carved at least once;
// everything from the frontier on is virgin capacity. Released blocks are threaded into a free list
// through the link field of their own headers, ordered by strictly decreasing address.
//
// Heap performs no internal locking. Callers must serialize every call.
type Heap struct {
	logger *slog.Logger
	layout Layout
	unit   int
	units  int
	arena  []byte

	// frontier is the unit index of the first virgin unit
	frontier int
	// freeHead is the unit index of the highest free block, or noBlock
	freeHead int

	allocCount int
	freeCount  int
	freeUnits  int

	userData *swiss.Map[Handle, any]
}

var _ Allocator = &Heap{}

// New creates a new Heap
//
// logger - Receives debug output. May be nil.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Heap, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard))
	}

	layout := options.Layout
	if layout == (Layout{}) {
		layout = DefaultLayout
	}

	err := layout.Validate()
	if err != nil {
		return nil, err
	}

	capacity := options.Capacity
	if capacity == 0 {
		capacity = DefaultCapacity
	}

	unit := layout.HeaderSize()
	units := capacity / unit
	if capacity < 0 || units < 2 {
		return nil, errors.Wrapf(ErrInvalidCapacity, "%d bytes cannot hold a %d-byte header and one payload unit", capacity, unit)
	}

	err = layout.checkUnits(units)
	if err != nil {
		return nil, err
	}

	h := &Heap{
		logger: logger,
		layout: layout,
		unit:   unit,
		units:  units,
		arena:  make([]byte, memutils.RoundDown(capacity, unit)),
	}
	h.Reset()

	logger.Debug("Heap::New",
		slog.Int("Capacity", h.Capacity()),
		slog.Int("HeaderSize", unit),
		slog.String("SizeWidth", layout.SizeWidth.String()),
		slog.String("LinkWidth", layout.LinkWidth.String()))

	return h, nil
}

// Reset discards every allocation and returns the heap to its freshly-created state. Any handle or
// payload slice obtained before the call becomes invalid.
func (h *Heap) Reset() {
	h.frontier = 0
	h.freeHead = noBlock
	h.allocCount = 0
	h.freeCount = 0
	h.freeUnits = 0

	if h.userData == nil {
		h.userData = swiss.NewMap[Handle, any](8)
	} else {
		h.userData.Clear()
	}
}

// Layout returns the header layout the heap was created with
func (h *Heap) Layout() Layout { return h.layout }

// Capacity returns the size of the arena in bytes
func (h *Heap) Capacity() int { return len(h.arena) }

// HeaderSize returns the size in bytes of one block header
func (h *Heap) HeaderSize() int { return h.unit }

// FrontierOffset returns the byte offset of the first virgin byte in the arena
func (h *Heap) FrontierOffset() int { return h.frontier * h.unit }

// VirginSize returns the largest payload in bytes that could still be bump-allocated past the frontier
func (h *Heap) VirginSize() int {
	size := h.virginSize()
	if size < 0 {
		return 0
	}
	return size * h.unit
}

// MaxAllocationSize returns the largest request in bytes an empty heap could satisfy
func (h *Heap) MaxAllocationSize() int {
	return (h.units - 1) * h.unit
}

// AllocationCount returns the number of live allocations
func (h *Heap) AllocationCount() int { return h.allocCount }

// FreeRegionsCount returns the number of free blocks, plus one if the virgin region can still hold a payload
func (h *Heap) FreeRegionsCount() int {
	if h.virginSize() > 0 {
		return h.freeCount + 1
	}
	return h.freeCount
}

// SumFreeSize returns the number of payload bytes held by free blocks and the virgin region
func (h *Heap) SumFreeSize() int {
	return h.freeUnits*h.unit + h.VirginSize()
}

// IsEmpty returns true if the heap has no live allocations
func (h *Heap) IsEmpty() bool {
	return h.allocCount == 0
}

// virginSize is the payload capacity in units of a block carved at the frontier. It is -1 when
// the frontier has reached the end of the arena.
func (h *Heap) virginSize() int {
	return h.units - h.frontier - 1
}

func (h *Heap) headerOffset(block int) int {
	return block * h.unit
}

func (h *Heap) size(block int) int {
	return readField(h.arena[h.headerOffset(block):], h.layout.SizeWidth)
}

func (h *Heap) setSize(block, size int) {
	writeField(h.arena[h.headerOffset(block):], h.layout.SizeWidth, size)
}

// next returns the unit index of the free block following block in the free list, or noBlock
func (h *Heap) next(block int) int {
	link := readField(h.arena[h.headerOffset(block)+int(h.layout.SizeWidth):], h.layout.LinkWidth)
	if link == 0 {
		return noBlock
	}
	return block - link
}

// setNext points block's link at next, which must be noBlock or a lower block
func (h *Heap) setNext(block, next int) {
	link := 0
	if next != noBlock {
		link = block - next
	}
	writeField(h.arena[h.headerOffset(block)+int(h.layout.SizeWidth):], h.layout.LinkWidth, link)
}

// linkFrom points the predecessor of a free list position at block. A predecessor of noBlock is the
// frontier, whose link is freeHead.
func (h *Heap) linkFrom(prev, block int) {
	if prev == noBlock {
		h.freeHead = block
		return
	}
	h.setNext(prev, block)
}

// end returns the unit index just past block's payload
func (h *Heap) end(block int) int {
	return block + h.size(block) + 1
}

func (h *Heap) handle(block int) Handle {
	return Handle((block + 1) * h.unit)
}

func (h *Heap) payload(block int) []byte {
	start := (block + 1) * h.unit
	end := start + h.size(block)*h.unit
	return h.arena[start:end:end]
}

// Bytes returns the payload of the allocation identified by handle. The slice aliases the arena and
// is only valid until the allocation is freed or the heap is reset. Bytes checks that handle is
// in range; it does not prove that the allocation is still live.
func (h *Heap) Bytes(handle Handle) ([]byte, error) {
	block, err := h.blockForHandle(handle)
	if err != nil {
		return nil, err
	}

	if h.end(block) > h.frontier {
		return nil, errors.Wrapf(ErrInvalidHandle, "handle %d has a header describing a block past the frontier", handle)
	}

	return h.payload(block), nil
}

func (h *Heap) blockForHandle(handle Handle) (int, error) {
	offset := int(handle)
	if offset < h.unit || offset%h.unit != 0 {
		return noBlock, errors.Wrapf(ErrInvalidHandle, "handle %d is not a payload offset", handle)
	}

	block := offset/h.unit - 1
	if block >= h.frontier {
		return noBlock, errors.Wrapf(ErrInvalidHandle, "handle %d is past the frontier at offset %d", handle, h.FrontierOffset())
	}

	return block, nil
}
