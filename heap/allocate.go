package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/staticheap/memutils"
	"golang.org/x/exp/slog"
)

// Allocate reserves at least size bytes and returns a handle to the payload. Placement is tried in
// order: a free block of exactly the right size, then the virgin region past the frontier, then the
// first free block large enough to be split.
//
// ErrOutOfMemory is returned if no block can currently satisfy the request, and ErrRequestTooLarge if
// none ever could. The heap is not modified when an error is returned.
func (h *Heap) Allocate(size int) (Handle, error) {
	if size <= 0 {
		return NoHandle, errors.Wrapf(ErrInvalidSize, "requested %d bytes", size)
	}

	nodes := memutils.DivideRoundUp(size, h.unit)
	if nodes > h.units-1 {
		return NoHandle, errors.Wrapf(ErrRequestTooLarge, "requested %d bytes, but at most %d can be allocated", size, h.MaxAllocationSize())
	}

	block, ok := h.allocateExact(nodes)
	if !ok {
		block, ok = h.allocateVirgin(nodes)
	}
	if !ok {
		block, ok = h.allocateSplit(nodes)
	}
	if !ok {
		h.logger.Debug("Heap::Allocate FAILED", slog.Int("Size", size), slog.Int("Nodes", nodes))
		return NoHandle, errors.Wrapf(ErrOutOfMemory, "no free block or virgin space for %d bytes", size)
	}

	h.allocCount++
	handle := h.handle(block)

	h.logger.Debug("Heap::Allocate", slog.Int("Size", size), slog.Int("Handle", int(handle)))
	memutils.DebugFill(h.payload(block), createdFillPattern)
	memutils.DebugValidate(h)

	return handle, nil
}

// allocateExact unlinks the first free block whose size is exactly nodes
func (h *Heap) allocateExact(nodes int) (int, bool) {
	prev := noBlock
	for block := h.freeHead; block != noBlock; block = h.next(block) {
		if h.size(block) == nodes {
			h.linkFrom(prev, h.next(block))
			h.freeCount--
			h.freeUnits -= nodes
			return block, true
		}
		prev = block
	}

	return noBlock, false
}

// allocateVirgin carves a new block at the frontier and advances the frontier past it. The free list
// is untouched since every free block lies below the frontier.
func (h *Heap) allocateVirgin(nodes int) (int, bool) {
	if h.virginSize() < nodes {
		return noBlock, false
	}

	block := h.frontier
	h.setSize(block, nodes)
	h.setNext(block, noBlock)
	h.frontier += nodes + 1

	return block, true
}

// allocateSplit takes the low part of the first free block larger than nodes. The high part becomes a
// smaller free block that takes the original block's place in the free list.
func (h *Heap) allocateSplit(nodes int) (int, bool) {
	prev := noBlock
	for block := h.freeHead; block != noBlock; block = h.next(block) {
		blockSize := h.size(block)
		if blockSize < nodes {
			prev = block
			continue
		}
		if blockSize == nodes {
			panic("exact-fit free block was skipped by the exact-fit search")
		}

		remainder := block + nodes + 1
		h.setSize(remainder, blockSize-nodes-1)
		h.setNext(remainder, h.next(block))
		h.linkFrom(prev, remainder)

		h.setSize(block, nodes)
		h.setNext(block, noBlock)
		h.freeUnits -= nodes + 1

		return block, true
	}

	return noBlock, false
}

// MayHaveFreeBlock reports whether a call to Allocate with the same size would currently succeed.
// It does not modify the heap.
func (h *Heap) MayHaveFreeBlock(size int) bool {
	if size <= 0 {
		return false
	}

	nodes := memutils.DivideRoundUp(size, h.unit)
	if h.virginSize() >= nodes {
		return true
	}

	for block := h.freeHead; block != noBlock; block = h.next(block) {
		if h.size(block) >= nodes {
			return true
		}
	}

	return false
}
