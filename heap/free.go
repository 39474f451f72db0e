package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/staticheap/memutils"
	"golang.org/x/exp/slog"
)

// Free releases the allocation identified by handle. The handle is checked before anything is
// modified: ErrInvalidHandle is returned if it does not name a block below the frontier, and
// ErrDoubleFree if that block is already on the free list. Checking walks the block chain, so Free
// costs time proportional to the number of blocks.
func (h *Heap) Free(handle Handle) error {
	block, err := h.liveBlock(handle)
	if err != nil {
		return err
	}

	h.release(block)
	return nil
}

// liveBlock returns the unit index of the allocated block identified by handle
func (h *Heap) liveBlock(handle Handle) (int, error) {
	block, err := h.blockForHandle(handle)
	if err != nil {
		return noBlock, err
	}

	isBlock := false
	for current := 0; current < h.frontier && current <= block; current = h.end(current) {
		if current == block {
			isBlock = true
			break
		}
	}
	if !isBlock {
		return noBlock, errors.Wrapf(ErrInvalidHandle, "handle %d does not begin a block", handle)
	}

	for current := h.freeHead; current != noBlock && current >= block; current = h.next(current) {
		if current == block {
			return noBlock, errors.Wrapf(ErrDoubleFree, "handle %d", handle)
		}
	}

	return block, nil
}

// UnsafeFree releases the allocation identified by handle without any checks. Passing a handle that
// was not returned by Allocate, or one that has already been freed, corrupts the heap.
func (h *Heap) UnsafeFree(handle Handle) {
	h.release(int(handle)/h.unit - 1)
}

func (h *Heap) release(released int) {
	h.logger.Debug("Heap::Free", slog.Int("Handle", int(h.handle(released))), slog.Int("Size", h.size(released)*h.unit))
	memutils.DebugFill(h.payload(released), destroyedFillPattern)
	h.userData.Delete(h.handle(released))

	// Find the neighbors in the free list: before is the nearest free block above released,
	// beforeBefore the one above that and after the nearest one below. noBlock in before or
	// beforeBefore stands for the frontier.
	beforeBefore, before, after := noBlock, noBlock, h.freeHead
	for after != noBlock && after > released {
		beforeBefore = before
		before = after
		after = h.next(after)
	}

	h.setNext(released, after)
	h.linkFrom(before, released)
	h.allocCount--
	h.freeCount++
	h.freeUnits += h.size(released)

	// Merge into the lower neighbor
	if after != noBlock && h.end(after) == released {
		h.setSize(after, h.size(after)+h.size(released)+1)
		h.linkFrom(before, after)
		h.freeCount--
		h.freeUnits++
		released = after
	}

	if before == noBlock {
		// Retract the frontier over a block that touches it
		if h.end(released) == h.frontier {
			h.freeHead = h.next(released)
			h.frontier = released
			h.freeCount--
			h.freeUnits -= h.size(released)
		}
	} else if h.end(released) == before {
		// Merge the higher neighbor into released
		// released already links past before to after
		h.setSize(released, h.size(released)+h.size(before)+1)
		h.linkFrom(beforeBefore, released)
		h.freeCount--
		h.freeUnits++
	}

	memutils.DebugValidate(h)
}
