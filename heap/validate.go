package heap

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/staticheap/memutils"
)

var _ memutils.Validatable = &Heap{}

// Validate performs internal consistency checks on the heap. When the heap is used correctly, it
// should not be possible for this method to return an error, but it will catch corruption caused by
// UnsafeFree misuse or by writes outside an allocation's payload.
func (h *Heap) Validate() error {
	if h.frontier < 0 || h.frontier > h.units {
		return errors.Errorf("the frontier is at unit %d, outside of a %d-unit arena", h.frontier, h.units)
	}

	// Walk the block chain: it must tile the carved region exactly
	var blocks []int
	for block := 0; block < h.frontier; block = h.end(block) {
		if h.end(block) > h.frontier {
			return errors.Errorf("block at unit %d with size %d runs past the frontier at unit %d", block, h.size(block), h.frontier)
		}
		blocks = append(blocks, block)
	}

	isBoundary := make(map[int]bool, len(blocks))
	for _, block := range blocks {
		isBoundary[block] = true
	}

	// Walk the free list: descending chain boundaries
	isFree := make(map[int]bool)
	var freeUnits int
	previous := h.frontier
	for block := h.freeHead; block != noBlock; block = h.next(block) {
		if block >= previous {
			return errors.Errorf("free block at unit %d does not lie below the previous free list entry at unit %d", block, previous)
		}
		if !isBoundary[block] {
			return errors.Errorf("free list entry at unit %d is not the start of a block", block)
		}

		isFree[block] = true
		freeUnits += h.size(block)
		previous = block
	}

	if len(isFree) != h.freeCount {
		return errors.Errorf("the free block count of the heap is %d, but the free list holds %d blocks", h.freeCount, len(isFree))
	}

	if freeUnits != h.freeUnits {
		return errors.Errorf("the free size of the heap is %d units, but the free blocks add up to %d", h.freeUnits, freeUnits)
	}

	if len(blocks)-len(isFree) != h.allocCount {
		return errors.Errorf("the allocation count of the heap is %d, but the block chain holds %d allocated blocks", h.allocCount, len(blocks)-len(isFree))
	}

	for i, block := range blocks {
		if !isFree[block] {
			continue
		}

		if h.end(block) == h.frontier {
			return errors.Errorf("free block at unit %d touches the frontier and should have been retracted", block)
		}

		if i+1 < len(blocks) && isFree[blocks[i+1]] {
			return errors.Errorf("free blocks at units %d and %d are adjacent and should have been merged", block, blocks[i+1])
		}
	}

	return nil
}
