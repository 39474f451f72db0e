// Package heap implements a fixed-capacity allocator for targets without a native heap.
//
// A Heap manages one byte arena, partitioned into blocks. Each block starts with a small header
// holding the payload size and a link, both counted in header-sized units. Released blocks form a
// singly-linked free list threaded through those links, ordered by decreasing address: a link is the
// backward distance to the next free block, and 0 ends the list. No pointers or side tables are
// stored for the allocator's own bookkeeping.
//
// The frontier separates the carved part of the arena from virgin space that was never handed out.
// An allocation first looks for a free block of exactly the right size, then carves from the virgin
// space, and finally splits the first free block that is large enough. Freeing a block merges it with
// free neighbors on both sides; a block that ends up touching the frontier is handed back to the
// virgin space by moving the frontier down.
//
// # Sizing
//
// The header layout and the capacity are coupled: the size field must describe a block spanning the
// whole arena, and the link field must describe the distance between any two blocks. New rejects
// configurations that break this. With DefaultLayout (two one-byte fields) the arena can be at most
// 512 bytes.
//
//	h, err := heap.New(logger, heap.CreateOptions{Capacity: 128})
//	if err != nil {
//	    return err
//	}
//
//	handle, err := h.Allocate(10)
//	if errors.Is(err, heap.ErrOutOfMemory) {
//	    // free something and retry
//	}
//
//	payload, err := h.Bytes(handle)
//	...
//	err = h.Free(handle)
//
// # Thread Safety
//
// Heap instances are not thread-safe. Callers must serialize every call.
package heap
