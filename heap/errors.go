package heap

import "github.com/cockroachdb/errors"

var (
	// ErrOutOfMemory indicates that neither the free list nor the virgin region can satisfy a request
	// at the moment. The heap is left untouched, and the request may succeed after other allocations are freed.
	ErrOutOfMemory = errors.New("heap: out of memory")

	// ErrRequestTooLarge indicates that a request can never be satisfied by this heap, regardless of
	// what is freed.
	ErrRequestTooLarge = errors.New("heap: request larger than heap capacity")

	// ErrInvalidSize indicates a request for zero or a negative number of bytes.
	ErrInvalidSize = errors.New("heap: allocation size must be positive")

	// ErrInvalidHandle indicates a handle that does not refer to a live allocation in this heap.
	ErrInvalidHandle = errors.New("heap: invalid handle")

	// ErrDoubleFree indicates that the handle refers to a block that is already free.
	ErrDoubleFree = errors.New("heap: block is already free")

	// ErrInvalidCapacity indicates a capacity that cannot hold a single header-plus-payload block.
	ErrInvalidCapacity = errors.New("heap: invalid capacity")

	// ErrInvalidLayout indicates an unsupported header field width.
	ErrInvalidLayout = errors.New("heap: invalid header layout")

	// ErrEncodingOverflow indicates that the heap capacity exceeds what the header fields can represent.
	ErrEncodingOverflow = errors.New("heap: capacity exceeds header field range")
)
