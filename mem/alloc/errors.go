package alloc

import "errors"

var (
	// ErrOutOfMemory indicates the arena has no room for the request.
	// It is recoverable: the caller may free memory or use another allocator.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrGrowFail indicates the free-list allocator could not acquire a new
	// segment. There is no further fallback.
	ErrGrowFail = errors.New("alloc: grow failed")

	// ErrOutOfOrder indicates a stack deallocation that is not the most
	// recent live allocation.
	ErrOutOfOrder = errors.New("alloc: deallocation out of LIFO order")

	// ErrDoubleFree indicates a block that is not currently live.
	ErrDoubleFree = errors.New("alloc: block is not live")

	// ErrForeignBlock indicates a block handed out by a different allocator.
	ErrForeignBlock = errors.New("alloc: block belongs to another allocator")

	// ErrBadBlock indicates a block whose offset or size does not fit the arena.
	ErrBadBlock = errors.New("alloc: bad block")

	// ErrCorrupt indicates bookkeeping stored in the arena was overwritten.
	ErrCorrupt = errors.New("alloc: corrupt header")

	// ErrBadSize indicates a negative or overflowing size or count.
	ErrBadSize = errors.New("alloc: bad size")

	// ErrPointerType indicates a type that holds Go pointers. Arena memory is
	// not scanned by the garbage collector, so such values cannot live there.
	ErrPointerType = errors.New("alloc: type contains pointers")

	// ErrUnsupported indicates a request the allocator cannot express, such
	// as a pool request larger than one chunk.
	ErrUnsupported = errors.New("alloc: unsupported request")
)
