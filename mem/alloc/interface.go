package alloc

import "sync/atomic"

// Block is the token for one allocation. Off is the offset of the user
// region in the allocator's address space and Size the requested length.
// Tokens are plain values; the allocator validates them when they come back.
type Block struct {
	Off  int
	Size int

	owner uint32
}

// IsZero reports whether b is the zero Block, which no allocator returns.
func (b Block) IsZero() bool { return b.owner == 0 }

// Allocator is the contract every strategy satisfies.
//
// Implementations:
//   - Linear: bump pointer, Deallocate is a no-op
//   - Stack: LIFO with per-allocation headers
//   - Pool: fixed-size chunks, requests must fit one chunk
//   - FreeList: first-fit with coalescing and growth
//   - DoubleFrame: two stacks swapped once per frame
type Allocator interface {
	// Allocate reserves size bytes aligned to align, which must be a power
	// of two no larger than arena.MaxAlign.
	Allocate(size, align int) (Block, error)

	// Deallocate returns b to the allocator.
	Deallocate(b Block) error

	// Check reports whether b could be deallocated right now without error.
	Check(b Block) error

	// Bytes returns the user region of b, or nil if b is not addressable.
	Bytes(b Block) []byte

	// BytesInUse returns the bytes charged to live allocations, including
	// padding and headers.
	BytesInUse() int

	// AllocationCount returns the number of live allocations.
	AllocationCount() int

	// Stats returns a snapshot of the allocator's counters.
	Stats() Stats

	// Close releases the backing memory.
	Close() error
}

// Move describes a live block relocated by FreeList.Defragment.
type Move struct {
	From int `json:"from"` // old user offset
	To   int `json:"to"`   // new user offset

	owner uint32
}

// Apply returns b re-pointed at the new location when b is the moved block.
func (m Move) Apply(b Block) (Block, bool) {
	if m.owner == 0 || b.owner != m.owner || b.Off != m.From {
		return b, false
	}
	b.Off = m.To
	return b, true
}

var lastID atomic.Uint32

// nextID hands out allocator identities; zero is never used.
func nextID() uint32 {
	return lastID.Add(1)
}
