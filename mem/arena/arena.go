// Package arena owns the contiguous byte buffers that allocators carve up.
//
// An Arena is acquired once at construction, never resized, and released by
// Close. It also keeps the usage counters (bytes in use, live allocation
// count) that every allocator reports; allocators call Charge and Refund as
// they hand out and take back memory.
//
// The alignment helpers in this package are pure offset arithmetic and are
// shared by every allocation strategy.
package arena

import (
	"fmt"
	"unsafe"

	"github.com/joshuapare/memkit/internal/region"
)

// Source selects where an arena's buffer comes from.
type Source uint8

const (
	// Heap backs the arena with a Go heap slice.
	Heap Source = iota
	// Mapped backs the arena with anonymous mmap memory where available.
	Mapped
)

func (s Source) String() string {
	switch s {
	case Heap:
		return "heap"
	case Mapped:
		return "mapped"
	default:
		return fmt.Sprintf("source(%d)", uint8(s))
	}
}

// Options controls arena construction. A nil *Options means defaults.
type Options struct {
	// Source of the backing buffer.
	// Default: Heap
	Source Source
}

// Arena is a fixed-capacity owned buffer plus usage counters.
// It is not safe for concurrent use.
type Arena struct {
	buf     []byte
	release func() error
	source  Source

	inUse int
	count int
}

// New acquires a buffer of exactly capacity bytes.
func New(capacity int, opts *Options) (*Arena, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadCapacity, capacity)
	}

	var o Options
	if opts != nil {
		o = *opts
	}

	a := &Arena{source: o.Source}
	switch o.Source {
	case Mapped:
		data, release, err := region.Map(capacity)
		if err != nil {
			return nil, fmt.Errorf("arena: map %d bytes: %w", capacity, err)
		}
		a.buf, a.release = data, release
		if !region.Mapped() {
			a.source = Heap
		}
	default:
		a.buf = heapBuffer(capacity)
		a.source = Heap
	}
	return a, nil
}

// heapBuffer returns a zeroed slice of n bytes starting on a MaxAlign boundary.
func heapBuffer(n int) []byte {
	raw := make([]byte, n+MaxAlign)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	pad := Adjustment(int(base%MaxAlign), MaxAlign)
	return raw[pad : pad+n : pad+n]
}

// Bytes returns the whole backing buffer. It is nil after Close.
func (a *Arena) Bytes() []byte { return a.buf }

// Cap returns the buffer size in bytes.
func (a *Arena) Cap() int { return len(a.buf) }

// Source reports where the buffer came from. A Mapped request reports Heap
// on platforms without anonymous mappings.
func (a *Arena) Source() Source { return a.source }

// BytesInUse returns the bytes currently charged to live allocations.
func (a *Arena) BytesInUse() int { return a.inUse }

// AllocationCount returns the number of live allocations.
func (a *Arena) AllocationCount() int { return a.count }

// Closed reports whether Close has been called.
func (a *Arena) Closed() bool { return a.buf == nil }

// Addr returns the absolute address of offset off. It is meant for
// alignment checks and diagnostics, never for dereferencing.
func (a *Arena) Addr(off int) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(a.buf))) + uintptr(off)
}

// Charge records one new allocation of n bytes.
func (a *Arena) Charge(n int) {
	a.Resize(n)
	a.count++
}

// Refund records that an allocation of n bytes was returned.
func (a *Arena) Refund(n int) {
	if a.count == 0 {
		panic("arena: refund with no live allocations")
	}
	a.Resize(-n)
	a.count--
}

// Resize moves delta bytes in or out of use without changing the allocation
// count. Allocators use it when a live block changes footprint.
func (a *Arena) Resize(delta int) {
	next := a.inUse + delta
	if next < 0 || next > len(a.buf) {
		panic(fmt.Sprintf("arena: bytes in use %d+%d outside [0, %d]", a.inUse, delta, len(a.buf)))
	}
	a.inUse = next
}

// Reset zeroes the counters. The buffer contents are left untouched.
func (a *Arena) Reset() {
	a.inUse = 0
	a.count = 0
}

// Close releases the buffer. If allocations are still live the buffer is
// released anyway and the returned error wraps ErrLeaked. Closing twice is a
// no-op.
func (a *Arena) Close() error {
	if a.buf == nil {
		return nil
	}

	var leak error
	if a.inUse != 0 || a.count != 0 {
		leak = fmt.Errorf("%w: %d bytes in %d allocations", ErrLeaked, a.inUse, a.count)
	}

	a.buf = nil
	if a.release != nil {
		if err := a.release(); err != nil {
			return fmt.Errorf("arena: release: %w", err)
		}
		a.release = nil
	}
	return leak
}
