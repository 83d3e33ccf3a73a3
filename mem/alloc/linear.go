package alloc

import (
	"github.com/joshuapare/memkit/mem/arena"
)

// Linear is a bump allocator. Each allocation advances an offset; memory is
// reclaimed only by Reset, which rewinds the whole arena in O(1).
//
// Bytes in use include alignment padding, so BytesInUse always equals
// Offset and BytesInUse + Remaining equals Capacity.
type Linear struct {
	base

	// offset is the bump pointer: where the next allocation starts searching.
	offset int
}

// NewLinear creates a Linear allocator over capacity bytes.
func NewLinear(capacity int, opts *Options) (*Linear, error) {
	b, err := newBase("linear", capacity, opts.resolve())
	if err != nil {
		return nil, err
	}
	return &Linear{base: b}, nil
}

// Allocate reserves size bytes at the next offset aligned to align.
func (l *Linear) Allocate(size, align int) (Block, error) {
	if l.ar.Closed() {
		return Block{}, arena.ErrClosed
	}
	adj := arena.Adjustment(l.offset, align)
	end, err := checkRequest(l.offset, adj, size)
	if err != nil {
		return Block{}, err
	}
	if end > l.ar.Cap() {
		return Block{}, l.outOfMemory(size, align, l.Remaining())
	}

	blk := l.block(l.offset+adj, size)
	l.ar.Charge(end - l.offset)
	l.offset = end
	return blk, nil
}

// Deallocate accepts blocks from this allocator and does nothing else.
// Individual frees are not supported; call Reset.
func (l *Linear) Deallocate(b Block) error {
	return l.Check(b)
}

// Check reports whether b belongs to this allocator and lies below the bump pointer.
func (l *Linear) Check(b Block) error {
	if err := l.owns(b); err != nil {
		return err
	}
	if b.Off+b.Size > l.offset {
		return ErrDoubleFree
	}
	return nil
}

// Reset discards every allocation.
func (l *Linear) Reset() {
	l.offset = 0
	l.ar.Reset()
}

// Offset returns the bump pointer.
func (l *Linear) Offset() int { return l.offset }

// Remaining returns the bytes left above the bump pointer.
func (l *Linear) Remaining() int { return l.ar.Cap() - l.offset }

// Stats returns a snapshot of the allocator's counters.
func (l *Linear) Stats() Stats { return l.stats() }

var _ Allocator = (*Linear)(nil)
