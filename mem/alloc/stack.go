package alloc

import (
	"fmt"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/mem/arena"
)

// Stack header layout, stored immediately behind every user offset:
//
//	0x00 u32  offset of the previous allocation (noOffset when none)
//	0x04 u8   adjustment from the old stack top to the user offset
//	0x05 u8   live marker
const (
	stackHeaderSize = 8
	stackPrevOff    = 0
	stackAdjOff     = 4
	stackMarkOff    = 5

	stackLive = 0x5A
)

// noOffset encodes "no offset" in u32 header and node fields.
const noOffset = 0xFFFFFFFF

func encodeOff(off int) uint32 {
	if off < 0 {
		return noOffset
	}
	return uint32(off)
}

func decodeOff(v uint32) int {
	if v == noOffset {
		return -1
	}
	return int(v)
}

// Stack is a LIFO allocator. Each allocation carries a small header that
// records its alignment adjustment and the previous allocation, so blocks
// can be returned one at a time as long as the newest goes first.
//
// Unlike a plain marker stack, the ordering is enforced: returning any block
// other than the most recent live one fails with ErrOutOfOrder.
type Stack struct {
	base

	// top is the first free offset.
	top int
	// last is the user offset of the newest live allocation, -1 when empty.
	last int
}

// NewStack creates a Stack allocator over capacity bytes.
func NewStack(capacity int, opts *Options) (*Stack, error) {
	if int64(capacity) >= noOffset {
		return nil, fmt.Errorf("%w: stack capacity %d exceeds %d", ErrBadSize, capacity, noOffset)
	}
	b, err := newBase("stack", capacity, opts.resolve())
	if err != nil {
		return nil, err
	}
	return &Stack{base: b, last: -1}, nil
}

// Allocate reserves size bytes aligned to align on top of the stack.
func (s *Stack) Allocate(size, align int) (Block, error) {
	if s.ar.Closed() {
		return Block{}, arena.ErrClosed
	}
	adj := arena.AdjustmentWithHeader(s.top, align, stackHeaderSize)
	end, err := checkRequest(s.top, adj, size)
	if err != nil {
		return Block{}, err
	}
	if end > s.ar.Cap() {
		return Block{}, s.outOfMemory(size, align, s.ar.Cap()-s.top)
	}

	user := s.top + adj
	h := user - stackHeaderSize
	mem := s.ar.Bytes()
	buf.PutU32(mem, h+stackPrevOff, encodeOff(s.last))
	buf.PutU8(mem, h+stackAdjOff, uint8(adj))
	buf.PutU8(mem, h+stackMarkOff, stackLive)

	s.ar.Charge(end - s.top)
	s.top = end
	s.last = user
	return s.block(user, size), nil
}

// Check reports whether b is the newest live allocation.
func (s *Stack) Check(b Block) error {
	if err := s.owns(b); err != nil {
		return err
	}
	if s.last < 0 {
		return fmt.Errorf("%w: stack is empty", ErrDoubleFree)
	}
	if b.Off != s.last {
		return fmt.Errorf("%w: block at %d, top allocation at %d", ErrOutOfOrder, b.Off, s.last)
	}
	if buf.U8(s.ar.Bytes(), b.Off-stackHeaderSize+stackMarkOff) != stackLive {
		return fmt.Errorf("%w: stack header at %d", ErrCorrupt, b.Off-stackHeaderSize)
	}
	return nil
}

// Deallocate pops b, which must be the newest live allocation.
func (s *Stack) Deallocate(b Block) error {
	if err := s.Check(b); err != nil {
		return err
	}

	mem := s.ar.Bytes()
	h := b.Off - stackHeaderSize
	adj := int(buf.U8(mem, h+stackAdjOff))
	prev := decodeOff(buf.U32(mem, h+stackPrevOff))
	buf.PutU8(mem, h+stackMarkOff, 0)

	start := b.Off - adj
	s.ar.Refund(s.top - start)
	s.top = start
	s.last = prev
	return nil
}

// Clear empties the stack in O(1).
func (s *Stack) Clear() {
	s.top = 0
	s.last = -1
	s.ar.Reset()
}

// Top returns the first free offset.
func (s *Stack) Top() int { return s.top }

// Stats returns a snapshot of the allocator's counters.
func (s *Stack) Stats() Stats { return s.stats() }

var _ Allocator = (*Stack)(nil)
