package alloc

import (
	"fmt"
	"math/bits"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/mem/arena"
)

// poolNodeSize is the size of the intrusive "next free chunk" index written
// into every free chunk.
const poolNodeSize = 4

// Pool hands out fixed-size chunks, each sized for one T, in O(1).
//
// Free chunks form an intrusive singly linked list threaded through the
// chunks themselves. Freed chunks are pushed on the head, so reuse is LIFO.
// A live bitset shadows the list: every chunk is either free or live, and a
// second Delete of the same chunk fails with ErrDoubleFree.
//
// Pool also satisfies Allocator for raw requests that fit one chunk.
type Pool[T any] struct {
	base

	chunkSize int
	align     int
	chunks    int
	free      int

	// head is the index of the first free chunk, -1 when exhausted.
	head int
	live []uint64
}

// NewPool creates a pool of chunks elements of T.
func NewPool[T any](chunks int, opts *Options) (*Pool[T], error) {
	l, err := layoutOf[T]()
	if err != nil {
		return nil, err
	}
	if chunks <= 0 || int64(chunks) >= noOffset {
		return nil, fmt.Errorf("%w: pool of %d chunks", ErrBadSize, chunks)
	}

	chunkSize := arena.AlignForward(max(l.size, poolNodeSize), l.align)
	capacity, ok := buf.MulOverflowSafe(chunks, chunkSize)
	if !ok {
		return nil, fmt.Errorf("%w: %d chunks of %d bytes", ErrBadSize, chunks, chunkSize)
	}

	b, err := newBase("pool", capacity, opts.resolve())
	if err != nil {
		return nil, err
	}
	p := &Pool[T]{
		base:      b,
		chunkSize: chunkSize,
		align:     l.align,
		chunks:    chunks,
		live:      make([]uint64, (chunks+63)/64),
	}
	p.thread()
	return p, nil
}

// thread links every chunk into the free list in index order.
func (p *Pool[T]) thread() {
	mem := p.ar.Bytes()
	for i := range p.chunks {
		next := i + 1
		if next == p.chunks {
			next = -1
		}
		buf.PutU32(mem, i*p.chunkSize, encodeOff(next))
	}
	clear(p.live)
	p.head = 0
	p.free = p.chunks
}

func (p *Pool[T]) isLive(i int) bool { return p.live[i/64]&(1<<(i%64)) != 0 }
func (p *Pool[T]) setLive(i int)     { p.live[i/64] |= 1 << (i % 64) }
func (p *Pool[T]) clearLive(i int)   { p.live[i/64] &^= 1 << (i % 64) }

// Allocate pops a chunk. size and align must fit a single chunk.
func (p *Pool[T]) Allocate(size, align int) (Block, error) {
	if p.ar.Closed() {
		return Block{}, arena.ErrClosed
	}
	if size < 0 {
		return Block{}, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	if size > p.chunkSize || arena.AlignForward(p.chunkSize, align) != p.chunkSize {
		return Block{}, fmt.Errorf("%w: pool chunks are %d bytes aligned to %d, asked %d aligned to %d",
			ErrUnsupported, p.chunkSize, p.align, size, align)
	}
	if p.head < 0 {
		return Block{}, p.outOfMemory(size, align, 0)
	}

	i := p.head
	off := i * p.chunkSize
	p.head = decodeOff(buf.U32(p.ar.Bytes(), off))
	p.setLive(i)
	p.free--
	p.ar.Charge(p.chunkSize)
	return p.block(off, size), nil
}

// Check reports whether b is a live chunk of this pool.
func (p *Pool[T]) Check(b Block) error {
	if err := p.owns(b); err != nil {
		return err
	}
	if b.Off%p.chunkSize != 0 {
		return fmt.Errorf("%w: offset %d is not on a %d-byte chunk boundary", ErrBadBlock, b.Off, p.chunkSize)
	}
	if !p.isLive(b.Off / p.chunkSize) {
		return fmt.Errorf("%w: chunk %d", ErrDoubleFree, b.Off/p.chunkSize)
	}
	return nil
}

// Deallocate pushes b's chunk back on the free list.
func (p *Pool[T]) Deallocate(b Block) error {
	if err := p.Check(b); err != nil {
		return err
	}
	i := b.Off / p.chunkSize
	buf.PutU32(p.ar.Bytes(), b.Off, encodeOff(p.head))
	p.head = i
	p.clearLive(i)
	p.free++
	p.ar.Refund(p.chunkSize)
	return nil
}

// New allocates a zero T.
func (p *Pool[T]) New() (Ref[T], error) { return New[T](p) }

// NewWith allocates a T initialised to v.
func (p *Pool[T]) NewWith(v T) (Ref[T], error) { return NewWith(p, v) }

// Delete runs the value's cleanup and returns its chunk.
func (p *Pool[T]) Delete(r Ref[T]) error { return Delete(p, r) }

// ChunkSize returns the size of every chunk.
func (p *Pool[T]) ChunkSize() int { return p.chunkSize }

// Chunks returns the total number of chunks.
func (p *Pool[T]) Chunks() int { return p.chunks }

// FreeChunks returns the number of chunks on the free list.
func (p *Pool[T]) FreeChunks() int { return p.free }

// LiveChunks returns the number of chunks holding values.
func (p *Pool[T]) LiveChunks() int {
	n := 0
	for _, w := range p.live {
		n += bits.OnesCount64(w)
	}
	return n
}

// Stats returns a snapshot of the allocator's counters.
func (p *Pool[T]) Stats() Stats {
	s := p.stats()
	s.FreeBlocks = p.free
	return s
}

var _ Allocator = (*Pool[uint64])(nil)
