package alloc

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/mem/arena"
)

// base carries what the single-arena allocators share: identity, the
// owned arena and the logger.
type base struct {
	id   uint32
	kind string
	ar   *arena.Arena
	log  *slog.Logger
}

func newBase(kind string, capacity int, o Options) (base, error) {
	ar, err := arena.New(capacity, o.arena())
	if err != nil {
		return base{}, fmt.Errorf("alloc: %s: %w", kind, err)
	}
	return base{
		id:   nextID(),
		kind: kind,
		ar:   ar,
		log:  o.Logger.With("allocator", kind),
	}, nil
}

// BytesInUse returns the bytes charged to live allocations.
func (b *base) BytesInUse() int { return b.ar.BytesInUse() }

// AllocationCount returns the number of live allocations.
func (b *base) AllocationCount() int { return b.ar.AllocationCount() }

// Capacity returns the arena size in bytes.
func (b *base) Capacity() int { return b.ar.Cap() }

// Addr returns the absolute address of offset off, for diagnostics.
func (b *base) Addr(off int) uintptr { return b.ar.Addr(off) }

// Bytes returns the user region of blk, or nil if blk is foreign or out of range.
func (b *base) Bytes(blk Block) []byte {
	if blk.owner != b.id || b.ar.Closed() {
		return nil
	}
	s, ok := buf.Slice(b.ar.Bytes(), blk.Off, blk.Size)
	if !ok {
		return nil
	}
	return s
}

// owns validates identity and range; strategy checks come after it.
func (b *base) owns(blk Block) error {
	if b.ar.Closed() {
		return arena.ErrClosed
	}
	if blk.owner != b.id {
		return ErrForeignBlock
	}
	if !buf.Has(b.ar.Bytes(), blk.Off, blk.Size) {
		return fmt.Errorf("%w: [%d, +%d) outside %d-byte arena", ErrBadBlock, blk.Off, blk.Size, b.ar.Cap())
	}
	return nil
}

func (b *base) block(off, size int) Block {
	return Block{Off: off, Size: size, owner: b.id}
}

func (b *base) stats() Stats {
	return Stats{
		Kind:        b.kind,
		Capacity:    b.ar.Cap(),
		BytesInUse:  b.ar.BytesInUse(),
		Allocations: b.ar.AllocationCount(),
	}
}

func (b *base) outOfMemory(size, align, free int) error {
	b.log.Debug("allocation failed", "size", size, "align", align, "free", free)
	return fmt.Errorf("%w: %s needs %d bytes (align %d), %d free", ErrOutOfMemory, b.kind, size, align, free)
}

// Close releases the arena. Live allocations are reported through ErrLeaked.
func (b *base) Close() error {
	inUse, count := b.ar.BytesInUse(), b.ar.AllocationCount()
	err := b.ar.Close()
	if errors.Is(err, arena.ErrLeaked) {
		b.log.Warn("closed with live allocations", "bytes", inUse, "allocations", count)
	}
	return err
}

// checkRequest rejects negative sizes and returns off+adj+size.
func checkRequest(off, adj, size int) (int, error) {
	if size < 0 {
		return 0, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	start, ok := buf.AddOverflowSafe(off, adj)
	if !ok {
		return 0, fmt.Errorf("%w: offset overflow", ErrBadSize)
	}
	end, ok := buf.AddOverflowSafe(start, size)
	if !ok {
		return 0, fmt.Errorf("%w: %d bytes overflows", ErrBadSize, size)
	}
	return end, nil
}
