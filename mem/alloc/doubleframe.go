package alloc

import (
	"errors"
	"fmt"
)

// DoubleFrame pairs two equally sized Stack allocators for per-frame
// scratch data. Allocations always go to the active stack; SwapBuffers
// flips which one that is. Data written during frame N therefore stays
// readable through frame N+1, until the stack holding it is made active
// again and cleared.
//
// A typical frame:
//
//	df.SwapBuffers()
//	df.ClearActiveBuffer()
//	// allocate this frame's data, read last frame's
type DoubleFrame struct {
	stacks [2]*Stack
	active int
}

// NewDoubleFrame creates two stacks of capacity bytes each.
func NewDoubleFrame(capacity int, opts *Options) (*DoubleFrame, error) {
	front, err := NewStack(capacity, opts)
	if err != nil {
		return nil, err
	}
	back, err := NewStack(capacity, opts)
	if err != nil {
		_ = front.Close()
		return nil, err
	}
	front.kind, back.kind = "frame[0]", "frame[1]"
	front.log = front.log.With("buffer", 0)
	back.log = back.log.With("buffer", 1)
	return &DoubleFrame{stacks: [2]*Stack{front, back}}, nil
}

// Allocate reserves memory from the active stack.
func (d *DoubleFrame) Allocate(size, align int) (Block, error) {
	return d.stacks[d.active].Allocate(size, align)
}

// owner returns the stack that handed out b.
func (d *DoubleFrame) owner(b Block) (*Stack, error) {
	for _, s := range d.stacks {
		if b.owner == s.id {
			return s, nil
		}
	}
	return nil, ErrForeignBlock
}

// Check validates b against the stack that handed it out.
func (d *DoubleFrame) Check(b Block) error {
	s, err := d.owner(b)
	if err != nil {
		return err
	}
	return s.Check(b)
}

// Deallocate pops b from the stack that handed it out, active or not.
func (d *DoubleFrame) Deallocate(b Block) error {
	s, err := d.owner(b)
	if err != nil {
		return err
	}
	return s.Deallocate(b)
}

// Bytes returns the user region of b in whichever stack holds it.
func (d *DoubleFrame) Bytes(b Block) []byte {
	s, err := d.owner(b)
	if err != nil {
		return nil
	}
	return s.Bytes(b)
}

// SwapBuffers makes the other stack active. No memory is touched.
func (d *DoubleFrame) SwapBuffers() {
	d.active ^= 1
}

// ClearActiveBuffer empties the active stack, discarding the data it held
// from two frames ago.
func (d *DoubleFrame) ClearActiveBuffer() {
	d.stacks[d.active].Clear()
}

// Active returns the index (0 or 1) of the active stack.
func (d *DoubleFrame) Active() int { return d.active }

// Buffer returns stack i (0 or 1).
func (d *DoubleFrame) Buffer(i int) *Stack { return d.stacks[i] }

// BytesInUse returns the bytes in use across both stacks.
func (d *DoubleFrame) BytesInUse() int {
	return d.stacks[0].BytesInUse() + d.stacks[1].BytesInUse()
}

// AllocationCount returns the live allocations across both stacks.
func (d *DoubleFrame) AllocationCount() int {
	return d.stacks[0].AllocationCount() + d.stacks[1].AllocationCount()
}

// Stats returns the combined counters of both stacks.
func (d *DoubleFrame) Stats() Stats {
	return Stats{
		Kind:        "doubleframe",
		Capacity:    d.stacks[0].Capacity() + d.stacks[1].Capacity(),
		BytesInUse:  d.BytesInUse(),
		Allocations: d.AllocationCount(),
		Segments:    2,
	}
}

// Close clears both stacks and releases them. Frame data is transient, so
// allocations still live at Close are not reported as leaks.
func (d *DoubleFrame) Close() error {
	var errs []error
	for i, s := range d.stacks {
		s.Clear()
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("buffer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

var _ Allocator = (*DoubleFrame)(nil)
