package alloc

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"github.com/joshuapare/memkit/internal/buf"
	"github.com/joshuapare/memkit/mem/arena"
)

// Destroyer is implemented by element types that need cleanup before their
// storage goes back to an allocator. Delete and DeleteArray call it.
type Destroyer interface {
	Destroy()
}

// Ref is a typed handle to one value living in allocator memory.
type Ref[T any] struct {
	ptr *T
	blk Block
}

// Get returns the value's address. It is valid until the value is deleted
// or its allocator clears, resets, defragments it away or closes.
func (r Ref[T]) Get() *T { return r.ptr }

// Block returns the underlying allocation token.
func (r Ref[T]) Block() Block { return r.blk }

// IsNil reports whether r refers to nothing.
func (r Ref[T]) IsNil() bool { return r.ptr == nil }

// Array is a typed handle to a run of values preceded by a length word.
type Array[T any] struct {
	elems []T
	blk   Block
}

// Elems returns the elements. Appending to the slice never writes into the arena.
func (a Array[T]) Elems() []T { return a.elems }

// Len returns the element count.
func (a Array[T]) Len() int { return len(a.elems) }

// Block returns the underlying allocation token.
func (a Array[T]) Block() Block { return a.blk }

// lengthWord is the size of the element count stored ahead of an array.
const lengthWord = 8

type layout struct {
	size  int
	align int
}

type layoutEntry struct {
	l   layout
	err error
}

var layouts sync.Map // reflect.Type -> layoutEntry

// layoutOf returns the size and alignment of T, rejecting types the arena
// cannot hold. Zero-sized types occupy one byte so every Ref is distinct.
func layoutOf[T any]() (layout, error) {
	t := reflect.TypeFor[T]()
	if v, ok := layouts.Load(t); ok {
		e := v.(layoutEntry)
		return e.l, e.err
	}

	var e layoutEntry
	switch {
	case hasPointers(t):
		e.err = fmt.Errorf("%w: %s", ErrPointerType, t)
	case t.Align() > arena.MaxAlign:
		e.err = fmt.Errorf("%w: %s needs %d-byte alignment", ErrUnsupported, t, t.Align())
	default:
		e.l = layout{size: max(int(t.Size()), 1), align: t.Align()}
	}
	layouts.Store(t, e)
	return e.l, e.err
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func pointerTo[T any](mem []byte) *T {
	return (*T)(unsafe.Pointer(unsafe.SliceData(mem)))
}

func destroy[T any](p *T) {
	if d, ok := any(p).(Destroyer); ok {
		d.Destroy()
	}
}

// New allocates a zero T from a.
func New[T any](a Allocator) (Ref[T], error) {
	var zero T
	return NewWith(a, zero)
}

// NewWith allocates a T from a initialised to v.
func NewWith[T any](a Allocator, v T) (Ref[T], error) {
	l, err := layoutOf[T]()
	if err != nil {
		return Ref[T]{}, err
	}
	blk, err := a.Allocate(l.size, l.align)
	if err != nil {
		return Ref[T]{}, err
	}
	p := pointerTo[T](a.Bytes(blk))
	*p = v
	return Ref[T]{ptr: p, blk: blk}, nil
}

// Delete runs the value's cleanup and returns its storage to a.
// The block is validated first so a stale Ref never reaches Destroy.
func Delete[T any](a Allocator, r Ref[T]) error {
	if err := a.Check(r.blk); err != nil {
		return err
	}
	destroy(r.ptr)
	return a.Deallocate(r.blk)
}

func arrayPrefix(l layout) int {
	return arena.AlignForward(lengthWord, l.align)
}

// NewArray allocates n zeroed elements of T. The element count is written
// ahead of the first element so DeleteArray can recover it from the arena.
func NewArray[T any](a Allocator, n int) (Array[T], error) {
	if n < 0 {
		return Array[T]{}, fmt.Errorf("%w: array length %d", ErrBadSize, n)
	}
	l, err := layoutOf[T]()
	if err != nil {
		return Array[T]{}, err
	}

	prefix := arrayPrefix(l)
	body, ok := buf.MulOverflowSafe(n, l.size)
	if !ok {
		return Array[T]{}, fmt.Errorf("%w: %d elements of %d bytes", ErrBadSize, n, l.size)
	}
	total, ok := buf.AddOverflowSafe(prefix, body)
	if !ok {
		return Array[T]{}, fmt.Errorf("%w: %d elements of %d bytes", ErrBadSize, n, l.size)
	}

	blk, err := a.Allocate(total, l.align)
	if err != nil {
		return Array[T]{}, err
	}
	mem := a.Bytes(blk)
	buf.PutU64(mem, prefix-lengthWord, uint64(n))
	clear(mem[prefix:])

	var elems []T
	if n > 0 {
		elems = unsafe.Slice(pointerTo[T](mem[prefix:]), n)
	}
	return Array[T]{elems: elems[:n:n], blk: blk}, nil
}

// DeleteArray destroys every element, using the count stored in the arena,
// and returns the storage to a.
func DeleteArray[T any](a Allocator, arr Array[T]) error {
	if err := a.Check(arr.blk); err != nil {
		return err
	}
	l, err := layoutOf[T]()
	if err != nil {
		return err
	}
	mem := a.Bytes(arr.blk)
	prefix := arrayPrefix(l)
	if len(mem) < prefix {
		return fmt.Errorf("%w: array block of %d bytes", ErrBadBlock, len(mem))
	}

	n := buf.U64(mem, prefix-lengthWord)
	if n != uint64(len(arr.elems)) {
		return fmt.Errorf("%w: array length word %d, handle has %d", ErrCorrupt, n, len(arr.elems))
	}
	for i := range arr.elems {
		destroy(&arr.elems[i])
	}
	return a.Deallocate(arr.blk)
}

// Rebind re-points r after a relocation. Refs not affected by m are
// returned unchanged.
func Rebind[T any](a Allocator, r Ref[T], m Move) Ref[T] {
	blk, ok := m.Apply(r.blk)
	if !ok {
		return r
	}
	return Ref[T]{ptr: pointerTo[T](a.Bytes(blk)), blk: blk}
}

// RebindArray is Rebind for arrays.
func RebindArray[T any](a Allocator, arr Array[T], m Move) Array[T] {
	blk, ok := m.Apply(arr.blk)
	if !ok || len(arr.elems) == 0 {
		arr.blk = blk
		return arr
	}
	l, err := layoutOf[T]()
	if err != nil {
		return arr
	}
	mem := a.Bytes(blk)
	elems := unsafe.Slice(pointerTo[T](mem[arrayPrefix(l):]), len(arr.elems))
	return Array[T]{elems: elems, blk: blk}
}
