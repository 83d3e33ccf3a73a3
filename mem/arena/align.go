package arena

import "fmt"

// MaxAlign is the largest alignment any allocator accepts. Every arena
// buffer starts on a MaxAlign boundary, so an offset satisfies an
// alignment exactly when the address it maps to does.
const MaxAlign = 128

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// MustAlign panics unless align is a power of two no larger than MaxAlign.
// A bad alignment is a programming error and is never rounded silently.
func MustAlign(align int) {
	if !IsPowerOfTwo(align) || align > MaxAlign {
		panic(fmt.Sprintf("arena: alignment %d is not a power of two <= %d", align, MaxAlign))
	}
}

// AlignForward returns the smallest offset >= off that is a multiple of align.
func AlignForward(off, align int) int {
	MustAlign(align)
	mask := align - 1
	return (off + mask) &^ mask
}

// Adjustment returns how many bytes must be skipped from off to reach the
// next multiple of align.
func Adjustment(off, align int) int {
	return AlignForward(off, align) - off
}

// AdjustmentWithHeader returns the distance from off to an aligned offset
// that leaves at least header bytes behind it. When the natural padding is
// too small the adjustment grows by whole multiples of align, so the result
// is still aligned and the header sits at (off+adj-header).
func AdjustmentWithHeader(off, align, header int) int {
	adj := Adjustment(off, align)
	if adj >= header {
		return adj
	}

	need := header - adj
	steps := need / align
	if need%align > 0 {
		steps++
	}
	return adj + steps*align
}
