package alloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// Payload types standing in for engine math values.

type Vec3 struct{ X, Y, Z float32 }

type Mat4 [16]float32

type Quat struct{ W, X, Y, Z float64 }

// tracked counts Destroy calls through a package-level counter; arena
// values may not hold pointers, so the counter cannot live in the value.
type tracked struct {
	ID   uint32
	Seen uint32
}

var destroyed int

func (t *tracked) Destroy() { destroyed++ }

func resetDestroyed(t *testing.T) {
	t.Helper()
	destroyed = 0
	t.Cleanup(func() { destroyed = 0 })
}

func addrOf(mem []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(mem)))
}

func requireAligned(t testing.TB, a Allocator, b Block, align int) {
	t.Helper()
	mem := a.Bytes(b)
	require.NotNil(t, mem, "block %+v must be addressable", b)
	require.Zero(t, addrOf(mem)%uintptr(align), "address of block %+v must be %d-aligned", b, align)
	require.Zero(t, b.Off%align, "offset of block %+v must be %d-aligned", b, align)
}

func newTestLinear(t testing.TB, capacity int) *Linear {
	t.Helper()
	l, err := NewLinear(capacity, nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Reset(); _ = l.Close() })
	return l
}

func newTestStack(t testing.TB, capacity int) *Stack {
	t.Helper()
	s, err := NewStack(capacity, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Clear(); _ = s.Close() })
	return s
}

func newTestFreeList(t testing.TB, capacity int, opts *Options) *FreeList {
	t.Helper()
	fl, err := NewFreeList(capacity, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fl.Close() })
	return fl
}

// requireFreeListInvariants checks conservation, address order and that no
// two free regions in one segment touch.
func requireFreeListInvariants(t testing.TB, fl *FreeList) {
	t.Helper()
	free := fl.FreeBlocks()
	sum := 0
	for i, e := range free {
		sum += e.Size
		require.GreaterOrEqual(t, e.Size, nodeSize, "free region %d too small to hold a node", i)
		if i == 0 {
			continue
		}
		prev := free[i-1]
		require.Less(t, prev.Off, e.Off, "free list must be address-ordered")
		require.LessOrEqual(t, prev.Off+prev.Size, e.Off, "free regions overlap")
		if fl.segmentIndex(prev.Off) == fl.segmentIndex(e.Off) {
			require.NotEqual(t, prev.Off+prev.Size, e.Off, "adjacent free regions %v and %v were not merged", prev, e)
		}
	}
	require.Equal(t, fl.Capacity(), fl.BytesInUse()+sum, "bytes in use + free bytes must equal capacity")
}
