package region

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestMap_SizeAndAlignment(t *testing.T) {
	for _, size := range []int{1, 128, PageSize - 1, PageSize, 3*PageSize + 17} {
		data, release, err := Map(size)
		require.NoError(t, err, "Map(%d)", size)
		require.Len(t, data, size)
		require.Equal(t, size, cap(data), "capacity must not expose spare bytes")

		base := uintptr(unsafe.Pointer(unsafe.SliceData(data)))
		require.Zero(t, base%PageSize, "region must start on a page boundary")

		for i := range data {
			require.Zero(t, data[i], "fresh region must be zeroed")
		}
		data[0], data[size-1] = 0xAA, 0xBB
		require.Equal(t, byte(0xBB), data[size-1])

		require.NoError(t, release())
		require.NoError(t, release(), "second release must be a no-op")
	}
}

func TestMap_RejectsBadSize(t *testing.T) {
	_, _, err := Map(0)
	require.ErrorIs(t, err, ErrBadSize)

	_, _, err = Map(-5)
	require.ErrorIs(t, err, ErrBadSize)
}
