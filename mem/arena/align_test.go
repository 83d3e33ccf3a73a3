package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alignments = []int{1, 2, 4, 8, 16, 32, 64, 128}

func TestIsPowerOfTwo(t *testing.T) {
	for _, a := range alignments {
		assert.True(t, IsPowerOfTwo(a), "%d", a)
	}
	for _, n := range []int{-8, -1, 0, 3, 6, 12, 100, 129} {
		assert.False(t, IsPowerOfTwo(n), "%d", n)
	}
}

func TestAlignForward_Exhaustive(t *testing.T) {
	for _, align := range alignments {
		for off := 0; off <= 1024; off++ {
			got := AlignForward(off, align)
			require.GreaterOrEqual(t, got, off, "off=%d align=%d", off, align)
			require.Zero(t, got%align, "off=%d align=%d", off, align)
			require.Less(t, got-off, align, "must be the smallest aligned offset (off=%d align=%d)", off, align)
			require.Equal(t, got-off, Adjustment(off, align))
		}
	}
}

func TestAlignForward_Examples(t *testing.T) {
	assert.Equal(t, 0, AlignForward(0, 8))
	assert.Equal(t, 8, AlignForward(1, 8))
	assert.Equal(t, 8, AlignForward(8, 8))
	assert.Equal(t, 16, AlignForward(9, 16))
	assert.Equal(t, 13, AlignForward(13, 1))
}

func TestAdjustmentWithHeader_Exhaustive(t *testing.T) {
	for _, align := range alignments {
		for _, header := range []int{0, 1, 4, 5, 8, 12, 16, 24} {
			for off := 0; off <= 512; off++ {
				adj := AdjustmentWithHeader(off, align, header)
				require.GreaterOrEqual(t, adj, header, "header must fit (off=%d align=%d header=%d)", off, align, header)
				require.Zero(t, (off+adj)%align, "result must be aligned (off=%d align=%d header=%d)", off, align, header)
				require.Less(t, adj, header+align, "adjustment must be minimal (off=%d align=%d header=%d)", off, align, header)
			}
		}
	}
}

func TestAdjustmentWithHeader_Examples(t *testing.T) {
	// Natural gap is big enough.
	assert.Equal(t, 12, AdjustmentWithHeader(4, 16, 8))
	// Gap of 3 cannot hold 8, so two extra alignment steps are added.
	assert.Equal(t, 11, AdjustmentWithHeader(5, 4, 8))
	// Already aligned: a whole header-sized run of alignments is added.
	assert.Equal(t, 8, AdjustmentWithHeader(0, 8, 8))
	assert.Equal(t, 16, AdjustmentWithHeader(0, 16, 8))
	assert.Equal(t, 8, AdjustmentWithHeader(0, 1, 8))
}

func TestAlign_PanicsOnBadAlignment(t *testing.T) {
	for _, bad := range []int{0, 3, 12, 256, -4} {
		assert.Panics(t, func() { AlignForward(10, bad) }, "align=%d", bad)
		assert.Panics(t, func() { AdjustmentWithHeader(10, bad, 8) }, "align=%d", bad)
	}
}
