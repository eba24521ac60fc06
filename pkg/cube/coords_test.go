package cube

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexToPosition(t *testing.T) {
	g := &Geometry{
		DimX: 10, DimY: 8, DimZ: 3,
		PixelSize:      2,
		SliceDistance:  3,
		XOffset:        -5,
		YOffset:        4,
		ZOffset:        1000, // never used for positions
		SlicePositions: []float64{-3, 0, 4.5},
	}

	p := g.IndexToPosition(0, 0, 0)
	assert.Equal(t, Position{X: -4, Y: 5, Z: -3}, p)

	p = g.IndexToPosition(3, 2, 2)
	assert.Equal(t, Position{X: 2, Y: 9, Z: 4.5}, p)

	assert.Equal(t, -3.0, g.SliceToZ(1))
	assert.Equal(t, 4.5, g.SliceToZ(3))
	assert.Panics(t, func() { g.SliceToZ(0) })

	i, j, k, ok := g.PositionToIndex(Position{X: 2.1, Y: 9, Z: 4})
	assert.True(t, ok)
	assert.Equal(t, []int{3, 2, 2}, []int{i, j, k})

	_, _, _, ok = g.PositionToIndex(Position{X: -6, Y: 9, Z: 4})
	assert.False(t, ok)

	assert.Equal(t, 12.0, g.VoxelVolume())
}
