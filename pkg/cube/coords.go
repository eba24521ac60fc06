package cube

import "math"

// Position is a point in patient space in mm.
type Position struct {
	X, Y, Z float64
}

// IndexToPosition returns the centre of voxel (i, j, k) in mm, including the
// x and y offsets. The z coordinate is always taken from the slice table.
func (g *Geometry) IndexToPosition(i, j, k int) Position {
	return Position{
		X: g.ColumnToX(i),
		Y: g.RowToY(j),
		Z: g.SlicePositions[k],
	}
}

// ColumnToX returns the x centre of voxel column i in mm.
func (g *Geometry) ColumnToX(i int) float64 {
	return (float64(i)+0.5)*g.PixelSize + g.XOffset
}

// RowToY returns the y centre of voxel row j in mm.
func (g *Geometry) RowToY(j int) float64 {
	return (float64(j)+0.5)*g.PixelSize + g.YOffset
}

// SliceToZ returns the z position of slice n, counting from 1.
// No bounds check is done; n outside [1, DimZ] panics.
func (g *Geometry) SliceToZ(n int) float64 {
	return g.SlicePositions[n-1]
}

// PositionToIndex returns the voxel containing p. The slice is the one whose
// position is nearest to p.Z. ok is false when p lies outside the grid.
func (g *Geometry) PositionToIndex(p Position) (i, j, k int, ok bool) {
	i = int(math.Floor((p.X - g.XOffset) / g.PixelSize))
	j = int(math.Floor((p.Y - g.YOffset) / g.PixelSize))
	k = g.NearestSlice(p.Z)
	ok = i >= 0 && i < g.DimX && j >= 0 && j < g.DimY && k >= 0
	return i, j, k, ok
}

// NearestSlice returns the index of the slice closest to z, or -1 if the
// geometry has no slices.
func (g *Geometry) NearestSlice(z float64) int {
	best, bestDist := -1, math.Inf(1)
	for k, pos := range g.SlicePositions {
		if d := math.Abs(pos - z); d < bestDist {
			best, bestDist = k, d
		}
	}
	return best
}

// VoxelVolume returns the volume of one voxel in mm^3.
func (g *Geometry) VoxelVolume() float64 {
	return g.PixelSize * g.PixelSize * g.SliceDistance
}
