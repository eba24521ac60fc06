package cube

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Region is a region of interest as seen by the rasterizer.
type Region interface {
	// RowIntersections returns the sorted x positions in mm where the
	// region's boundary crosses the line along x through p.Y in the slice at
	// p.Z. ok is false when the region has no data at p.Z at all.
	RowIntersections(p Position) (xs []float64, ok bool)
}

// ScanRow calls fn for every column i of a row whose voxel centre lies
// inside the region, given the sorted boundary crossings of that row.
//
// A voxel is inside when an odd number of crossings lie to the left of its
// centre. The crossing pointer only moves forward, and at most once per
// column. Scanning stops after the last crossing, so an odd crossing count
// leaves the tail of the row outside.
func ScanRow(g *Geometry, crossings []float64, fn func(i int)) {
	n := len(crossings)
	if n == 0 {
		return
	}
	k := 0
	for i := 0; i < g.DimX; i++ {
		if g.ColumnToX(i) > crossings[k] {
			k++
			if k >= n {
				return
			}
		}
		if k%2 == 1 {
			fn(i)
		}
	}
}

// Rasterizer maps a Region onto a cube's voxel grid slice by slice.
type Rasterizer struct {
	// Workers is the number of slices processed concurrently. Values below
	// 2 scan sequentially. The Region must be safe for concurrent queries
	// when Workers > 1.
	Workers int
}

// Walk calls fn with the Data index of every voxel inside region.
//
// If the region reports no data for a slice, the rest of that slice is
// skipped. fn may be called concurrently, but never twice for the same
// index.
func (r Rasterizer) Walk(g *Geometry, region Region, fn func(idx int)) {
	var oddRows atomic.Int64

	scanSlice := func(k int) {
		for j := 0; j < g.DimY; j++ {
			xs, ok := region.RowIntersections(g.IndexToPosition(0, j, k))
			if !ok {
				break
			}
			if len(xs)%2 == 1 {
				oddRows.Add(1)
			}
			base := (k*g.DimY + j) * g.DimX
			ScanRow(g, xs, func(i int) {
				fn(base + i)
			})
		}
	}

	if r.Workers < 2 || g.DimZ < 2 {
		for k := 0; k < g.DimZ; k++ {
			scanSlice(k)
		}
	} else {
		slices := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < r.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := range slices {
					scanSlice(k)
				}
			}()
		}
		for k := 0; k < g.DimZ; k++ {
			slices <- k
		}
		close(slices)
		wg.Wait()
	}

	if n := oddRows.Load(); n > 0 {
		Logger().Warn("rows with an odd number of contour crossings", "rows", n)
	}
}

// Rasterize returns a new voxel array for c's grid with preset inside the
// region and zero elsewhere. c is not modified and only needs its header.
func (r Rasterizer) Rasterize(c *Cube, region Region, preset float64) ([]float64, error) {
	if !c.loaded {
		return nil, fmt.Errorf("rasterize: %w", ErrHeaderNotLoaded)
	}
	data := make([]float64, c.Len())
	if preset != 0 {
		r.Walk(&c.Geometry, region, func(idx int) {
			data[idx] = preset
		})
	}
	return data, nil
}

// Mask overwrites the voxels of c inside the region with value.
func (r Rasterizer) Mask(c *Cube, region Region, value float64) error {
	if err := c.CheckData(); err != nil {
		return fmt.Errorf("mask: %w", err)
	}
	r.Walk(&c.Geometry, region, func(idx int) {
		c.Data[idx] = value
	})
	return nil
}

// MaskAdd adds value to the voxels of c inside the region.
func (r Rasterizer) MaskAdd(c *Cube, region Region, value float64) error {
	if err := c.CheckData(); err != nil {
		return fmt.Errorf("mask: %w", err)
	}
	r.Walk(&c.Geometry, region, func(idx int) {
		c.Data[idx] += value
	})
	return nil
}

// MaskByVoiAll replaces the voxel data with preset inside the region and
// zero outside.
func (c *Cube) MaskByVoiAll(region Region, preset float64) error {
	data, err := Rasterizer{}.Rasterize(c, region, preset)
	if err != nil {
		return err
	}
	c.Data = data
	return nil
}

// MaskByVoi overwrites voxels inside the region with value. Voxels outside
// are untouched.
func (c *Cube) MaskByVoi(region Region, value float64) error {
	return Rasterizer{}.Mask(c, region, value)
}

// MaskByVoiAdd adds value to voxels inside the region.
func (c *Cube) MaskByVoiAdd(region Region, value float64) error {
	return Rasterizer{}.MaskAdd(c, region, value)
}

// SliceRegion is the part of a region of interest lying in one slice.
type SliceRegion interface {
	// RowIntersections returns the sorted x positions in mm where the
	// boundary crosses the line along x at height y.
	RowIntersections(y float64) []float64
}
