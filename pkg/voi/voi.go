// Package voi implements volumes of interest built from closed polygon
// contours stacked along z. A Voi answers the row-crossing queries used by
// cube masking and dose-volume histograms.
package voi

import (
	"fmt"
	"math"
	"sort"

	"github.com/osama-ammar/pytrip/pkg/cube"
)

// defaultThickness is the slice thickness in mm assumed for a volume of
// interest with fewer than two slices.
const defaultThickness = 3.0

// Point is a contour vertex in mm.
type Point struct {
	X, Y float64
}

// Contour is a closed polygon ring. The last point connects back to the first.
type Contour struct {
	Points []Point
}

// RowIntersections returns the x positions where the contour crosses the
// horizontal line at y. An edge touching the line only at its upper end
// does not count, so a vertex shared by two edges is counted once.
func (c *Contour) RowIntersections(y float64) []float64 {
	var xs []float64
	n := len(c.Points)
	for i := 0; i < n; i++ {
		p1 := c.Points[i]
		p2 := c.Points[(i+1)%n]
		if (p1.Y > y) == (p2.Y > y) {
			continue
		}
		xs = append(xs, p1.X+(y-p1.Y)*(p2.X-p1.X)/(p2.Y-p1.Y))
	}
	return xs
}

// Contains reports whether (x, y) is inside the contour.
func (c *Contour) Contains(x, y float64) bool {
	inside := false
	for _, cx := range c.RowIntersections(y) {
		if cx < x {
			inside = !inside
		}
	}
	return inside
}

// Slice holds the contours of a volume of interest at one z position.
type Slice struct {
	Z        float64
	Contours []Contour
}

// RowIntersections returns the sorted crossings of all contours in the slice.
func (s *Slice) RowIntersections(y float64) []float64 {
	var xs []float64
	for i := range s.Contours {
		xs = append(xs, s.Contours[i].RowIntersections(y)...)
	}
	sort.Float64s(xs)
	return xs
}

// Voi is a named volume of interest.
type Voi struct {
	Name string

	// Thickness is the slice thickness in mm. When zero it is taken from the
	// spacing of the first two slices.
	Thickness float64

	slices []Slice
}

// New returns an empty volume of interest.
func New(name string) *Voi {
	return &Voi{Name: name}
}

// AddSlice adds a slice, keeping slices ordered by z.
func (v *Voi) AddSlice(s Slice) {
	i := sort.Search(len(v.slices), func(i int) bool { return v.slices[i].Z >= s.Z })
	v.slices = append(v.slices, Slice{})
	copy(v.slices[i+1:], v.slices[i:])
	v.slices[i] = s
}

// AddContour adds a closed ring at z, creating the slice if needed.
func (v *Voi) AddContour(z float64, points []Point) {
	for i := range v.slices {
		if v.slices[i].Z == z {
			v.slices[i].Contours = append(v.slices[i].Contours, Contour{Points: points})
			return
		}
	}
	v.AddSlice(Slice{Z: z, Contours: []Contour{{Points: points}}})
}

// Slices returns the slices ordered by z.
func (v *Voi) Slices() []Slice {
	return v.slices
}

// SliceThickness returns the thickness used to match z positions to slices.
func (v *Voi) SliceThickness() float64 {
	if v.Thickness > 0 {
		return v.Thickness
	}
	if len(v.slices) > 1 {
		return math.Abs(v.slices[1].Z - v.slices[0].Z)
	}
	return defaultThickness
}

// SliceAt returns the slice covering z. A slice covers z positions within
// half a slice thickness, widened by 5% to absorb rounding in slice tables.
func (v *Voi) SliceAt(z float64) (*Slice, bool) {
	half := v.SliceThickness() / 2 * 1.05
	for i := range v.slices {
		if s := &v.slices[i]; s.Z-half < z && z < s.Z+half {
			return s, true
		}
	}
	return nil, false
}

// RowIntersections implements cube.Region.
func (v *Voi) RowIntersections(p cube.Position) ([]float64, bool) {
	s, ok := v.SliceAt(p.Z)
	if !ok {
		return nil, false
	}
	return s.RowIntersections(p.Y), true
}

// ActiveRegionAt returns the part of the volume lying in the slice at z.
func (v *Voi) ActiveRegionAt(z float64) (cube.SliceRegion, bool) {
	s, ok := v.SliceAt(z)
	if !ok {
		return nil, false
	}
	return s, true
}

// Bounds returns the bounding box of all contour points.
func (v *Voi) Bounds() (min, max cube.Position, err error) {
	first := true
	for _, s := range v.slices {
		for _, c := range s.Contours {
			for _, p := range c.Points {
				if first {
					min = cube.Position{X: p.X, Y: p.Y, Z: s.Z}
					max = min
					first = false
					continue
				}
				min.X, max.X = math.Min(min.X, p.X), math.Max(max.X, p.X)
				min.Y, max.Y = math.Min(min.Y, p.Y), math.Max(max.Y, p.Y)
				min.Z, max.Z = math.Min(min.Z, s.Z), math.Max(max.Z, s.Z)
			}
		}
	}
	if first {
		return min, max, fmt.Errorf("voi %q has no contour points", v.Name)
	}
	return min, max, nil
}

// Rectangle returns a closed axis-aligned ring from (x0, y0) to (x1, y1).
func Rectangle(x0, y0, x1, y1 float64) []Point {
	return []Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}
