package cube

import (
	"fmt"
	"math"
)

const pixelSizeTolerance = 1e-5

// CheckCompatibility reports whether a and b have the same grid: equal
// dimensions, equal slice distance and pixel sizes within 1e-5 mm.
func CheckCompatibility(a, b *Cube) bool {
	switch {
	case a.DimX != b.DimX, a.DimY != b.DimY, a.DimZ != b.DimZ:
		return false
	case math.Abs(a.PixelSize-b.PixelSize) > pixelSizeTolerance:
		return false
	case a.SliceDistance != b.SliceDistance:
		return false
	}
	return true
}

// IsCompatible is CheckCompatibility(c, other).
func (c *Cube) IsCompatible(other *Cube) bool {
	return CheckCompatibility(c, other)
}

func (c *Cube) requireCompatible(other *Cube, op string) error {
	if err := c.CheckData(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := other.CheckData(); err != nil {
		return fmt.Errorf("%s: other cube: %w", op, err)
	}
	if !CheckCompatibility(c, other) {
		return fmt.Errorf("%s: %w: %dx%dx%d (%g mm, %g mm) vs %dx%dx%d (%g mm, %g mm)", op, ErrIncompatibleCubes,
			c.DimX, c.DimY, c.DimZ, c.PixelSize, c.SliceDistance,
			other.DimX, other.DimY, other.DimZ, other.PixelSize, other.SliceDistance)
	}
	return nil
}

// combine returns a new cube with c's metadata and fn applied voxel by voxel.
func (c *Cube) combine(other *Cube, op string, fn func(a, b float64) float64) (*Cube, error) {
	if err := c.requireCompatible(other, op); err != nil {
		return nil, err
	}
	out := NewFrom(c)
	for i, v := range c.Data {
		out.Data[i] = fn(v, other.Data[i])
	}
	return out, nil
}

func (c *Cube) scalar(op string, fn func(a float64) float64) (*Cube, error) {
	if err := c.CheckData(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	out := NewFrom(c)
	for i, v := range c.Data {
		out.Data[i] = fn(v)
	}
	return out, nil
}

// Add returns c + other.
func (c *Cube) Add(other *Cube) (*Cube, error) {
	return c.combine(other, "add", func(a, b float64) float64 { return a + b })
}

// Sub returns c - other.
func (c *Cube) Sub(other *Cube) (*Cube, error) {
	return c.combine(other, "sub", func(a, b float64) float64 { return a - b })
}

// Mul returns c * other.
func (c *Cube) Mul(other *Cube) (*Cube, error) {
	return c.combine(other, "mul", func(a, b float64) float64 { return a * b })
}

// Div returns c / other. Voxels where both are zero become zero.
func (c *Cube) Div(other *Cube) (*Cube, error) {
	return c.combine(other, "div", func(a, b float64) float64 {
		q := a / b
		if math.IsNaN(q) {
			return 0
		}
		return q
	})
}

// AddScalar returns c + v.
func (c *Cube) AddScalar(v float64) (*Cube, error) {
	return c.scalar("add", func(a float64) float64 { return a + v })
}

// SubScalar returns c - v.
func (c *Cube) SubScalar(v float64) (*Cube, error) {
	return c.scalar("sub", func(a float64) float64 { return a - v })
}

// MulScalar returns c * v. Integer cubes keep integer values, truncated
// toward zero.
func (c *Cube) MulScalar(v float64) (*Cube, error) {
	return c.scalar("mul", c.keepType(func(a float64) float64 { return a * v }))
}

// DivScalar returns c / v. Integer cubes keep integer values, truncated
// toward zero. NaN results become zero.
func (c *Cube) DivScalar(v float64) (*Cube, error) {
	return c.scalar("div", c.keepType(func(a float64) float64 {
		q := a / v
		if math.IsNaN(q) {
			return 0
		}
		return q
	}))
}

func (c *Cube) keepType(fn func(float64) float64) func(float64) float64 {
	if !c.Codec.Type.IsInteger() {
		return fn
	}
	return func(a float64) float64 {
		v := fn(a)
		if math.IsInf(v, 0) {
			return v
		}
		return math.Trunc(v)
	}
}

// Merge sets every voxel to the maximum of c and other.
func (c *Cube) Merge(other *Cube) error {
	if err := c.requireCompatible(other, "merge"); err != nil {
		return err
	}
	for i, v := range other.Data {
		if v > c.Data[i] {
			c.Data[i] = v
		}
	}
	return nil
}

// MergeZero copies other's value into every voxel of c that is exactly zero.
func (c *Cube) MergeZero(other *Cube) error {
	if err := c.requireCompatible(other, "merge_zero"); err != nil {
		return err
	}
	for i, v := range c.Data {
		if v == 0 {
			c.Data[i] = other.Data[i]
		}
	}
	return nil
}
