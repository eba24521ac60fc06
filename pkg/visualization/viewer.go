// Package visualization renders planes of a cube as grey-scale images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"slices"

	"github.com/disintegration/imaging"

	"github.com/osama-ammar/pytrip/pkg/cube"
)

// Viewer extracts axial, coronal and sagittal planes from a cube
type Viewer struct {
	// c is the cube being viewed
	c *cube.Cube

	// windowMin and windowMax are the voxel values mapped to black and white
	windowMin float64
	windowMax float64
}

// NewViewer creates a viewer mapping windowMin..windowMax to black..white
func NewViewer(c *cube.Cube, windowMin, windowMax float64) *Viewer {
	return &Viewer{
		c:         c,
		windowMin: windowMin,
		windowMax: windowMax,
	}
}

func (v *Viewer) grey(value float64) color.Gray {
	t := (value - v.windowMin) / (v.windowMax - v.windowMin)
	return color.Gray{Y: uint8(math.Round(math.Max(0, math.Min(1, t)) * 255))}
}

// ExtractSlice extracts a plane through the cube along the given axis:
// "x" gives a sagittal (y-z) plane, "y" a coronal (x-z) plane and "z" an
// axial (x-y) plane. Planes containing z are stretched so that one image
// pixel covers the same distance along both axes.
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}
	c := v.c
	if err := c.CheckData(); err != nil {
		return nil, fmt.Errorf("cannot extract slice: %w", err)
	}

	var img *image.Gray
	switch axis {
	case "x", "X":
		if position >= c.DimX {
			return nil, fmt.Errorf("position %d exceeds width %d", position, c.DimX)
		}
		img = image.NewGray(image.Rect(0, 0, c.DimY, c.DimZ))
		for z := 0; z < c.DimZ; z++ {
			for y := 0; y < c.DimY; y++ {
				img.SetGray(y, z, v.grey(c.At(position, y, z)))
			}
		}

	case "y", "Y":
		if position >= c.DimY {
			return nil, fmt.Errorf("position %d exceeds height %d", position, c.DimY)
		}
		img = image.NewGray(image.Rect(0, 0, c.DimX, c.DimZ))
		for z := 0; z < c.DimZ; z++ {
			for x := 0; x < c.DimX; x++ {
				img.SetGray(x, z, v.grey(c.At(x, position, z)))
			}
		}

	case "z", "Z":
		if position >= c.DimZ {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, c.DimZ)
		}
		img = image.NewGray(image.Rect(0, 0, c.DimX, c.DimY))
		for y := 0; y < c.DimY; y++ {
			for x := 0; x < c.DimX; x++ {
				img.SetGray(x, y, v.grey(c.At(x, y, position)))
			}
		}
		return img, nil

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return v.stretch(img), nil
}

// stretch rescales the z rows of a sagittal or coronal plane by the ratio of
// slice distance to pixel size.
func (v *Viewer) stretch(img *image.Gray) image.Image {
	ratio := v.c.SliceDistance / v.c.PixelSize
	if ratio <= 0 || math.Abs(ratio-1) < 1e-6 {
		return img
	}
	b := img.Bounds()
	height := int(math.Round(float64(b.Dy()) * ratio))
	if height < 1 {
		height = 1
	}
	return imaging.Resize(img, b.Dx(), height, imaging.Linear)
}

// ExtractRegion returns the sub-cube starting at voxel (startX, startY,
// startZ). Offsets and slice positions are adjusted so that every voxel
// keeps its position in patient space.
func (v *Viewer) ExtractRegion(startX, startY, startZ, sizeX, sizeY, sizeZ int) (*cube.Cube, error) {
	if startX < 0 || startY < 0 || startZ < 0 {
		return nil, fmt.Errorf("start coordinates must be non-negative")
	}

	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return nil, fmt.Errorf("size dimensions must be positive")
	}

	c := v.c
	if err := c.CheckData(); err != nil {
		return nil, fmt.Errorf("cannot extract region: %w", err)
	}
	if startX+sizeX > c.DimX || startY+sizeY > c.DimY || startZ+sizeZ > c.DimZ {
		return nil, fmt.Errorf("region extends beyond volume boundaries")
	}

	region := cube.NewFrom(c)
	region.DimX, region.DimY, region.DimZ = sizeX, sizeY, sizeZ
	region.SliceDimension = sizeX
	region.XOffset += float64(startX) * c.PixelSize
	region.YOffset += float64(startY) * c.PixelSize
	region.SlicePositions = slices.Clone(c.SlicePositions[startZ : startZ+sizeZ])
	region.ZTable = true
	region.Data = make([]float64, sizeX*sizeY*sizeZ)

	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				region.Set(x, y, z, c.At(startX+x, startY+y, startZ+z))
			}
		}
	}

	return region, nil
}

// SaveSlice saves an extracted slice; the format follows the file extension
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	return imaging.Save(img, filename, imaging.JPEGQuality(90))
}

// SaveSliceSequence extracts and saves every plane along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string, format string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.c.DimX
	case "y", "Y":
		maxPos = v.c.DimY
	case "z", "Z":
		maxPos = v.c.DimZ
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.%s", axis, pos, format))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
