// Package dvh computes cumulative dose-volume histograms of a volume of
// interest in a dose cube.
//
// Dose cubes store relative dose as integers where the target dose is 1000.
// Histogram bins are one per-mille wide; all doses in a Histogram are
// rescaled so that the target dose is 1.0.
package dvh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/osama-ammar/pytrip/pkg/cube"
)

const (
	// MaxDose is the default number of bins, covering 0 to 149.9% of the
	// target dose. Higher doses land in the last bin.
	MaxDose = 1500

	// TargetDose is the stored value of 100% dose.
	TargetDose = 1000.0

	nearMinimumFraction = 0.98
	nearMaximumFraction = 0.02
)

// ErrNoOverlap is returned when no slice of the cube intersects the structure.
var ErrNoOverlap = errors.New("structure does not overlap the cube")

// Structure is a volume of interest that can hand out its contours per slice.
type Structure interface {
	ActiveRegionAt(z float64) (cube.SliceRegion, bool)
}

// Histogram is a cumulative dose-volume histogram.
type Histogram struct {
	// Counts holds the number of voxels per dose bin.
	Counts []float64

	// Dose is the relative dose of each bin (1.0 = target dose).
	Dose []float64

	// Volume is the fraction of the structure receiving at least Dose[i].
	Volume []float64

	// MinDose is the highest dose still received by 98% of the volume.
	MinDose float64

	// MaxDose is the lowest dose received by at most 2% of the volume.
	MaxDose float64

	// MeanDose is the voxel-count weighted mean dose.
	MeanDose float64

	// MeanVolume is the irradiated volume in mm^3.
	MeanVolume float64
}

// Aggregator accumulates dose histograms.
type Aggregator struct {
	// Bins is the number of per-mille bins; zero means MaxDose.
	Bins int
}

// Calculate computes the histogram of s in the dose cube c using
// MaxDose bins.
func Calculate(c *cube.Cube, s Structure) (*Histogram, error) {
	return Aggregator{}.Calculate(c, s)
}

// Calculate computes the histogram of s in the dose cube c. Every voxel
// whose centre lies inside the structure's contour in its slice counts once,
// binned by its stored dose value.
func (a Aggregator) Calculate(c *cube.Cube, s Structure) (*Histogram, error) {
	if err := c.CheckData(); err != nil {
		return nil, fmt.Errorf("dvh: %w", err)
	}
	bins := a.Bins
	if bins <= 0 {
		bins = MaxDose
	}

	counts := make([]float64, bins)
	intersects := false
	for k := 0; k < c.DimZ; k++ {
		region, ok := s.ActiveRegionAt(c.SlicePositions[k])
		if !ok {
			continue
		}
		intersects = true
		addSlice(c, k, region, counts)
	}
	if !intersects {
		cube.Logger().Warn("structure outside the dose cube")
		return nil, ErrNoOverlap
	}

	h := summarize(counts)
	h.MeanVolume = floats.Sum(counts) * c.VoxelVolume()
	return h, nil
}

func addSlice(c *cube.Cube, k int, region cube.SliceRegion, counts []float64) {
	last := len(counts) - 1
	for j := 0; j < c.DimY; j++ {
		xs := region.RowIntersections(c.RowToY(j))
		cube.ScanRow(&c.Geometry, xs, func(i int) {
			bin := int(c.At(i, j, k))
			if bin < 0 {
				bin = 0
			} else if bin > last {
				bin = last
			}
			counts[bin]++
		})
	}
}

// summarize derives the cumulative curve and dose statistics from per-bin
// counts. An all-zero histogram yields a zero curve.
func summarize(counts []float64) *Histogram {
	n := len(counts)
	h := &Histogram{
		Counts: counts,
		Dose:   make([]float64, n),
		Volume: make([]float64, n),
	}
	for i := range h.Dose {
		h.Dose[i] = float64(i)
	}

	total := floats.Sum(counts)
	if total == 0 {
		floats.Scale(1/TargetDose, h.Dose)
		return h
	}

	// cumulative sum from the top bin down
	reversed := make([]float64, n)
	for i, v := range counts {
		reversed[n-1-i] = v
	}
	floats.CumSum(reversed, reversed)
	for i := range h.Volume {
		h.Volume[i] = reversed[n-1-i] / total
	}

	minBin, maxBin := 0, n-1
	for i, v := range h.Volume {
		if v >= nearMinimumFraction {
			minBin = i
		}
	}
	for i, v := range h.Volume {
		if v <= nearMaximumFraction {
			maxBin = i
			break
		}
	}

	h.MeanDose = stat.Mean(h.Dose, counts) / TargetDose
	h.MinDose = float64(minBin) / TargetDose
	h.MaxDose = float64(maxBin) / TargetDose
	floats.Scale(1/TargetDose, h.Dose)
	return h
}

// WriteTo writes the curve as two whitespace separated columns: relative
// dose and volume fraction.
func (h *Histogram) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var written int64
	for i := range h.Dose {
		n, err := fmt.Fprintf(bw, "%.3f %.6f\n", h.Dose[i], h.Volume[i])
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
	return written, bw.Flush()
}

// Save writes the curve to path.
func (h *Histogram) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create dvh file: %w", err)
	}
	defer f.Close()

	if _, err := h.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write dvh file: %w", err)
	}
	return f.Close()
}
