package visualization

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/osama-ammar/pytrip/pkg/cube"
)

// newTestCube returns a 10 x 8 x 4 cube holding x + 10*y + 20*z.
func newTestCube(t *testing.T, pixelSize, sliceDistance float64) *cube.Cube {
	t.Helper()
	c, err := cube.NewEmpty(cube.CT, 0, 10, 8, 4, pixelSize, sliceDistance, 0)
	if err != nil {
		t.Fatalf("NewEmpty failed: %v", err)
	}
	for z := 0; z < c.DimZ; z++ {
		for y := 0; y < c.DimY; y++ {
			for x := 0; x < c.DimX; x++ {
				c.Set(x, y, z, float64(x+10*y+20*z))
			}
		}
	}
	return c
}

func TestGreyWindow(t *testing.T) {
	v := NewViewer(newTestCube(t, 1, 1), -100, 100)

	cases := []struct {
		value float64
		want  uint8
	}{
		{-500, 0},
		{-100, 0},
		{0, 128},
		{100, 255},
		{900, 255},
	}
	for _, tc := range cases {
		if got := v.grey(tc.value).Y; got != tc.want {
			t.Errorf("grey(%g) = %d, want %d", tc.value, got, tc.want)
		}
	}
}

func TestExtractSlice(t *testing.T) {
	c := newTestCube(t, 1, 1)
	v := NewViewer(c, 0, 255)

	tests := []struct {
		axis          string
		position      int
		width, height int
		x, y          int
		want          float64
	}{
		{"z", 2, 10, 8, 3, 4, 3 + 40 + 40},
		{"y", 5, 10, 4, 7, 1, 7 + 50 + 20},
		{"x", 9, 8, 4, 2, 3, 9 + 20 + 60},
	}
	for _, tt := range tests {
		t.Run(tt.axis, func(t *testing.T) {
			img, err := v.ExtractSlice(tt.axis, tt.position)
			if err != nil {
				t.Fatalf("ExtractSlice failed: %v", err)
			}
			b := img.Bounds()
			if b.Dx() != tt.width || b.Dy() != tt.height {
				t.Fatalf("expected %dx%d image, got %dx%d", tt.width, tt.height, b.Dx(), b.Dy())
			}
			got := color.GrayModel.Convert(img.At(tt.x, tt.y)).(color.Gray).Y
			if want := v.grey(tt.want).Y; got != want {
				t.Errorf("pixel (%d, %d) = %d, want %d", tt.x, tt.y, got, want)
			}
		})
	}
}

func TestExtractSliceStretchesZ(t *testing.T) {
	v := NewViewer(newTestCube(t, 1, 2.5), 0, 255)

	img, err := v.ExtractSlice("x", 0)
	if err != nil {
		t.Fatalf("ExtractSlice failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 10 {
		t.Errorf("expected 8x10 image, got %dx%d", b.Dx(), b.Dy())
	}

	img, err = v.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("ExtractSlice failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 10 || b.Dy() != 8 {
		t.Errorf("axial plane should not be stretched, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestExtractSliceErrors(t *testing.T) {
	v := NewViewer(newTestCube(t, 1, 1), 0, 255)

	for _, tc := range []struct {
		axis string
		pos  int
	}{
		{"w", 0},
		{"z", -1},
		{"x", 10},
		{"y", 8},
		{"z", 4},
	} {
		if _, err := v.ExtractSlice(tc.axis, tc.pos); err == nil {
			t.Errorf("expected error for axis %s position %d", tc.axis, tc.pos)
		}
	}
}

func TestExtractRegion(t *testing.T) {
	c := newTestCube(t, 2, 3)
	v := NewViewer(c, 0, 255)

	region, err := v.ExtractRegion(2, 1, 1, 4, 3, 2)
	if err != nil {
		t.Fatalf("ExtractRegion failed: %v", err)
	}
	if region.DimX != 4 || region.DimY != 3 || region.DimZ != 2 {
		t.Fatalf("unexpected dimensions %dx%dx%d", region.DimX, region.DimY, region.DimZ)
	}
	if region.Len() != len(region.Data) {
		t.Errorf("data length %d does not match %d voxels", len(region.Data), region.Len())
	}

	for z := 0; z < 2; z++ {
		for y := 0; y < 3; y++ {
			for x := 0; x < 4; x++ {
				if got, want := region.At(x, y, z), c.At(x+2, y+1, z+1); got != want {
					t.Errorf("voxel (%d, %d, %d) = %g, want %g", x, y, z, got, want)
				}
			}
		}
	}

	// voxels keep their position in patient space
	if got, want := region.IndexToPosition(0, 0, 0), c.IndexToPosition(2, 1, 1); got != want {
		t.Errorf("region origin at %+v, want %+v", got, want)
	}

	region.Set(0, 0, 0, -1)
	if c.At(2, 1, 1) == -1 {
		t.Error("region shares storage with the source cube")
	}
}

func TestExtractRegionErrors(t *testing.T) {
	v := NewViewer(newTestCube(t, 1, 1), 0, 255)

	if _, err := v.ExtractRegion(-1, 0, 0, 1, 1, 1); err == nil {
		t.Error("expected error for negative start")
	}
	if _, err := v.ExtractRegion(0, 0, 0, 0, 1, 1); err == nil {
		t.Error("expected error for empty size")
	}
	if _, err := v.ExtractRegion(8, 0, 0, 3, 1, 1); err == nil {
		t.Error("expected error for region beyond the cube")
	}
}

func TestSaveSliceSequence(t *testing.T) {
	v := NewViewer(newTestCube(t, 1, 2), 0, 255)
	dir := filepath.Join(t.TempDir(), "slices")

	if err := v.SaveSliceSequence("z", dir, "png"); err != nil {
		t.Fatalf("SaveSliceSequence failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read output directory: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 images, got %d", len(entries))
	}

	f, err := os.Open(filepath.Join(dir, "slice_z_001.png"))
	if err != nil {
		t.Fatalf("missing slice image: %v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("failed to decode slice image: %v", err)
	}
	if format != "png" || cfg.Width != 10 || cfg.Height != 8 {
		t.Errorf("unexpected image %s %dx%d", format, cfg.Width, cfg.Height)
	}

	if err := v.SaveSliceSequence("q", dir, "png"); err == nil {
		t.Error("expected error for invalid axis")
	}
}

func TestHeaderOnlyCube(t *testing.T) {
	hed, _, err := newTestCube(t, 1, 1).Write(filepath.Join(t.TempDir(), "ct.hed"), "")
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	c := cube.New(cube.CT)
	if err := c.ReadHeader(hed); err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}

	v := NewViewer(c, 0, 255)
	if _, err := v.ExtractSlice("z", 0); err == nil {
		t.Error("expected error extracting a slice without voxel data")
	}
	if _, err := v.ExtractRegion(0, 0, 0, 1, 1, 1); err == nil {
		t.Error("expected error extracting a region without voxel data")
	}
}
