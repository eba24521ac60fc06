package cube

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHeader = `version 1.4
modality CT
created_by trip98
creation_info Created with TRiP98 1.4
primary_view transversal
data_type integer
num_bytes 2
byte_order aix
patient_name tst003000
slice_dimension 4
pixel_size 2.0000000
slice_distance 3.0000000
slice_number 3
xoffset 10
dimx 4
yoffset 5
dimy 2
zoffset 2
dimz 3
z_table no
some_future_directive 42
`

func TestParseHeader(t *testing.T) {
	h, err := ParseHeader(strings.NewReader(sampleHeader))
	require.NoError(t, err)

	assert.Equal(t, "1.4", h.Version)
	assert.Equal(t, "CT", h.Modality)
	assert.Equal(t, "trip98", h.CreatedBy)
	assert.Equal(t, "Created with TRiP98 1.4", h.CreationInfo)
	assert.Equal(t, "transversal", h.PrimaryView)
	assert.Equal(t, "tst003000", h.PatientName)
	assert.Equal(t, Codec{Type: Int16, Order: BigEndian}, h.Codec)
	assert.Equal(t, 4, h.DimX)
	assert.Equal(t, 2, h.DimY)
	assert.Equal(t, 3, h.DimZ)
	assert.Equal(t, 2.0, h.PixelSize)
	assert.Equal(t, 3.0, h.SliceDistance)
	assert.Equal(t, 3.0, h.SliceThickness)

	// offsets are converted from voxel units to mm
	assert.Equal(t, 20.0, h.XOffset)
	assert.Equal(t, 10.0, h.YOffset)
	assert.Equal(t, 6.0, h.ZOffset)

	assert.False(t, h.ZTable)
	assert.Equal(t, []float64{6, 9, 12}, h.SlicePositions)
}

func TestParseHeaderSliceTable(t *testing.T) {
	text := `version 2.0
data_type float
num_bytes 4
byte_order vms
pixel_size 1.0
slice_distance 2.0
slice_number 3
dimx 2
dimy 2
zoffset 7
dimz 3
z_table yes
slice_no  position  thickness  gantry_tilt
  1         -10.5000       2.0000        0.0000
  2          -8.5000       2.0000        0.0000
  3          -4.0000       2.0000        0.0000
`
	h, err := ParseHeader(strings.NewReader(text))
	require.NoError(t, err)
	assert.True(t, h.ZTable)
	assert.Equal(t, Float32, h.Codec.Type)
	// the table is used as is, zoffset does not apply
	assert.Equal(t, []float64{-10.5, -8.5, -4}, h.SlicePositions)
	assert.Equal(t, 14.0, h.ZOffset)
}

func TestParseHeaderErrors(t *testing.T) {
	tests := map[string]string{
		"bad byte count": strings.Replace(sampleHeader, "num_bytes 2", "num_bytes 3", 1),
		"bad dimension":  strings.Replace(sampleHeader, "dimx 4", "dimx four", 1),
		"zero dimension": strings.Replace(sampleHeader, "dimy 2", "dimy 0", 1),
		"slice number":   strings.Replace(sampleHeader, "slice_number 3", "slice_number 4", 1),
		"bad byte order": strings.Replace(sampleHeader, "byte_order aix", "byte_order pdp", 1),
		"short table":    sampleHeader + "slice_no position\n  1 0.0 3.0 0.0\n",
	}
	for name, text := range tests {
		_, err := ParseHeader(strings.NewReader(text))
		assert.True(t, errors.Is(err, ErrFormat), "%s: %v", name, err)
	}
}

func TestEncodeHeader(t *testing.T) {
	h, err := ParseHeader(strings.NewReader(sampleHeader))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, h.Encode(&buf))
	text := buf.String()

	assert.Contains(t, text, "created_by trip98\n")
	assert.Contains(t, text, "pixel_size 2.0000000\n")
	assert.Contains(t, text, "xoffset 10\n")
	assert.Contains(t, text, "yoffset 5\n")
	assert.Contains(t, text, "zoffset 0\n")
	assert.NotContains(t, text, "some_future_directive")

	// zoffset is dropped, so the shifted slices need a table
	assert.Contains(t, text, "z_table yes\n")
	assert.Contains(t, text, "  1          6.0000       3.0000        0.0000\n")

	back, err := ParseHeader(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, h.SlicePositions, back.SlicePositions)
	assert.Equal(t, h.XOffset, back.XOffset)
	assert.Equal(t, h.YOffset, back.YOffset)
}

func TestEncodeHeaderOldVersion(t *testing.T) {
	h, err := ParseHeader(strings.NewReader(strings.Replace(sampleHeader, "version 1.4", "version 1.2", 1)))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, h.Encode(&buf))
	assert.NotContains(t, buf.String(), "created_by")
	assert.NotContains(t, buf.String(), "creation_info")
}

func TestEncodeHeaderWithoutTable(t *testing.T) {
	h := &Header{
		Version:     "2.0",
		Modality:    "CT",
		PrimaryView: "transversal",
		Codec:       Codec{Type: Int16},
		Geometry: Geometry{
			DimX: 2, DimY: 2, DimZ: 3,
			PixelSize:      1.5,
			SliceDistance:  2.5,
			SlicePositions: []float64{0, 2.5, 5},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, h.Encode(&buf))
	assert.Contains(t, buf.String(), "z_table no\n")
	assert.NotContains(t, buf.String(), "slice_no")
	assert.Contains(t, buf.String(), "patient_name Anonymous\n")
	assert.Contains(t, buf.String(), "slice_dimension 2\n")
}

func TestEncodeHeaderRoundingNoise(t *testing.T) {
	g := Geometry{
		DimX: 2, DimY: 2, DimZ: 3,
		PixelSize:      1,
		SliceDistance:  0.1,
		SlicePositions: []float64{0, 0.1 + 1e-9, 0.2 - 1e-9},
	}
	assert.False(t, g.needsTable())

	g.SlicePositions[2] = 0.2 + 1e-4
	assert.True(t, g.needsTable())
}
