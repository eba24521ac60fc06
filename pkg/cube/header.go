package cube

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Geometry describes the voxel grid and where it sits in patient space.
// Offsets are in mm. SlicePositions holds one absolute z per slice and is
// the only source of z geometry; ZOffset is kept for reference only.
type Geometry struct {
	DimX, DimY, DimZ int

	PixelSize      float64
	SliceDistance  float64
	SliceThickness float64

	XOffset float64
	YOffset float64
	ZOffset float64

	SlicePositions []float64

	// ZTable is set when SlicePositions came from (or must be written as)
	// an explicit slice table rather than ZOffset + n*SliceDistance.
	ZTable bool
}

// Header is the metadata of a TRiP98 header file.
type Header struct {
	Version        string
	Modality       string
	CreatedBy      string
	CreationInfo   string
	PrimaryView    string
	PatientName    string
	PatientID      string
	SliceDimension int

	Codec Codec

	Geometry
}

// sliceTableTolerance is how far in mm a slice may sit from i*SliceDistance
// and still be written without a slice table.
const sliceTableTolerance = 1e-6

// creatorVersion is the first header version carrying created_by and creation_info.
var creatorVersion = semver.MustParse("1.4")

// ParseHeader parses the text of a header file. Unknown directives are
// ignored. Offsets are converted to mm and slice positions are synthesized
// when no slice table is present.
func ParseHeader(r io.Reader) (*Header, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	h := &Header{}
	var (
		dataType    string
		numBytes    int
		sliceNumber int
		xoff, yoff  float64
		zoff        float64
		table       []float64
	)
	h.Codec.Order = LittleEndian

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		key := fields[0]

		value := func() (string, error) {
			if len(fields) < 2 {
				return "", fmt.Errorf("%w: directive %q without value on line %d", ErrFormat, key, i+1)
			}
			return fields[1], nil
		}
		intValue := func() (int, error) {
			s, err := value()
			if err != nil {
				return 0, err
			}
			n, err := strconv.Atoi(s)
			if err != nil {
				return 0, fmt.Errorf("%w: %s: %v", ErrFormat, key, err)
			}
			return n, nil
		}
		floatValue := func() (float64, error) {
			s, err := value()
			if err != nil {
				return 0, err
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %s: %v", ErrFormat, key, err)
			}
			return f, nil
		}

		var err error
		switch key {
		case "version":
			h.Version, err = value()
		case "modality":
			h.Modality, err = value()
		case "created_by":
			h.CreatedBy = restOfLine(line, key)
		case "creation_info":
			h.CreationInfo = restOfLine(line, key)
		case "primary_view":
			h.PrimaryView, err = value()
		case "data_type":
			dataType, err = value()
		case "num_bytes":
			numBytes, err = intValue()
		case "byte_order":
			var s string
			if s, err = value(); err == nil {
				h.Codec.Order, err = ParseByteOrder(s)
			}
		case "patient_name":
			h.PatientName, err = value()
		case "patient_id":
			h.PatientID, err = value()
		case "slice_dimension":
			h.SliceDimension, err = intValue()
		case "pixel_size":
			h.PixelSize, err = floatValue()
		case "slice_distance":
			h.SliceDistance, err = floatValue()
			h.SliceThickness = h.SliceDistance
		case "slice_number":
			sliceNumber, err = intValue()
		case "xoffset":
			xoff, err = floatValue()
		case "yoffset":
			yoff, err = floatValue()
		case "zoffset":
			zoff, err = floatValue()
		case "dimx":
			h.DimX, err = intValue()
		case "dimy":
			h.DimY, err = intValue()
		case "dimz":
			h.DimZ, err = intValue()
		case "slice_no":
			n := sliceNumber
			if n == 0 {
				n = h.DimZ
			}
			if n <= 0 {
				return nil, fmt.Errorf("%w: slice table before slice_number or dimz", ErrFormat)
			}
			table, err = parseSliceTable(lines[i+1:], n)
			i += n
			h.ZTable = true
		}
		if err != nil {
			return nil, err
		}
	}

	if h.DimX <= 0 || h.DimY <= 0 || h.DimZ <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %d x %d x %d", ErrFormat, h.DimX, h.DimY, h.DimZ)
	}
	if h.PixelSize <= 0 {
		return nil, fmt.Errorf("%w: invalid pixel_size %g", ErrFormat, h.PixelSize)
	}
	if sliceNumber == 0 {
		sliceNumber = h.DimZ
	}
	if sliceNumber != h.DimZ {
		return nil, fmt.Errorf("%w: slice_number %d does not match dimz %d", ErrFormat, sliceNumber, h.DimZ)
	}

	codec, err := NewCodec(dataType, numBytes, h.Codec.Order)
	if err != nil {
		return nil, err
	}
	h.Codec = codec

	// offsets are stored as multiples of pixel size and slice distance
	h.XOffset = xoff * h.PixelSize
	h.YOffset = yoff * h.PixelSize
	h.ZOffset = zoff * h.SliceDistance
	Logger().Debug("header offsets",
		"xoffset", h.XOffset, "yoffset", h.YOffset, "zoffset", h.ZOffset, "format", h.Codec.Format())

	if h.ZTable {
		h.SlicePositions = table
	} else {
		h.SlicePositions = synthesizePositions(h.ZOffset, h.SliceDistance, h.DimZ)
	}
	return h, nil
}

func restOfLine(line, key string) string {
	s := strings.TrimPrefix(strings.TrimLeft(line, " \t"), key)
	return strings.TrimSpace(s)
}

func parseSliceTable(lines []string, n int) ([]float64, error) {
	if len(lines) < n {
		return nil, fmt.Errorf("%w: slice table has %d rows, expected %d", ErrFormat, len(lines), n)
	}
	table := make([]float64, n)
	for j := 0; j < n; j++ {
		fields := strings.Fields(lines[j])
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: malformed slice table row %q", ErrFormat, lines[j])
		}
		pos, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: slice table row %d: %v", ErrFormat, j+1, err)
		}
		table[j] = pos
	}
	return table, nil
}

func synthesizePositions(offset, distance float64, n int) []float64 {
	pos := make([]float64, n)
	for i := range pos {
		pos[i] = offset + float64(i)*distance
	}
	return pos
}

// needsTable reports whether the slice positions cannot be recovered from
// the header alone. zoffset is always written as 0, so any shift or
// irregular spacing must go through the slice table.
func (g *Geometry) needsTable() bool {
	if g.ZTable {
		return true
	}
	for i, z := range g.SlicePositions {
		if math.Abs(z-float64(i)*g.SliceDistance) > sliceTableTolerance {
			return true
		}
	}
	return false
}

// Encode writes the header text. Offsets are written as integer multiples
// of the pixel size and zoffset is always 0; any z shift is carried by the
// slice table.
func (h *Header) Encode(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "version %s\n", h.Version)
	fmt.Fprintf(&b, "modality %s\n", h.Modality)
	if h.hasCreatorFields() {
		fmt.Fprintf(&b, "created_by %s\n", h.CreatedBy)
		fmt.Fprintf(&b, "creation_info %s\n", h.CreationInfo)
	}
	fmt.Fprintf(&b, "primary_view %s\n", h.PrimaryView)
	fmt.Fprintf(&b, "data_type %s\n", h.Codec.Type.DataType())
	fmt.Fprintf(&b, "num_bytes %d\n", h.Codec.Type.Size())
	fmt.Fprintf(&b, "byte_order %s\n", h.Codec.Order.Name())
	patientName := h.PatientName
	if patientName == "" {
		patientName = "Anonymous"
	}
	fmt.Fprintf(&b, "patient_name %s\n", patientName)
	sliceDimension := h.SliceDimension
	if sliceDimension == 0 {
		sliceDimension = h.DimX
	}
	fmt.Fprintf(&b, "slice_dimension %d\n", sliceDimension)
	fmt.Fprintf(&b, "pixel_size %.7f\n", h.PixelSize)
	fmt.Fprintf(&b, "slice_distance %.7f\n", h.SliceDistance)
	fmt.Fprintf(&b, "slice_number %d\n", h.DimZ)
	fmt.Fprintf(&b, "xoffset %d\n", int(math.RoundToEven(h.XOffset/h.PixelSize)))
	fmt.Fprintf(&b, "dimx %d\n", h.DimX)
	fmt.Fprintf(&b, "yoffset %d\n", int(math.RoundToEven(h.YOffset/h.PixelSize)))
	fmt.Fprintf(&b, "dimy %d\n", h.DimY)
	b.WriteString("zoffset 0\n")
	fmt.Fprintf(&b, "dimz %d\n", h.DimZ)
	if h.needsTable() {
		b.WriteString("z_table yes\n")
		b.WriteString("slice_no  position  thickness  gantry_tilt\n")
		for i, z := range h.SlicePositions {
			fmt.Fprintf(&b, "  %-3d%14.4f%13.4f%14.4f\n", i+1, z, h.SliceThickness, 0.0)
		}
	} else {
		b.WriteString("z_table no\n")
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	return nil
}

func (h *Header) hasCreatorFields() bool {
	v, err := semver.NewVersion(h.Version)
	if err != nil {
		return true
	}
	return !v.LessThan(creatorVersion)
}
