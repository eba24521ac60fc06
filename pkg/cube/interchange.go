package cube

import (
	"bytes"
	"fmt"
	"slices"
)

// Attributes is the normalized form of a cube exchanged with the DICOM
// bridge. The bridge maps it to and from interchange tags; this package
// never sees those.
type Attributes struct {
	DimX, DimY, DimZ int
	PixelSize        float64
	SliceThickness   float64
	XOffset, YOffset float64
	SlicePositions   []float64

	ElementType ElementType
	ByteOrder   ByteOrder
	// Voxels is the raw payload in ElementType and ByteOrder, z, y, x order.
	Voxels []byte

	Modality    string
	Units       string
	PatientID   string
	PatientName string
	StudyUID    string
}

// ToAttributes exports c for the interchange bridge.
func (c *Cube) ToAttributes() (*Attributes, error) {
	if err := c.CheckData(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	var buf bytes.Buffer
	if err := c.Codec.Encode(&buf, c.Data); err != nil {
		return nil, err
	}
	return &Attributes{
		DimX:           c.DimX,
		DimY:           c.DimY,
		DimZ:           c.DimZ,
		PixelSize:      c.PixelSize,
		SliceThickness: c.SliceThickness,
		XOffset:        c.XOffset,
		YOffset:        c.YOffset,
		SlicePositions: slices.Clone(c.SlicePositions),
		ElementType:    c.Codec.Type,
		ByteOrder:      c.Codec.Order,
		Voxels:         buf.Bytes(),
		Modality:       c.Kind.Modality(),
		Units:          c.Kind.Units(),
		PatientID:      c.PatientID,
		PatientName:    c.PatientName,
	}, nil
}

// FromAttributes builds a cube of the given kind from bridge attributes.
// Slice distance is inferred from the first two slice positions; with a
// single slice the slice thickness is used instead.
func FromAttributes(kind Kind, a *Attributes) (*Cube, error) {
	if a.DimX <= 0 || a.DimY <= 0 || a.DimZ <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %d x %d x %d", ErrFormat, a.DimX, a.DimY, a.DimZ)
	}
	if len(a.SlicePositions) != a.DimZ {
		return nil, fmt.Errorf("%w: %d slice positions for %d slices", ErrFormat, len(a.SlicePositions), a.DimZ)
	}

	codec := Codec{Type: a.ElementType, Order: a.ByteOrder}
	data, err := codec.Decode(bytes.NewReader(a.Voxels), a.DimX*a.DimY*a.DimZ)
	if err != nil {
		return nil, err
	}

	c := New(kind)
	c.DimX, c.DimY, c.DimZ = a.DimX, a.DimY, a.DimZ
	c.SliceDimension = a.DimX
	c.PixelSize = a.PixelSize
	c.SliceThickness = a.SliceThickness
	c.XOffset, c.YOffset = a.XOffset, a.YOffset
	c.SlicePositions = slices.Clone(a.SlicePositions)
	c.ZTable = true
	c.Codec = codec
	c.PatientID = a.PatientID
	c.PatientName = a.PatientName
	c.Data = data

	if a.DimZ > 1 {
		c.SliceDistance = a.SlicePositions[1] - a.SlicePositions[0]
	} else {
		Logger().Warn("only one slice, using slice thickness as slice distance", "thickness", a.SliceThickness)
		c.SliceDistance = a.SliceThickness
	}
	if len(c.SlicePositions) > 0 {
		c.ZOffset = c.SlicePositions[0]
	}
	c.loaded = true
	return c, nil
}
