// Package cube holds 3D voxel data used in treatment planning (CT numbers,
// dose, LET) together with the TRiP98 header metadata describing it, and
// reads and writes the TRiP98 header/data file pair.
//
// Voxels are stored as float64 in z, y, x order regardless of the on-disk
// element type; the header's Codec decides how they are encoded on write.
package cube

import (
	"errors"
	"fmt"
	"io"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/jinzhu/copier"
)

// Cube is a dense 3D voxel grid and its metadata.
type Cube struct {
	Header

	// Kind selects file naming and export metadata.
	Kind Kind

	// TargetDose is the absolute dose in Gy that a stored value of 1000
	// stands for. Only meaningful for dose cubes.
	TargetDose float64

	// Data holds DimZ*DimY*DimX voxels, x varying fastest.
	Data []float64

	loaded bool
}

// ReadOption modifies how voxel data is decoded.
type ReadOption func(*readOptions)

type readOptions struct {
	multiplyByTwo bool
}

// MultiplyByTwo doubles every decoded value. Some VIRTUOS dose cubes were
// written at half their true value; this restores them.
func MultiplyByTwo(enabled bool) ReadOption {
	return func(o *readOptions) {
		o.multiplyByTwo = enabled
	}
}

// New returns a cube of the given kind with default metadata and no
// geometry. It must be filled by Read or replaced by NewEmpty before use.
func New(kind Kind) *Cube {
	return &Cube{
		Header: Header{
			Version:      "2.0",
			Modality:     "CT",
			CreatedBy:    currentUser(),
			CreationInfo: "Created with pytrip",
			PrimaryView:  "transversal",
			PatientID:    time.Now().Format("20060102-150405"),
			Codec:        Codec{Type: Int16, Order: LittleEndian},
		},
		Kind: kind,
	}
}

// NewEmpty creates a cube where every voxel holds value. Voxels are stored
// as 2-byte integers. Slices are placed at sliceOffset + n*sliceDistance.
func NewEmpty(kind Kind, value float64, dimX, dimY, dimZ int, pixelSize, sliceDistance, sliceOffset float64) (*Cube, error) {
	if dimX <= 0 || dimY <= 0 || dimZ <= 0 {
		return nil, fmt.Errorf("%w: invalid dimensions %d x %d x %d", ErrFormat, dimX, dimY, dimZ)
	}
	if pixelSize <= 0 {
		return nil, fmt.Errorf("%w: invalid pixel size %g", ErrFormat, pixelSize)
	}

	c := New(kind)
	c.DimX, c.DimY, c.DimZ = dimX, dimY, dimZ
	c.SliceDimension = dimX
	c.PixelSize = pixelSize
	c.SliceDistance = sliceDistance
	c.SliceThickness = sliceDistance
	c.SlicePositions = synthesizePositions(sliceOffset, sliceDistance, dimZ)
	c.ZTable = sliceOffset != 0
	c.Codec = Codec{Type: Int16, Order: LittleEndian}
	c.PatientID = ""

	c.Data = make([]float64, dimX*dimY*dimZ)
	if value != 0 {
		for i := range c.Data {
			c.Data[i] = value
		}
	}
	c.loaded = true
	return c, nil
}

// NewFrom creates a cube with a deep copy of other's metadata and all voxels
// set to zero. No storage is shared with other.
func NewFrom(other *Cube) *Cube {
	c := &Cube{}
	if err := copier.CopyWithOption(&c.Header, &other.Header, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched kinds, which cannot happen here
		panic(err)
	}
	c.Kind = other.Kind
	c.TargetDose = other.TargetDose
	c.loaded = other.loaded
	if other.loaded {
		c.Data = make([]float64, c.Len())
	}
	return c
}

// Clone returns a deep copy of c, voxels included.
func (c *Cube) Clone() *Cube {
	n := NewFrom(c)
	copy(n.Data, c.Data)
	return n
}

// Loaded reports whether the cube has geometry, either from a read or NewEmpty.
func (c *Cube) Loaded() bool {
	return c.loaded
}

// CheckData returns ErrHeaderNotLoaded when c has no geometry, and a
// *SizeMismatchError when Data does not hold one value per voxel, as after
// ReadHeader.
func (c *Cube) CheckData() error {
	if !c.loaded {
		return ErrHeaderNotLoaded
	}
	if len(c.Data) != c.Len() {
		return &SizeMismatchError{Declared: c.Len(), Decoded: len(c.Data), DimX: c.DimX, DimY: c.DimY, DimZ: c.DimZ}
	}
	return nil
}

// Len returns DimX*DimY*DimZ.
func (c *Cube) Len() int {
	return c.DimX * c.DimY * c.DimZ
}

// Index returns the offset of voxel (i, j, k) in Data.
func (c *Cube) Index(i, j, k int) int {
	return (k*c.DimY+j)*c.DimX + i
}

// At returns the value of voxel (i, j, k).
func (c *Cube) At(i, j, k int) float64 {
	return c.Data[c.Index(i, j, k)]
}

// Set stores v in voxel (i, j, k).
func (c *Cube) Set(i, j, k int, v float64) {
	c.Data[c.Index(i, j, k)] = v
}

// Slice returns the voxels of slice k. The returned slice aliases Data.
func (c *Cube) Slice(k int) []float64 {
	n := c.DimX * c.DimY
	return c.Data[k*n : (k+1)*n]
}

// SetByteOrder selects the byte order used by the next Write. endian is
// "little", "big", or one of the header names "vms" and "aix".
func (c *Cube) SetByteOrder(endian string) error {
	o, err := ParseByteOrder(endian)
	if err != nil {
		return err
	}
	c.Codec.Order = o
	return nil
}

// SetElementType selects the element type used by the next Write.
func (c *Cube) SetElementType(t ElementType) {
	c.Codec.Type = t
}

// Read loads a header and its data file. On failure c is left unchanged.
func (c *Cube) Read(headerPath, dataPath string, opts ...ReadOption) error {
	c.checkSuffixes(headerPath, dataPath)

	h, err := readHeaderFile(headerPath)
	if err != nil {
		return err
	}
	data, err := readDataFile(h, dataPath, opts)
	if err != nil {
		return err
	}

	c.Header = *h
	c.Data = data
	c.loaded = true
	return nil
}

// ReadHeader loads only the header. Existing voxel data is dropped.
func (c *Cube) ReadHeader(headerPath string) error {
	h, err := readHeaderFile(headerPath)
	if err != nil {
		return err
	}
	c.Header = *h
	c.Data = nil
	c.loaded = true
	return nil
}

// ReadData loads voxel data using the geometry of a previously read header.
func (c *Cube) ReadData(dataPath string, opts ...ReadOption) error {
	if !c.loaded {
		return fmt.Errorf("reading %s: %w", dataPath, ErrHeaderNotLoaded)
	}
	data, err := readDataFile(&c.Header, dataPath, opts)
	if err != nil {
		return err
	}
	c.Data = data
	return nil
}

// Write stores the header and data files and returns the paths used. When
// dataPath is empty it is derived from headerPath and the cube kind. Paths
// ending in .gz are compressed.
func (c *Cube) Write(headerPath, dataPath string) (string, string, error) {
	if err := c.CheckData(); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", headerPath, err)
	}
	if dataPath == "" {
		dataPath = DataPath(basename(headerPath, c.Kind), c.Kind)
		if isGzip(headerPath) {
			dataPath += ".gz"
		}
	}
	c.checkSuffixes(headerPath, dataPath)

	// TRiP98 only imports structures whose patient_name matches the header
	// file name without extension.
	h := c.Header
	h.PatientName = basename(filepath.Base(headerPath), c.Kind)

	Logger().Info("writing header", "path", headerPath)
	if err := writeFile(headerPath, h.Encode); err != nil {
		return "", "", err
	}
	Logger().Info("writing data", "path", dataPath, "format", c.Codec.Format())
	err := writeFile(dataPath, func(w io.Writer) error {
		return c.Codec.Encode(w, c.Data)
	})
	if err != nil {
		return "", "", err
	}
	return headerPath, dataPath, nil
}

func (c *Cube) checkSuffixes(headerPath, dataPath string) {
	hp := strings.ToLower(strings.TrimSuffix(headerPath, ".gz"))
	if !strings.HasSuffix(hp, HeaderExtension) {
		Logger().Warn("header path does not end in "+HeaderExtension, "path", headerPath)
	}
	dp := strings.ToLower(strings.TrimSuffix(dataPath, ".gz"))
	if !strings.HasSuffix(dp, c.Kind.DataExtension()) {
		Logger().Warn("data path does not end in "+c.Kind.DataExtension(), "path", dataPath, "kind", c.Kind)
	}
}

func readHeaderFile(path string) (*Header, error) {
	Logger().Info("reading header", "path", path)
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, err := ParseHeader(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return h, nil
}

func readDataFile(h *Header, path string, opts []ReadOption) ([]float64, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}

	Logger().Info("reading data", "path", path, "format", h.Codec.Format())
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	count := h.DimX * h.DimY * h.DimZ
	data, err := h.Codec.Decode(f, count)
	if err != nil {
		var sm *SizeMismatchError
		if errors.As(err, &sm) {
			sm.DimX, sm.DimY, sm.DimZ = h.DimX, h.DimY, h.DimZ
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if o.multiplyByTwo {
		Logger().Warn("cube was previously rescaled to 50%, multiplying by 2", "path", path)
		for i := range data {
			data[i] *= 2
		}
	}
	return data, nil
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}
