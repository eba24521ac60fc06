package cube

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"
)

// ElementType is the on-disk type of a single voxel.
type ElementType int

const (
	Int8 ElementType = iota + 1
	Int16
	Int32
	Float32
	Float64
)

// ElementTypeFor selects the element type from the header's data_type and
// num_bytes directives.
func ElementTypeFor(dataType string, numBytes int) (ElementType, error) {
	switch dataType {
	case "integer":
		switch numBytes {
		case 1:
			return Int8, nil
		case 2:
			return Int16, nil
		case 4:
			return Int32, nil
		}
	case "float", "double":
		switch numBytes {
		case 4:
			return Float32, nil
		case 8:
			return Float64, nil
		}
	}
	return 0, fmt.Errorf("%w: data_type %q with %d bytes", ErrFormat, dataType, numBytes)
}

// Size returns the number of bytes of one element.
func (t ElementType) Size() int {
	switch t {
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// DataType returns the header data_type directive value for t.
func (t ElementType) DataType() string {
	switch t {
	case Int8, Int16, Int32:
		return "integer"
	case Float32:
		return "float"
	case Float64:
		return "double"
	}
	return ""
}

func (t ElementType) code() string {
	switch t {
	case Int8:
		return "b"
	case Int16:
		return "h"
	case Int32:
		return "i"
	case Float32:
		return "f"
	case Float64:
		return "d"
	}
	return "?"
}

func (t ElementType) String() string {
	switch t {
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("ElementType(%d)", int(t))
}

// IsInteger reports whether values of t are stored as integers.
func (t ElementType) IsInteger() bool {
	return t == Int8 || t == Int16 || t == Int32
}

// ByteOrder is the byte order of the data file. The header calls little
// endian "vms" and big endian "aix".
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

// ParseByteOrder accepts the header names (vms, aix) as well as little/big.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vms", "little":
		return LittleEndian, nil
	case "aix", "big":
		return BigEndian, nil
	}
	return 0, fmt.Errorf("%w: unknown byte order %q", ErrFormat, s)
}

// Name returns the header byte_order value.
func (o ByteOrder) Name() string {
	if o == BigEndian {
		return "aix"
	}
	return "vms"
}

// Tag returns "<" for little endian and ">" for big endian.
func (o ByteOrder) Tag() string {
	if o == BigEndian {
		return ">"
	}
	return "<"
}

func (o ByteOrder) binary() binary.ByteOrder {
	if o == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "big"
	}
	return "little"
}

// Codec encodes and decodes raw voxel payloads.
type Codec struct {
	Type  ElementType
	Order ByteOrder
}

// NewCodec builds a codec from header directives. Unsupported combinations
// of data type and byte count fail with ErrFormat.
func NewCodec(dataType string, numBytes int, order ByteOrder) (Codec, error) {
	t, err := ElementTypeFor(dataType, numBytes)
	if err != nil {
		return Codec{}, err
	}
	return Codec{Type: t, Order: order}, nil
}

// Format returns the two-letter format tag, e.g. "<h" for little endian int16.
func (c Codec) Format() string {
	return c.Order.Tag() + c.Type.code()
}

// BufferSize returns the number of bytes needed for count elements.
func (c Codec) BufferSize(count int) int {
	return count * c.Type.Size()
}

// Decode reads the whole stream and returns its elements as float64. The
// stream must hold exactly count elements, otherwise a *SizeMismatchError
// is returned.
func (c Codec) Decode(r io.Reader, count int) ([]float64, error) {
	size := c.Type.Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: element type %v", ErrFormat, c.Type)
	}

	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read voxel data: %w", err)
	}
	if len(buf) != c.BufferSize(count) {
		return nil, &SizeMismatchError{Declared: count, Decoded: len(buf) / size}
	}

	bo := c.Order.binary()
	data := make([]float64, count)
	for i := range data {
		b := buf[i*size : (i+1)*size]
		switch c.Type {
		case Int8:
			data[i] = float64(int8(b[0]))
		case Int16:
			data[i] = float64(int16(bo.Uint16(b)))
		case Int32:
			data[i] = float64(int32(bo.Uint32(b)))
		case Float32:
			data[i] = float64(math.Float32frombits(bo.Uint32(b)))
		case Float64:
			data[i] = math.Float64frombits(bo.Uint64(b))
		}
	}
	return data, nil
}

// Encode writes data in the codec's element type and byte order. Values
// written to integer types are truncated toward zero and clamped to the
// range of the type.
func (c Codec) Encode(w io.Writer, data []float64) error {
	size := c.Type.Size()
	if size == 0 {
		return fmt.Errorf("%w: element type %v", ErrFormat, c.Type)
	}

	bw := bufio.NewWriter(w)
	bo := c.Order.binary()
	b := make([]byte, size)
	for _, v := range data {
		switch c.Type {
		case Int8:
			b[0] = byte(int8(clampInt(v, math.MinInt8, math.MaxInt8)))
		case Int16:
			bo.PutUint16(b, uint16(int16(clampInt(v, math.MinInt16, math.MaxInt16))))
		case Int32:
			bo.PutUint32(b, uint32(int32(clampInt(v, math.MinInt32, math.MaxInt32))))
		case Float32:
			bo.PutUint32(b, math.Float32bits(float32(v)))
		case Float64:
			bo.PutUint64(b, math.Float64bits(v))
		}
		if _, err := bw.Write(b); err != nil {
			return fmt.Errorf("failed to write voxel data: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write voxel data: %w", err)
	}
	return nil
}

func clampInt(v float64, lo, hi int64) int64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Trunc(v)
	if v < float64(lo) {
		return lo
	}
	if v > float64(hi) {
		return hi
	}
	return int64(v)
}
