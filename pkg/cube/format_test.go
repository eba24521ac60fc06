package cube

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementTypeFor(t *testing.T) {
	tests := []struct {
		dataType string
		numBytes int
		want     ElementType
	}{
		{"integer", 1, Int8},
		{"integer", 2, Int16},
		{"integer", 4, Int32},
		{"float", 4, Float32},
		{"float", 8, Float64},
		{"double", 8, Float64},
	}
	for _, tt := range tests {
		got, err := ElementTypeFor(tt.dataType, tt.numBytes)
		require.NoError(t, err, "%s/%d", tt.dataType, tt.numBytes)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.numBytes, got.Size())
	}
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := NewCodec("integer", 3, LittleEndian)
	assert.True(t, errors.Is(err, ErrFormat))

	_, err = NewCodec("integer", 8, LittleEndian)
	assert.True(t, errors.Is(err, ErrFormat))

	_, err = NewCodec("complex", 4, LittleEndian)
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestFormatTag(t *testing.T) {
	c, err := NewCodec("integer", 2, LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, "<h", c.Format())

	c, err = NewCodec("double", 8, BigEndian)
	require.NoError(t, err)
	assert.Equal(t, ">d", c.Format())
	assert.Equal(t, 80, c.BufferSize(10))
}

func TestParseByteOrder(t *testing.T) {
	for s, want := range map[string]ByteOrder{"vms": LittleEndian, "little": LittleEndian, "aix": BigEndian, "big": BigEndian} {
		got, err := ParseByteOrder(s)
		require.NoError(t, err)
		assert.Equal(t, want, got, s)
	}
	_, err := ParseByteOrder("middle")
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestCodecRoundTrip(t *testing.T) {
	values := []float64{0, 1, -1, 100, -128, 127}
	for _, typ := range []ElementType{Int8, Int16, Int32, Float32, Float64} {
		for _, order := range []ByteOrder{LittleEndian, BigEndian} {
			c := Codec{Type: typ, Order: order}
			var buf bytes.Buffer
			require.NoError(t, c.Encode(&buf, values))
			assert.Equal(t, c.BufferSize(len(values)), buf.Len())

			got, err := c.Decode(&buf, len(values))
			require.NoError(t, err)
			assert.Equal(t, values, got, "%v %v", typ, order)
		}
	}
}

func TestBigEndianLayout(t *testing.T) {
	c := Codec{Type: Int16, Order: BigEndian}
	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, []float64{258}))
	assert.Equal(t, []byte{0x01, 0x02}, buf.Bytes())

	raw := make([]byte, 4)
	binary.LittleEndian.PutUint16(raw, 1000)
	binary.LittleEndian.PutUint16(raw[2:], uint16(0xffff))
	got, err := Codec{Type: Int16, Order: LittleEndian}.Decode(bytes.NewReader(raw), 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1000, -1}, got)
}

func TestEncodeClampsIntegers(t *testing.T) {
	c := Codec{Type: Int8, Order: LittleEndian}
	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, []float64{300, -300, 2.7, -2.7}))

	got, err := c.Decode(&buf, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{127, -128, 2, -2}, got)
}

func TestDecodeSizeMismatch(t *testing.T) {
	c := Codec{Type: Int16, Order: LittleEndian}
	_, err := c.Decode(bytes.NewReader(make([]byte, 6)), 4)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSizeMismatch))

	var sm *SizeMismatchError
	require.True(t, errors.As(err, &sm))
	assert.Equal(t, 4, sm.Declared)
	assert.Equal(t, 3, sm.Decoded)

	_, err = c.Decode(bytes.NewReader(make([]byte, 10)), 4)
	assert.True(t, errors.Is(err, ErrSizeMismatch))
}
