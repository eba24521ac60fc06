package cube

import (
	"errors"
	"fmt"
)

// Error kinds returned by the cube package. They are wrapped with context
// before being returned, so callers should match them with errors.Is.
var (
	// ErrFileNotFound is returned when a header or data file is missing or unreadable.
	ErrFileNotFound = errors.New("file not found")

	// ErrFormat is returned for unsupported element types and contradictory headers.
	ErrFormat = errors.New("unsupported format")

	// ErrSizeMismatch is returned when the decoded voxel count differs from
	// the dimensions declared in the header.
	ErrSizeMismatch = errors.New("header and data size are not consistent")

	// ErrIncompatibleCubes is returned by arithmetic and merge operations
	// between cubes that fail CheckCompatibility.
	ErrIncompatibleCubes = errors.New("cubes are not compatible")

	// ErrHeaderNotLoaded is returned when an operation needs geometry that
	// has not been set by a read or NewEmpty yet.
	ErrHeaderNotLoaded = errors.New("header not loaded")
)

// SizeMismatchError reports how many voxels were declared and how many were decoded.
type SizeMismatchError struct {
	Declared int
	Decoded  int
	DimX     int
	DimY     int
	DimZ     int
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("%v: data has %d voxels, header says %d = %d * %d * %d",
		ErrSizeMismatch, e.Decoded, e.Declared, e.DimX, e.DimY, e.DimZ)
}

// Unwrap makes errors.Is(err, ErrSizeMismatch) hold.
func (e *SizeMismatchError) Unwrap() error {
	return ErrSizeMismatch
}
