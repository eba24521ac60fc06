package cube

import "fmt"

// Kind distinguishes what a cube holds. All kinds share the same Cube
// representation; the kind only changes file naming and export metadata.
type Kind int

const (
	Generic Kind = iota
	CT
	Dose
	LET
)

// ExportInfo is the type-specific metadata needed when a cube leaves the
// package, either as a TRiP98 file pair or through the interchange bridge.
type ExportInfo interface {
	DataExtension() string
	Units() string
	Modality() string
}

var _ ExportInfo = Kind(0)

// DataExtension returns the data file suffix used for this kind.
func (k Kind) DataExtension() string {
	switch k {
	case CT:
		return ".ctx"
	case Dose:
		return ".dos"
	case LET:
		return ".dosemlet.dos"
	}
	return ".dat"
}

// Units returns the unit of the stored voxel values.
func (k Kind) Units() string {
	switch k {
	case CT:
		return "HU"
	case Dose:
		// relative dose, target dose = 1000
		return "permille"
	case LET:
		return "keV/um"
	}
	return ""
}

// Modality returns the interchange modality of this kind. The TRiP98
// header modality is independent and defaults to CT for every kind.
func (k Kind) Modality() string {
	switch k {
	case CT:
		return "CT"
	case Dose, LET:
		return "RTDOSE"
	}
	return "OT"
}

func (k Kind) String() string {
	switch k {
	case Generic:
		return "generic"
	case CT:
		return "ctx"
	case Dose:
		return "dos"
	case LET:
		return "let"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a name (ctx, ct, dos, dose, let, generic) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "generic", "dat":
		return Generic, nil
	case "ctx", "ct", "CT":
		return CT, nil
	case "dos", "dose":
		return Dose, nil
	case "let", "LET":
		return LET, nil
	}
	return 0, fmt.Errorf("unknown cube kind %q", s)
}
