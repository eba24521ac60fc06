package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/osama-ammar/pytrip/pkg/voi"
)

// StructureSet is a YAML document listing delineated structures
type StructureSet struct {
	// Structures are the named volumes of interest in the document
	Structures []Structure `yaml:"structures"`
}

// Structure is one named volume of interest
type Structure struct {
	// Name identifies the structure, e.g. "PTV" or "spinal cord"
	Name string `yaml:"name"`

	// Thickness is the slice thickness in mm; zero infers it from the slices
	Thickness float64 `yaml:"thickness,omitempty"`

	// Slices hold the contours per z position
	Slices []Slice `yaml:"slices"`
}

// Slice holds the closed rings of a structure at one z position
type Slice struct {
	// Position is the z position of the slice in mm
	Position float64 `yaml:"z"`

	// Contours are closed rings of [x, y] vertices in mm
	Contours [][][2]float64 `yaml:"contours"`
}

// LoadStructureSet reads a structure set from a YAML file
func LoadStructureSet(path string) (*StructureSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading structure file: %w", err)
	}

	var set StructureSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("error parsing structure file: %w", err)
	}

	for _, s := range set.Structures {
		for _, sl := range s.Slices {
			for _, ring := range sl.Contours {
				if len(ring) < 3 {
					return nil, fmt.Errorf("structure %q: contour at z=%g has %d points, need at least 3",
						s.Name, sl.Position, len(ring))
				}
			}
		}
	}
	return &set, nil
}

// Find returns the structure with the given name
func (s *StructureSet) Find(name string) (*Structure, bool) {
	for i := range s.Structures {
		if s.Structures[i].Name == name {
			return &s.Structures[i], true
		}
	}
	return nil, false
}

// Voi converts the structure into a volume of interest
func (s *Structure) Voi() *voi.Voi {
	v := voi.New(s.Name)
	v.Thickness = s.Thickness
	for _, sl := range s.Slices {
		for _, ring := range sl.Contours {
			points := make([]voi.Point, len(ring))
			for i, p := range ring {
				points[i] = voi.Point{X: p[0], Y: p[1]}
			}
			v.AddContour(sl.Position, points)
		}
	}
	return v
}
