package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/osama-ammar/pytrip/internal/models"
	"github.com/osama-ammar/pytrip/pkg/config"
	"github.com/osama-ammar/pytrip/pkg/cube"
	"github.com/osama-ammar/pytrip/pkg/dvh"
	"github.com/osama-ammar/pytrip/pkg/visualization"
	"github.com/osama-ammar/pytrip/pkg/voi"
)

const usage = `usage: cubetool <command> [flags]

commands:
  info     print header information of a cube
  convert  rewrite a cube with another byte order, element type or compression
  mask     set voxels inside a structure to a value
  dvh      compute the dose-volume histogram of a structure
  slices   save image slices along an axis
  config   write a default configuration file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	configPath := fs.String("config", "~/.cubetool.yaml", "Configuration file")
	header := fs.String("header", "", "Header file (.hed)")
	data := fs.String("data", "", "Data file (defaults to header name with the kind's extension)")
	kindName := fs.String("kind", "ctx", "Cube kind: ctx, dos, let or generic")
	output := fs.String("output", "", "Output header file, or output file/directory for dvh and slices")
	structures := fs.String("structures", "", "Structure set (YAML)")
	structure := fs.String("structure", "", "Name of the structure in the structure set")
	value := fs.Float64("value", 1, "Voxel value for mask")
	add := fs.Bool("add", false, "Add value inside the structure instead of overwriting")
	clearOutside := fs.Bool("clear", false, "Set voxels outside the structure to zero")
	elementType := fs.String("type", "", "Element type for convert: int8, int16, int32, float32, float64")
	axis := fs.String("axis", "z", "Axis for slices: x, y or z")
	fs.Parse(args)

	if cmd == "config" {
		path := *configPath
		if *output != "" {
			path = *output
		}
		if err := config.CreateDefaultConfigFile(path); err != nil {
			log.Fatalf("Failed to write configuration: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", path)
		return
	}

	switch cmd {
	case "info", "convert", "mask", "dvh", "slices":
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Output.Verbose {
		cube.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if *header == "" {
		fs.Usage()
		os.Exit(1)
	}
	kind, err := cube.ParseKind(*kindName)
	if err != nil {
		log.Fatalf("Invalid kind: %v", err)
	}
	dataPath := *data
	if dataPath == "" {
		base := strings.TrimSuffix(strings.TrimSuffix(*header, ".gz"), cube.HeaderExtension)
		dataPath = cube.DataPath(base, kind)
	}

	c := cube.New(kind)
	startTime := time.Now()
	if err := c.Read(*header, dataPath, cube.MultiplyByTwo(cfg.Processing.MultiplyByTwo)); err != nil {
		log.Fatalf("Failed to read cube: %v", err)
	}

	switch cmd {
	case "info":
		printInfo(c, time.Since(startTime))

	case "convert":
		if *output == "" {
			log.Fatalf("convert needs -output")
		}
		if *elementType != "" {
			t, err := parseElementType(*elementType)
			if err != nil {
				log.Fatalf("Invalid element type: %v", err)
			}
			c.SetElementType(t)
		}
		if err := c.SetByteOrder(cfg.Output.ByteOrder); err != nil {
			log.Fatalf("Invalid byte order: %v", err)
		}
		writeCube(c, *output, cfg)

	case "mask":
		if *output == "" {
			log.Fatalf("mask needs -output")
		}
		region := loadStructure(*structures, *structure)
		r := cube.Rasterizer{Workers: cfg.Processing.NumCores}
		switch {
		case *clearOutside:
			data, err := r.Rasterize(c, region, *value)
			if err != nil {
				log.Fatalf("Masking failed: %v", err)
			}
			c.Data = data
		case *add:
			err = r.MaskAdd(c, region, *value)
		default:
			err = r.Mask(c, region, *value)
		}
		if err != nil {
			log.Fatalf("Masking failed: %v", err)
		}
		writeCube(c, *output, cfg)

	case "dvh":
		region := loadStructure(*structures, *structure)
		h, err := dvh.Aggregator{Bins: cfg.Processing.DVHBins}.Calculate(c, region)
		if errors.Is(err, dvh.ErrNoOverlap) {
			fmt.Printf("Structure %s does not overlap the dose cube\n", region.Name)
			return
		}
		if err != nil {
			log.Fatalf("DVH failed for %s: %v", region.Name, err)
		}
		fmt.Printf("Structure: %s\n", region.Name)
		fmt.Printf("Min dose (D98): %.3f\n", h.MinDose)
		fmt.Printf("Max dose (D2):  %.3f\n", h.MaxDose)
		fmt.Printf("Mean dose:      %.3f\n", h.MeanDose)
		fmt.Printf("Volume:         %.2f cm3\n", h.MeanVolume/1000)
		if *output != "" {
			if err := h.Save(*output); err != nil {
				log.Fatalf("Failed to save DVH: %v", err)
			}
			fmt.Printf("DVH saved to: %s\n", *output)
		}

	case "slices":
		dir := *output
		if dir == "" {
			dir = "slices"
		}
		viewer := visualization.NewViewer(c, cfg.Slices.WindowMin, cfg.Slices.WindowMax)
		axisDir := filepath.Join(dir, *axis)
		fmt.Printf("Saving %s-axis slices to: %s\n", *axis, axisDir)
		if err := viewer.SaveSliceSequence(*axis, axisDir, cfg.Slices.Format); err != nil {
			log.Fatalf("Failed to save %s-axis slices: %v", *axis, err)
		}

	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func printInfo(c *cube.Cube, elapsed time.Duration) {
	fmt.Printf("Kind:            %s\n", c.Kind)
	fmt.Printf("Version:         %s\n", c.Version)
	fmt.Printf("Modality:        %s\n", c.Modality)
	fmt.Printf("Patient:         %s (%s)\n", c.PatientName, c.PatientID)
	fmt.Printf("Dimensions:      %d x %d x %d\n", c.DimX, c.DimY, c.DimZ)
	fmt.Printf("Pixel size:      %.4f mm\n", c.PixelSize)
	fmt.Printf("Slice distance:  %.4f mm\n", c.SliceDistance)
	fmt.Printf("Offsets:         %.2f %.2f mm\n", c.XOffset, c.YOffset)
	fmt.Printf("Slices:          %.2f .. %.2f mm (table: %v)\n",
		c.SlicePositions[0], c.SlicePositions[c.DimZ-1], c.ZTable)
	fmt.Printf("Format:          %s %s (%s)\n", c.Codec.Type, c.Codec.Order, c.Codec.Format())
	fmt.Printf("Read in:         %.2f seconds\n", elapsed.Seconds())
}

func writeCube(c *cube.Cube, output string, cfg *config.Config) {
	if cfg.Output.Gzip && !strings.HasSuffix(output, ".gz") {
		output += ".gz"
	}
	headerPath, dataPath, err := c.Write(output, "")
	if err != nil {
		log.Fatalf("Failed to write cube: %v", err)
	}
	fmt.Printf("Header saved to: %s\n", headerPath)
	fmt.Printf("Data saved to:   %s\n", dataPath)
}

func loadStructure(path, name string) *voi.Voi {
	if path == "" || name == "" {
		log.Fatalf("-structures and -structure are required")
	}
	set, err := models.LoadStructureSet(path)
	if err != nil {
		log.Fatalf("Failed to load structures: %v", err)
	}
	s, ok := set.Find(name)
	if !ok {
		log.Fatalf("Structure %q not found in %s", name, path)
	}
	return s.Voi()
}

func parseElementType(s string) (cube.ElementType, error) {
	for _, t := range []cube.ElementType{cube.Int8, cube.Int16, cube.Int32, cube.Float32, cube.Float64} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown element type %q", s)
}
