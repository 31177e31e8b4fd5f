package InputParameters

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/meshgen"
	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// Generator kinds accepted in GenerationParameters.Generator.
const (
	TriSurface = "trisurface"
	Points     = "points"
	Lines      = "lines"
	Cylinders  = "cylinders"
	PlaneCut   = "planecut"
	Isosurface = "isosurface"
	Isolines   = "isolines"
	Glyphs     = "glyphs"
)

// generatorDims is the topology predicate each kind applies to topologies
// named in Topologies.
var generatorDims = map[string]func(t *dataset.Topology) bool{
	TriSurface: meshgen.MinDim(2),
	Points:     meshgen.MinDim(0),
	Lines:      meshgen.MinDim(1),
	Cylinders:  meshgen.ExactDim(1),
	PlaneCut:   meshgen.MinDim(3),
	Isosurface: meshgen.ExactDim(3),
	Isolines:   meshgen.ExactDim(2),
	Glyphs:     meshgen.MinDim(0),
}

// Plane is a point on a plane and its normal.
type Plane struct {
	Point  [3]float64 `json:"Point"`
	Normal [3]float64 `json:"Normal"`
}

// Parameters obtained from the YAML input file
type GenerationParameters struct {
	Title     string `json:"Title"`
	MeshFile  string `json:"MeshFile"`
	Generator string `json:"Generator"`
	Output    string `json:"Output"` // .mat, .mat.zst or .stl, derived from the mesh file when empty
	// Topologies restricts generation to the named topologies.
	Topologies []string `json:"Topologies"`

	Refine    int `json:"Refine"`
	Depth     int `json:"Depth"`
	MaxProcs  int `json:"MaxProcs"`
	Threshold int `json:"Threshold"`

	AllFaces     bool `json:"AllFaces"`
	ExternalOnly bool `json:"ExternalOnly"`

	Field         string    `json:"Field"`
	Thresholds    []float64 `json:"Thresholds"`
	NumThresholds int       `json:"NumThresholds"`
	ValueFunc     string    `json:"ValueFunc"` // average, magnitude or column:N
	UnitFunc      string    `json:"UnitFunc"`  // linear or sine
	Plane         *Plane    `json:"Plane"`

	Radius      float64 `json:"Radius"`
	RadiusField string  `json:"RadiusField"`
	Caps        bool    `json:"Caps"`
	Glyph       string  `json:"Glyph"`
	VectorField string  `json:"VectorField"`

	// Interpolate lists source fields evaluated at every generated node.
	Interpolate []string `json:"Interpolate"`
}

func (gp *GenerationParameters) Parse(data []byte) (err error) {
	if err = yaml.Unmarshal(data, gp); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrValidation, err)
	}
	gp.Generator = strings.ToLower(gp.Generator)
	return gp.Validate()
}

// Validate checks the parameters are consistent for the generator kind.
func (gp *GenerationParameters) Validate() (err error) {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", utils.ErrValidation, fmt.Sprintf(format, args...))
	}
	if _, ok := generatorDims[gp.Generator]; !ok {
		kinds := make([]string, 0, len(generatorDims))
		for k := range generatorDims {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		return fail("unknown generator %q, one of %s", gp.Generator, strings.Join(kinds, ", "))
	}
	switch {
	case gp.Refine < 0:
		return fail("Refine %d is negative", gp.Refine)
	case gp.MaxProcs < 0 || gp.Threshold < 0:
		return fail("MaxProcs and Threshold must not be negative")
	case gp.Radius < 0:
		return fail("Radius %v is negative", gp.Radius)
	case gp.NumThresholds < 0:
		return fail("NumThresholds %d is negative", gp.NumThresholds)
	}
	switch gp.Generator {
	case PlaneCut:
		if gp.Plane == nil || gp.Plane.Normal == [3]float64{} {
			return fail("%s needs a Plane with a non zero Normal", gp.Generator)
		}
	case Isosurface, Isolines:
		if gp.Field == "" {
			return fail("%s needs a Field", gp.Generator)
		}
	}
	if _, err = dataset.ParseValueFunc(gp.ValueFunc); err != nil {
		return
	}
	if _, err = dataset.ParseUnitFunc(gp.UnitFunc); err != nil {
		return
	}
	return
}

func (gp *GenerationParameters) Print(w io.Writer) {
	fmt.Fprintf(w, "\"%s\"\t\t= Title\n", gp.Title)
	fmt.Fprintf(w, "[%s]\t\t= Mesh File\n", gp.MeshFile)
	fmt.Fprintf(w, "[%s]\t\t= Generator\n", gp.Generator)
	fmt.Fprintf(w, "[%d]\t\t\t= Refine\n", gp.Refine)
	if len(gp.Topologies) != 0 {
		fmt.Fprintf(w, "%v\t\t= Topologies\n", gp.Topologies)
	}
	if gp.Field != "" {
		fmt.Fprintf(w, "[%s]\t\t= Field\n", gp.Field)
		fmt.Fprintf(w, "%v\t\t= Thresholds\n", gp.Thresholds)
	}
	if gp.Plane != nil {
		fmt.Fprintf(w, "%v %v\t= Plane Point, Normal\n", gp.Plane.Point, gp.Plane.Normal)
	}
	if gp.Radius != 0 || gp.RadiusField != "" {
		fmt.Fprintf(w, "%8.5f [%s]\t= Radius, Radius Field\n", gp.Radius, gp.RadiusField)
	}
	if gp.Generator == Glyphs {
		fmt.Fprintf(w, "[%s] [%s]\t= Glyph, Vector Field\n", gp.Glyph, gp.VectorField)
	}
}

// Options converts the parameters into generator options.
func (gp *GenerationParameters) Options(log *utils.Logger, progress *utils.Progress) (opts meshgen.Options, err error) {
	opts = meshgen.Options{
		Refine:        gp.Refine,
		MaxProcs:      gp.MaxProcs,
		Threshold:     gp.Threshold,
		Depth:         gp.Depth,
		AllFaces:      gp.AllFaces,
		ExternalOnly:  gp.ExternalOnly,
		Radius:        gp.Radius,
		RadiusField:   gp.RadiusField,
		Caps:          gp.Caps,
		NumThresholds: gp.NumThresholds,
		Glyph:         gp.Glyph,
		VectorField:   gp.VectorField,
		Logger:        log,
		Progress:      progress,
	}
	if opts.ValueFunc, err = dataset.ParseValueFunc(gp.ValueFunc); err != nil {
		return
	}
	if opts.UnitFunc, err = dataset.ParseUnitFunc(gp.UnitFunc); err != nil {
		return
	}
	if len(gp.Topologies) != 0 {
		var (
			names = make(map[string]bool, len(gp.Topologies))
			dims  = generatorDims[gp.Generator]
		)
		for _, n := range gp.Topologies {
			names[n] = true
		}
		opts.Accept = func(t *dataset.Topology) bool { return names[t.Name()] && dims(t) }
	}
	return
}

// Generate runs the configured generator over ds, then interpolates the
// requested fields onto the result.
func (gp *GenerationParameters) Generate(ctx context.Context, ds *dataset.Dataset, opts meshgen.Options) (res *meshgen.Result, err error) {
	switch gp.Generator {
	case TriSurface:
		res, err = meshgen.GenerateTriSurface(ctx, ds, opts)
	case Points:
		res, err = meshgen.GeneratePoints(ctx, ds, opts)
	case Lines:
		res, err = meshgen.GenerateLines(ctx, ds, opts)
	case Cylinders:
		res, err = meshgen.GenerateCylinders(ctx, ds, opts)
	case PlaneCut:
		var (
			p = gp.Plane.Point
			n = gp.Plane.Normal
		)
		res, err = meshgen.GeneratePlaneCut(ctx, ds, r3.Vec{X: p[0], Y: p[1], Z: p[2]},
			r3.Vec{X: n[0], Y: n[1], Z: n[2]}, opts)
	case Isosurface:
		res, err = meshgen.GenerateIsosurface(ctx, ds, gp.Field, gp.Thresholds, opts)
	case Isolines:
		res, err = meshgen.GenerateIsolines(ctx, ds, gp.Field, gp.Thresholds, opts)
	case Glyphs:
		res, err = meshgen.GenerateGlyphs(ctx, ds, opts)
	default:
		err = fmt.Errorf("%w: unknown generator %q", utils.ErrValidation, gp.Generator)
	}
	if err != nil {
		return
	}
	for _, name := range gp.Interpolate {
		if _, err = meshgen.Interpolate(res, ds, name, opts.ValueFunc); err != nil {
			return nil, err
		}
	}
	return
}
