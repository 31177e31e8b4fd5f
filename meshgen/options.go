// Package meshgen turns datasets into renderable triangle, line and point
// datasets. Every generator selects topologies, splits their elements over
// workers that fill private output tables, and merges those tables in
// element order, so output is identical for any worker count.
package meshgen

import (
	"github.com/notargets/gomesh/adjacency"
	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/utils"
)

// Options configures a generator. Fields that a generator does not use are
// ignored.
type Options struct {
	// Refine subdivides each element or face; 0 samples the vertices only.
	Refine int
	// Accept overrides the topology predicate of the generator.
	Accept func(t *dataset.Topology) bool

	// MaxProcs bounds the worker count, runtime.NumCPU when zero.
	MaxProcs int
	// Threshold is the weighted element count below which one worker runs.
	Threshold int
	// Depth of the octrees used for adjacency and plane cuts.
	Depth int

	// AllFaces triangulates internal faces of volumes as well as external ones.
	AllFaces bool
	// ExternalOnly restricts point sampling to control points of external faces.
	ExternalOnly bool

	// Radius of tubes and scale of glyphs, multiplied by RadiusField when set.
	Radius      float64
	RadiusField string
	// Caps closes both ends of each tube.
	Caps bool

	// ValueFunc reduces field rows to scalars, Average when zero.
	ValueFunc dataset.ValueFunc
	// UnitFunc spaces generated thresholds over the field range.
	UnitFunc dataset.UnitFunc
	// NumThresholds is the number of thresholds chosen when none are given.
	NumThresholds int

	// Glyph is the shape placed at each node, "sphere" or "arrow".
	Glyph string
	// VectorField orients arrow glyphs.
	VectorField string

	Logger   *utils.Logger
	Progress *utils.Progress
}

// DefaultNumThresholds is used when Options.NumThresholds is zero.
const DefaultNumThresholds = 5

func (o Options) valueFunc() dataset.ValueFunc {
	if o.ValueFunc.IsZero() {
		return dataset.Average
	}
	return o.ValueFunc
}

func (o Options) radius() float64 {
	if o.Radius == 0 {
		return 1
	}
	return o.Radius
}

// depth follows adjacency.Options: zero is the default, negative a single leaf.
func (o Options) depth() int {
	switch {
	case o.Depth == 0:
		return adjacency.DefaultDepth
	case o.Depth < 0:
		return 0
	}
	return o.Depth
}

func (o Options) accept(def func(t *dataset.Topology) bool) func(t *dataset.Topology) bool {
	if o.Accept != nil {
		return o.Accept
	}
	return def
}

// MinDim accepts spatial topologies of at least dim dimensions.
func MinDim(dim int) func(t *dataset.Topology) bool {
	return func(t *dataset.Topology) bool { return t.Spatial() && t.Type().Dim() >= dim }
}

// ExactDim accepts spatial topologies of exactly dim dimensions.
func ExactDim(dim int) func(t *dataset.Topology) bool {
	return func(t *dataset.Topology) bool { return t.Spatial() && t.Type().Dim() == dim }
}
