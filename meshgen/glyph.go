package meshgen

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/geometry"
	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// Glyph shapes.
const (
	GlyphSphere = "sphere"
	GlyphArrow  = "arrow"
)

// nodeField reads a per node field whose rows are node ids.
func nodeField(ds *dataset.Dataset, name string, minCols int) (f *dataset.Field, err error) {
	var ok bool
	if f, ok = ds.Field(name); !ok {
		return nil, fmt.Errorf("%w: dataset %q has no field %q", utils.ErrValidation, ds.Name, name)
	}
	ft, ok := ds.Topology(f.FieldTopology())
	switch {
	case f.PerElem() || !ok || !ft.Spatial():
		return nil, fmt.Errorf("%w: field %q does not hold one row per node", utils.ErrValidation, name)
	case f.Cols() < minCols:
		return nil, &utils.LengthMismatchError{Name: name, What: "field components", Expected: minCols, Actual: f.Cols()}
	}
	return
}

// GenerateGlyphs places a sphere or arrow at every node referenced by the
// accepted topologies, once per node. Glyphs are scaled by Radius times the
// RadiusField value at the node. Arrows point along +Z, or along
// VectorField when set.
func GenerateGlyphs(ctx context.Context, ds *dataset.Dataset, opts Options) (res *Result, err error) {
	var (
		shape       []r3.Vec
		inds        [][3]int
		norms       []r3.Vec
		scale, dirs *dataset.Field
	)
	switch opts.Glyph {
	case "", GlyphSphere:
		shape, inds = geometry.Sphere(opts.Refine)
		norms = shape
	case GlyphArrow:
		shape, inds = geometry.Arrow(opts.Refine)
		norms = geometry.TriNormals(shape, inds)
	default:
		return nil, fmt.Errorf("%w: unknown glyph %q", utils.ErrValidation, opts.Glyph)
	}
	if opts.RadiusField != "" {
		if scale, err = nodeField(ds, opts.RadiusField, opts.valueFunc().MinCols()); err != nil {
			return
		}
	}
	if opts.VectorField != "" {
		if dirs, err = nodeField(ds, opts.VectorField, 3); err != nil {
			return
		}
	}
	var (
		g    = newGenerator("glyphs", triangles, opts)
		seen = roaring.New()
		vf   = opts.valueFunc()
	)
	jobs, err := g.jobs(ds, opts.accept(MinDim(0)),
		func(t *dataset.Topology) (*roaring.Bitmap, error) {
			nodes := roaring.New()
			for _, n := range t.Data() {
				nodes.Add(uint32(n))
			}
			nodes.AndNot(seen)
			seen.Or(nodes)
			return nodes, nil
		},
		func(t *dataset.Topology) func(p *utils.Process, elems []uint32, out *chunk) error {
			return func(p *utils.Process, nodes []uint32, out *chunk) error {
				return each(ctx, p, nodes, func(n int) error {
					var (
						center = ds.Node(n)
						size   = opts.radius()
						rot    = func(v r3.Vec) r3.Vec { return v }
					)
					if scale != nil {
						size *= scale.Value(n, vf)
					}
					if dirs != nil {
						row := dirs.RowView(n)
						if d := (r3.Vec{X: row[0], Y: row[1], Z: row[2]}); geometry.Normalize(d) != (r3.Vec{}) {
							rot = geometry.AlignTo(r3.Vec{Z: 1}, d)
						}
					}
					base := out.nodes.Rows()
					for i, s := range shape {
						out.addNode(r3.Add(center, r3.Scale(size, rot(s))), rot(norms[i]), s, n, -1)
					}
					for _, tri := range inds {
						out.addPrim(false, base+tri[0], base+tri[1], base+tri[2])
					}
					return nil
				})
			}
		})
	if err != nil {
		return
	}
	return g.run(ctx, ds, jobs)
}
