package meshgen

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/geometry"
	"github.com/notargets/gomesh/isosurface"
	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// planeCandidates selects the elements that may cross the plane: those
// registered in a leaf the plane passes through, plus those registered in
// leaves on both sides of it.
func planeCandidates(ds *dataset.Dataset, t *dataset.Topology, planePt, planeNorm r3.Vec, depth int) (
	cands *roaring.Bitmap, err error) {
	oc, err := t.Octree(ds.Nodes, depth)
	if err != nil {
		return
	}
	var (
		inter = roaring.New()
		plus  = roaring.New()
		minus = roaring.New()
	)
	for _, l := range oc.Leaves() {
		data := oc.LeafData(l)
		if len(data) == 0 {
			continue
		}
		bm := minus
		switch {
		case oc.IntersectsPlane(l, planePt, planeNorm):
			bm = inter
		case geometry.PlaneDist(oc.Center(l), planePt, planeNorm) > 0:
			bm = plus
		}
		for _, e := range data {
			bm.Add(uint32(e))
		}
	}
	inter.Or(roaring.And(plus, minus))
	return inter, nil
}

// GeneratePlaneCut slices volume topologies with the plane through planePt
// normal to planeNorm. The triangles are the zero surface of the signed
// distance to the plane, sampled at the control points of each candidate
// element, with normals along planeNorm.
func GeneratePlaneCut(ctx context.Context, ds *dataset.Dataset, planePt, planeNorm r3.Vec, opts Options) (
	res *Result, err error) {
	normal := geometry.Normalize(planeNorm)
	if normal == (r3.Vec{}) {
		return nil, fmt.Errorf("%w: plane normal is zero", utils.ErrValidation)
	}
	g := newGenerator("planecut", triangles, opts)
	jobs, err := g.jobs(ds, opts.accept(MinDim(3)),
		func(t *dataset.Topology) (*roaring.Bitmap, error) {
			return planeCandidates(ds, t, planePt, normal, opts.depth())
		},
		func(t *dataset.Topology) func(p *utils.Process, elems []uint32, out *chunk) error {
			return func(p *utils.Process, elems []uint32, out *chunk) error {
				var (
					el   element
					dist = make([]float64, t.Type().NumNodes())
				)
				return each(ctx, p, elems, func(e int) error {
					el.load(ds, t, e)
					for k, pt := range el.pts {
						dist[k] = geometry.PlaneDist(pt, planePt, normal)
					}
					tris, err := isosurface.Surface(el.et, dist, 0, opts.Refine)
					if err != nil {
						return err
					}
					for _, tri := range tris {
						base := out.nodes.Rows()
						for _, xi := range tri {
							out.addNode(el.pos(xi), normal, xi, e, -1)
						}
						out.addPrim(false, base, base+1, base+2)
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

// GenerateIsosurface extracts the surfaces where a per node field over a
// volume topology equals each threshold. Without thresholds, NumThresholds
// values are spread over the field range by UnitFunc. The output carries
// the threshold of each node in the "isovalue" field.
func GenerateIsosurface(ctx context.Context, ds *dataset.Dataset, field string, thresholds []float64,
	opts Options) (res *Result, err error) {
	return contours(ctx, ds, field, thresholds, opts, 3)
}

// GenerateIsolines is GenerateIsosurface over surface topologies, giving
// line segments with the element normal.
func GenerateIsolines(ctx context.Context, ds *dataset.Dataset, field string, thresholds []float64,
	opts Options) (res *Result, err error) {
	return contours(ctx, ds, field, thresholds, opts, 2)
}

// IsovalueField names the per node threshold field of contour output.
const IsovalueField = "isovalue"

// span is a field range, exchanged between workers.
type span struct {
	lo, hi float64
	ok     bool
}

func (s span) union(o span) span {
	switch {
	case !o.ok:
		return s
	case !s.ok:
		return o
	}
	return span{lo: min(s.lo, o.lo), hi: max(s.hi, o.hi), ok: true}
}

// spread places n thresholds strictly inside the range.
func spread(s span, n int, uf dataset.UnitFunc) (ths []float64) {
	if !s.ok {
		return
	}
	for i := 0; i < n; i++ {
		u := uf.Apply(float64(i+1) / float64(n+1))
		ths = append(ths, s.lo+u*(s.hi-s.lo))
	}
	return
}

func contours(ctx context.Context, ds *dataset.Dataset, field string, thresholds []float64,
	opts Options, dim int) (res *Result, err error) {
	var (
		name = "isosurface"
		prim = triangles
		fv   *fieldView
	)
	if dim == 2 {
		name, prim = "isolines", segments
	}
	if fv, err = newFieldView(ds, field, opts.valueFunc(), true); err != nil {
		return
	}
	var (
		g      = newGenerator(name, prim, opts)
		accept = opts.accept(ExactDim(dim))
		numThs = opts.NumThresholds
	)
	if numThs <= 0 {
		numThs = DefaultNumThresholds
	}
	g.value = IsovalueField
	jobs, err := g.jobs(ds,
		func(t *dataset.Topology) bool { return t.Name() == fv.owner && accept(t) },
		func(t *dataset.Topology) (*roaring.Bitmap, error) {
			if err := fv.check(t); err != nil {
				return nil, err
			}
			return allElems(t), nil
		},
		func(t *dataset.Topology) func(p *utils.Process, elems []uint32, out *chunk) error {
			ft := fv.topo.Type()
			return func(p *utils.Process, elems []uint32, out *chunk) (err error) {
				var (
					el  element
					vf  = fv.clone()
					ths = thresholds
				)
				if len(ths) == 0 {
					if ths, err = agreeThresholds(p, vf, elems, numThs, opts.UnitFunc); err != nil {
						return
					}
					if p.Index == 0 {
						g.log.Debug("thresholds", "field", field, "values", ths)
					}
				}
				return each(ctx, p, elems, func(e int) error {
					el.load(ds, t, e)
					vals := vf.values(e)
					for _, th := range ths {
						if dim == 3 {
							tris, err := isosurface.Surface(ft, vals, th, opts.Refine)
							if err != nil {
								return err
							}
							addTriangles(out, &el, tris, th)
							continue
						}
						segs, err := isosurface.Lines(ft, vals, th, opts.Refine)
						if err != nil {
							return err
						}
						addSegments(out, &el, segs, th)
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

// agreeThresholds shares the field range of this worker's elements with its
// peers and spreads n thresholds over the combined range.
func agreeThresholds(p *utils.Process, fv *fieldView, elems []uint32, n int, uf dataset.UnitFunc) ([]float64, error) {
	var local span
	for _, e := range elems {
		vals := fv.values(int(e))
		local = local.union(span{lo: floats.Min(vals), hi: floats.Max(vals), ok: true})
	}
	all, err := p.Share(local)
	if err != nil {
		return nil, err
	}
	var global span
	for _, s := range all {
		global = global.union(s.(span))
	}
	return spread(global, n, uf), nil
}

func addTriangles(out *chunk, el *element, tris []isosurface.Triangle, th float64) {
	for _, tri := range tris {
		var (
			base = out.nodes.Rows()
			a    = el.pos(tri[0])
			b    = el.pos(tri[1])
			c    = el.pos(tri[2])
			n    = geometry.TriNormal(a, b, c)
		)
		for i, p := range [3]r3.Vec{a, b, c} {
			out.addNode(p, n, tri[i], el.id, -1)
			out.addValue(th)
		}
		out.addPrim(false, base, base+1, base+2)
	}
}

func addSegments(out *chunk, el *element, segs []isosurface.Segment, th float64) {
	for _, s := range segs {
		base := out.nodes.Rows()
		for _, xi := range s {
			n, _ := el.faceNormal(0, xi.X, xi.Y)
			out.addNode(el.pos(xi), n, xi, el.id, -1)
			out.addValue(th)
		}
		out.addPrim(false, base, base+1)
	}
}
