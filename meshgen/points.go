package meshgen

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/geometry"
	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// GeneratePoints emits one point per control point of every element, with
// the normal pointing from the element center. With ExternalOnly, volume
// elements contribute only the control points of their external faces, and
// points record the face they were taken from.
func GeneratePoints(ctx context.Context, ds *dataset.Dataset, opts Options) (res *Result, err error) {
	g := newGenerator("points", points, opts)
	jobs, err := g.jobs(ds, opts.accept(MinDim(0)),
		func(t *dataset.Topology) (*roaring.Bitmap, error) {
			if !opts.ExternalOnly {
				return allElems(t), nil
			}
			if err := ensureFaceTables(ctx, ds, t, opts); err != nil {
				return nil, err
			}
			return externalElems(t), nil
		},
		func(t *dataset.Topology) func(p *utils.Process, elems []uint32, out *chunk) error {
			return func(p *utils.Process, elems []uint32, out *chunk) error {
				var (
					el   element
					face = make([]int, t.Type().NumNodes())
				)
				return each(ctx, p, elems, func(e int) error {
					el.load(ds, t, e)
					if opts.ExternalOnly {
						externalFaces(t, e, face)
					}
					center := el.center()
					for k, pt := range el.pts {
						f := -1
						if opts.ExternalOnly {
							if f = face[k]; f < 0 {
								continue
							}
						}
						n := geometry.Normalize(r3.Sub(pt, center))
						out.addNode(pt, n, el.et.Xis[k], e, f)
						out.addPrim(f >= 0, out.nodes.Rows()-1)
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

// externalFaces stores in face the first external face holding each control
// point of element e, -1 for points on none. Elements without a face table
// are their own single external face.
func externalFaces(t *dataset.Topology, e int, face []int) {
	et := t.Type()
	for k := range face {
		face[k] = -1
	}
	if et.Dim() < 3 {
		if et.NumFaces() > 0 {
			for k := range face {
				face[k] = 0
			}
		}
		return
	}
	for f, fc := range et.Faces {
		if !t.IsExternal(e, f) {
			continue
		}
		for _, k := range fc.Nodes {
			if face[k] == -1 {
				face[k] = f
			}
		}
	}
}

// edgeOwners maps each distinct edge of t to the first element and edge
// index holding it, packed as e*numEdges+k.
func edgeOwners(t *dataset.Topology) (owners map[dataset.FaceKey]int, elems *roaring.Bitmap) {
	var (
		et    = t.Type()
		ne    = len(et.Edges)
		nodes []int
	)
	owners = make(map[dataset.FaceKey]int)
	elems = roaring.New()
	for e := 0; e < t.NumElems(); e++ {
		elem := t.Elem(e)
		for k, edge := range et.Edges {
			nodes = nodes[:0]
			for _, n := range edge {
				nodes = append(nodes, elem[n])
			}
			key := dataset.NewFace(nodes, e, k, -1).Key
			if _, ok := owners[key]; !ok {
				owners[key] = e*ne + k
				elems.Add(uint32(e))
			}
		}
	}
	return
}

// GenerateLines emits the edges of every element as polylines sampled
// refine times between their end points. Line elements are their own edge;
// edges shared by higher dimensional elements are emitted once.
func GenerateLines(ctx context.Context, ds *dataset.Dataset, opts Options) (res *Result, err error) {
	var (
		g       = newGenerator("lines", segments, opts)
		samples = geometry.DivideLine(opts.Refine)
		owners  = make(map[string]map[dataset.FaceKey]int)
	)
	jobs, err := g.jobs(ds, opts.accept(MinDim(1)),
		func(t *dataset.Topology) (elems *roaring.Bitmap, err error) {
			if t.Type().Dim() == 1 {
				return allElems(t), nil
			}
			owners[t.Name()], elems = edgeOwners(t)
			return
		},
		func(t *dataset.Topology) func(p *utils.Process, elems []uint32, out *chunk) error {
			var (
				own = owners[t.Name()]
				ne  = len(t.Type().Edges)
			)
			return func(p *utils.Process, elems []uint32, out *chunk) error {
				var (
					el    element
					pts   = make([]r3.Vec, len(samples))
					xis   = make([]r3.Vec, len(samples))
					nodes []int
				)
				return each(ctx, p, elems, func(e int) error {
					el.load(ds, t, e)
					for k, edge := range el.et.Edges {
						if own != nil {
							nodes = nodes[:0]
							for _, n := range edge {
								nodes = append(nodes, t.Elem(e)[n])
							}
							if own[dataset.NewFace(nodes, e, k, -1).Key] != e*ne+k {
								continue
							}
						}
						a, b := el.et.Xis[edge[0]], el.et.Xis[edge[1]]
						for i, s := range samples {
							xis[i] = geometry.Lerp(s, a, b)
							pts[i] = el.pos(xis[i])
						}
						base := out.nodes.Rows()
						for i, n := range geometry.LineNormals(pts) {
							out.addNode(pts[i], n, xis[i], e, k)
						}
						for i := 1; i < len(pts); i++ {
							out.addPrim(false, base+i-1, base+i)
						}
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

// GenerateCylinders turns every line element into a triangulated tube of
// Radius, scaled along the line by RadiusField when set. Caps closes the
// tube ends.
func GenerateCylinders(ctx context.Context, ds *dataset.Dataset, opts Options) (res *Result, err error) {
	var (
		g       = newGenerator("cylinders", triangles, opts)
		samples = geometry.DivideLine(opts.Refine)
		radius  *fieldView
	)
	if opts.RadiusField != "" {
		if radius, err = newFieldView(ds, opts.RadiusField, opts.valueFunc(), false); err != nil {
			return
		}
	}
	jobs, err := g.jobs(ds, opts.accept(ExactDim(1)),
		func(t *dataset.Topology) (*roaring.Bitmap, error) {
			if radius != nil {
				if err := radius.check(t); err != nil {
					return nil, err
				}
			}
			return allElems(t), nil
		},
		func(t *dataset.Topology) func(p *utils.Process, elems []uint32, out *chunk) error {
			return func(p *utils.Process, elems []uint32, out *chunk) error {
				var (
					el    element
					rf    = radius.clone()
					ctrls = make([]r3.Vec, len(samples))
					xis   = make([]r3.Vec, len(samples))
					radii = make([]float64, len(samples))
				)
				return each(ctx, p, elems, func(e int) error {
					el.load(ds, t, e)
					a, b := el.et.Xis[0], el.et.Xis[1]
					for i, s := range samples {
						xis[i] = geometry.Lerp(s, a, b)
						ctrls[i] = el.pos(xis[i])
						radii[i] = opts.radius()
						if rf != nil {
							radii[i] *= rf.at(e, xis[i])
						}
					}
					nodes, inds, ring, err := geometry.Cylinder(ctrls, radii, opts.Refine, opts.Caps, opts.Caps, true)
					if err != nil {
						return err
					}
					base := out.nodes.Rows()
					for i, n := range geometry.TriNormals(nodes, inds) {
						out.addNode(nodes[i], n, xis[ring[i]], e, -1)
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
