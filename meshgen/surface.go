package meshgen

import (
	"context"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/notargets/gomesh/adjacency"
	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/elemtype"
	"github.com/notargets/gomesh/geometry"
	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// ensureFaceTables computes the face tables of a volume topology unless
// they are cached.
func ensureFaceTables(ctx context.Context, ds *dataset.Dataset, t *dataset.Topology, opts Options) error {
	if t.Type().Dim() < 3 {
		return nil
	}
	if _, _, ok := t.FaceTables(); ok {
		return nil
	}
	_, err := adjacency.ComputeTopology(ctx, ds.Nodes, t, adjacency.Options{
		Depth:     opts.Depth,
		MaxProcs:  opts.MaxProcs,
		Threshold: opts.Threshold,
		Logger:    opts.Logger,
	})
	return err
}

// externalElems selects the elements with at least one external face.
func externalElems(t *dataset.Topology) *roaring.Bitmap {
	bm := roaring.New()
	_, ext, ok := t.FaceTables()
	if !ok {
		return allElems(t)
	}
	for e := 0; e < t.NumElems(); e++ {
		for _, v := range ext.RowView(e) {
			if v != 0 {
				bm.Add(uint32(e))
				break
			}
		}
	}
	return bm
}

// divideFace is the subdivision of a face of the given shape.
func divideFace(g elemtype.Geom, refine int) ([]r3.Vec, [][3]int) {
	if g == elemtype.Quad {
		return geometry.DivideQuad(refine)
	}
	return geometry.DivideTri(refine)
}

// faceGeom is the shape of the faces of an element type.
func faceGeom(et *elemtype.ElemType) elemtype.Geom {
	if et.FaceType != nil {
		return et.FaceType.Geom
	}
	return et.Geom
}

// GenerateTriSurface triangulates the external faces of volume topologies
// and the elements of surface topologies. Each face is subdivided refine
// times in its own coordinates and mapped through the element basis, so
// curved elements give curved surfaces. Node normals point out of the
// element.
//
// With AllFaces the internal faces of volumes are included, each once, from
// the element with the lower index.
func GenerateTriSurface(ctx context.Context, ds *dataset.Dataset, opts Options) (res *Result, err error) {
	g := newGenerator("surface", triangles, opts)
	jobs, err := g.jobs(ds, opts.accept(MinDim(2)),
		func(t *dataset.Topology) (*roaring.Bitmap, error) {
			if err := ensureFaceTables(ctx, ds, t, opts); err != nil {
				return nil, err
			}
			if opts.AllFaces || t.Type().Dim() < 3 {
				return allElems(t), nil
			}
			return externalElems(t), nil
		},
		func(t *dataset.Topology) func(p *utils.Process, elems []uint32, out *chunk) error {
			xis, inds := divideFace(faceGeom(t.Type()), opts.Refine)
			return func(p *utils.Process, elems []uint32, out *chunk) error {
				var el element
				return each(ctx, p, elems, func(e int) error {
					el.load(ds, t, e)
					for f := range el.et.Faces {
						external := t.IsExternal(e, f)
						if !external && el.et.Dim() >= 3 {
							if !opts.AllFaces {
								continue
							}
							if oe, _, _ := t.Adjacent(e, f); oe < e {
								continue
							}
						}
						addFace(out, &el, f, xis, inds, external)
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

// addFace appends the subdivided face f of el, wound to match its normal.
func addFace(out *chunk, el *element, f int, xis []r3.Vec, inds [][3]int, external bool) {
	mid := geometry.Centroid(xis)
	_, flipped := el.faceNormal(f, mid.X, mid.Y)
	base := out.nodes.Rows()
	for _, fxi := range xis {
		var (
			xi   = el.et.FaceXiToElemXi(f, fxi.X, fxi.Y)
			n, _ = el.faceNormal(f, fxi.X, fxi.Y)
		)
		out.addNode(el.pos(xi), n, xi, el.id, f)
	}
	for _, tri := range inds {
		a, b, c := tri[0], tri[1], tri[2]
		if flipped {
			b, c = c, b
		}
		out.addPrim(external, base+a, base+b, base+c)
	}
}
