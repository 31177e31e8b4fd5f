package meshgen

import (
	"fmt"

	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/elemtype"
	"github.com/notargets/gomesh/geometry"
	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// fdStep is the xi step of the finite difference tangents.
const fdStep = 1e-6

// element is one element of a spatial topology with its control point
// positions loaded. Workers reuse one per range.
type element struct {
	et  *elemtype.ElemType
	id  int
	pts []r3.Vec
}

func (el *element) load(ds *dataset.Dataset, t *dataset.Topology, e int) {
	el.et, el.id = t.Type(), e
	el.pts = el.pts[:0]
	for _, n := range t.Elem(e) {
		el.pts = append(el.pts, ds.Node(n))
	}
}

func (el *element) pos(xi r3.Vec) r3.Vec { return el.et.BasisVec(el.pts, xi) }

// center is the position of the element centroid.
func (el *element) center() r3.Vec { return el.pos(el.et.Center()) }

// faceNormal is the unit normal of face f at face coordinates (u, v),
// pointing away from the far control point of volume elements. flipped
// reports that the face parameterisation winds the other way.
func (el *element) faceNormal(f int, u, v float64) (n r3.Vec, flipped bool) {
	var (
		at = func(u, v float64) r3.Vec { return el.pos(el.et.FaceXiToElemXi(f, u, v)) }
		du = r3.Scale(0.5/fdStep, r3.Sub(at(u+fdStep, v), at(u-fdStep, v)))
		dv = r3.Scale(0.5/fdStep, r3.Sub(at(u, v+fdStep), at(u, v-fdStep)))
	)
	n = geometry.Normalize(r3.Cross(du, dv))
	if far := el.et.Faces[f].Far; far >= 0 {
		if r3.Dot(n, r3.Sub(at(u, v), el.pts[far])) < 0 {
			n, flipped = r3.Scale(-1, n), true
		}
	}
	return
}

// fieldView reads a field over the elements of its spatial topology.
type fieldView struct {
	f     *dataset.Field
	topo  *dataset.Topology // indexes the field rows
	vf    dataset.ValueFunc
	buf   []float64
	owner string
}

// newFieldView looks up a field and its topology. perNode rejects fields
// defined per element.
func newFieldView(ds *dataset.Dataset, name string, vf dataset.ValueFunc, perNode bool) (fv *fieldView, err error) {
	f, ok := ds.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: dataset %q has no field %q", utils.ErrValidation, ds.Name, name)
	}
	if perNode && f.PerElem() {
		return nil, fmt.Errorf("%w: field %q is defined per element, a per node field is needed",
			utils.ErrValidation, name)
	}
	if f.Cols() < vf.MinCols() {
		return nil, &utils.LengthMismatchError{Name: name, What: "field components", Expected: vf.MinCols(), Actual: f.Cols()}
	}
	fv = &fieldView{f: f, vf: vf, owner: f.SpatialTopology()}
	if fv.topo, ok = ds.Topology(f.FieldTopology()); !ok {
		return nil, fmt.Errorf("%w: field %q topology %q not found", utils.ErrValidation, name, f.FieldTopology())
	}
	return
}

// check rejects topologies the field is not defined over, or whose shape
// differs from the field topology.
func (fv *fieldView) check(t *dataset.Topology) error {
	switch {
	case t.Name() != fv.owner:
		return fmt.Errorf("%w: field %q is defined over %q, not %q", utils.ErrValidation,
			fv.f.Name(), fv.owner, t.Name())
	case fv.topo.Type().Geom != t.Type().Geom:
		return fmt.Errorf("%w: field %q topology is %s, spatial topology is %s", utils.ErrValidation,
			fv.f.Name(), fv.topo.Type(), t.Type())
	}
	return nil
}

// values reduces the field at each control point of element e, one value
// for per element fields. The slice is reused by the next call.
func (fv *fieldView) values(e int) []float64 {
	fv.buf = fv.buf[:0]
	if fv.f.PerElem() {
		return append(fv.buf, fv.f.Value(e, fv.vf))
	}
	for _, n := range fv.topo.Elem(e) {
		fv.buf = append(fv.buf, fv.f.Value(n, fv.vf))
	}
	return fv.buf
}

// at interpolates the field within element e.
func (fv *fieldView) at(e int, xi r3.Vec) float64 {
	vals := fv.values(e)
	if fv.f.PerElem() {
		return vals[0]
	}
	return fv.topo.Type().Basis(vals, xi)
}

// clone gives each worker its own buffer.
func (fv *fieldView) clone() *fieldView {
	if fv == nil {
		return nil
	}
	c := *fv
	c.buf = nil
	return &c
}
