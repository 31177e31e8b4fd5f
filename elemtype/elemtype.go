package elemtype

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// BasisNL is the nodal Lagrange basis suffix of element type names.
const BasisNL = "NL"

const (
	internalXiSub = 0.01
	xiTol         = 1e-10
)

// Face is one face of an element: control point indices, vertices first,
// plus the vertex opposite the face (-1 for 2D elements, whose only face is
// the element itself).
type Face struct {
	Nodes []int
	Far   int
	// InternalXiSub moves a xi on the face into the element when subtracted.
	InternalXiSub r3.Vec
}

// ElemType defines a nodal Lagrange element: control point xis, faces,
// edges and basis functions. Control points are ordered by xi with x least
// significant and z most, except that vertices come first.
type ElemType struct {
	Name        string
	Geom        Geom
	Order       int
	Xis         []r3.Vec
	NumVertices int
	Faces       []Face
	// FaceType defines the faces of volume elements as 2D elements, nil otherwise.
	FaceType *ElemType
	// Edges list vertex pairs followed by the nodes between them.
	Edges [][]int

	powers [][3]int   // monomial exponents
	A      *mat.Dense // row n holds the monomial coefficients of basis function n
}

var (
	registry   = map[string]*ElemType{}
	registryMu sync.Mutex
	nameRE     = regexp.MustCompile(`^([A-Za-z]+?)(\d+)([A-Za-z]+)$`)
)

// Name composes [Geom][Order][Basis], eg Tet2NL.
func Name(g Geom, order int) string {
	return g.String() + strconv.Itoa(order) + BasisNL
}

// Lookup returns the element type for a name, building it on first use.
func Lookup(name string) (et *ElemType, err error) {
	registryMu.Lock()
	defer registryMu.Unlock()
	return lookup(name)
}

func lookup(name string) (et *ElemType, err error) {
	var ok bool
	if et, ok = registry[name]; ok {
		return
	}
	m := nameRE.FindStringSubmatch(name)
	if m == nil || m[3] != BasisNL {
		return nil, fmt.Errorf("%w: %q", utils.ErrUnknownElemType, name)
	}
	var (
		g     Geom
		order int
	)
	if g, err = ParseGeom(m[1]); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", utils.ErrUnknownElemType, name, err)
	}
	order, _ = strconv.Atoi(m[2])
	if order < 1 || order > 10 || (g == Point && order != 1) {
		return nil, fmt.Errorf("%w: %q: unsupported order %d", utils.ErrUnknownElemType, name, order)
	}
	if et, err = newNodalLagrange(name, g, order); err != nil {
		return
	}
	registry[name] = et
	return
}

// MustLookup panics on unknown names, for the built in types.
func MustLookup(name string) *ElemType {
	et, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return et
}

func newNodalLagrange(name string, g Geom, order int) (et *ElemType, err error) {
	et = &ElemType{
		Name:        name,
		Geom:        g,
		Order:       order,
		NumVertices: g.NumVertices(),
	}
	et.Xis, et.powers = lagrangeXis(g, order)
	if et.A, err = basisCoeffs(et.Xis, et.powers); err != nil {
		return nil, fmt.Errorf("element type %s: %w", name, err)
	}
	switch g.Dim() {
	case 1:
		all := make([]int, len(et.Xis))
		for i := range all {
			all[i] = i
		}
		et.Edges = [][]int{all}
	case 2:
		all := make([]int, len(et.Xis))
		for i := range all {
			all[i] = i
		}
		et.Faces = []Face{{Nodes: all, Far: -1}}
		et.Edges = findEdges(et.Xis, et.NumVertices, g.IsSimplex())
	case 3:
		et.Faces = findFaces(et.Xis, et.NumVertices, g.IsSimplex())
		et.Edges = findEdges(et.Xis, et.NumVertices, g.IsSimplex())
		fg, _ := g.FaceGeom()
		if et.FaceType, err = lookup(Name(fg, order)); err != nil {
			return nil, err
		}
	}
	return
}

// lagrangeXis lays out the control points of an order p element on the
// unit reference shape, with the matching monomial exponents.
func lagrangeXis(g Geom, p int) (xis []r3.Vec, powers [][3]int) {
	var (
		dim  = g.Dim()
		n    [3]int
		lim  [3]int
		isVx = func(xi r3.Vec) bool {
			for _, c := range []float64{xi.X, xi.Y, xi.Z} {
				if c != 0 && c != 1 {
					return false
				}
			}
			return true
		}
	)
	for d := 0; d < dim; d++ {
		lim[d] = p
	}
	for n[2] = 0; n[2] <= lim[2]; n[2]++ {
		for n[1] = 0; n[1] <= lim[1]; n[1]++ {
			for n[0] = 0; n[0] <= lim[0]; n[0]++ {
				if g.IsSimplex() && n[0]+n[1]+n[2] > p {
					continue
				}
				powers = append(powers, n)
				xis = append(xis, r3.Vec{
					X: float64(n[0]) / float64(p),
					Y: float64(n[1]) / float64(p),
					Z: float64(n[2]) / float64(p),
				})
			}
		}
	}
	// the loops already give z-major order, stable partition moves vertices first
	order := make([]int, len(xis))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return isVx(xis[order[i]]) && !isVx(xis[order[j]])
	})
	sorted := make([]r3.Vec, len(xis))
	for i, o := range order {
		sorted[i] = xis[o]
	}
	xis = sorted
	return
}

func monomial(pw [3]int, xi r3.Vec) float64 {
	return ipow(xi.X, pw[0]) * ipow(xi.Y, pw[1]) * ipow(xi.Z, pw[2])
}

func ipow(x float64, n int) (r float64) {
	r = 1
	for ; n > 0; n-- {
		r *= x
	}
	return
}

// basisCoeffs solves for the monomial coefficients of the basis functions,
// the inverse transpose of the Vandermonde matrix V[k][m] = M_m(xi_k).
func basisCoeffs(xis []r3.Vec, powers [][3]int) (A *mat.Dense, err error) {
	n := len(xis)
	V := mat.NewDense(n, n, nil)
	for k, xi := range xis {
		for m, pw := range powers {
			V.Set(k, m, monomial(pw, xi))
		}
	}
	var Vt mat.Dense
	Vt.CloneFrom(V.T())
	A = mat.NewDense(n, n, nil)
	if err = A.Inverse(&Vt); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("singular Vandermonde matrix: %w", err)
		}
		// ill conditioned at high order, the inverse is still usable
		err = nil
	}
	return
}

func findFaces(xis []r3.Vec, numVertices int, simplex bool) (faces []Face) {
	var (
		ranges = []float64{0, 1}
		comp   = func(xi r3.Vec, d int) float64 { return [3]float64{xi.X, xi.Y, xi.Z}[d] }
		far    = func(face []int, fromEnd bool) int {
			in := make(map[int]bool, len(face))
			for _, n := range face {
				in[n] = true
			}
			var others []int
			for v := 0; v < numVertices; v++ {
				if !in[v] {
					others = append(others, v)
				}
			}
			if fromEnd {
				return others[len(others)-1]
			}
			return others[0]
		}
	)
	if simplex {
		ranges = ranges[:1]
	}
	for d := 0; d < 3; d++ {
		for _, r := range ranges {
			var f Face
			for n, xi := range xis {
				if comp(xi, d) == r {
					f.Nodes = append(f.Nodes, n)
				}
			}
			if len(f.Nodes) == 0 {
				continue
			}
			f.Far = far(f.Nodes, r == 0)
			sub := [3]float64{}
			sub[d] = -internalXiSub
			if r == 1 {
				sub[d] = internalXiSub
			}
			f.InternalXiSub = r3.Vec{X: sub[0], Y: sub[1], Z: sub[2]}
			faces = append(faces, f)
		}
	}
	if simplex {
		var f Face
		for n, xi := range xis {
			if utils.Near(xi.X+xi.Y+xi.Z, 1, xiTol) {
				f.Nodes = append(f.Nodes, n)
			}
		}
		f.Far = far(f.Nodes, true)
		f.InternalXiSub = r3.Vec{X: internalXiSub, Y: internalXiSub, Z: internalXiSub}
		faces = append(faces, f)
	}
	key := func(f Face) []int { return append(append([]int(nil), f.Nodes...), f.Far) }
	sort.SliceStable(faces, func(i, j int) bool {
		a, b := key(faces[i]), key(faces[j])
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return
}

func findEdges(xis []r3.Vec, numVertices int, simplex bool) (edges [][]int) {
	differing := func(a, b r3.Vec) (n int) {
		for _, d := range []float64{a.X - b.X, a.Y - b.Y, a.Z - b.Z} {
			if math.Abs(d) > xiTol {
				n++
			}
		}
		return
	}
	between := func(p, a, b r3.Vec) bool {
		ab := r3.Sub(b, a)
		t := r3.Dot(r3.Sub(p, a), ab) / r3.Dot(ab, ab)
		if t <= xiTol || t >= 1-xiTol {
			return false
		}
		return r3.Norm(r3.Sub(p, r3.Add(a, r3.Scale(t, ab)))) < xiTol
	}
	for v1 := 0; v1 < numVertices; v1++ {
		for v2 := v1 + 1; v2 < numVertices; v2++ {
			if !simplex && differing(xis[v1], xis[v2]) != 1 {
				continue
			}
			edge := []int{v1, v2}
			for n := numVertices; n < len(xis); n++ {
				if between(xis[n], xis[v1], xis[v2]) {
					edge = append(edge, n)
				}
			}
			edges = append(edges, edge)
		}
	}
	return
}

func (et *ElemType) Dim() int        { return et.Geom.Dim() }
func (et *ElemType) IsSimplex() bool { return et.Geom.IsSimplex() }
func (et *ElemType) NumNodes() int   { return len(et.Xis) }
func (et *ElemType) NumFaces() int   { return len(et.Faces) }
func (et *ElemType) String() string  { return et.Name }

// Center is the xi of the element centroid.
func (et *ElemType) Center() (c r3.Vec) {
	v := 0.5
	if et.IsSimplex() {
		v = 1 / float64(et.Dim()+1)
	}
	switch et.Dim() {
	case 3:
		c.Z = v
		fallthrough
	case 2:
		c.Y = v
		fallthrough
	case 1:
		c.X = v
	}
	return
}

// Linear is the order 1 type of the same geometry.
func (et *ElemType) Linear() *ElemType {
	if et.Order == 1 {
		return et
	}
	return MustLookup(Name(et.Geom, 1))
}

// Coeffs evaluates every basis function at xi.
func (et *ElemType) Coeffs(xi r3.Vec) []float64 {
	return et.CoeffsTo(make([]float64, len(et.Xis)), xi)
}

// CoeffsTo is Coeffs writing into dst, which must hold NumNodes values.
func (et *ElemType) CoeffsTo(dst []float64, xi r3.Vec) []float64 {
	n := len(et.Xis)
	if len(dst) != n {
		panic(fmt.Sprintf("coefficient buffer of %d for %d control points", len(dst), n))
	}
	var mono [64]float64
	m := mono[:0]
	for _, pw := range et.powers {
		m = append(m, monomial(pw, xi))
	}
	for i := 0; i < n; i++ {
		row := et.A.RawRowView(i)
		var s float64
		for j, c := range row {
			s += c * m[j]
		}
		dst[i] = s
	}
	return dst
}

// Basis interpolates one value per control point at xi.
func (et *ElemType) Basis(vals []float64, xi r3.Vec) (v float64) {
	if len(vals) != len(et.Xis) {
		panic(fmt.Sprintf("%d values for %d control points of %s", len(vals), len(et.Xis), et.Name))
	}
	for i, c := range et.Coeffs(xi) {
		v += c * vals[i]
	}
	return
}

// BasisVec interpolates one vector per control point at xi.
func (et *ElemType) BasisVec(vals []r3.Vec, xi r3.Vec) (v r3.Vec) {
	if len(vals) != len(et.Xis) {
		panic(fmt.Sprintf("%d values for %d control points of %s", len(vals), len(et.Xis), et.Name))
	}
	for i, c := range et.Coeffs(xi) {
		v = r3.Add(v, r3.Scale(c, vals[i]))
	}
	return
}

// FaceVertices is the vertex prefix of a face's nodes.
func (et *ElemType) FaceVertices(face int) []int {
	nv := et.NumVertices
	if et.FaceType != nil {
		nv = et.FaceType.NumVertices
	}
	return et.Faces[face].Nodes[:nv]
}

// FaceXiToElemXi maps (xi0, xi1) on a face to the element xi. 2D elements
// are their own face.
func (et *ElemType) FaceXiToElemXi(face int, xi0, xi1 float64) (xi r3.Vec) {
	if et.Dim() < 3 {
		return r3.Vec{X: xi0, Y: xi1}
	}
	lin := et.FaceType.Linear()
	for i, c := range lin.Coeffs(r3.Vec{X: xi0, Y: xi1}) {
		xi = r3.Add(xi, r3.Scale(c, et.Xis[et.Faces[face].Nodes[i]]))
	}
	return
}

func (et *ElemType) VertexXis() []r3.Vec { return et.Xis[:et.NumVertices] }
