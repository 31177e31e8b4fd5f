// Package isosurface extracts the surfaces and lines where a field
// interpolated over one element equals a threshold. Results are in the xi
// space of the element; callers map them to world space with the element's
// basis.
package isosurface

import (
	"fmt"

	"github.com/notargets/gomesh/elemtype"
	"github.com/notargets/gomesh/geometry"
	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle and Segment hold xi coordinates.
type (
	Triangle [3]r3.Vec
	Segment  [2]r3.Vec
)

// Tolerance below which fragments are considered degenerate.
const Tolerance = 1e-12

var (
	hex1  = elemtype.MustLookup("Hex1NL")
	quad1 = elemtype.MustLookup("Quad1NL")
)

// above is the fixed tie-break: a value equal to the threshold is above.
func above(v, threshold float64) bool { return v >= threshold }

// crosses is false when every value lies on one side of the threshold.
func crosses(values []float64, threshold float64) bool {
	return above(floats.Max(values), threshold) && !above(floats.Min(values), threshold)
}

// cell is a linear sub-element: its vertex xis in the parent element and
// the field values there.
type cell struct {
	xis    []r3.Vec
	values []float64
}

func (c cell) crossing(i, j int, threshold float64) r3.Vec {
	f := (threshold - c.values[i]) / (c.values[j] - c.values[i])
	return geometry.Lerp(f, c.xis[i], c.xis[j])
}

// rising points from the vertices below the threshold to those above, the
// direction triangles and segments are oriented towards. It stays defined
// when the vertices above lie on the surface itself.
func (c cell) rising(threshold float64) r3.Vec {
	var hi, lo []r3.Vec
	for i, v := range c.values {
		if above(v, threshold) {
			hi = append(hi, c.xis[i])
		} else {
			lo = append(lo, c.xis[i])
		}
	}
	return r3.Sub(geometry.Centroid(hi), geometry.Centroid(lo))
}

func newCell(et *elemtype.ElemType, values []float64, xis []r3.Vec) (c cell) {
	c.xis = xis
	c.values = make([]float64, len(xis))
	for i, xi := range xis {
		c.values[i] = et.Basis(values, xi)
	}
	return
}

func rootCell(et *elemtype.ElemType, values []float64) cell {
	return cell{
		xis:    append([]r3.Vec(nil), et.VertexXis()...),
		values: append([]float64(nil), values[:et.NumVertices]...),
	}
}

func checkInput(et *elemtype.ElemType, values []float64, refine int, geoms ...elemtype.Geom) error {
	var ok bool
	for _, g := range geoms {
		ok = ok || et.Geom == g
	}
	switch {
	case !ok:
		return fmt.Errorf("%w: cannot extract from %s elements", utils.ErrValidation, et.Geom)
	case len(values) != et.NumNodes():
		return &utils.LengthMismatchError{Name: et.Name, What: "control point values",
			Expected: et.NumNodes(), Actual: len(values)}
	case refine < 0:
		return fmt.Errorf("%w: refinement %d", utils.ErrValidation, refine)
	}
	return nil
}

// Surface returns the triangles where the field over a tet or hex element
// equals threshold, each wound so its normal points towards higher values.
//
// With refine > 0 the element is split refine times into 8 linear
// sub-elements of its kind, values at their vertices interpolated with the
// element basis, so curved fields over high order elements are followed more
// closely. Elements whose control values all lie on one side of the
// threshold yield nothing.
func Surface(et *elemtype.ElemType, values []float64, threshold float64, refine int) (tris []Triangle, err error) {
	if err = checkInput(et, values, refine, elemtype.Tet, elemtype.Hex); err != nil {
		return
	}
	if !crosses(values, threshold) {
		return
	}
	var (
		base  = tetTriangles
		split = splitTet
	)
	if et.Geom == elemtype.Hex {
		base, split = hexTriangles, splitHex
	}
	cells := []cell{rootCell(et, values)}
	for r := 0; r < refine; r++ {
		var next []cell
		for _, c := range cells {
			for _, xis := range split(c.xis) {
				next = append(next, newCell(et, values, xis))
			}
		}
		cells = next
	}
	for _, c := range cells {
		if crosses(c.values, threshold) {
			tris = base(c, threshold, tris)
		}
	}
	return
}

// Lines returns the segments where the field over a tri or quad element
// equals threshold, refined like Surface with 4 sub-elements per level. The
// positive side lies to the left of each segment.
func Lines(et *elemtype.ElemType, values []float64, threshold float64, refine int) (segs []Segment, err error) {
	if err = checkInput(et, values, refine, elemtype.Tri, elemtype.Quad); err != nil {
		return
	}
	if !crosses(values, threshold) {
		return
	}
	var (
		base  = triSegments
		split = splitTri
	)
	if et.Geom == elemtype.Quad {
		base, split = quadSegments, splitQuad
	}
	cells := []cell{rootCell(et, values)}
	for r := 0; r < refine; r++ {
		var next []cell
		for _, c := range cells {
			for _, xis := range split(c.xis) {
				next = append(next, newCell(et, values, xis))
			}
		}
		cells = next
	}
	for _, c := range cells {
		if crosses(c.values, threshold) {
			segs = base(c, threshold, segs)
		}
	}
	return
}

// orient appends a, b, c with its normal along dir, dropping zero area
// triangles.
func orient(tris []Triangle, a, b, c, dir r3.Vec) []Triangle {
	n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
	if r3.Norm(n) < Tolerance {
		return tris
	}
	if r3.Dot(n, dir) < 0 {
		b, c = c, b
	}
	return append(tris, Triangle{a, b, c})
}

func tetTriangles(c cell, threshold float64, tris []Triangle) []Triangle {
	var hi, lo []int
	for i, v := range c.values {
		if above(v, threshold) {
			hi = append(hi, i)
		} else {
			lo = append(lo, i)
		}
	}
	dir := c.rising(threshold)
	switch len(hi) {
	case 1, 3:
		lone, rest := hi[0], lo
		if len(hi) == 3 {
			lone, rest = lo[0], hi
		}
		return orient(tris,
			c.crossing(lone, rest[0], threshold),
			c.crossing(lone, rest[1], threshold),
			c.crossing(lone, rest[2], threshold), dir)
	case 2:
		var (
			p0 = c.crossing(hi[0], lo[0], threshold)
			p1 = c.crossing(hi[0], lo[1], threshold)
			p2 = c.crossing(hi[1], lo[1], threshold)
			p3 = c.crossing(hi[1], lo[0], threshold)
		)
		tris = orient(tris, p0, p1, p2, dir)
		return orient(tris, p0, p2, p3, dir)
	}
	return tris
}

// hexTriangles fans the crossings on the 12 hex edges after sorting them by
// angle around their centroid. The sort plane is the plane of the first
// three crossings that are not collinear; if there are none the fragment is
// degenerate and dropped.
func hexTriangles(c cell, threshold float64, tris []Triangle) []Triangle {
	var pts []r3.Vec
	for _, e := range hex1.Edges {
		i, j := e[0], e[1]
		if above(c.values[i], threshold) == above(c.values[j], threshold) {
			continue
		}
		pts = appendDistinct(pts, c.crossing(i, j, threshold))
	}
	if len(pts) < 3 {
		return tris
	}
	normal, ok := geometry.PlaneNormal(pts)
	if !ok {
		return tris
	}
	geometry.SortPolar(pts, normal)
	dir := c.rising(threshold)
	for i := 1; i < len(pts)-1; i++ {
		tris = orient(tris, pts[0], pts[i], pts[i+1], dir)
	}
	return tris
}

func appendDistinct(pts []r3.Vec, p r3.Vec) []r3.Vec {
	for _, q := range pts {
		if r3.Norm(r3.Sub(p, q)) < Tolerance {
			return pts
		}
	}
	return append(pts, p)
}

// segment appends a, b with dir on the left, looking down the element
// normal (+Z in xi space).
func segment(segs []Segment, a, b, dir r3.Vec) []Segment {
	d := r3.Sub(b, a)
	if r3.Norm(d) < Tolerance {
		return segs
	}
	if r3.Cross(d, dir).Z < 0 {
		a, b = b, a
	}
	return append(segs, Segment{a, b})
}

func triSegments(c cell, threshold float64, segs []Segment) []Segment {
	var hi, lo []int
	for i, v := range c.values {
		if above(v, threshold) {
			hi = append(hi, i)
		} else {
			lo = append(lo, i)
		}
	}
	lone, rest := hi[0], lo
	if len(hi) == 2 {
		lone, rest = lo[0], hi
	}
	return segment(segs,
		c.crossing(lone, rest[0], threshold),
		c.crossing(lone, rest[1], threshold),
		c.rising(threshold))
}

// quadCycle lists the quad vertices in order around its boundary.
var quadCycle = [4]int{0, 1, 3, 2}

// quadSegments joins the crossings on the quad edges. When all four edges
// cross, the value at the center decides which corners are cut off.
func quadSegments(c cell, threshold float64, segs []Segment) []Segment {
	var (
		cuts   [4]r3.Vec
		cut    [4]bool
		ncut   int
		dir    = c.rising(threshold)
		corner = func(k int) bool { return above(c.values[quadCycle[k]], threshold) }
	)
	for k := 0; k < 4; k++ {
		i, j := quadCycle[k], quadCycle[(k+1)%4]
		if corner(k) != corner((k+1)%4) {
			cuts[k], cut[k] = c.crossing(i, j, threshold), true
			ncut++
		}
	}
	switch ncut {
	case 2:
		var pts []r3.Vec
		for k := range cuts {
			if cut[k] {
				pts = append(pts, cuts[k])
			}
		}
		return segment(segs, pts[0], pts[1], dir)
	case 4:
		var (
			center      = geometry.Centroid(c.xis)
			centerAbove = above(floats.Sum(c.values)/4, threshold)
		)
		for k := 0; k < 4; k++ {
			if corner(k) == centerAbove {
				continue
			}
			// corner k is isolated, cut between its two edges
			side := center
			if corner(k) {
				side = c.xis[quadCycle[k]]
			}
			segs = segment(segs, cuts[(k+3)%4], cuts[k], r3.Sub(side, cuts[(k+3)%4]))
		}
	}
	return segs
}
