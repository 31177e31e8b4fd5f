package geometry

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
)

const Epsilon = 1e-10

// Normalize returns the unit vector of v, or the zero vector if v is zero.
func Normalize(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n < Epsilon {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// PlaneDist is the signed distance of p from the plane through planePt.
func PlaneDist(p, planePt, planeNorm r3.Vec) float64 {
	return r3.Dot(r3.Sub(p, planePt), Normalize(planeNorm))
}

// TriNormal is the unit normal of the counter clockwise triangle a, b, c.
func TriNormal(a, b, c r3.Vec) r3.Vec {
	return Normalize(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
}

func TriArea(a, b, c r3.Vec) float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(b, a), r3.Sub(c, a)))
}

func Lerp(t float64, a, b r3.Vec) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

func Centroid(pts []r3.Vec) (c r3.Vec) {
	for _, p := range pts {
		c = r3.Add(c, p)
	}
	if len(pts) != 0 {
		c = r3.Scale(1/float64(len(pts)), c)
	}
	return
}

// Perpendicular returns a unit vector at right angles to v.
func Perpendicular(v r3.Vec) r3.Vec {
	axis := r3.Vec{X: 1}
	ax, ay, az := math.Abs(v.X), math.Abs(v.Y), math.Abs(v.Z)
	switch {
	case ay <= ax && ay <= az:
		axis = r3.Vec{Y: 1}
	case az <= ax && az <= ay:
		axis = r3.Vec{Z: 1}
	}
	return Normalize(r3.Cross(v, axis))
}

// PlaneNormal finds the normal of the plane through the first three
// points of pts that are not collinear. ok is false if all are collinear.
func PlaneNormal(pts []r3.Vec) (n r3.Vec, ok bool) {
	for i := 1; i < len(pts); i++ {
		a := r3.Sub(pts[i], pts[0])
		if r3.Norm(a) < Epsilon {
			continue
		}
		for j := i + 1; j < len(pts); j++ {
			c := r3.Cross(a, r3.Sub(pts[j], pts[0]))
			if r3.Norm(c) > Epsilon*r3.Norm(a) {
				return Normalize(c), true
			}
		}
	}
	return
}

// SortPolar orders pts counter clockwise around their centroid as seen
// looking down normal.
func SortPolar(pts []r3.Vec, normal r3.Vec) {
	var (
		c = Centroid(pts)
		u r3.Vec
	)
	for _, p := range pts {
		d := r3.Sub(p, c)
		d = r3.Sub(d, r3.Scale(r3.Dot(d, normal), normal))
		if r3.Norm(d) > Epsilon {
			u = Normalize(d)
			break
		}
	}
	if u == (r3.Vec{}) {
		return
	}
	v := r3.Cross(normal, u)
	angle := func(p r3.Vec) float64 {
		d := r3.Sub(p, c)
		return math.Atan2(r3.Dot(d, v), r3.Dot(d, u))
	}
	sort.SliceStable(pts, func(i, j int) bool { return angle(pts[i]) < angle(pts[j]) })
}

// TriNormals averages the face normals of each triangle onto its nodes.
func TriNormals(nodes []r3.Vec, inds [][3]int) (norms []r3.Vec) {
	norms = make([]r3.Vec, len(nodes))
	for _, t := range inds {
		n := TriNormal(nodes[t[0]], nodes[t[1]], nodes[t[2]])
		for _, i := range t {
			norms[i] = r3.Add(norms[i], n)
		}
	}
	for i := range norms {
		norms[i] = Normalize(norms[i])
	}
	return
}

// LineNormals gives each point of a polyline the direction of the bisector
// between its neighbours, made perpendicular to the line. Straight runs get
// an arbitrary perpendicular that is carried along for continuity.
func LineNormals(pts []r3.Vec) (norms []r3.Vec) {
	norms = make([]r3.Vec, len(pts))
	if len(pts) < 2 {
		return
	}
	var prevNorm r3.Vec
	for i := range pts {
		var (
			a   = pts[max(i-1, 0)]
			b   = pts[min(i+1, len(pts)-1)]
			dir = Normalize(r3.Sub(b, a))
			bis r3.Vec
		)
		if i > 0 && i < len(pts)-1 {
			bis = r3.Sub(r3.Scale(0.5, r3.Add(a, b)), pts[i])
		}
		bis = r3.Sub(bis, r3.Scale(r3.Dot(bis, dir), dir))
		switch {
		case r3.Norm(bis) > Epsilon:
			norms[i] = Normalize(bis)
		case prevNorm != (r3.Vec{}):
			norms[i] = Normalize(r3.Sub(prevNorm, r3.Scale(r3.Dot(prevNorm, dir), dir)))
		}
		if norms[i] == (r3.Vec{}) {
			norms[i] = Perpendicular(dir)
		}
		prevNorm = norms[i]
	}
	return
}

// ElemMul is the componentwise product of a and b.
func ElemMul(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z}
}
