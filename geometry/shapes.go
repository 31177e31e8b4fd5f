package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Rotate turns p by angle radians about the unit vector axis.
func Rotate(p r3.Vec, angle float64, axis r3.Vec) r3.Vec {
	var (
		c, s = math.Cos(angle), math.Sin(angle)
		kxp  = r3.Cross(axis, p)
		kdp  = r3.Dot(axis, p)
	)
	return r3.Add(r3.Add(r3.Scale(c, p), r3.Scale(s, kxp)), r3.Scale(kdp*(1-c), axis))
}

// rotation is a rotation stored as an ordered list of axis/angle turns.
type rotation []struct {
	axis  r3.Vec
	angle float64
}

func (r rotation) apply(p r3.Vec) r3.Vec {
	for _, t := range r {
		p = Rotate(p, t.angle, t.axis)
	}
	return p
}

// between is the shortest rotation taking direction from to direction to.
func between(from, to r3.Vec) rotation {
	from, to = Normalize(from), Normalize(to)
	var (
		axis = r3.Cross(from, to)
		cos  = math.Max(-1, math.Min(1, r3.Dot(from, to)))
	)
	if r3.Norm(axis) < Epsilon {
		if cos > 0 {
			return nil
		}
		return rotation{{Perpendicular(from), math.Pi}}
	}
	return rotation{{Normalize(axis), math.Acos(cos)}}
}

// AlignTo returns the shortest rotation taking direction from to direction to.
func AlignTo(from, to r3.Vec) func(p r3.Vec) r3.Vec { return between(from, to).apply }

// Cylinder builds a triangulated tube through ctrls with a ring of radius
// radii[i] at each control point. The ring has refine+3 points. Caps are
// triangle fans over duplicated rings. With alignRings, each ring is turned
// in its plane toward the control point barycenter so the tube does not
// twist at inflections. ring gives the control point index of each node.
func Cylinder(ctrls []r3.Vec, radii []float64, refine int, startCap, endCap, alignRings bool) (
	nodes []r3.Vec, inds [][3]int, ring []int, err error) {
	switch {
	case refine < 0:
		err = fmt.Errorf("cylinder refinement %d is negative", refine)
	case len(ctrls) < 2:
		err = fmt.Errorf("cylinder needs at least 2 control points, got %d", len(ctrls))
	case len(ctrls) != len(radii):
		err = fmt.Errorf("cylinder has %d control points but %d radii", len(ctrls), len(radii))
	}
	if err != nil {
		return
	}
	var (
		nr         = refine + 3
		nc         = len(ctrls)
		dirs       = make([]r3.Vec, nc)
		circle     = make([]r3.Vec, nr)
		barycenter = Centroid(ctrls)
	)
	alignRings = alignRings && nc >= 3
	dirs[0] = Normalize(r3.Sub(ctrls[1], ctrls[0]))
	for n := 1; n < nc-1; n++ {
		d1 := r3.Sub(ctrls[n], ctrls[n-1])
		d2 := r3.Sub(ctrls[n+1], ctrls[n])
		dirs[n] = Normalize(r3.Scale(0.5, r3.Add(d1, d2)))
	}
	dirs[nc-1] = Normalize(r3.Sub(ctrls[nc-1], ctrls[nc-2]))
	for i := range circle {
		a := -2 * math.Pi * float64(i) / float64(nr)
		circle[i] = r3.Vec{X: math.Cos(a), Y: math.Sin(a)}
	}
	makeRing := func(n int) (pts []r3.Vec) {
		rot := between(r3.Vec{Z: 1}, dirs[n])
		if alignRings {
			rv := rot.apply(r3.Vec{X: 1})
			line := r3.Cross(dirs[n], Normalize(r3.Sub(barycenter, ctrls[n])))
			if r3.Norm(line) > Epsilon {
				rot = append(rot, between(rv, line)...)
			}
		}
		for _, c := range circle {
			pts = append(pts, r3.Add(ctrls[n], rot.apply(r3.Scale(radii[n], c))))
		}
		return
	}
	addRing := func(n int) {
		nodes = append(nodes, makeRing(n)...)
		for range nr {
			ring = append(ring, n)
		}
	}
	if startCap {
		for i := 0; i < nr; i++ {
			inds = append(inds, [3]int{0, i + 1, (i+1)%nr + 1})
		}
		nodes = append(nodes, ctrls[0])
		ring = append(ring, 0)
		addRing(0)
	}
	addRing(0)
	for n := 1; n < nc; n++ {
		for i := 0; i < nr; i++ {
			b := len(nodes) + i
			d := len(nodes) + (i+1)%nr
			a := b - nr
			c := d - nr
			inds = append(inds, [3]int{a, b, c}, [3]int{c, b, d})
		}
		addRing(n)
	}
	if endCap {
		ln := len(nodes)
		for i := 0; i < nr; i++ {
			inds = append(inds, [3]int{ln + nr, ln + (i+1)%nr, ln + i})
		}
		addRing(nc - 1)
		nodes = append(nodes, ctrls[nc-1])
		ring = append(ring, nc-1)
	}
	return
}

// Arrow is a +Z arrow in the 2×2×2 box about the origin.
func Arrow(refine int) (nodes []r3.Vec, inds [][3]int) {
	nodes, inds, _, _ = Cylinder([]r3.Vec{{Z: -1}, {}, {Z: 1}}, []float64{0.5, 0.5, 1}, refine, true, true, true)
	for i := 0; i < (3+refine)*2; i++ {
		n := &nodes[len(nodes)-2-i]
		n.Z = 0
	}
	return
}

// Sphere is a unit icosphere with 20*4^refine triangles.
func Sphere(refine int) (nodes []r3.Vec, inds [][3]int) {
	gold := (1 + math.Sqrt(5)) / 2
	nodes = []r3.Vec{
		{Y: 1, Z: gold}, {Y: -1, Z: gold}, {Y: 1, Z: -gold}, {Y: -1, Z: -gold},
		{X: 1, Y: gold}, {X: -1, Y: gold}, {X: 1, Y: -gold}, {X: -1, Y: -gold},
		{X: gold, Z: 1}, {X: -gold, Z: 1}, {X: gold, Z: -1}, {X: -gold, Z: -1},
	}
	inds = [][3]int{
		{0, 1, 8}, {0, 9, 1}, {0, 8, 4}, {0, 4, 5}, {0, 5, 9},
		{2, 3, 11}, {2, 11, 5}, {2, 5, 4}, {2, 4, 10}, {2, 10, 3},
		{1, 9, 7}, {1, 7, 6}, {1, 6, 8}, {3, 10, 6}, {3, 6, 7},
		{3, 7, 11}, {4, 8, 10}, {5, 11, 9}, {6, 10, 8}, {7, 9, 11},
	}
	// put node 0 at the pole so refinement gives an equator on the XY plane
	tilt := math.Acos(r3.Dot(Normalize(nodes[0]), r3.Vec{Z: 1}))
	for i := range nodes {
		nodes[i] = Rotate(nodes[i], tilt, r3.Vec{X: 1})
	}
	for r := 0; r < refine; r++ {
		var (
			medians = make(map[[2]int]int)
			next    [][3]int
		)
		median := func(a, b int) int {
			key := [2]int{min(a, b), max(a, b)}
			if m, ok := medians[key]; ok {
				return m
			}
			medians[key] = len(nodes)
			nodes = append(nodes, r3.Scale(0.5, r3.Add(nodes[a], nodes[b])))
			return medians[key]
		}
		for _, t := range inds {
			i, j, k := t[0], t[1], t[2]
			ij, ik, jk := median(i, j), median(i, k), median(j, k)
			next = append(next, [3]int{i, ij, ik}, [3]int{ij, j, jk}, [3]int{ik, jk, k}, [3]int{ij, jk, ik})
		}
		inds = next
	}
	for i := range nodes {
		nodes[i] = Normalize(nodes[i])
	}
	return
}

// DivideTri splits the unit triangle into (n+1)^2 triangles, returning the
// xi of each point (Z unused) and the counter clockwise triangles.
func DivideTri(n int) (xis []r3.Vec, inds [][3]int) {
	n1 := 1 / float64(n+1)
	for j := 0; j <= n+1; j++ {
		for i := 0; i <= n+1-j; i++ {
			xis = append(xis, r3.Vec{X: float64(i) * n1, Y: float64(j) * n1})
		}
	}
	var start, nextRow int
	for j := 0; j <= n; j++ {
		nextRow += n + 2 - j
		for i := 0; i < n-j; i++ {
			inds = append(inds, [3]int{start, start + 1, nextRow + i}, [3]int{nextRow + i, start + 1, nextRow + 1 + i})
			start++
		}
		inds = append(inds, [3]int{start, start + 1, nextRow + n - j})
		start = nextRow
	}
	return
}

// DivideQuad splits the unit square into 2(n+1)^2 triangles.
func DivideQuad(n int) (xis []r3.Vec, inds [][3]int) {
	n1 := 1 / float64(n+1)
	for j := 0; j <= n+1; j++ {
		for i := 0; i <= n+1; i++ {
			xis = append(xis, r3.Vec{X: float64(i) * n1, Y: float64(j) * n1})
		}
	}
	for j := 0; j <= n; j++ {
		for i := 0; i <= n; i++ {
			start := j*(n+2) + i
			nextRow := (j+1)*(n+2) + i
			inds = append(inds, [3]int{start, start + 1, nextRow}, [3]int{nextRow, start + 1, nextRow + 1})
		}
	}
	return
}

// DivideLine samples the unit interval at n+2 evenly spaced points.
func DivideLine(n int) (xis []float64) {
	for i := 0; i <= n+1; i++ {
		xis = append(xis, float64(i)/float64(n+1))
	}
	return
}
