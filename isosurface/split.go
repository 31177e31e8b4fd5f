package isosurface

import (
	"github.com/notargets/gomesh/geometry"
	"gonum.org/v1/gonum/spatial/r3"
)

func mid(a, b r3.Vec) r3.Vec { return geometry.Lerp(0.5, a, b) }

// splitTet cuts the four corners off at the edge midpoints and divides the
// remaining octahedron around its diagonal between the midpoints of edges
// 02 and 13.
func splitTet(v []r3.Vec) [][]r3.Vec {
	var (
		m01, m02, m03 = mid(v[0], v[1]), mid(v[0], v[2]), mid(v[0], v[3])
		m12, m13, m23 = mid(v[1], v[2]), mid(v[1], v[3]), mid(v[2], v[3])
	)
	return [][]r3.Vec{
		{v[0], m01, m02, m03},
		{m01, v[1], m12, m13},
		{m02, m12, v[2], m23},
		{m03, m13, m23, v[3]},
		{m02, m13, m01, m03},
		{m02, m13, m03, m23},
		{m02, m13, m23, m12},
		{m02, m13, m12, m01},
	}
}

func splitTri(v []r3.Vec) [][]r3.Vec {
	m01, m02, m12 := mid(v[0], v[1]), mid(v[0], v[2]), mid(v[1], v[2])
	return [][]r3.Vec{
		{v[0], m01, m02},
		{m01, v[1], m12},
		{m02, m12, v[2]},
		{m12, m02, m01},
	}
}

// splitHex returns the 8 octants, each with its vertices in xi order.
func splitHex(v []r3.Vec) (cells [][]r3.Vec) {
	for o := 0; o < 8; o++ {
		sub := make([]r3.Vec, 8)
		for k := range sub {
			local := r3.Vec{
				X: 0.5 * float64(o&1+k&1),
				Y: 0.5 * float64(o>>1&1+k>>1&1),
				Z: 0.5 * float64(o>>2&1+k>>2&1),
			}
			sub[k] = hex1.BasisVec(v, local)
		}
		cells = append(cells, sub)
	}
	return
}

func splitQuad(v []r3.Vec) (cells [][]r3.Vec) {
	for o := 0; o < 4; o++ {
		sub := make([]r3.Vec, 4)
		for k := range sub {
			local := r3.Vec{
				X: 0.5 * float64(o&1+k&1),
				Y: 0.5 * float64(o>>1&1+k>>1&1),
			}
			sub[k] = quad1.BasisVec(v, local)
		}
		cells = append(cells, sub)
	}
	return
}
