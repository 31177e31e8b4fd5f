package geometry

import (
	"math"
	"testing"

	"github.com/notargets/gomesh/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestBoundBox(t *testing.T) {
	{ // Test construction from a point set
		_, err := NewBoundBox(nil)
		assert.ErrorIs(t, err, utils.ErrValidation)
		bb, err := NewBoundBox([]r3.Vec{{X: 1, Y: -2, Z: 3}, {X: -1, Y: 4, Z: 0}, {Z: 5}})
		require.NoError(t, err)
		assert.Equal(t, r3.Vec{X: -1, Y: -2, Z: 0}, bb.Min)
		assert.Equal(t, r3.Vec{X: 1, Y: 4, Z: 5}, bb.Max)
		assert.Equal(t, r3.Vec{X: 0, Y: 1, Z: 2.5}, bb.Center())
		assert.InDelta(t, 0.5*math.Sqrt(4+36+25), bb.Radius(), 1e-12)
	}
	{ // Test containment is inclusive
		bb := BoxAround(r3.Vec{}, r3.Vec{X: 2, Y: 2, Z: 2})
		assert.True(t, bb.Contains(r3.Vec{X: 1, Y: -1, Z: 0}))
		assert.False(t, bb.Contains(r3.Vec{X: 1.0001}))
		c := bb.Corners()
		assert.Equal(t, bb.Min, c[0])
		assert.Equal(t, r3.Vec{X: 1, Y: -1, Z: -1}, c[1])
		assert.Equal(t, r3.Vec{X: -1, Y: 1, Z: 1}, c[6])
		assert.Equal(t, bb.Max, c[7])
	}
	{ // Test plane straddling
		bb := BoxAround(r3.Vec{}, r3.Vec{X: 2, Y: 2, Z: 2})
		assert.True(t, bb.PlaneIntersects(r3.Vec{}, r3.Vec{Z: 1}))
		assert.False(t, bb.PlaneIntersects(r3.Vec{Z: 2}, r3.Vec{Z: 1}))
		// all corners on or above the plane count as one side
		assert.False(t, bb.PlaneIntersects(r3.Vec{Z: -1}, r3.Vec{Z: 1}))
	}
	{ // Test union, intersection and scaling
		a := BoundBox{Max: r3.Vec{X: 2, Y: 2, Z: 2}}
		b := BoundBox{Min: r3.Vec{X: 1, Y: 1, Z: 1}, Max: r3.Vec{X: 3, Y: 3, Z: 3}}
		assert.Equal(t, BoundBox{Max: r3.Vec{X: 3, Y: 3, Z: 3}}, a.Union(b))
		r, ok := a.Intersect(b)
		assert.True(t, ok)
		assert.Equal(t, BoundBox{Min: r3.Vec{X: 1, Y: 1, Z: 1}, Max: r3.Vec{X: 2, Y: 2, Z: 2}}, r)
		_, ok = a.Intersect(BoundBox{Min: r3.Vec{X: 5, Y: 5, Z: 5}, Max: r3.Vec{X: 6, Y: 6, Z: 6}})
		assert.False(t, ok)
		s := a.Scale(2)
		assert.Equal(t, a.Center(), s.Center())
		assert.Equal(t, r3.Vec{X: 4, Y: 4, Z: 4}, s.Diagonal())
	}
}

func TestVec(t *testing.T) {
	{ // Test plane normal skips collinear points
		n, ok := PlaneNormal([]r3.Vec{{}, {X: 1}, {X: 2}, {Y: 1}})
		require.True(t, ok)
		assert.InDelta(t, 1, math.Abs(n.Z), 1e-12)
		_, ok = PlaneNormal([]r3.Vec{{}, {X: 1}, {X: 2}, {X: -3}})
		assert.False(t, ok)
		_, ok = PlaneNormal([]r3.Vec{{}, {}, {}})
		assert.False(t, ok)
	}
	{ // Test polar sorting gives a counter clockwise loop
		pts := []r3.Vec{{X: 1, Y: 1}, {X: -1, Y: -1}, {X: 1, Y: -1}, {X: -1, Y: 1}}
		SortPolar(pts, r3.Vec{Z: 1})
		for i := range pts {
			a, b, c := pts[i], pts[(i+1)%4], pts[(i+2)%4]
			assert.Greater(t, r3.Cross(r3.Sub(b, a), r3.Sub(c, b)).Z, 0.)
		}
	}
	{ // Test triangle helpers
		a, b, c := r3.Vec{}, r3.Vec{X: 1}, r3.Vec{Y: 1}
		assert.Equal(t, r3.Vec{Z: 1}, TriNormal(a, b, c))
		assert.InDelta(t, 0.5, TriArea(a, b, c), 1e-12)
		assert.Equal(t, r3.Vec{X: 0.25}, Lerp(0.25, a, b))
		assert.InDelta(t, -1, PlaneDist(r3.Vec{Z: 1}, r3.Vec{Z: 2}, r3.Vec{Z: 5}), 1e-12)
		norms := TriNormals([]r3.Vec{a, b, c}, [][3]int{{0, 1, 2}})
		for _, n := range norms {
			assert.Equal(t, r3.Vec{Z: 1}, n)
		}
	}
	{ // Test line normals are perpendicular and continuous on straight runs
		pts := []r3.Vec{{}, {X: 1}, {X: 2}, {X: 3}}
		norms := LineNormals(pts)
		for _, n := range norms {
			assert.InDelta(t, 0, n.X, 1e-12)
			assert.InDelta(t, 1, r3.Norm(n), 1e-12)
			assert.Equal(t, norms[0], n)
		}
		bent := LineNormals([]r3.Vec{{}, {X: 1, Y: 1}, {X: 2}})
		assert.InDelta(t, -1, bent[1].Y, 1e-12)
	}
	{ // Test perpendicular
		for _, v := range []r3.Vec{{X: 1}, {Y: 3}, {X: 1, Y: 2, Z: 3}} {
			p := Perpendicular(v)
			assert.InDelta(t, 0, r3.Dot(p, v), 1e-12)
			assert.InDelta(t, 1, r3.Norm(p), 1e-12)
		}
	}
}
