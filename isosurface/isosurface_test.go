package isosurface

import (
	"errors"
	"math"
	"testing"

	"github.com/notargets/gomesh/elemtype"
	"github.com/notargets/gomesh/geometry"
	"github.com/notargets/gomesh/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func controlValues(et *elemtype.ElemType, fn func(xi r3.Vec) float64) (vals []float64) {
	for _, xi := range et.Xis {
		vals = append(vals, fn(xi))
	}
	return
}

func area(tris []Triangle) (a float64) {
	for _, t := range tris {
		a += geometry.TriArea(t[0], t[1], t[2])
	}
	return
}

func TestTetSurface(t *testing.T) {
	tet := elemtype.MustLookup("Tet1NL")
	{ // Test one vertex above gives one triangle on the threshold
		vals := []float64{0, 1, 1, 1}
		tris, err := Surface(tet, vals, 0.5, 0)
		require.NoError(t, err)
		require.Len(t, tris, 1)
		for _, p := range tris[0] {
			assert.InDelta(t, 0.5, tet.Basis(vals, p), 1e-12)
		}
		n := geometry.TriNormal(tris[0][0], tris[0][1], tris[0][2])
		assert.Greater(t, r3.Dot(n, r3.Vec{X: 1, Y: 1, Z: 1}), 0.)
	}
	{ // Test two above and two below gives two triangles
		vals := []float64{0, 0, 1, 1}
		tris, err := Surface(tet, vals, 0.25, 0)
		require.NoError(t, err)
		require.Len(t, tris, 2)
		for _, tri := range tris {
			for _, p := range tri {
				assert.InDelta(t, 0.25, tet.Basis(vals, p), 1e-12)
			}
			n := geometry.TriNormal(tri[0], tri[1], tri[2])
			assert.Greater(t, r3.Dot(n, r3.Vec{Y: 1, Z: 1}), 0.)
		}
	}
	{ // Test thresholds outside the value range give nothing
		for _, th := range []float64{-1, 1.5} {
			tris, err := Surface(tet, []float64{0, 0.2, 0.7, 1}, th, 2)
			require.NoError(t, err)
			assert.Empty(t, tris)
		}
	}
	{ // Test values equal to the threshold count as above
		tris, _ := Surface(tet, []float64{0, 0, 0, 1}, 0, 0)
		assert.Empty(t, tris)
		tris, _ = Surface(tet, []float64{0, 0, 0, 1}, 1, 0)
		assert.Empty(t, tris, "zero area fragment at vertex 3")
	}
	{ // Test refining a linear field keeps the surface and its area
		vals := []float64{0.1, 0.9, 0.4, 0.6}
		coarse, err := Surface(tet, vals, 0.5, 0)
		require.NoError(t, err)
		fine, err := Surface(tet, vals, 2, 0)
		require.NoError(t, err)
		assert.Empty(t, fine)
		fine, err = Surface(tet, vals, 0.5, 2)
		require.NoError(t, err)
		assert.Greater(t, len(fine), len(coarse))
		assert.InDelta(t, area(coarse), area(fine), 1e-9)
		for _, tri := range fine {
			for _, p := range tri {
				assert.InDelta(t, 0.5, tet.Basis(vals, p), 1e-9)
			}
		}
	}
}

func TestCurvedSurface(t *testing.T) {
	var (
		tet    = elemtype.MustLookup("Tet2NL")
		sphere = func(xi r3.Vec) float64 { return r3.Norm2(xi) }
		vals   = controlValues(tet, sphere)
		errAt  = func(refine int) (worst float64) {
			tris, err := Surface(tet, vals, 0.25, refine)
			require.NoError(t, err)
			require.NotEmpty(t, tris)
			for _, tri := range tris {
				for _, p := range tri {
					worst = math.Max(worst, math.Abs(r3.Norm(p)-0.5))
					assert.True(t, p.X > -1e-12 && p.Y > -1e-12 && p.Z > -1e-12)
					assert.LessOrEqual(t, p.X+p.Y+p.Z, 1+1e-12)
				}
			}
			return
		}
	)
	assert.Less(t, errAt(3), errAt(1))
	assert.Less(t, errAt(3), 0.01)
}

func TestHexSurface(t *testing.T) {
	hex := elemtype.MustLookup("Hex1NL")
	{ // Test a plane normal to x
		vals := controlValues(hex, func(xi r3.Vec) float64 { return xi.X })
		tris, err := Surface(hex, vals, 0.5, 0)
		require.NoError(t, err)
		require.Len(t, tris, 2)
		assert.InDelta(t, 1, area(tris), 1e-12)
		for _, tri := range tris {
			assert.InDelta(t, 1, geometry.TriNormal(tri[0], tri[1], tri[2]).X, 1e-12)
		}
	}
	{ // Test the hexagonal cut through the centre
		vals := controlValues(hex, func(xi r3.Vec) float64 { return xi.X + xi.Y + xi.Z })
		tris, err := Surface(hex, vals, 1.5, 0)
		require.NoError(t, err)
		require.Len(t, tris, 4)
		assert.InDelta(t, 3*math.Sqrt(3)/4, area(tris), 1e-12)
		refined, err := Surface(hex, vals, 1.5, 1)
		require.NoError(t, err)
		assert.InDelta(t, 3*math.Sqrt(3)/4, area(refined), 1e-9)
		for _, tri := range refined {
			for _, p := range tri {
				assert.InDelta(t, 1.5, hex.Basis(vals, p), 1e-9)
			}
		}
	}
	{ // Test degenerate crossings at vertices are dropped
		vals := make([]float64, 8)
		vals[0] = 1
		tris, err := Surface(hex, vals, 1, 0)
		require.NoError(t, err)
		assert.Empty(t, tris)
		vals[1] = 1
		tris, err = Surface(hex, vals, 1, 0)
		require.NoError(t, err)
		assert.Empty(t, tris)
	}
	{ // Test collinear crossings are dropped rather than fanned
		c := cell{values: []float64{0, 1, 0, 1, 0, 1, 0, 1}}
		for k := 0; k < 8; k++ {
			c.xis = append(c.xis, r3.Vec{X: float64(k)})
		}
		assert.Empty(t, hexTriangles(c, 0.5, nil))
		c.xis = hex.VertexXis()
		assert.Len(t, hexTriangles(c, 0.5, nil), 2)
	}
}

func TestLines(t *testing.T) {
	{ // Test a triangle cut
		tri := elemtype.MustLookup("Tri1NL")
		vals := []float64{0, 1, 1}
		segs, err := Lines(tri, vals, 0.5, 0)
		require.NoError(t, err)
		require.Len(t, segs, 1)
		for _, p := range segs[0] {
			assert.InDelta(t, 0.5, tri.Basis(vals, p), 1e-12)
		}
		d := r3.Sub(segs[0][1], segs[0][0])
		assert.Greater(t, r3.Cross(d, r3.Vec{X: 1, Y: 1}).Z, 0.)
	}
	{ // Test a quad cut runs with the positive side on its left
		quad := elemtype.MustLookup("Quad1NL")
		vals := controlValues(quad, func(xi r3.Vec) float64 { return xi.X })
		segs, err := Lines(quad, vals, 0.5, 0)
		require.NoError(t, err)
		require.Len(t, segs, 1)
		assert.InDelta(t, 1, r3.Norm(r3.Sub(segs[0][1], segs[0][0])), 1e-12)
		assert.Greater(t, r3.Cross(r3.Sub(segs[0][1], segs[0][0]), r3.Vec{X: 1}).Z, 0.)
		refined, err := Lines(quad, vals, 0.5, 2)
		require.NoError(t, err)
		var length float64
		for _, s := range refined {
			length += r3.Norm(r3.Sub(s[1], s[0]))
		}
		assert.InDelta(t, 1, length, 1e-9)
	}
	{ // Test a saddle is resolved by the centre value
		quad := elemtype.MustLookup("Quad1NL")
		segs, err := Lines(quad, []float64{1, 0, 0, 1}, 0.5, 0)
		require.NoError(t, err)
		require.Len(t, segs, 2)
		segs, err = Lines(quad, []float64{1, 0, 0, 1}, 0.6, 0)
		require.NoError(t, err)
		require.Len(t, segs, 2)
		for _, s := range segs {
			mid := geometry.Lerp(0.5, s[0], s[1])
			assert.True(t, (mid.X < 0.5) == (mid.Y < 0.5), "cuts isolate corners 0 and 3")
		}
	}
	{ // Test a quadratic triangle
		tri := elemtype.MustLookup("Tri2NL")
		vals := controlValues(tri, func(xi r3.Vec) float64 { return xi.X * xi.X })
		segs, err := Lines(tri, vals, 0.25, 3)
		require.NoError(t, err)
		for _, s := range segs {
			for _, p := range s {
				assert.InDelta(t, 0.5, p.X, 1e-9)
			}
		}
	}
}

func TestInput(t *testing.T) {
	_, err := Surface(elemtype.MustLookup("Tri1NL"), []float64{0, 1, 2}, 1, 0)
	assert.True(t, errors.Is(err, utils.ErrValidation))
	_, err = Lines(elemtype.MustLookup("Hex1NL"), make([]float64, 8), 1, 0)
	assert.True(t, errors.Is(err, utils.ErrValidation))
	_, err = Surface(elemtype.MustLookup("Tet2NL"), []float64{0, 1, 2, 3}, 1, 0)
	var lme *utils.LengthMismatchError
	assert.True(t, errors.As(err, &lme))
	_, err = Lines(elemtype.MustLookup("Tri1NL"), []float64{0, 1, 2}, 1, -1)
	assert.Error(t, err)
}
