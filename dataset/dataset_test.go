package dataset

import (
	"errors"
	"testing"

	"github.com/notargets/gomesh/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

var unit = r3.Vec{X: 1, Y: 1, Z: 1}

func TestFace(t *testing.T) {
	a := NewFace([]int{7, 3, 5}, 0, 1, 2)
	b := NewFace([]int{5, 7, 3}, 4, 0, 9)
	c := NewFace([]int{5, 7, 3, 1}, 4, 0, 9)
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.Equal(t, []int{3, 5, 7}, a.Key.Nodes())
	assert.Equal(t, 3, a.Key.Len())
	m := map[FaceKey]Face{a.Key: a}
	got, ok := m[b.Key]
	assert.True(t, ok)
	assert.Equal(t, 0, got.Elem)
	assert.Panics(t, func() { NewFace(make([]int, MaxFaceNodes+1), 0, 0, 0) })
}

func TestTopology(t *testing.T) {
	{ // Test construction checks the element type
		_, err := NewTopology(utils.NewIndexMatrix("t", 3, []int{0, 1, 2}), "Tet1NL", true)
		assert.True(t, errors.Is(err, utils.ErrValidation))
		_, err = NewTopology(utils.NewIndexMatrix("t", 3, []int{0, 1, 2}), "Nope1NL", true)
		assert.True(t, errors.Is(err, utils.ErrUnknownElemType))
		topo, err := NewTopology(utils.NewIndexMatrix("t", 3, []int{0, 1, 2}), "Tri1NL", false)
		require.NoError(t, err)
		assert.False(t, topo.Spatial())
		assert.Equal(t, "Tri1NL", topo.Matrix.ElemType())
		again, err := TopologyFromMatrix(topo.Matrix.Clone())
		require.NoError(t, err)
		assert.False(t, again.Spatial())
		assert.Equal(t, "Tri1NL", again.Type().Name)
	}
	{ // Test face tables
		ds := TetGrid("g", 1, 1, 1, unit)
		topo, _ := ds.Topology("tets")
		assert.True(t, topo.IsExternal(0, 0))
		_, _, ok := topo.Adjacent(0, 0)
		assert.False(t, ok)
		adj := utils.NewMatrix[int]("adj", utils.IndexKind, 8, topo.Rows())
		adj.Fill(-1)
		adj.Set(0, 1, 3)
		adj.Set(0, 5, 2)
		ext := utils.NewMatrix[int]("ext", utils.IndexKind, 4, topo.Rows())
		ext.Fill(1)
		ext.Set(0, 1, 0)
		require.NoError(t, topo.SetFaceTables(adj, ext))
		e, f, ok := topo.Adjacent(0, 1)
		assert.True(t, ok)
		assert.Equal(t, [2]int{3, 2}, [2]int{e, f})
		assert.False(t, topo.IsExternal(0, 1))
		assert.True(t, topo.IsExternal(0, 0))
		err := topo.SetFaceTables(utils.NewMatrix[int]("adj", utils.IndexKind, 8, 1), ext)
		assert.True(t, errors.Is(err, utils.ErrValidation))
		topo.Invalidate()
		_, _, ok = topo.FaceTables()
		assert.False(t, ok)
		_, ok = topo.Meta(MetaFaceTables)
		assert.False(t, ok)
	}
	{ // Test the octree is cached and restored from metadata
		ds := HexGrid("g", 3, 3, 3, unit)
		topo, _ := ds.Topology("hexes")
		o1, err := topo.Octree(ds.Nodes, 2)
		require.NoError(t, err)
		o2, err := topo.Octree(ds.Nodes, 2)
		require.NoError(t, err)
		assert.Same(t, o1, o2)
		desc, ok := topo.Meta("octree2")
		require.True(t, ok)
		assert.Equal(t, o1.Descriptor(), desc)

		restored, err := TopologyFromMatrix(topo.Matrix.Clone())
		require.NoError(t, err)
		o3, err := restored.Octree(ds.Nodes, 2)
		require.NoError(t, err)
		assert.Equal(t, 64, o1.NumNodes())
		assert.Equal(t, 0, o3.NumNodes()) // restored trees carry leaf data only
		for i, l := range o1.Leaves() {
			assert.Len(t, o3.LeafData(o3.Leaves()[i]), len(uniq(o1.LeafData(l))))
		}
		topo.Invalidate()
		_, ok = topo.Meta("octree2")
		assert.False(t, ok)
	}
}

func uniq(vals []int) map[int]bool {
	m := make(map[int]bool)
	for _, v := range vals {
		m[v] = true
	}
	return m
}

func TestDataset(t *testing.T) {
	{ // Test grids
		ds := HexGrid("h", 2, 3, 4, r3.Vec{X: 2, Y: 3, Z: 4})
		assert.Equal(t, 3*4*5, ds.NumNodes())
		topo, ok := ds.Topology("hexes")
		require.True(t, ok)
		assert.Equal(t, 24, topo.NumElems())
		assert.Equal(t, r3.Vec{X: 1, Y: 1, Z: 1}, ds.Node(topo.Elem(0)[7]))
		assert.Equal(t, 3, ds.MaxDim())
		require.NoError(t, ds.Validate())

		ds = TetGrid("t", 2, 2, 2, unit)
		topo, _ = ds.Topology("tets")
		assert.Equal(t, 48, topo.NumElems())
		require.NoError(t, ds.Validate())

		ds = QuadGrid("q", 2, 2, unit, true)
		topo, _ = ds.Topology("tris")
		assert.Equal(t, 8, topo.NumElems())
		assert.Equal(t, 2, ds.MaxDim())
		require.NoError(t, ds.Validate())
	}
	{ // Test validation finds bad indices and lengths
		ds := QuadGrid("q", 1, 1, unit, false)
		_, err := ds.SetTopology(utils.NewIndexMatrix("quads", 4, []int{0, 1, 2, 3}), "Quad1NL", true)
		assert.True(t, errors.Is(err, utils.ErrValidation))
		_, err = ds.SetTopology(utils.NewIndexMatrix("bad", 4, []int{0, 1, 2, 4}), "Quad1NL", true)
		require.NoError(t, err)
		err = ds.Validate()
		var ire *utils.IndexRangeError
		require.True(t, errors.As(err, &ire))
		assert.Equal(t, "bad", ire.Topology)
		assert.Equal(t, 4, ire.Index)
		assert.Equal(t, 4, ire.Limit)
	}
	{ // Test field validation
		ds := QuadGrid("q", 2, 1, unit, false)
		_, err := ds.AddNodeField("x", "quads", func(p r3.Vec) float64 { return p.X })
		require.NoError(t, err)
		require.NoError(t, ds.Validate())
		f, ok := ds.Field("x")
		require.True(t, ok)
		assert.Equal(t, "quads", f.SpatialTopology())
		assert.Equal(t, "quads", f.FieldTopology())
		assert.False(t, f.PerElem())
		lo, hi, ok := f.Range(Average)
		assert.True(t, ok)
		assert.Equal(t, [2]float64{0, 1}, [2]float64{lo, hi})

		pe := NewField(utils.NewRealMatrix("pe", utils.RealKind, 1, []float64{1}), "quads", "", true)
		require.NoError(t, ds.AddField(pe))
		var lme *utils.LengthMismatchError
		require.True(t, errors.As(ds.Validate(), &lme))
		assert.Equal(t, 2, lme.Expected)
		assert.Equal(t, 1, lme.Actual)
		assert.Error(t, ds.AddField(pe))
	}
	{ // Test field-only topologies index field rows
		ds := QuadGrid("q", 1, 1, unit, false)
		_, err := ds.SetTopology(utils.NewIndexMatrix("fq", 4, []int{0, 1, 2, 3}), "Quad1NL", false)
		require.NoError(t, err)
		vals := utils.NewRealMatrix("v", utils.RealKind, 1, []float64{1}, []float64{2}, []float64{3})
		require.NoError(t, ds.AddField(NewField(vals, "quads", "fq", false)))
		assert.True(t, errors.Is(ds.Validate(), utils.ErrValidation))
		assert.Len(t, ds.SpatialTopologies(), 1)
	}
	{ // Test cloning is deep
		ds := HexGrid("h", 1, 1, 1, unit)
		c := ds.Clone("c")
		assert.Equal(t, "c", c.Name)
		c.Nodes.Set(0, 0, 42)
		assert.Equal(t, 0., ds.Nodes.At(0, 0))
		ct, _ := c.Topology("hexes")
		ct.Set(0, 0, 5)
		ot, _ := ds.Topology("hexes")
		assert.Equal(t, 0, ot.At(0, 0))
	}
	{ // Test shared marking blocks writes
		ds := HexGrid("h", 1, 1, 1, unit)
		ds.SetShared()
		assert.Panics(t, func() { ds.Nodes.Set(0, 0, 1) })
		topo, _ := ds.Topology("hexes")
		assert.True(t, errors.Is(topo.Append(make([]int, 8)...), utils.ErrMatrixShared))
		ds.SetExclusive()
		assert.NotPanics(t, func() { ds.Nodes.Set(0, 0, 1) })
	}
}

func TestValueFunc(t *testing.T) {
	row := []float64{3, 4}
	assert.Equal(t, 3.5, Average.Apply(row))
	assert.Equal(t, 5., Magnitude.Apply(row))
	assert.Equal(t, 4., Column(1).Apply(row))
	{ // Test single component rows still go through the reduction
		assert.Equal(t, 2., Magnitude.Apply([]float64{-2}))
		called := false
		sq := Custom("sq", func(r []float64) float64 { called = true; return r[0] * r[0] })
		assert.Equal(t, 4., sq.Apply([]float64{-2}))
		assert.True(t, called)
		assert.Equal(t, -2., Column(0).Apply([]float64{-2}))
		assert.Equal(t, 1, Average.MinCols())
		assert.Equal(t, 3, Column(2).MinCols())
	}
	assert.Equal(t, -1., Custom("neg", func(r []float64) float64 { return -r[0] }).Apply([]float64{1, 0}))
	for _, s := range []string{"average", "magnitude", "column:2", ""} {
		v, err := ParseValueFunc(s)
		require.NoError(t, err)
		assert.False(t, v.IsZero())
	}
	_, err := ParseValueFunc("column:x")
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = ParseValueFunc("eval(1)")
	assert.ErrorIs(t, err, utils.ErrValidation)
	_, err = ParseUnitFunc("cubic")
	assert.ErrorIs(t, err, utils.ErrValidation)

	assert.Equal(t, 0.25, Linear.Apply(0.25))
	assert.InDelta(t, 0.5, SineEase.Apply(0.5), 1e-12)
	assert.InDelta(t, 1, SineEase.Apply(2), 1e-12)
	u, err := ParseUnitFunc("sine")
	require.NoError(t, err)
	assert.Equal(t, "sine", u.Name())
}
