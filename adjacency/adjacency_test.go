package adjacency

import (
	"context"
	"errors"
	"testing"

	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func newDataset(t *testing.T, nodes [][]float64, elemType string, elems ...[]int) (*dataset.Dataset, *dataset.Topology) {
	ds := dataset.NewDataset("test", utils.NewRealMatrix("nodes", utils.Vec3Kind, 3, nodes...))
	topo, err := ds.SetTopology(utils.NewIndexMatrix("elems", len(elems[0]), elems...), elemType, true)
	require.NoError(t, err)
	require.NoError(t, ds.Validate())
	return ds, topo
}

func unitCube(dx float64) [][]float64 {
	var nodes [][]float64
	for o := 0; o < 8; o++ {
		nodes = append(nodes, []float64{dx + float64(o&1), float64(o>>1&1), float64(o>>2&1)})
	}
	return nodes
}

func tableRows(m *utils.Matrix[int]) (rows [][]int) {
	for i := 0; i < m.Rows(); i++ {
		rows = append(rows, m.Row(i))
	}
	return
}

func TestTwoTets(t *testing.T) {
	ds, topo := newDataset(t,
		[][]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 1}},
		"Tet1NL", []int{0, 1, 2, 3}, []int{1, 2, 3, 4})
	results, err := Compute(context.Background(), ds, Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	adj, ext, ok := topo.FaceTables()
	require.True(t, ok)
	assert.Equal(t, [][]int{{-1, -1, -1, 1, -1, -1, -1, 0}, {0, -1, -1, -1, 3, -1, -1, -1}}, tableRows(adj))
	assert.Equal(t, [][]int{{1, 1, 1, 0}, {0, 1, 1, 1}}, tableRows(ext))
	assert.Equal(t, 1, results[0].NumSharedFaces)
	assert.Equal(t, 6, results[0].NumExternalFaces)
	assert.Equal(t, uint64(2), results[0].External.GetCardinality())
	e, f, ok := topo.Adjacent(1, 0)
	assert.True(t, ok)
	assert.Equal(t, [2]int{0, 3}, [2]int{e, f})
	assert.False(t, topo.IsShared())
	assert.False(t, ds.Nodes.IsShared())
}

func TestHexes(t *testing.T) {
	{ // Test a single hex has six external faces and no neighbours
		ds, topo := newDataset(t, unitCube(0), "Hex1NL", []int{0, 1, 2, 3, 4, 5, 6, 7})
		res, err := ComputeTopology(context.Background(), ds.Nodes, topo, Options{Depth: 1})
		require.NoError(t, err)
		adj, ext, _ := topo.FaceTables()
		for f := 0; f < 6; f++ {
			assert.True(t, topo.IsExternal(0, f))
			assert.Equal(t, 1, ext.At(0, f))
		}
		for _, v := range adj.RowView(0) {
			assert.Equal(t, -1, v)
		}
		assert.Equal(t, 0, res.NumSharedFaces)
		assert.Equal(t, 6, res.NumExternalFaces)
	}
	{ // Test two hexes sharing a face give exactly one pair
		nodes := unitCube(0)
		for _, p := range unitCube(1) {
			if p[0] == 2 {
				nodes = append(nodes, p)
			}
		}
		ds, topo := newDataset(t, nodes, "Hex1NL",
			[]int{0, 1, 2, 3, 4, 5, 6, 7}, []int{1, 8, 3, 9, 5, 10, 7, 11})
		res, err := ComputeTopology(context.Background(), ds.Nodes, topo, Options{})
		require.NoError(t, err)
		assert.Equal(t, 1, res.NumSharedFaces)
		assert.Equal(t, 10, res.NumExternalFaces)
		e, f, ok := topo.Adjacent(0, 3)
		require.True(t, ok)
		assert.Equal(t, [2]int{1, 2}, [2]int{e, f})
		e, f, ok = topo.Adjacent(1, 2)
		require.True(t, ok)
		assert.Equal(t, [2]int{0, 3}, [2]int{e, f})
		adj, _, _ := topo.FaceTables()
		var linked int
		for _, v := range adj.Data() {
			if v >= 0 {
				linked++
			}
		}
		assert.Equal(t, 4, linked)
	}
}

func TestSymmetry(t *testing.T) {
	var reference [][]int
	for _, opts := range []Options{
		{MaxProcs: 1}, {MaxProcs: 2}, {MaxProcs: 7, Depth: 2}, {Depth: -1}, {Depth: 4, MaxProcs: 16},
	} {
		ds := dataset.TetGrid("grid", 2, 2, 2, r3.Vec{X: 1, Y: 1, Z: 1})
		topo, _ := ds.Topology("tets")
		res, err := ComputeTopology(context.Background(), ds.Nodes, topo, opts)
		require.NoError(t, err)
		assert.Equal(t, 48, res.NumExternalFaces)
		assert.Equal(t, 72, res.NumSharedFaces)
		for e := 0; e < topo.NumElems(); e++ {
			for f := 0; f < 4; f++ {
				oe, of, ok := topo.Adjacent(e, f)
				if !ok {
					assert.True(t, topo.IsExternal(e, f))
					continue
				}
				assert.False(t, topo.IsExternal(e, f))
				be, bf, ok := topo.Adjacent(oe, of)
				assert.True(t, ok)
				assert.Equal(t, [2]int{e, f}, [2]int{be, bf})
			}
		}
		adj, _, _ := topo.FaceTables()
		if reference == nil {
			reference = tableRows(adj)
			continue
		}
		assert.Equal(t, reference, tableRows(adj))
	}
}

func TestCompute(t *testing.T) {
	{ // Test surfaces are skipped by default
		ds := dataset.QuadGrid("sheet", 2, 2, r3.Vec{X: 1, Y: 1}, false)
		_, err := Compute(context.Background(), ds, Options{})
		assert.True(t, errors.Is(err, utils.ErrNoData))
	}
	{ // Test progress counts every occupied leaf
		ds := dataset.HexGrid("grid", 3, 3, 3, r3.Vec{X: 1, Y: 1, Z: 1})
		var progress utils.Progress
		results, err := Compute(context.Background(), ds, Options{Depth: 2, Progress: &progress})
		require.NoError(t, err)
		assert.Equal(t, progress.Total(), progress.Done())
		assert.NotZero(t, progress.Done())
		assert.Equal(t, 54, results[0].NumExternalFaces)
		assert.Equal(t, 54, results[0].NumSharedFaces)
		assert.Equal(t, uint64(26), results[0].External.GetCardinality())
	}
	{ // Test a cancelled context aborts the run
		ds := dataset.HexGrid("grid", 2, 2, 2, r3.Vec{X: 1, Y: 1, Z: 1})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Compute(ctx, ds, Options{})
		assert.True(t, errors.Is(err, context.Canceled))
		topo, _ := ds.Topology("hexes")
		_, _, ok := topo.FaceTables()
		assert.False(t, ok)
	}
}

func BenchmarkComputeTopology(b *testing.B) {
	ds := dataset.TetGrid("grid", 10, 10, 10, r3.Vec{X: 1, Y: 1, Z: 1})
	topo, _ := ds.Topology("tets")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ComputeTopology(context.Background(), ds.Nodes, topo, Options{}); err != nil {
			b.Fatal(err)
		}
	}
}
