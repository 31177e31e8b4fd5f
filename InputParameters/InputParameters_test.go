package InputParameters

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/meshgen"
	"github.com/notargets/gomesh/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestParse(t *testing.T) {
	fileInput := []byte(`
Title: Test Case
MeshFile: cube.msh
Generator: IsoSurface
Refine: 1
Field: pressure
Thresholds: [0.5, 1.5]
ValueFunc: column:1
Topologies:
  - hexes
Plane:
  Point: [0, 0, 0.5]
  Normal: [0, 0, 1]
Interpolate: [temperature]
`)
	var input GenerationParameters
	require.NoError(t, input.Parse(fileInput))
	assert.Equal(t, Isosurface, input.Generator)
	assert.Equal(t, 1, input.Refine)
	assert.Equal(t, []float64{0.5, 1.5}, input.Thresholds)
	assert.Equal(t, [3]float64{0, 0, 1}, input.Plane.Normal)
	assert.Equal(t, []string{"temperature"}, input.Interpolate)
	var buf bytes.Buffer
	input.Print(&buf)
	assert.Contains(t, buf.String(), "[isosurface]")
	assert.Contains(t, buf.String(), "[pressure]")

	{ // Test inconsistent parameters are rejected
		for _, bad := range []string{
			"Generator: hedgehog",
			"Generator: planecut",
			"Generator: planecut\nPlane:\n  Point: [1, 2, 3]",
			"Generator: isolines",
			"Generator: points\nRefine: -1",
			"Generator: points\nValueFunc: median",
			"Generator: isosurface\nField: p\nUnitFunc: cubic",
			"Generator: [points",
		} {
			var gp GenerationParameters
			assert.True(t, errors.Is(gp.Parse([]byte(bad)), utils.ErrValidation), bad)
		}
	}
}

func TestGenerate(t *testing.T) {
	var (
		ctx = context.Background()
		ds  = dataset.HexGrid("grid", 2, 2, 2, r3.Vec{X: 1, Y: 1, Z: 1})
	)
	_, err := ds.AddNodeField("x", "hexes", func(p r3.Vec) float64 { return p.X })
	require.NoError(t, err)
	{ // Test a plane cut with an interpolated field
		gp := GenerationParameters{
			Generator:   PlaneCut,
			Plane:       &Plane{Point: [3]float64{0.25, 0, 0}, Normal: [3]float64{1, 0, 0}},
			Interpolate: []string{"x"},
		}
		require.NoError(t, gp.Validate())
		opts, err := gp.Options(utils.NoopLogger(), nil)
		require.NoError(t, err)
		res, err := gp.Generate(ctx, ds, opts)
		require.NoError(t, err)
		f, ok := res.Field("x")
		require.True(t, ok)
		for i := 0; i < res.NumNodes(); i++ {
			assert.InDelta(t, 0.25, f.Value(i, dataset.Average), 1e-9)
		}
	}
	{ // Test named topologies restrict the generator
		gp := GenerationParameters{Generator: TriSurface, Topologies: []string{"hexes"}}
		opts, err := gp.Options(nil, nil)
		require.NoError(t, err)
		res, err := gp.Generate(ctx, ds, opts)
		require.NoError(t, err)
		assert.Equal(t, 48, res.Primitives().NumElems())

		gp.Topologies = []string{"tets"}
		opts, err = gp.Options(nil, nil)
		require.NoError(t, err)
		_, err = gp.Generate(ctx, ds, opts)
		assert.True(t, errors.Is(err, utils.ErrNoData))

		gp.Generator, gp.Topologies = Cylinders, []string{"hexes"}
		opts, err = gp.Options(nil, nil)
		require.NoError(t, err)
		_, err = gp.Generate(ctx, ds, opts)
		assert.True(t, errors.Is(err, utils.ErrNoData))
	}
	{ // Test isosurface thresholds pass through
		gp := GenerationParameters{Generator: Isosurface, Field: "x", Thresholds: []float64{0.4}}
		opts, err := gp.Options(nil, &utils.Progress{})
		require.NoError(t, err)
		res, err := gp.Generate(ctx, ds, opts)
		require.NoError(t, err)
		iso, ok := res.Field(meshgen.IsovalueField)
		require.True(t, ok)
		assert.Equal(t, 0.4, iso.Value(0, dataset.Average))
		assert.Equal(t, opts.Progress.Total(), opts.Progress.Done())
	}
}
