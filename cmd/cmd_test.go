package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/notargets/gomesh/readfiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hexMesh = `$MeshFormat
2.2 0 8
$EndMeshFormat
$Nodes
12
1 0 0 0
2 1 0 0
3 1 1 0
4 0 1 0
5 0 0 1
6 1 0 1
7 1 1 1
8 0 1 1
9 2 0 0
10 2 1 0
11 2 0 1
12 2 1 1
$EndNodes
$Elements
2
1 5 2 1 1 1 2 3 4 5 6 7 8
2 5 2 1 1 2 9 10 3 6 11 12 7
$EndElements
`

func run(t *testing.T, args ...string) string {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestCommands(t *testing.T) {
	dir := t.TempDir()
	mesh := filepath.Join(dir, "bar.msh")
	require.NoError(t, os.WriteFile(mesh, []byte(hexMesh), 0o644))
	{ // Test info reports the shared face of the two hexes
		out := run(t, "info", "--faces", mesh)
		assert.Contains(t, out, "bar<12 nodes, 1 topologies, 1 fields>")
		assert.Contains(t, out, "hexes: 1 shared faces, 10 external faces on 2 elements")
	}
	{ // Test generate writes the external surface as STL
		params := filepath.Join(dir, "params.yaml")
		require.NoError(t, os.WriteFile(params, []byte("Generator: trisurface\n"), 0o644))
		stl := filepath.Join(dir, "bar.stl")
		run(t, "generate", "-F", mesh, "-I", params, "-o", stl)
		f, err := os.Open(stl)
		require.NoError(t, err)
		defer f.Close()
		ds, err := readfiles.ReadSTL(f, "bar")
		require.NoError(t, err)
		tris, ok := ds.Topology("tris")
		require.True(t, ok)
		assert.Equal(t, 20, tris.NumElems())
		assert.Equal(t, 12, ds.NumNodes())
	}
	{ // Test convert round trips through a dataset directory
		saved := filepath.Join(dir, "saved")
		run(t, "convert", "-z", mesh, saved)
		out := run(t, "info", saved)
		assert.Contains(t, out, "saved<12 nodes, 1 topologies, 1 fields>")
		assert.Contains(t, out, "hexes_physical")
	}
	{ // Test a missing parameters file is reported
		rootCmd.SetArgs([]string{"generate", "-F", mesh, "-I", ""})
		assert.Error(t, rootCmd.Execute())
	}
}
