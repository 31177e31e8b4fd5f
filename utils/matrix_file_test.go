package utils

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixFile(t *testing.T) {
	{ // Test layout of a written matrix
		M := NewIndexMatrix("inds", 4, []int{0, 1, 2, 3}, []int{1, 2, 3, 4})
		M.SetElemType("Tet1NL")
		M.SetMeta("spatial", "True")
		var buf bytes.Buffer
		require.NoError(t, WriteMatrix(&buf, M))
		assert.Equal(t, "inds\nindex\nTet1NL\n2 4\nspatial = True\n0 1 2 3\n1 2 3 4\n", buf.String())
	}
	{ // Test round trip through files, plain and compressed
		dir := t.TempDir()
		M := NewRealMatrix("nodes", Vec3Kind, 3,
			[]float64{0, 0, 0},
			[]float64{1.0 / 3, -2.5e-7, math.Pi},
			[]float64{1e300, 0.1, 7},
		)
		M.SetElemType("")
		M.SetMeta("octree", "3 1.05 1.05 1.05 0.5 0.5 0.5")
		M.SetMeta("topology", "inds")
		for _, name := range []string{"nodes.mat", "nodes.mat.zst"} {
			path := filepath.Join(dir, name)
			require.NoError(t, StoreMatrixFile(M, path))
			R, err := ReadMatrixFile[float64](path)
			require.NoError(t, err)
			assert.Equal(t, M.Name(), R.Name())
			assert.Equal(t, M.Kind(), R.Kind())
			assert.Equal(t, M.ElemType(), R.ElemType())
			assert.Equal(t, M.MetaMap(), R.MetaMap())
			nr, nc := R.Dims()
			assert.Equal(t, 3, nr)
			assert.Equal(t, 3, nc)
			assert.InDeltaSlice(t, M.Data(), R.Data(), 1e-12)
		}
	}
	{ // Test empty matrix with metadata
		M := NewIndexMatrix("empty", 3)
		M.SetMeta("perelem", "False")
		var buf bytes.Buffer
		require.NoError(t, WriteMatrix(&buf, M))
		R, err := ReadMatrix[int](&buf)
		require.NoError(t, err)
		assert.Equal(t, 0, R.Rows())
		assert.True(t, M.Equal(R))
	}
	{ // Test metadata values keep their own spaces
		M := NewIndexMatrix("padded", 1, []int{7})
		M.SetMeta("label", "  two leading, one trailing ")
		M.SetMeta("empty", "")
		var buf bytes.Buffer
		require.NoError(t, WriteMatrix(&buf, M))
		R, err := ReadMatrix[int](&buf)
		require.NoError(t, err)
		assert.Equal(t, M.MetaMap(), R.MetaMap())
		R, err = ReadMatrix[int](strings.NewReader("m\nindex\n\n1 1\nkey=value\n3\n"))
		require.NoError(t, err)
		v, _ := R.Meta("key")
		assert.Equal(t, "value", v)
	}
	{ // Test malformed input is rejected
		_, err := ReadMatrix[int](strings.NewReader("m\nindex\nTet1NL\n2 2\n0 1\n"))
		assert.True(t, errors.Is(err, ErrValidation))
		_, err = ReadMatrix[int](strings.NewReader("m\nindex\nTet1NL\n1 2\n0 1 2\n"))
		assert.True(t, errors.Is(err, ErrValidation))
		_, err = ReadMatrix[float64](strings.NewReader("m\nindex\n\n1 1\n0\n"))
		assert.True(t, errors.Is(err, ErrValidation))
		_, err = ReadMatrix[float64](strings.NewReader("m\nreal\n"))
		assert.True(t, errors.Is(err, ErrValidation))
		_, err = ReadMatrix[float64](strings.NewReader("m\nreal\n\n1 1\nx\n"))
		assert.True(t, errors.Is(err, ErrValidation))
	}
}
