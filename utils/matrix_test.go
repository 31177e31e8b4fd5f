package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrix(t *testing.T) {
	{ // Test construction and row access
		M := NewRealMatrix("nodes", Vec3Kind, 3,
			[]float64{1, 2, 3},
			[]float64{4, 5, 6},
		)
		nr, nc := M.Dims()
		assert.Equal(t, 2, nr)
		assert.Equal(t, 3, nc)
		assert.Equal(t, []float64{4, 5, 6}, M.Row(1))
		assert.Equal(t, 2., M.At(0, 1))
		M.Set(0, 1, 7)
		assert.Equal(t, []float64{1, 7, 3}, M.RowView(0))
		D := Dense(M)
		assert.Equal(t, 7., D.At(0, 1))
		D.Set(1, 2, 9)
		assert.Equal(t, 9., M.At(1, 2)) // Dense shares storage
	}
	{ // Test kind widths are enforced
		assert.Panics(t, func() { NewMatrix[float64]("bad", Vec3Kind, 4) })
		assert.Panics(t, func() { NewMatrix[float64]("bad", ColorKind, 3) })
		assert.NotPanics(t, func() { NewMatrix[float64]("ok", Vec3Kind, 9) })
	}
	{ // Test append, resize and clear
		M := NewIndexMatrix("inds", 2)
		require.NoError(t, M.Append(0, 1, 1, 2))
		assert.Equal(t, 2, M.Rows())
		err := M.Append(3)
		var lm *LengthMismatchError
		assert.True(t, errors.As(err, &lm))
		assert.True(t, errors.Is(err, ErrValidation))
		require.NoError(t, M.Resize(3))
		assert.Equal(t, []int{0, 0}, M.Row(2))
		require.NoError(t, M.Clear())
		assert.Equal(t, 0, M.Rows())
	}
	{ // Test rebased append
		A := NewIndexMatrix("a", 3, []int{0, 1, 2})
		B := NewIndexMatrix("b", 3, []int{0, 2, 1}, []int{1, 2, 3})
		require.NoError(t, A.AppendMatrix(B, 3))
		assert.Equal(t, []int{0, 1, 2, 3, 5, 4, 4, 5, 6}, A.Data())
		C := NewIndexMatrix("c", 2)
		assert.Error(t, A.AppendMatrix(C, 0))
	}
	{ // Test shared matrices refuse mutation
		M := NewIndexMatrix("shared", 1, []int{4})
		M.SetShared()
		M.SetShared() // idempotent
		assert.True(t, M.IsShared())
		assert.True(t, errors.Is(M.Append(1), ErrMatrixShared))
		assert.True(t, errors.Is(M.Clear(), ErrMatrixShared))
		assert.True(t, errors.Is(M.Resize(5), ErrMatrixShared))
		assert.Panics(t, func() { M.Set(0, 0, 1) })
		M.SetMeta("octree", "1 1 1 1 0 0 0") // cached artifacts may still be recorded
		M.SetExclusive()
		M.SetExclusive()
		assert.False(t, M.IsShared())
		assert.NoError(t, M.Append(1))
		assert.Equal(t, 2, M.Rows())
	}
	{ // Test clone is deep and exclusive
		M := NewRealMatrix("f", RealKind, 1, []float64{1}, []float64{2})
		M.SetElemType("Tet1NL")
		M.SetMeta("spatial", "inds")
		M.SetShared()
		C := M.Clone()
		assert.True(t, M.Equal(C))
		assert.False(t, C.IsShared())
		C.Set(0, 0, 5)
		assert.Equal(t, 1., M.At(0, 0))
		assert.False(t, M.Equal(C))
		lo, hi, ok := ColumnRange(M, 0)
		assert.True(t, ok)
		assert.Equal(t, 1., lo)
		assert.Equal(t, 2., hi)
	}
	{ // Test kind names
		for _, k := range []MatrixKind{IndexKind, RealKind, Vec3Kind, ColorKind} {
			parsed, err := ParseMatrixKind(k.String())
			require.NoError(t, err)
			assert.Equal(t, k, parsed)
		}
		_, err := ParseMatrixKind("quaternion")
		assert.True(t, errors.Is(err, ErrValidation))
	}
}
