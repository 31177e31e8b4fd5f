package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSparseRows(t *testing.T) {
	rows := [][]int{
		{3, 1, 1, 0},
		{},
		{5},
		{2, 4, 2},
	}
	sr := NewSparseRows(rows, 6)
	assert.Equal(t, 4, sr.NumRows())
	assert.Equal(t, []int{0, 1, 3}, sr.Row(0))
	assert.Empty(t, sr.Row(1))
	assert.Equal(t, []int{5}, sr.Row(2))
	assert.Equal(t, []int{2, 4}, sr.Row(3))
	assert.Equal(t, []int{0, 3, 3, 4, 6}, sr.Offsets)

	off, ind := sr.Encode()
	assert.Equal(t, "0 3 3 4 6", off)
	dec, err := DecodeSparseRows(off, ind)
	require.NoError(t, err)
	assert.Equal(t, sr, dec)

	_, err = DecodeSparseRows("0 2", "1")
	assert.True(t, errors.Is(err, ErrValidation))

	empty := NewSparseRows(nil, 0)
	assert.Equal(t, 0, empty.NumRows())
}
