package utils

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/james-bowman/sparse"
)

// SparseRows is a compressed row table of column indices, the offset table
// form used to persist which tokens belong to which row (Indptr/Ind of CSR).
type SparseRows struct {
	Offsets []int // len = rows+1
	Indices []int
}

// NewSparseRows compresses rows of column indices. Duplicates within a row
// are dropped and each row is sorted.
func NewSparseRows(rows [][]int, ncols int) (sr SparseRows) {
	var (
		nr  = len(rows)
		dok = sparse.NewDOK(max(nr, 1), max(ncols, 1))
	)
	for i, row := range rows {
		for _, j := range row {
			dok.Set(i, j, 1)
		}
	}
	raw := dok.ToCSR().RawMatrix()
	sr.Offsets = make([]int, nr+1)
	copy(sr.Offsets, raw.Indptr[:nr+1])
	sr.Indices = make([]int, len(raw.Ind))
	copy(sr.Indices, raw.Ind)
	for i := 0; i < nr; i++ {
		sort.Ints(sr.Indices[sr.Offsets[i]:sr.Offsets[i+1]])
	}
	return
}

func (sr SparseRows) NumRows() int { return len(sr.Offsets) - 1 }

func (sr SparseRows) Row(i int) []int {
	return sr.Indices[sr.Offsets[i]:sr.Offsets[i+1]]
}

// Encode renders the table as two space separated integer lists.
func (sr SparseRows) Encode() (offsets, indices string) {
	return joinInts(sr.Offsets), joinInts(sr.Indices)
}

// DecodeSparseRows parses the output of Encode.
func DecodeSparseRows(offsets, indices string) (sr SparseRows, err error) {
	if sr.Offsets, err = splitInts(offsets); err != nil {
		return
	}
	if sr.Indices, err = splitInts(indices); err != nil {
		return
	}
	if len(sr.Offsets) == 0 || sr.Offsets[len(sr.Offsets)-1] != len(sr.Indices) {
		err = fmt.Errorf("%w: sparse offsets do not cover %d indices", ErrValidation, len(sr.Indices))
	}
	return
}

func joinInts(vals []int) string {
	var sb strings.Builder
	for i, v := range vals {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.Itoa(v))
	}
	return sb.String()
}

func splitInts(s string) (vals []int, err error) {
	for _, f := range strings.Fields(s) {
		var v int
		if v, err = strconv.Atoi(f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		vals = append(vals, v)
	}
	return
}
