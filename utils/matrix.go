package utils

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"gonum.org/v1/gonum/mat"
)

// Element is the set of value types a Matrix can hold.
type Element interface {
	~int | ~float64
}

// MatrixKind tags what the columns of a Matrix mean.
type MatrixKind uint8

const (
	IndexKind MatrixKind = iota
	RealKind
	Vec3Kind
	ColorKind
)

var matrixKindNames = [...]string{"index", "real", "vec3", "color"}

func (k MatrixKind) String() string {
	if int(k) < len(matrixKindNames) {
		return matrixKindNames[k]
	}
	return fmt.Sprintf("MatrixKind(%d)", uint8(k))
}

// ParseMatrixKind is the inverse of MatrixKind.String.
func ParseMatrixKind(s string) (MatrixKind, error) {
	for i, name := range matrixKindNames {
		if name == s {
			return MatrixKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown matrix kind %q", ErrValidation, s)
}

// width is the number of columns one value of this kind occupies.
func (k MatrixKind) width() int {
	switch k {
	case Vec3Kind:
		return 3
	case ColorKind:
		return 4
	default:
		return 1
	}
}

// Matrix is a named, row-major table with a string metadata store.
//
// Once SetShared is called the matrix may be read from any number of
// goroutines; element writes panic and structural changes return
// ErrMatrixShared until SetExclusive is called.
type Matrix[T Element] struct {
	name     string
	kind     MatrixKind
	elemType string
	nc       int
	data     []T
	shared   atomic.Bool
	metaMu   sync.RWMutex
	meta     map[string]string
}

// NewMatrix allocates a matrix of nr zeroed rows of nc columns.
func NewMatrix[T Element](name string, kind MatrixKind, nc int, nr ...int) (m *Matrix[T]) {
	var rows int
	if len(nr) != 0 {
		rows = nr[0]
	}
	if nc <= 0 || nc%kind.width() != 0 {
		panic(fmt.Sprintf("matrix %q: %d columns invalid for kind %v", name, nc, kind))
	}
	m = &Matrix[T]{
		name: name,
		kind: kind,
		nc:   nc,
		data: make([]T, rows*nc),
		meta: make(map[string]string),
	}
	return
}

// NewIndexMatrix creates an index matrix from rows of equal length.
func NewIndexMatrix(name string, nc int, rows ...[]int) *Matrix[int] {
	m := NewMatrix[int](name, IndexKind, nc)
	for _, r := range rows {
		if err := m.Append(r...); err != nil {
			panic(err)
		}
	}
	return m
}

// NewRealMatrix creates a matrix of the given kind from rows of equal length.
func NewRealMatrix(name string, kind MatrixKind, nc int, rows ...[]float64) *Matrix[float64] {
	m := NewMatrix[float64](name, kind, nc)
	for _, r := range rows {
		if err := m.Append(r...); err != nil {
			panic(err)
		}
	}
	return m
}

func (m *Matrix[T]) Name() string           { return m.name }
func (m *Matrix[T]) SetName(name string)    { m.name = name }
func (m *Matrix[T]) Kind() MatrixKind       { return m.kind }
func (m *Matrix[T]) ElemType() string       { return m.elemType }
func (m *Matrix[T]) SetElemType(et string)  { m.elemType = et }
func (m *Matrix[T]) Cols() int              { return m.nc }
func (m *Matrix[T]) Rows() int              { return len(m.data) / m.nc }
func (m *Matrix[T]) Dims() (nr, nc int)     { return m.Rows(), m.nc }
func (m *Matrix[T]) IsShared() bool         { return m.shared.Load() }
func (m *Matrix[T]) At(i, j int) T          { return m.data[i*m.nc+j] }
func (m *Matrix[T]) Data() []T              { return m.data }
func (m *Matrix[T]) RowView(i int) []T      { return m.data[i*m.nc : (i+1)*m.nc : (i+1)*m.nc] }
func (m *Matrix[T]) Row(i int) (r []T)      { return append(r, m.RowView(i)...) }
func (m *Matrix[T]) String() string         { return fmt.Sprintf("%s<%v,%d×%d>", m.name, m.kind, m.Rows(), m.nc) }
func (m *Matrix[T]) checkStructural() error { return m.errIfShared("resize") }

// SetShared marks the matrix read-only for concurrent readers. Idempotent.
func (m *Matrix[T]) SetShared() *Matrix[T] {
	m.shared.Store(true)
	return m
}

// SetExclusive returns the matrix to single-owner mutation. Idempotent.
func (m *Matrix[T]) SetExclusive() *Matrix[T] {
	m.shared.Store(false)
	return m
}

func (m *Matrix[T]) errIfShared(op string) error {
	if m.shared.Load() {
		return fmt.Errorf("%w: cannot %s %q", ErrMatrixShared, op, m.name)
	}
	return nil
}

func (m *Matrix[T]) checkWritable() {
	if m.shared.Load() {
		panic(fmt.Errorf("attempt to write to a shared matrix named: %q", m.name))
	}
}

func (m *Matrix[T]) Set(i, j int, val T) {
	m.checkWritable()
	m.data[i*m.nc+j] = val
}

func (m *Matrix[T]) SetRow(i int, vals ...T) {
	m.checkWritable()
	if len(vals) != m.nc {
		panic(fmt.Sprintf("matrix %q: row of %d values, need %d", m.name, len(vals), m.nc))
	}
	copy(m.data[i*m.nc:], vals)
}

// Append adds one or more rows given as a flat list of values.
func (m *Matrix[T]) Append(vals ...T) error {
	if err := m.checkStructural(); err != nil {
		return err
	}
	if len(vals)%m.nc != 0 {
		return &LengthMismatchError{Name: m.name, What: "row values", Expected: m.nc, Actual: len(vals) % m.nc}
	}
	m.data = append(m.data, vals...)
	return nil
}

// AppendMatrix adds all rows of other, adding offset to every value.
func (m *Matrix[T]) AppendMatrix(other *Matrix[T], offset T) error {
	if err := m.checkStructural(); err != nil {
		return err
	}
	if other.nc != m.nc {
		return &LengthMismatchError{Name: other.name, What: "matrix columns", Expected: m.nc, Actual: other.nc}
	}
	start := len(m.data)
	m.data = append(m.data, other.data...)
	if offset != 0 {
		for i := start; i < len(m.data); i++ {
			m.data[i] += offset
		}
	}
	return nil
}

// Resize grows or shrinks the matrix to nr rows, zeroing new rows.
func (m *Matrix[T]) Resize(nr int) error {
	if err := m.checkStructural(); err != nil {
		return err
	}
	if n := nr * m.nc; n <= len(m.data) {
		m.data = m.data[:n]
	} else {
		m.data = append(m.data, make([]T, n-len(m.data))...)
	}
	return nil
}

// Clear removes all rows, keeping the metadata.
func (m *Matrix[T]) Clear() error {
	if err := m.checkStructural(); err != nil {
		return err
	}
	m.data = m.data[:0]
	return nil
}

// Fill sets every element to val.
func (m *Matrix[T]) Fill(val T) {
	m.checkWritable()
	for i := range m.data {
		m.data[i] = val
	}
}

// Clone deep copies values and metadata; the copy is exclusive.
func (m *Matrix[T]) Clone() (R *Matrix[T]) {
	R = NewMatrix[T](m.name, m.kind, m.nc)
	R.elemType = m.elemType
	R.data = append(R.data, m.data...)
	for k, v := range m.MetaMap() {
		R.meta[k] = v
	}
	return
}

// Equal compares shape, values, element type and metadata, ignoring the name.
func (m *Matrix[T]) Equal(o *Matrix[T]) bool {
	if m.kind != o.kind || m.nc != o.nc || m.elemType != o.elemType || len(m.data) != len(o.data) {
		return false
	}
	for i := range m.data {
		if m.data[i] != o.data[i] {
			return false
		}
	}
	mm, om := m.MetaMap(), o.MetaMap()
	if len(mm) != len(om) {
		return false
	}
	for k, v := range mm {
		if om[k] != v {
			return false
		}
	}
	return true
}

func (m *Matrix[T]) Meta(key string) (val string, ok bool) {
	m.metaMu.RLock()
	defer m.metaMu.RUnlock()
	val, ok = m.meta[key]
	return
}

// SetMeta is allowed on shared matrices so cached artifacts can be recorded.
func (m *Matrix[T]) SetMeta(key, val string) {
	m.metaMu.Lock()
	defer m.metaMu.Unlock()
	m.meta[key] = val
}

func (m *Matrix[T]) DeleteMeta(key string) {
	m.metaMu.Lock()
	defer m.metaMu.Unlock()
	delete(m.meta, key)
}

func (m *Matrix[T]) MetaKeys() (keys []string) {
	m.metaMu.RLock()
	defer m.metaMu.RUnlock()
	for k := range m.meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return
}

func (m *Matrix[T]) MetaMap() (mm map[string]string) {
	m.metaMu.RLock()
	defer m.metaMu.RUnlock()
	mm = make(map[string]string, len(m.meta))
	for k, v := range m.meta {
		mm[k] = v
	}
	return
}

// Dense returns a gonum view sharing storage with m. It is nil for empty matrices.
func Dense(m *Matrix[float64]) *mat.Dense {
	if m.Rows() == 0 {
		return nil
	}
	return mat.NewDense(m.Rows(), m.nc, m.data)
}

// ColumnRange returns the minimum and maximum of column j.
func ColumnRange[T Element](m *Matrix[T], j int) (lo, hi T, ok bool) {
	for i := 0; i < m.Rows(); i++ {
		v := m.At(i, j)
		if !ok || v < lo {
			lo = v
		}
		if !ok || v > hi {
			hi = v
		}
		ok = true
	}
	return
}
