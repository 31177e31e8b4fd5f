package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Matrix file layout:
//
//	name
//	kind            (index, real, vec3 or color)
//	element type
//	rows cols
//	key = value     (zero or more, ended by the first line without '=')
//	v v v ...       (one line per row)
//
// Paths ending in ".zst" are zstd compressed.

func isCompressed(path string) bool { return strings.HasSuffix(path, ".zst") }

// StoreMatrixFile writes m to path.
func StoreMatrixFile[T Element](m *Matrix[T], path string) (err error) {
	var (
		f *os.File
		w io.Writer
	)
	if f, err = os.Create(path); err != nil {
		return
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w = f
	if isCompressed(path) {
		var enc *zstd.Encoder
		if enc, err = zstd.NewWriter(f); err != nil {
			return
		}
		defer func() {
			if cerr := enc.Close(); err == nil {
				err = cerr
			}
		}()
		w = enc
	}
	return WriteMatrix(w, m)
}

// WriteMatrix writes m to w in the matrix file layout.
func WriteMatrix[T Element](w io.Writer, m *Matrix[T]) (err error) {
	var (
		bw     = bufio.NewWriter(w)
		nr, nc = m.Dims()
	)
	fmt.Fprintf(bw, "%s\n%s\n%s\n%d %d\n", m.Name(), m.Kind(), m.ElemType(), nr, nc)
	for _, key := range m.MetaKeys() {
		val, _ := m.Meta(key)
		if strings.ContainsAny(key, "=\n") || strings.Contains(val, "\n") {
			return fmt.Errorf("%w: metadata %q of %q cannot be stored", ErrValidation, key, m.Name())
		}
		fmt.Fprintf(bw, "%s = %s\n", key, val)
	}
	buf := make([]byte, 0, 32)
	for i := 0; i < nr; i++ {
		for j, v := range m.RowView(i) {
			if j > 0 {
				bw.WriteByte(' ')
			}
			buf = appendValue(buf[:0], v)
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

func appendValue[T Element](buf []byte, v T) []byte {
	switch x := any(v).(type) {
	case int:
		return strconv.AppendInt(buf, int64(x), 10)
	case float64:
		return strconv.AppendFloat(buf, x, 'g', -1, 64)
	default:
		return strconv.AppendFloat(buf, float64(v), 'g', -1, 64)
	}
}

func parseValue[T Element](s string) (v T, err error) {
	var zero T
	switch any(zero).(type) {
	case int:
		var i int
		i, err = strconv.Atoi(s)
		v = T(i)
	default:
		var f float64
		f, err = strconv.ParseFloat(s, 64)
		v = T(f)
	}
	return
}

// ReadMatrixFile reads a matrix stored by StoreMatrixFile.
func ReadMatrixFile[T Element](path string) (m *Matrix[T], err error) {
	var (
		f *os.File
		r io.Reader
	)
	if f, err = os.Open(path); err != nil {
		return
	}
	defer f.Close()
	r = f
	if isCompressed(path) {
		var dec *zstd.Decoder
		if dec, err = zstd.NewReader(f); err != nil {
			return
		}
		defer dec.Close()
		r = dec
	}
	return ReadMatrix[T](r)
}

// ReadMatrix parses the matrix file layout from r.
func ReadMatrix[T Element](r io.Reader) (m *Matrix[T], err error) {
	var (
		scanner        = bufio.NewScanner(r)
		header         [4]string
		nr, nc         int
		kind           MatrixKind
		line           string
		haveLine       bool
		isIndex, isInt bool
	)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)
	for i := range header {
		if !scanner.Scan() {
			return nil, fmt.Errorf("%w: matrix header truncated at line %d", ErrValidation, i+1)
		}
		header[i] = scanner.Text()
	}
	if kind, err = ParseMatrixKind(strings.TrimSpace(header[1])); err != nil {
		return
	}
	var zero T
	_, isInt = any(zero).(int)
	isIndex = kind == IndexKind
	if isIndex != isInt {
		return nil, fmt.Errorf("%w: matrix %q of kind %v read into wrong value type", ErrValidation, header[0], kind)
	}
	if _, err = fmt.Sscanf(header[3], "%d %d", &nr, &nc); err != nil {
		return nil, fmt.Errorf("%w: bad dimension line %q: %v", ErrValidation, header[3], err)
	}
	if nc <= 0 || nc%kind.width() != 0 || nr < 0 {
		return nil, fmt.Errorf("%w: bad dimensions %d×%d for kind %v", ErrValidation, nr, nc, kind)
	}
	m = NewMatrix[T](header[0], kind, nc)
	m.SetElemType(header[2])
	m.data = make([]T, 0, nr*nc)
	for scanner.Scan() {
		line = scanner.Text()
		key, val, found := strings.Cut(line, "=")
		if !found {
			haveLine = true
			break
		}
		// only the padding written around '=' is dropped
		m.SetMeta(strings.TrimSuffix(key, " "), strings.TrimPrefix(val, " "))
	}
	for row := 0; row < nr; row++ {
		if !haveLine {
			if !scanner.Scan() {
				return nil, &LengthMismatchError{Name: m.name, What: "matrix rows", Expected: nr, Actual: row}
			}
			line = scanner.Text()
		}
		haveLine = false
		fields := strings.Fields(line)
		if len(fields) != nc {
			return nil, fmt.Errorf("%w: row %d of %q has %d values, need %d", ErrValidation, row, m.name, len(fields), nc)
		}
		for _, s := range fields {
			var v T
			if v, err = parseValue[T](s); err != nil {
				return nil, fmt.Errorf("%w: row %d of %q: %v", ErrValidation, row, m.name, err)
			}
			m.data = append(m.data, v)
		}
	}
	if err = scanner.Err(); err != nil {
		return nil, err
	}
	return
}
