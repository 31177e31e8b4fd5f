package readfiles

import (
	"fmt"
	"io"
	"strings"

	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/elemtype"
	"github.com/notargets/gomesh/utils"
)

// From here: https://su2code.github.io/docs_v7/Mesh-File/
var su2Types = map[int]gmshType{
	3:  {"Line1NL", nil},
	5:  {"Tri1NL", nil},
	9:  {"Quad1NL", []int{0, 1, 3, 2}},
	10: {"Tet1NL", nil},
	12: {"Hex1NL", []int{0, 1, 3, 2, 4, 5, 7, 6}},
}

// ReadSU2 reads a native SU2 mesh. Node ids are row numbers. Volume elements
// go to one topology per element type; each marker becomes a spatial
// topology named by its tag holding the marker's boundary elements.
func ReadSU2(r io.Reader, name string, log *utils.Logger) (ds *dataset.Dataset, err error) {
	var (
		lr      = newLineReader(r, "%")
		b       = newBuilder(name, "")
		dim     int
		raw     [][]int
		skipped int
	)
	log = log.OrNoop()
	if dim, err = lr.number("NDIME"); err != nil {
		return
	}
	if raw, err = readSU2Elems(lr, "NELEM"); err != nil {
		return
	}
	if err = readSU2Nodes(lr, b, dim); err != nil {
		return
	}
	for _, v := range raw {
		gt, known := su2Types[v[0]]
		if !known {
			skipped++
			continue
		}
		if _, err = b.addElem(gt.name, v[1:], gt.perm, 0); err != nil {
			return
		}
	}
	if skipped > 0 {
		log.Warn("skipped unsupported su2 elements", "count", skipped)
	}
	if ds, err = b.dataset(); err != nil {
		return
	}
	var nMark int
	if nMark, err = lr.number("NMARK"); err != nil {
		return
	}
	for m := 0; m < nMark; m++ {
		if err = readSU2Marker(lr, ds); err != nil {
			return nil, err
		}
	}
	err = ds.Validate()
	return
}

// token reads a "KEY= value" line and returns value.
func (lr *lineReader) token(key string) (val string, err error) {
	var line string
	if line, err = lr.must(key); err != nil {
		return
	}
	ind := strings.Index(line, "=")
	if ind < 0 || strings.TrimSpace(line[:ind]) != key {
		return "", lr.errorf("badly formed input line [%s], expected %s=", line, key)
	}
	val = strings.TrimSpace(line[ind+1:])
	return
}

func (lr *lineReader) number(key string) (num int, err error) {
	var tok string
	if tok, err = lr.token(key); err != nil {
		return
	}
	return lr.atoi(tok)
}

// readSU2Elems reads a counted block of "type n0 n1 ... [id]" records. The
// returned rows hold the type followed by the nodes.
func readSU2Elems(lr *lineReader, key string) (rows [][]int, err error) {
	var n int
	if n, err = lr.number(key); err != nil {
		return
	}
	rows = make([][]int, n)
	for i := range rows {
		var (
			line string
			v    []int
		)
		if line, err = lr.must(key); err != nil {
			return
		}
		if v, err = lr.ints(strings.Fields(line)); err != nil {
			return
		}
		if len(v) < 2 {
			return nil, lr.errorf("element needs a type and nodes")
		}
		if gt, known := su2Types[v[0]]; known {
			nn := elemtype.MustLookup(gt.name).NumNodes()
			if len(v) < 1+nn {
				return nil, lr.errorf("%s element needs %d nodes", gt.name, nn)
			}
			v = v[:1+nn]
		}
		rows[i] = v
	}
	return
}

func readSU2Nodes(lr *lineReader, b *builder, dim int) (err error) {
	var n int
	if n, err = lr.number("NPOIN"); err != nil {
		return
	}
	for i := 0; i < n; i++ {
		var (
			line string
			x    []float64
		)
		if line, err = lr.must("NPOIN"); err != nil {
			return
		}
		f := strings.Fields(line)
		if len(f) < dim {
			return lr.errorf("unable to read coordinates")
		}
		if x, err = lr.floats(f[:dim]); err != nil {
			return
		}
		x = append(x, 0)
		if err = b.addNode(i, x[0], x[1], x[2]); err != nil {
			return
		}
	}
	return
}

func readSU2Marker(lr *lineReader, ds *dataset.Dataset) (err error) {
	var (
		tag  string
		rows [][]int
		m    *utils.Matrix[int]
		et   string
	)
	if tag, err = lr.token("MARKER_TAG"); err != nil {
		return
	}
	if rows, err = readSU2Elems(lr, "MARKER_ELEMS"); err != nil {
		return
	}
	for _, v := range rows {
		gt, known := su2Types[v[0]]
		if !known {
			return fmt.Errorf("%w: marker %q element type %d", utils.ErrValidation, tag, v[0])
		}
		if m == nil {
			et = gt.name
			m = utils.NewMatrix[int](tag, utils.IndexKind, len(v)-1)
		} else if gt.name != et {
			return fmt.Errorf("%w: marker %q mixes %s and %s", utils.ErrValidation, tag, et, gt.name)
		}
		row := make([]int, len(v)-1)
		for k := range row {
			src := k
			if gt.perm != nil {
				src = gt.perm[k]
			}
			row[k] = v[1+src]
		}
		if err = m.Append(row...); err != nil {
			return
		}
	}
	if m == nil {
		return
	}
	_, err = ds.SetTopology(m, et, true)
	return
}
