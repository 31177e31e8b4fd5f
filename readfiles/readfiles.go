package readfiles

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/elemtype"
	"github.com/notargets/gomesh/utils"
)

// ReadMeshFile imports a mesh file into a Dataset named after the file,
// choosing the reader from the extension: .msh (Gmsh 2.2 ASCII), .neu
// (Gambit neutral), .su2 or .stl.
func ReadMeshFile(path string, log *utils.Logger) (ds *dataset.Dataset, err error) {
	var (
		file *os.File
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	)
	log = log.OrNoop()
	if file, err = os.Open(path); err != nil {
		return
	}
	defer file.Close()
	log.Info("reading mesh file", "path", path)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".msh":
		ds, err = ReadGmsh(file, name, log)
	case ".neu":
		ds, err = ReadGambit(file, name, log)
	case ".su2":
		ds, err = ReadSU2(file, name, log)
	case ".stl":
		ds, err = ReadSTL(file, name)
	default:
		err = fmt.Errorf("%w: unknown mesh file extension %q", utils.ErrValidation, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	log.Info("read mesh file", "dataset", ds.Name, "nodes", ds.NumNodes(),
		"topologies", len(ds.Topologies()))
	return
}

// lineReader reads trimmed lines, counting them for error messages.
type lineReader struct {
	sc   *bufio.Scanner
	line int
	// comment marks lines to skip, "" for none
	comment string
}

func newLineReader(r io.Reader, comment string) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &lineReader{sc: sc, comment: comment}
}

// next returns the next non blank line, false at end of input.
func (lr *lineReader) next() (line string, ok bool) {
	for lr.sc.Scan() {
		lr.line++
		line = strings.TrimSpace(lr.sc.Text())
		if line == "" || (lr.comment != "" && strings.HasPrefix(line, lr.comment)) {
			continue
		}
		return line, true
	}
	return "", false
}

// must returns the next line or an unexpected end error.
func (lr *lineReader) must(what string) (line string, err error) {
	var ok bool
	if line, ok = lr.next(); !ok {
		if err = lr.sc.Err(); err == nil {
			err = lr.errorf("unexpected end of file reading %s", what)
		}
	}
	return
}

func (lr *lineReader) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", utils.ErrValidation, lr.line, fmt.Sprintf(format, args...))
}

func (lr *lineReader) atoi(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, lr.errorf("bad integer %q", s)
	}
	return v, nil
}

func (lr *lineReader) ints(fields []string) (vals []int, err error) {
	vals = make([]int, len(fields))
	for i, f := range fields {
		if vals[i], err = lr.atoi(f); err != nil {
			return
		}
	}
	return
}

func (lr *lineReader) floats(fields []string) (vals []float64, err error) {
	vals = make([]float64, len(fields))
	for i, f := range fields {
		if vals[i], err = strconv.ParseFloat(f, 64); err != nil {
			return nil, lr.errorf("bad number %q", f)
		}
	}
	return
}

// TopologyName is the name readers give the topology of an element type:
// the plural of its geometry, with the order appended above 1 (tris, tets2).
func TopologyName(et *elemtype.ElemType) string {
	name := strings.ToLower(et.Geom.String()) + "s"
	switch et.Geom {
	case elemtype.Hex:
		name = "hexes"
	case elemtype.Tri:
		name = "tris"
	}
	if et.Order > 1 {
		name += strconv.Itoa(et.Order)
	}
	return name
}

// builder collects nodes and elements keyed by file ids, in the order
// element types are first seen.
type builder struct {
	name  string
	nodes *utils.Matrix[float64]
	ids   map[int]int // file node id to row
	topos []*topoBuf
	byET  map[string]*topoBuf
	// tag names the per element field holding each element's tag
	tag string
	// meta is copied onto the node matrix
	meta map[string]string
}

type topoBuf struct {
	et   *elemtype.ElemType
	data *utils.Matrix[int]
	tags []float64
}

func newBuilder(name, tag string) *builder {
	return &builder{
		name:  name,
		nodes: utils.NewMatrix[float64]("nodes", utils.Vec3Kind, 3),
		ids:   make(map[int]int),
		byET:  make(map[string]*topoBuf),
		tag:   tag,
		meta:  make(map[string]string),
	}
}

func (b *builder) addNode(id int, x, y, z float64) error {
	if _, dup := b.ids[id]; dup {
		return fmt.Errorf("%w: duplicate node id %d", utils.ErrValidation, id)
	}
	b.ids[id] = b.nodes.Rows()
	return b.nodes.Append(x, y, z)
}

// elemRef locates an element added to the builder.
type elemRef struct {
	tb  *topoBuf
	row int
}

// addElem appends an element given as file node ids, reordered so that
// entry k of the stored row is ids[perm[k]].
func (b *builder) addElem(etName string, ids, perm []int, tag int) (ref elemRef, err error) {
	tb, ok := b.byET[etName]
	if !ok {
		tb = &topoBuf{et: elemtype.MustLookup(etName)}
		tb.data = utils.NewMatrix[int](TopologyName(tb.et), utils.IndexKind, tb.et.NumNodes())
		b.byET[etName] = tb
		b.topos = append(b.topos, tb)
	}
	if len(ids) != tb.et.NumNodes() {
		err = &utils.LengthMismatchError{Name: etName, What: "element nodes",
			Expected: tb.et.NumNodes(), Actual: len(ids)}
		return
	}
	row := make([]int, len(ids))
	for k := range row {
		src := k
		if perm != nil {
			src = perm[k]
		}
		var found bool
		if row[k], found = b.ids[ids[src]]; !found {
			err = fmt.Errorf("%w: element references unknown node %d", utils.ErrValidation, ids[src])
			return
		}
	}
	ref = elemRef{tb: tb, row: len(tb.tags)}
	tb.tags = append(tb.tags, float64(tag))
	err = tb.data.Append(row...)
	return
}

// dataset assembles the collected tables and validates them.
func (b *builder) dataset() (ds *dataset.Dataset, err error) {
	if utils.IsNan(b.nodes) {
		return nil, fmt.Errorf("%w: %s has NaN node coordinates", utils.ErrValidation, b.name)
	}
	for k, v := range b.meta {
		b.nodes.SetMeta(k, v)
	}
	ds = dataset.NewDataset(b.name, b.nodes)
	for _, tb := range b.topos {
		var t *dataset.Topology
		if t, err = ds.SetTopology(tb.data, tb.et.Name, true); err != nil {
			return nil, err
		}
		if b.tag == "" {
			continue
		}
		f := utils.NewRealMatrix(t.Name()+"_"+b.tag, utils.RealKind, 1)
		if err = f.Append(tb.tags...); err != nil {
			return nil, err
		}
		if err = ds.AddField(dataset.NewField(f, t.Name(), "", true)); err != nil {
			return nil, err
		}
	}
	if err = ds.Validate(); err != nil {
		return nil, err
	}
	return
}
