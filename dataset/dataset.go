package dataset

import (
	"fmt"

	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// Dataset is a node table with named topologies and fields over it. It owns
// them exclusively. Names keep their insertion order.
type Dataset struct {
	Name     string
	Nodes    *utils.Matrix[float64] // x, y, z first, further columns free
	Timestep float64

	topos      []*Topology
	topoIndex  map[string]int
	fields     []*Field
	fieldIndex map[string]int
}

func NewDataset(name string, nodes *utils.Matrix[float64]) *Dataset {
	if nodes.Cols() < 3 {
		panic(fmt.Sprintf("dataset %q: node matrix needs 3 columns, has %d", name, nodes.Cols()))
	}
	return &Dataset{
		Name:       name,
		Nodes:      nodes,
		topoIndex:  make(map[string]int),
		fieldIndex: make(map[string]int),
	}
}

// NodePos is the position held in the first three columns of row i.
func NodePos(nodes *utils.Matrix[float64], i int) r3.Vec {
	r := nodes.RowView(i)
	return r3.Vec{X: r[0], Y: r[1], Z: r[2]}
}

func (ds *Dataset) Node(i int) r3.Vec { return NodePos(ds.Nodes, i) }
func (ds *Dataset) NumNodes() int     { return ds.Nodes.Rows() }

// Positions copies the node positions.
func (ds *Dataset) Positions() []r3.Vec {
	pts := make([]r3.Vec, ds.Nodes.Rows())
	for i := range pts {
		pts[i] = ds.Node(i)
	}
	return pts
}

// AddTopology adds t under its matrix name, which must be new.
func (ds *Dataset) AddTopology(t *Topology) error {
	if _, dup := ds.topoIndex[t.Name()]; dup {
		return fmt.Errorf("%w: dataset %q already has topology %q", utils.ErrValidation, ds.Name, t.Name())
	}
	ds.topoIndex[t.Name()] = len(ds.topos)
	ds.topos = append(ds.topos, t)
	return nil
}

// SetTopology builds a topology from an index matrix and adds it.
func (ds *Dataset) SetTopology(data *utils.Matrix[int], elemTypeName string, spatial bool) (t *Topology, err error) {
	if t, err = NewTopology(data, elemTypeName, spatial); err != nil {
		return
	}
	err = ds.AddTopology(t)
	return
}

func (ds *Dataset) Topology(name string) (t *Topology, ok bool) {
	var i int
	if i, ok = ds.topoIndex[name]; ok {
		t = ds.topos[i]
	}
	return
}

// TopologyIndex is the insertion position of a topology, -1 if absent.
func (ds *Dataset) TopologyIndex(name string) int {
	if i, ok := ds.topoIndex[name]; ok {
		return i
	}
	return -1
}

func (ds *Dataset) Topologies() []*Topology { return ds.topos }

// SpatialTopologies lists the topologies that position elements.
func (ds *Dataset) SpatialTopologies() (topos []*Topology) {
	for _, t := range ds.topos {
		if t.Spatial() {
			topos = append(topos, t)
		}
	}
	return
}

// MaxDim is the largest element dimension of any spatial topology.
func (ds *Dataset) MaxDim() (dim int) {
	for _, t := range ds.SpatialTopologies() {
		dim = max(dim, t.Type().Dim())
	}
	return
}

func (ds *Dataset) AddField(f *Field) error {
	if _, dup := ds.fieldIndex[f.Name()]; dup {
		return fmt.Errorf("%w: dataset %q already has field %q", utils.ErrValidation, ds.Name, f.Name())
	}
	ds.fieldIndex[f.Name()] = len(ds.fields)
	ds.fields = append(ds.fields, f)
	return nil
}

func (ds *Dataset) Field(name string) (f *Field, ok bool) {
	var i int
	if i, ok = ds.fieldIndex[name]; ok {
		f = ds.fields[i]
	}
	return
}

func (ds *Dataset) Fields() []*Field { return ds.fields }

// Validate checks every topology index addresses a node row and every field
// matches the length of what it is defined over.
func (ds *Dataset) Validate() (err error) {
	nn := ds.Nodes.Rows()
	for _, t := range ds.topos {
		if !t.Spatial() {
			// field-only topologies index field rows, checked below
			continue
		}
		for e := 0; e < t.Rows(); e++ {
			for _, n := range t.RowView(e) {
				if n < 0 || n >= nn {
					return &utils.IndexRangeError{Topology: t.Name(), Elem: e, Index: n, Limit: nn}
				}
			}
		}
	}
	for _, f := range ds.fields {
		spatial, ok := ds.Topology(f.SpatialTopology())
		if !ok {
			return fmt.Errorf("%w: field %q spatial topology %q not found",
				utils.ErrValidation, f.Name(), f.SpatialTopology())
		}
		ft, ok := ds.Topology(f.FieldTopology())
		if !ok {
			return fmt.Errorf("%w: field %q topology %q not found",
				utils.ErrValidation, f.Name(), f.FieldTopology())
		}
		if ft.Rows() != spatial.Rows() {
			return &utils.LengthMismatchError{Name: ft.Name(), What: "field topology elements",
				Expected: spatial.Rows(), Actual: ft.Rows()}
		}
		switch {
		case f.PerElem():
			if f.Rows() != ft.Rows() {
				return &utils.LengthMismatchError{Name: f.Name(), What: "per element field rows",
					Expected: ft.Rows(), Actual: f.Rows()}
			}
		case ft.Spatial():
			if f.Rows() != nn {
				return &utils.LengthMismatchError{Name: f.Name(), What: "per node field rows",
					Expected: nn, Actual: f.Rows()}
			}
		default:
			for e := 0; e < ft.Rows(); e++ {
				for _, n := range ft.RowView(e) {
					if n < 0 || n >= f.Rows() {
						return &utils.IndexRangeError{Topology: ft.Name(), Elem: e, Index: n, Limit: f.Rows()}
					}
				}
			}
		}
	}
	return
}

// Clone deep copies the dataset with the given name.
func (ds *Dataset) Clone(name string) (c *Dataset) {
	c = NewDataset(name, ds.Nodes.Clone())
	c.Timestep = ds.Timestep
	for _, t := range ds.topos {
		_ = c.AddTopology(t.Clone())
	}
	for _, f := range ds.fields {
		_ = c.AddField(f.Clone())
	}
	return
}

// SetShared marks every table read-only for the parallel phase of a generator.
func (ds *Dataset) SetShared() {
	ds.Nodes.SetShared()
	for _, t := range ds.topos {
		t.SetShared()
		if adj, ext, ok := t.FaceTables(); ok {
			adj.SetShared()
			ext.SetShared()
		}
	}
	for _, f := range ds.fields {
		f.SetShared()
	}
}

// SetExclusive reverses SetShared.
func (ds *Dataset) SetExclusive() {
	ds.Nodes.SetExclusive()
	for _, t := range ds.topos {
		t.SetExclusive()
		if adj, ext, ok := t.FaceTables(); ok {
			adj.SetExclusive()
			ext.SetExclusive()
		}
	}
	for _, f := range ds.fields {
		f.SetExclusive()
	}
}

func (ds *Dataset) String() string {
	return fmt.Sprintf("%s<%d nodes, %d topologies, %d fields>", ds.Name, ds.Nodes.Rows(), len(ds.topos), len(ds.fields))
}
