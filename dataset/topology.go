package dataset

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/notargets/gomesh/elemtype"
	"github.com/notargets/gomesh/octree"
	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// Metadata keys stored on topology and field matrices.
const (
	MetaSpatial    = "spatial"
	MetaTopology   = "topology"
	MetaPerElem    = "perelem"
	MetaFaceTables = "facetables"
	metaOctree     = "octree"
)

// Topology is a table of node indices, one row per element of its type.
// It caches the derived octrees and face tables; Invalidate drops them after
// the indices change.
type Topology struct {
	*utils.Matrix[int]
	elemType *elemtype.ElemType

	mu       sync.Mutex
	octrees  map[int]*octree.Octree[int]
	adj, ext *utils.Matrix[int]
}

// NewTopology wraps data, which must have one column per control point of
// the element type. Field-only topologies set spatial false.
func NewTopology(data *utils.Matrix[int], elemTypeName string, spatial bool) (t *Topology, err error) {
	var et *elemtype.ElemType
	if et, err = elemtype.Lookup(elemTypeName); err != nil {
		return nil, fmt.Errorf("topology %q: %w", data.Name(), err)
	}
	if data.Cols() != et.NumNodes() {
		return nil, &utils.LengthMismatchError{Name: data.Name(), What: "topology columns",
			Expected: et.NumNodes(), Actual: data.Cols()}
	}
	data.SetElemType(elemTypeName)
	data.SetMeta(MetaSpatial, strconv.FormatBool(spatial))
	t = &Topology{Matrix: data, elemType: et}
	return
}

// TopologyFromMatrix rebuilds a topology from a matrix read back from file.
func TopologyFromMatrix(data *utils.Matrix[int]) (t *Topology, err error) {
	spatial := true
	if s, ok := data.Meta(MetaSpatial); ok {
		spatial, _ = strconv.ParseBool(s)
	}
	return NewTopology(data, data.ElemType(), spatial)
}

func (t *Topology) Type() *elemtype.ElemType { return t.elemType }
func (t *Topology) NumElems() int            { return t.Rows() }

// Spatial is false for topologies that only index field values.
func (t *Topology) Spatial() bool {
	s, _ := t.Meta(MetaSpatial)
	return s != "false"
}

// Elem returns the node indices of element e.
func (t *Topology) Elem(e int) []int { return t.RowView(e) }

// Invalidate drops every derived table after the indices are modified.
func (t *Topology) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.octrees = nil
	t.adj, t.ext = nil, nil
	for _, k := range t.MetaKeys() {
		if k == MetaFaceTables || strings.HasPrefix(k, metaOctree) {
			t.DeleteMeta(k)
		}
	}
}

// SetFaceTables caches the adjacency table (E × 2F, element ids then face
// ids, -1 for none) and external table (E × F, 1 for external faces).
func (t *Topology) SetFaceTables(adj, ext *utils.Matrix[int]) error {
	nf := t.elemType.NumFaces()
	switch {
	case adj.Rows() != t.Rows() || adj.Cols() != 2*nf:
		return &utils.LengthMismatchError{Name: t.Name(), What: "adjacency entries",
			Expected: t.Rows() * 2 * nf, Actual: adj.Rows() * adj.Cols()}
	case ext.Rows() != t.Rows() || ext.Cols() != nf:
		return &utils.LengthMismatchError{Name: t.Name(), What: "external entries",
			Expected: t.Rows() * nf, Actual: ext.Rows() * ext.Cols()}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.adj, t.ext = adj, ext
	t.SetMeta(MetaFaceTables, adj.Name()+" "+ext.Name())
	return nil
}

// FaceTables returns the cached tables, ok is false until they are set.
func (t *Topology) FaceTables() (adj, ext *utils.Matrix[int], ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.adj, t.ext, t.adj != nil
}

// IsExternal reports whether face f of element e has no neighbour. Faces are
// external until face tables say otherwise.
func (t *Topology) IsExternal(e, f int) bool {
	_, ext, ok := t.FaceTables()
	return !ok || ext.At(e, f) != 0
}

// Adjacent returns the element and face sharing face f of element e.
func (t *Topology) Adjacent(e, f int) (elem, face int, ok bool) {
	adj, _, has := t.FaceTables()
	if !has {
		return -1, -1, false
	}
	nf := t.elemType.NumFaces()
	elem, face = adj.At(e, f), adj.At(e, nf+f)
	return elem, face, elem >= 0
}

type meshView struct {
	nodes *utils.Matrix[float64]
	topo  *Topology
}

func (m meshView) NumNodes() int         { return m.nodes.Rows() }
func (m meshView) Node(i int) r3.Vec     { return NodePos(m.nodes, i) }
func (m meshView) NumElems() int         { return m.topo.Rows() }
func (m meshView) ElemNodes(e int) []int { return m.topo.RowView(e) }

// Octree returns the tree of the given depth over this topology's elements,
// building it on first use. The tree descriptor and leaf table are recorded
// in the topology metadata and reused when the topology is read back.
func (t *Topology) Octree(nodes *utils.Matrix[float64], depth int) (o *octree.Octree[int], err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if o = t.octrees[depth]; o != nil {
		return
	}
	var (
		key           = metaOctree + strconv.Itoa(depth)
		desc, hasDesc = t.Meta(key)
		off, hasOff   = t.Meta(key + "offsets")
		ind, hasInd   = t.Meta(key + "indices")
	)
	if hasDesc && hasOff && hasInd && desc != "" {
		var table utils.SparseRows
		if table, err = utils.DecodeSparseRows(off, ind); err == nil {
			o, err = octree.Restore(desc, table, nil)
		}
	}
	if o == nil || err != nil {
		if o, err = octree.FromMesh(depth, meshView{nodes: nodes, topo: t}, octree.DefaultMargin, nil); err != nil {
			return nil, fmt.Errorf("octree of topology %q: %w", t.Name(), err)
		}
		off, ind = o.LeafTable(t.Rows()).Encode()
		t.SetMeta(key, o.Descriptor())
		t.SetMeta(key+"offsets", off)
		t.SetMeta(key+"indices", ind)
	}
	if t.octrees == nil {
		t.octrees = make(map[int]*octree.Octree[int])
	}
	t.octrees[depth] = o
	return
}

// Clone deep copies the indices and metadata, dropping cached trees.
func (t *Topology) Clone() *Topology {
	c := &Topology{Matrix: t.Matrix.Clone(), elemType: t.elemType}
	if adj, ext, ok := t.FaceTables(); ok {
		c.adj, c.ext = adj.Clone(), ext.Clone()
	}
	return c
}
