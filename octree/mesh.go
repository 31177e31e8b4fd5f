package octree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/notargets/gomesh/geometry"
	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultMargin grows the mesh bound box so boundary nodes fall inside the root.
const DefaultMargin = 0.05

// Mesh is the element view FromMesh indexes.
type Mesh interface {
	NumNodes() int
	Node(i int) r3.Vec
	NumElems() int
	ElemNodes(e int) []int
}

// FromMesh builds a tree over the bound box of the mesh nodes grown by
// margin. Each element node is inserted mapped to the element first using
// it, and each element is appended to the leaf data of every leaf one of
// its nodes falls in, so an element may appear in several leaves.
func FromMesh(depth int, mesh Mesh, margin float64, eq EqualFunc) (o *Octree[int], err error) {
	pts := make([]r3.Vec, mesh.NumNodes())
	for i := range pts {
		pts[i] = mesh.Node(i)
	}
	var bb geometry.BoundBox
	if bb, err = geometry.NewBoundBox(pts); err != nil {
		return
	}
	if o, err = Build[int](depth, r3.Scale(1+margin, bb.Diagonal()), bb.Center(), eq); err != nil {
		return
	}
	for e := 0; e < mesh.NumElems(); e++ {
		for _, n := range mesh.ElemNodes(e) {
			_, _, leaf, ok := o.Insert(pts[n], e)
			if !ok {
				panic(fmt.Sprintf("mesh node %d at %v lies outside its own bound box", n, pts[n]))
			}
			o.nodes[leaf].leafData = append(o.nodes[leaf].leafData, e)
		}
	}
	return
}

// Descriptor serializes the depth, dimension and center of the tree.
func (o *Octree[V]) Descriptor() string {
	r := o.nodes[0]
	return strings.Join([]string{
		strconv.Itoa(r.depth),
		fmtFloat(r.dim.X), fmtFloat(r.dim.Y), fmtFloat(r.dim.Z),
		fmtFloat(r.center.X), fmtFloat(r.center.Y), fmtFloat(r.center.Z),
	}, " ")
}

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

// ParseDescriptor is the inverse of Descriptor.
func ParseDescriptor(desc string) (depth int, dim, center r3.Vec, err error) {
	fields := strings.Fields(desc)
	if len(fields) != 7 {
		err = fmt.Errorf("%w: octree descriptor %q needs 7 values", utils.ErrValidation, desc)
		return
	}
	if depth, err = strconv.Atoi(fields[0]); err != nil {
		err = fmt.Errorf("%w: octree depth: %v", utils.ErrValidation, err)
		return
	}
	var v [6]float64
	for i := range v {
		if v[i], err = strconv.ParseFloat(fields[i+1], 64); err != nil {
			err = fmt.Errorf("%w: octree descriptor: %v", utils.ErrValidation, err)
			return
		}
	}
	dim = r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	center = r3.Vec{X: v[3], Y: v[4], Z: v[5]}
	return
}

// LeafTable lists the distinct leaf data of each leaf, in depth-first leaf order.
func (o *Octree[V]) LeafTable(numTokens int) utils.SparseRows {
	rows := make([][]int, len(o.leaves))
	for i, l := range o.leaves {
		rows[i] = o.nodes[l].leafData
	}
	return utils.NewSparseRows(rows, numTokens)
}

// Restore rebuilds a tree from its descriptor and leaf table. Only the leaf
// data is restored; keys must be inserted again if needed.
func Restore(desc string, table utils.SparseRows, eq EqualFunc) (o *Octree[int], err error) {
	var (
		depth       int
		dim, center r3.Vec
	)
	if depth, dim, center, err = ParseDescriptor(desc); err != nil {
		return
	}
	if o, err = Build[int](depth, dim, center, eq); err != nil {
		return
	}
	if table.NumRows() != len(o.leaves) {
		err = &utils.LengthMismatchError{Name: "octree", What: "leaf table rows",
			Expected: len(o.leaves), Actual: table.NumRows()}
		o = nil
		return
	}
	for i, l := range o.leaves {
		o.nodes[l].leafData = append([]int(nil), table.Row(i)...)
	}
	return
}
