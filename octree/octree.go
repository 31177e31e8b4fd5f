package octree

import (
	"fmt"

	"github.com/notargets/gomesh/geometry"
	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

/*
Octants are numbered from the signs of a point relative to the node center:

	0 = (-,-,-)  1 = (+,-,-)  2 = (-,+,-)  3 = (+,+,-)
	4 = (-,-,+)  5 = (+,-,+)  6 = (-,+,+)  7 = (+,+,+)

The root node has octant RootOctant.
*/
const (
	RootOctant = 8
	// MaxIDDepth is the deepest tree whose nodes have unique OctantIDs.
	MaxIDDepth = 16
	NoNode     = NodeID(-1)
)

type NodeID int

// EqualFunc compares an inserted point with a stored key. A nil EqualFunc
// means exact equality.
type EqualFunc func(a, b r3.Vec) bool

type node[V any] struct {
	depth    int // 0 for leaves
	octant   int
	parent   NodeID
	children [8]NodeID
	center   r3.Vec
	dim      r3.Vec // full extent of the node along each axis
	keys     []r3.Vec
	values   []V
	index    map[r3.Vec]int // key lookup when eq is nil
	leafData []int
}

// Octree maps points to values, spatially partitioned into 8^depth leaves.
// Nodes live in an arena; children and parents refer to each other by id.
// The structure is fixed at Build, only node contents grow afterwards.
type Octree[V any] struct {
	nodes  []node[V]
	leaves []NodeID
	eq     EqualFunc
}

func octantMul(octant int) (m r3.Vec) {
	if octant == RootOctant {
		return
	}
	m = r3.Vec{X: -1, Y: -1, Z: -1}
	if octant&1 != 0 {
		m.X = 1
	}
	if octant&2 != 0 {
		m.Y = 1
	}
	if octant&4 != 0 {
		m.Z = 1
	}
	return
}

// Build creates a full tree of the given depth covering the box of extent
// dim about center.
func Build[V any](depth int, dim, center r3.Vec, eq EqualFunc) (o *Octree[V], err error) {
	if depth < 0 {
		err = fmt.Errorf("%w: octree depth %d is negative", utils.ErrOctreeDepth, depth)
		return
	}
	o = &Octree[V]{eq: eq}
	o.grow(depth, dim, center, RootOctant, NoNode)
	return
}

func (o *Octree[V]) grow(depth int, dim, parentCenter r3.Vec, octant int, parent NodeID) (id NodeID) {
	id = NodeID(len(o.nodes))
	n := node[V]{
		depth:  depth,
		octant: octant,
		parent: parent,
		dim:    dim,
		center: r3.Add(parentCenter, r3.Scale(0.5, geometry.ElemMul(dim, octantMul(octant)))),
	}
	for i := range n.children {
		n.children[i] = NoNode
	}
	if o.eq == nil && depth == 0 {
		n.index = make(map[r3.Vec]int)
	}
	o.nodes = append(o.nodes, n)
	if depth == 0 {
		o.leaves = append(o.leaves, id)
		return
	}
	var (
		half   = r3.Scale(0.5, dim)
		center = o.nodes[id].center
	)
	for oc := 0; oc < 8; oc++ {
		child := o.grow(depth-1, half, center, oc, id)
		o.nodes[id].children[oc] = child
	}
	return
}

func (o *Octree[V]) Root() NodeID                 { return 0 }
func (o *Octree[V]) Depth() int                   { return o.nodes[0].depth }
func (o *Octree[V]) Len() int                     { return len(o.nodes) }
func (o *Octree[V]) IsLeaf(id NodeID) bool        { return o.nodes[id].depth == 0 }
func (o *Octree[V]) Octant(id NodeID) int         { return o.nodes[id].octant }
func (o *Octree[V]) Parent(id NodeID) NodeID      { return o.nodes[id].parent }
func (o *Octree[V]) Center(id NodeID) r3.Vec      { return o.nodes[id].center }
func (o *Octree[V]) Dimension(id NodeID) r3.Vec   { return o.nodes[id].dim }
func (o *Octree[V]) Children(id NodeID) [8]NodeID { return o.nodes[id].children }

func (o *Octree[V]) Box(id NodeID) geometry.BoundBox {
	return geometry.BoxAround(o.nodes[id].center, o.nodes[id].dim)
}

// Leaves returns the leaf ids in depth-first order, not spatial order.
func (o *Octree[V]) Leaves() []NodeID { return o.leaves }

// OctantID is a compact path id, the parent's id shifted by 4 bits with the
// octant in the low bits.
func (o *Octree[V]) OctantID(id NodeID) (oid uint64, err error) {
	if o.Depth() > MaxIDDepth {
		err = fmt.Errorf("%w: cannot create unique ids for an octree of depth %d",
			utils.ErrOctreeDepth, o.Depth())
		return
	}
	var path []int
	for ; id != NoNode; id = o.nodes[id].parent {
		path = append(path, o.nodes[id].octant)
	}
	for i := len(path) - 1; i >= 0; i-- {
		oid = oid<<4 | uint64(path[i])
	}
	return
}

func (o *Octree[V]) octantOf(id NodeID, p r3.Vec) (octant int) {
	d := r3.Sub(p, o.nodes[id].center)
	if d.Z >= 0 {
		octant += 4
	}
	if d.Y >= 0 {
		octant += 2
	}
	if d.X >= 0 {
		octant++
	}
	return
}

// Leaf finds the leaf whose box holds p. ok is false if p lies outside the
// root box.
func (o *Octree[V]) Leaf(p r3.Vec) (id NodeID, ok bool) {
	if !o.Box(0).Contains(p) {
		return NoNode, false
	}
	for id = 0; o.nodes[id].depth != 0; {
		id = o.nodes[id].children[o.octantOf(id, p)]
	}
	return id, true
}

func (o *Octree[V]) find(leaf NodeID, p r3.Vec) (i int, ok bool) {
	n := &o.nodes[leaf]
	if n.index != nil {
		i, ok = n.index[p]
		return
	}
	for i = range n.keys {
		if o.eq(p, n.keys[i]) {
			return i, true
		}
	}
	return -1, false
}

// Insert stores value for p unless an equal key is already in p's leaf, in
// which case the stored pair is returned unchanged. ok is false if p lies
// outside the tree.
func (o *Octree[V]) Insert(p r3.Vec, value V) (key r3.Vec, stored V, leaf NodeID, ok bool) {
	if leaf, ok = o.Leaf(p); !ok {
		return
	}
	n := &o.nodes[leaf]
	if i, found := o.find(leaf, p); found {
		return n.keys[i], n.values[i], leaf, true
	}
	if n.index != nil {
		n.index[p] = len(n.keys)
	}
	n.keys = append(n.keys, p)
	n.values = append(n.values, value)
	return p, value, leaf, true
}

// Get returns the value stored for the key equal to p.
func (o *Octree[V]) Get(p r3.Vec) (value V, ok bool) {
	leaf, in := o.Leaf(p)
	if !in {
		return
	}
	var i int
	if i, ok = o.find(leaf, p); ok {
		value = o.nodes[leaf].values[i]
	}
	return
}

// AddLeafData appends token to the leaf holding p, with no identity check.
func (o *Octree[V]) AddLeafData(p r3.Vec, token int) (ok bool) {
	var leaf NodeID
	if leaf, ok = o.Leaf(p); ok {
		o.nodes[leaf].leafData = append(o.nodes[leaf].leafData, token)
	}
	return
}

func (o *Octree[V]) LeafData(id NodeID) []int { return o.nodes[id].leafData }

// Contents returns the keys and values stored in a leaf, in insertion order.
func (o *Octree[V]) Contents(id NodeID) ([]r3.Vec, []V) {
	return o.nodes[id].keys, o.nodes[id].values
}

// NumNodes is the number of keys stored in the whole tree.
func (o *Octree[V]) NumNodes() (n int) {
	for _, l := range o.leaves {
		n += len(o.nodes[l].keys)
	}
	return
}

// IntersectsPlane is true when the node box has corners on both sides of the plane.
func (o *Octree[V]) IntersectsPlane(id NodeID, planePt, planeNorm r3.Vec) bool {
	return o.Box(id).PlaneIntersects(planePt, planeNorm)
}

// LeavesIntersectingPlane returns, depth first, the leaves straddling the plane.
func (o *Octree[V]) LeavesIntersectingPlane(planePt, planeNorm r3.Vec) (leaves []NodeID) {
	var walk func(id NodeID)
	walk = func(id NodeID) {
		if !o.IntersectsPlane(id, planePt, planeNorm) {
			return
		}
		if o.IsLeaf(id) {
			leaves = append(leaves, id)
			return
		}
		for _, c := range o.nodes[id].children {
			walk(c)
		}
	}
	walk(0)
	return
}

// Merge adds the keys of other, which must have the same structure, leaf by
// leaf. New keys are stored with init(); merge then combines the stored value
// with other's value and returns the result to keep.
func (o *Octree[V]) Merge(other *Octree[V], init func() V, merge func(stored, incoming V) V) {
	if len(other.leaves) != len(o.leaves) {
		panic(fmt.Sprintf("merging octree with %d leaves into one with %d", len(other.leaves), len(o.leaves)))
	}
	for li, l2 := range other.leaves {
		l1 := o.leaves[li]
		keys, vals := other.Contents(l2)
		for k, p := range keys {
			i, found := o.find(l1, p)
			n := &o.nodes[l1]
			if !found {
				i = len(n.keys)
				if n.index != nil {
					n.index[p] = i
				}
				n.keys = append(n.keys, p)
				n.values = append(n.values, init())
			}
			n.values[i] = merge(n.values[i], vals[k])
		}
	}
}
