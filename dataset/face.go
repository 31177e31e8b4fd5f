package dataset

import (
	"fmt"
	"sort"
)

// MaxFaceNodes bounds the node count of a face key.
const MaxFaceNodes = 16

// FaceKey is the sorted tuple of a face's node indices. Two faces sharing
// their nodes have equal keys whatever their winding.
type FaceKey struct {
	n     int
	nodes [MaxFaceNodes]int
}

func (k FaceKey) Len() int       { return k.n }
func (k FaceKey) Nodes() []int   { return append([]int(nil), k.nodes[:k.n]...) }
func (k FaceKey) String() string { return fmt.Sprint(k.nodes[:k.n]) }

// Face identifies the face Index of element Elem. Far is the node opposite
// the face, -1 if there is none. Only Key takes part in equality.
type Face struct {
	Key   FaceKey
	Elem  int
	Index int
	Far   int
}

// NewFace builds the face over the given node indices.
func NewFace(nodes []int, elem, index, far int) (f Face) {
	if len(nodes) > MaxFaceNodes {
		panic(fmt.Sprintf("face of %d nodes exceeds %d", len(nodes), MaxFaceNodes))
	}
	f = Face{Elem: elem, Index: index, Far: far}
	f.Key.n = len(nodes)
	copy(f.Key.nodes[:], nodes)
	sort.Ints(f.Key.nodes[:f.Key.n])
	return
}

func (f Face) Equal(o Face) bool { return f.Key == o.Key }
