// Package adjacency finds the faces shared between elements of a topology
// and the external faces on its boundary.
package adjacency

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/octree"
	"github.com/notargets/gomesh/utils"
)

// DefaultDepth is the octree depth used when Options.Depth is zero.
const DefaultDepth = 3

// Options controls which topologies are processed and how the work is split.
type Options struct {
	// Accept selects topologies, VolumeTopologies when nil.
	Accept func(t *dataset.Topology) bool
	// Depth of the octree whose leaves are the units of work, DefaultDepth
	// when zero, a single leaf when negative.
	Depth int
	// MaxProcs bounds the worker count, runtime.NumCPU when zero.
	MaxProcs int
	// Threshold is the leaf count below which a single worker is used.
	Threshold int
	Logger    *utils.Logger
	Progress  *utils.Progress
}

func (o Options) depth() int {
	switch {
	case o.Depth == 0:
		return DefaultDepth
	case o.Depth < 0:
		return 0
	}
	return o.Depth
}

// VolumeTopologies accepts spatial topologies of dimension 3 or more.
func VolumeTopologies(t *dataset.Topology) bool {
	return t.Spatial() && t.Type().Dim() >= 3
}

// Result summarises the face tables computed for one topology.
type Result struct {
	Topology string
	// External holds the elements with at least one external face.
	External         *roaring.Bitmap
	NumExternalFaces int
	NumSharedFaces   int
}

func (r Result) String() string {
	return fmt.Sprintf("%s: %d shared faces, %d external faces on %d elements",
		r.Topology, r.NumSharedFaces, r.NumExternalFaces, r.External.GetCardinality())
}

// pair is one matched face: face fa of element ea is face fb of element eb.
type pair struct {
	ea, fa, eb, fb int
}

// Compute runs ComputeTopology over every accepted topology of ds. It
// returns ErrNoData when no topology is accepted.
func Compute(ctx context.Context, ds *dataset.Dataset, opts Options) (results []Result, err error) {
	accept := opts.Accept
	if accept == nil {
		accept = VolumeTopologies
	}
	for _, t := range ds.Topologies() {
		if !accept(t) {
			continue
		}
		var res Result
		if res, err = ComputeTopology(ctx, ds.Nodes, t, opts); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if len(results) == 0 {
		err = fmt.Errorf("%w: no topology of %q accepted for face adjacency", utils.ErrNoData, ds.Name)
	}
	return
}

// ComputeTopology matches the faces of topo leaf by leaf of its octree and
// stores the adjacency and external tables on it with SetFaceTables.
//
// Every element is registered in the leaf of each of its nodes, so two
// elements sharing a face meet in at least one leaf. A face is external
// unless some leaf pairs it, which makes the result independent of the order
// in which leaves are processed.
func ComputeTopology(ctx context.Context, nodes *utils.Matrix[float64], topo *dataset.Topology,
	opts Options) (res Result, err error) {
	var (
		log    = opts.Logger.OrNoop().WithTopology(topo.Name())
		et     = topo.Type()
		nf     = et.NumFaces()
		leaves []octree.NodeID
	)
	oc, err := topo.Octree(nodes, opts.depth())
	if err != nil {
		return
	}
	for _, l := range oc.Leaves() {
		if len(oc.LeafData(l)) != 0 {
			leaves = append(leaves, l)
		}
	}
	if !topo.IsShared() {
		topo.SetShared()
		defer topo.SetExclusive()
	}
	if !nodes.IsShared() {
		nodes.SetShared()
		defer nodes.SetExclusive()
	}
	np := utils.ChooseProcCount(len(leaves), 0, opts.Threshold, opts.MaxProcs)
	log.Debug("face adjacency", "elements", topo.NumElems(), "faces", nf,
		"leaves", len(leaves), "procs", np)
	opts.Progress.AddTotal(len(leaves))

	found, err := utils.RunProcesses(ctx, np, len(leaves), opts.Progress,
		func(p *utils.Process) (pairs []pair, err error) {
			for _, l := range leaves[p.Start:p.End] {
				if err = ctx.Err(); err != nil {
					return
				}
				pairs = matchLeaf(topo, oc.LeafData(l), pairs)
				p.Step(1)
			}
			return
		})
	if err != nil {
		return
	}

	adj := utils.NewMatrix[int](topo.Name()+"_adj", utils.IndexKind, 2*nf, topo.NumElems())
	adj.Fill(-1)
	ext := utils.NewMatrix[int](topo.Name()+"_ext", utils.IndexKind, nf, topo.NumElems())
	ext.Fill(1)
	for _, pairs := range found {
		for _, pr := range pairs {
			adj.Set(pr.ea, pr.fa, pr.eb)
			adj.Set(pr.ea, nf+pr.fa, pr.fb)
			adj.Set(pr.eb, pr.fb, pr.ea)
			adj.Set(pr.eb, nf+pr.fb, pr.fa)
			ext.Set(pr.ea, pr.fa, 0)
			ext.Set(pr.eb, pr.fb, 0)
		}
	}
	if err = topo.SetFaceTables(adj, ext); err != nil {
		return
	}

	res = Result{Topology: topo.Name(), External: roaring.New()}
	for e := 0; e < topo.NumElems(); e++ {
		for f := 0; f < nf; f++ {
			if ext.At(e, f) != 0 {
				res.NumExternalFaces++
				res.External.Add(uint32(e))
			} else {
				res.NumSharedFaces++
			}
		}
	}
	res.NumSharedFaces /= 2
	log.Debug("face adjacency done", "shared", res.NumSharedFaces, "external", res.NumExternalFaces)
	return
}

// matchLeaf pairs equal faces among the distinct elements registered in one
// leaf, in ascending element order.
func matchLeaf(topo *dataset.Topology, leafData []int, pairs []pair) []pair {
	var (
		et    = topo.Type()
		elems = roaring.New()
		seen  = make(map[dataset.FaceKey]dataset.Face)
		buf   []int
	)
	for _, e := range leafData {
		elems.Add(uint32(e))
	}
	it := elems.Iterator()
	for it.HasNext() {
		var (
			e    = int(it.Next())
			elem = topo.Elem(e)
		)
		for fi, face := range et.Faces {
			buf = buf[:0]
			for _, n := range face.Nodes {
				buf = append(buf, elem[n])
			}
			far := -1
			if face.Far >= 0 {
				far = elem[face.Far]
			}
			f := dataset.NewFace(buf, e, fi, far)
			if other, ok := seen[f.Key]; ok {
				pairs = append(pairs, pair{ea: other.Elem, fa: other.Index, eb: e, fb: fi})
				delete(seen, f.Key)
				continue
			}
			seen[f.Key] = f
		}
	}
	return pairs
}
