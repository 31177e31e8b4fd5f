package meshgen

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/utils"
)

// job is the work a generator does over one topology.
type job struct {
	topo  *dataset.Topology
	index int
	// elems are processed in order, split into contiguous ranges.
	elems []uint32
	// run fills out from the elements of one range.
	run func(p *utils.Process, elems []uint32, out *chunk) error
}

// generator drives jobs through the partition and merge protocol.
type generator struct {
	name  string
	prim  primitive
	value string // name of the per node value field, "" for none
	opts  Options
	log   *utils.Logger
}

func newGenerator(name string, prim primitive, opts Options) *generator {
	return &generator{
		name: name,
		prim: prim,
		opts: opts,
		log:  opts.Logger.OrNoop().WithGenerator(name),
	}
}

// allElems selects every element of t.
func allElems(t *dataset.Topology) *roaring.Bitmap {
	bm := roaring.New()
	bm.AddRange(0, uint64(t.NumElems()))
	return bm
}

// jobs pairs each accepted topology of ds with its element selection.
// Topologies whose selection is empty are skipped.
func (g *generator) jobs(ds *dataset.Dataset, accept func(t *dataset.Topology) bool,
	plan func(t *dataset.Topology) (*roaring.Bitmap, error),
	run func(t *dataset.Topology) func(p *utils.Process, elems []uint32, out *chunk) error) (jobs []job, err error) {
	var accepted int
	for i, t := range ds.Topologies() {
		if !accept(t) {
			continue
		}
		accepted++
		var elems *roaring.Bitmap
		if elems, err = plan(t); err != nil {
			return nil, err
		}
		g.log.Debug("topology selected", "topology", t.Name(), "type", t.Type(),
			"elements", elems.GetCardinality())
		if elems.IsEmpty() {
			continue
		}
		jobs = append(jobs, job{topo: t, index: i, elems: elems.ToArray(), run: run(t)})
	}
	if accepted == 0 {
		err = fmt.Errorf("%w: %s found no suitable topology in %q", utils.ErrNoData, g.name, ds.Name)
	}
	return
}

// run processes every job and merges the chunks in topology order, then
// chunk order. ds is read only for the duration.
func (g *generator) run(ctx context.Context, ds *dataset.Dataset, jobs []job) (res *Result, err error) {
	if !ds.Nodes.IsShared() {
		ds.SetShared()
		defer ds.SetExclusive()
	}
	out := newChunk(g.prim, -1)
	for _, j := range jobs {
		var (
			n  = len(j.elems)
			np = utils.ChooseProcCount(n, g.opts.Refine, g.opts.Threshold, g.opts.MaxProcs)
		)
		g.log.Debug("generating", "topology", j.topo.Name(), "elements", n, "procs", np)
		g.opts.Progress.AddTotal(n)
		var parts []*chunk
		parts, err = utils.RunProcesses(ctx, np, n, g.opts.Progress,
			func(p *utils.Process) (c *chunk, err error) {
				c = newChunk(g.prim, j.index)
				err = j.run(p, j.elems[p.Start:p.End], c)
				return
			})
		if err != nil {
			return nil, fmt.Errorf("%s: topology %q: %w", g.name, j.topo.Name(), err)
		}
		for _, c := range parts {
			if err = out.merge(c); err != nil {
				return
			}
		}
	}
	if out.prims.Rows() == 0 {
		return nil, fmt.Errorf("%w: %s produced no primitives from %q", utils.ErrNoData, g.name, ds.Name)
	}
	if res, err = out.result(ds.Name+"_"+g.name, g.prim, g.value); err != nil {
		return
	}
	res.Timestep, res.generator = ds.Timestep, g.name
	g.log.Debug("merged", "nodes", res.NumNodes(), "primitives", out.prims.Rows(),
		"external", len(out.external))
	return
}

// each calls fn for every element, stopping at cancellation.
func each(ctx context.Context, p *utils.Process, elems []uint32, fn func(e int) error) (err error) {
	for _, e := range elems {
		if err = ctx.Err(); err != nil {
			return
		}
		if err = fn(int(e)); err != nil {
			return
		}
		p.Step(1)
	}
	return
}
