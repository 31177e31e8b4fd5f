package meshgen

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// Columns of the generated node table: position, normal, then the xi of the
// source element the node was sampled at.
const (
	NodeCols = 9
	colNorm  = 3
	colXi    = 6
)

// Columns of the properties table, one row per generated node.
const (
	PropElem = iota // source element, or source node for glyphs
	PropFace        // source face or edge, -1 when not on one
	PropTopo        // index of the source topology in its dataset
	PropCols
)

// primitive is the element kind a generator emits.
type primitive struct {
	topo     string
	elemType string
	nc       int
}

var (
	triangles = primitive{"tris", "Tri1NL", 3}
	segments  = primitive{"lines", "Line1NL", 2}
	points    = primitive{"points", "Point1NL", 1}
)

// Result is a generated dataset with a single primitive topology.
type Result struct {
	*dataset.Dataset
	// Props maps each node back to what produced it.
	Props *utils.Matrix[int]
	// External holds the primitives generated from external faces.
	External *roaring.Bitmap

	topo      string
	generator string
}

// Primitives is the generated triangle, line or point topology.
func (r *Result) Primitives() *dataset.Topology {
	t, _ := r.Topology(r.topo)
	return t
}

func (r *Result) Normal(i int) r3.Vec {
	return r3.Vec{X: r.Nodes.At(i, colNorm), Y: r.Nodes.At(i, colNorm+1), Z: r.Nodes.At(i, colNorm+2)}
}

func (r *Result) Xi(i int) r3.Vec {
	return r3.Vec{X: r.Nodes.At(i, colXi), Y: r.Nodes.At(i, colXi+1), Z: r.Nodes.At(i, colXi+2)}
}

func (r *Result) String() string {
	return fmt.Sprintf("%v, %d %s, %d external", r.Dataset, r.Primitives().NumElems(), r.topo,
		r.External.GetCardinality())
}

// chunk is the private output of one worker.
type chunk struct {
	topo     int
	nodes    *utils.Matrix[float64]
	prims    *utils.Matrix[int]
	props    *utils.Matrix[int]
	values   []float64
	external []uint32
}

func newChunk(prim primitive, topo int) *chunk {
	return &chunk{
		topo:  topo,
		nodes: utils.NewMatrix[float64]("nodes", utils.Vec3Kind, NodeCols),
		prims: utils.NewMatrix[int](prim.topo, utils.IndexKind, prim.nc),
		props: utils.NewMatrix[int]("props", utils.IndexKind, PropCols),
	}
}

// addNode appends a node and returns its index in the chunk.
func (c *chunk) addNode(pos, norm, xi r3.Vec, elem, face int) (id int) {
	id = c.nodes.Rows()
	if err := c.nodes.Append(pos.X, pos.Y, pos.Z, norm.X, norm.Y, norm.Z, xi.X, xi.Y, xi.Z); err != nil {
		panic(err)
	}
	if err := c.props.Append(elem, face, c.topo); err != nil {
		panic(err)
	}
	return
}

// addValue records the per node value of the node just added.
func (c *chunk) addValue(v float64) { c.values = append(c.values, v) }

func (c *chunk) addPrim(external bool, ids ...int) {
	if external {
		c.external = append(c.external, uint32(c.prims.Rows()))
	}
	if err := c.prims.Append(ids...); err != nil {
		panic(err)
	}
}

// merge appends other, rebasing its node indices by the nodes already
// present. Called by the coordinating goroutine only, in chunk order.
func (c *chunk) merge(other *chunk) error {
	var (
		nodeOffset = c.nodes.Rows()
		primOffset = uint32(c.prims.Rows())
	)
	if err := c.nodes.AppendMatrix(other.nodes, 0); err != nil {
		return err
	}
	if err := c.prims.AppendMatrix(other.prims, nodeOffset); err != nil {
		return err
	}
	if err := c.props.AppendMatrix(other.props, 0); err != nil {
		return err
	}
	c.values = append(c.values, other.values...)
	for _, p := range other.external {
		c.external = append(c.external, p+primOffset)
	}
	return nil
}

func (c *chunk) result(name string, prim primitive, valueName string) (res *Result, err error) {
	c.nodes.SetName(name + "_nodes")
	c.props.SetName(name + "_props")
	res = &Result{
		Dataset:  dataset.NewDataset(name, c.nodes),
		Props:    c.props,
		External: roaring.BitmapOf(c.external...),
		topo:     prim.topo,
	}
	if _, err = res.SetTopology(c.prims, prim.elemType, true); err != nil {
		return nil, err
	}
	if valueName != "" {
		values := utils.NewMatrix[float64](valueName, utils.RealKind, 1)
		if err = values.Append(c.values...); err != nil {
			return nil, err
		}
		if err = res.AddField(dataset.NewField(values, prim.topo, "", false)); err != nil {
			return nil, err
		}
	}
	return
}
