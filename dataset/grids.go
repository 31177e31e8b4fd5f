package dataset

import (
	"fmt"

	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kuhn split of a cube into 6 tets along the 0-7 diagonal, conforming
// between neighbouring cubes.
var kuhnTets = [6][4]int{
	{0, 1, 3, 7}, {0, 1, 5, 7}, {0, 2, 3, 7},
	{0, 2, 6, 7}, {0, 4, 5, 7}, {0, 4, 6, 7},
}

type grid struct {
	n    [3]int
	size r3.Vec
}

func (g grid) node(i, j, k int) int {
	return i + (g.n[0]+1)*(j+(g.n[1]+1)*k)
}

func (g grid) nodes(name string) *utils.Matrix[float64] {
	nodes := utils.NewMatrix[float64](name, utils.Vec3Kind, 3)
	for k := 0; k <= g.n[2]; k++ {
		for j := 0; j <= g.n[1]; j++ {
			for i := 0; i <= g.n[0]; i++ {
				_ = nodes.Append(
					g.size.X*float64(i)/float64(max(g.n[0], 1)),
					g.size.Y*float64(j)/float64(max(g.n[1], 1)),
					g.size.Z*float64(k)/float64(max(g.n[2], 1)),
				)
			}
		}
	}
	return nodes
}

// cell returns the corners of a cell in xi order, x least significant.
func (g grid) cell(i, j, k int) (c [8]int) {
	for o := range c {
		c[o] = g.node(i+o&1, j+(o>>1)&1, k+(o>>2)&1)
	}
	return
}

func newGrid(nx, ny, nz int, size r3.Vec) grid {
	if nx < 1 || ny < 1 || nz < 0 {
		panic(fmt.Sprintf("grid of %d×%d×%d cells", nx, ny, nz))
	}
	return grid{n: [3]int{nx, ny, nz}, size: size}
}

// HexGrid is a box of nx×ny×nz Hex1NL cells in topology "hexes".
func HexGrid(name string, nx, ny, nz int, size r3.Vec) *Dataset {
	g := newGrid(nx, ny, nz, size)
	ds := NewDataset(name, g.nodes(name+"_nodes"))
	hexes := utils.NewMatrix[int]("hexes", utils.IndexKind, 8)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				c := g.cell(i, j, k)
				_ = hexes.Append(c[:]...)
			}
		}
	}
	if _, err := ds.SetTopology(hexes, "Hex1NL", true); err != nil {
		panic(err)
	}
	return ds
}

// TetGrid is HexGrid with every cell split into 6 Tet1NL, topology "tets".
func TetGrid(name string, nx, ny, nz int, size r3.Vec) *Dataset {
	g := newGrid(nx, ny, nz, size)
	ds := NewDataset(name, g.nodes(name+"_nodes"))
	tets := utils.NewMatrix[int]("tets", utils.IndexKind, 4)
	for k := 0; k < nz; k++ {
		for j := 0; j < ny; j++ {
			for i := 0; i < nx; i++ {
				c := g.cell(i, j, k)
				for _, t := range kuhnTets {
					_ = tets.Append(c[t[0]], c[t[1]], c[t[2]], c[t[3]])
				}
			}
		}
	}
	if _, err := ds.SetTopology(tets, "Tet1NL", true); err != nil {
		panic(err)
	}
	return ds
}

// QuadGrid is a flat nx×ny sheet of Quad1NL in topology "quads", or of
// Tri1NL pairs in topology "tris" when triangles is set.
func QuadGrid(name string, nx, ny int, size r3.Vec, triangles bool) *Dataset {
	g := newGrid(nx, ny, 0, size)
	ds := NewDataset(name, g.nodes(name+"_nodes"))
	var (
		topo *utils.Matrix[int]
		et   = "Quad1NL"
	)
	if triangles {
		topo, et = utils.NewMatrix[int]("tris", utils.IndexKind, 3), "Tri1NL"
	} else {
		topo = utils.NewMatrix[int]("quads", utils.IndexKind, 4)
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			c := g.cell(i, j, 0)
			if triangles {
				_ = topo.Append(c[0], c[1], c[2], c[2], c[1], c[3])
			} else {
				_ = topo.Append(c[:4]...)
			}
		}
	}
	if _, err := ds.SetTopology(topo, et, true); err != nil {
		panic(err)
	}
	return ds
}

// AddNodeField adds a per node scalar field computed from node positions.
func (ds *Dataset) AddNodeField(name, topo string, fn func(p r3.Vec) float64) (f *Field, err error) {
	data := utils.NewMatrix[float64](name, utils.RealKind, 1)
	for i := 0; i < ds.NumNodes(); i++ {
		if err = data.Append(fn(ds.Node(i))); err != nil {
			return
		}
	}
	f = NewField(data, topo, "", false)
	err = ds.AddField(f)
	return
}
