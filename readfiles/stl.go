package readfiles

import (
	"fmt"
	"io"

	"github.com/hschendel/stl"
	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/elemtype"
	"github.com/notargets/gomesh/geometry"
	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

func toVec3(v r3.Vec) stl.Vec3 { return stl.Vec3{float32(v.X), float32(v.Y), float32(v.Z)} }

// WriteSTL writes the triangles of a Tri1NL topology of ds as an STL solid
// named after the dataset, binary unless ascii is set. Facet normals follow
// the winding of each triangle.
func WriteSTL(w io.Writer, ds *dataset.Dataset, topo string, ascii bool) (err error) {
	t, ok := ds.Topology(topo)
	switch {
	case !ok:
		return fmt.Errorf("%w: dataset %q has no topology %q", utils.ErrValidation, ds.Name, topo)
	case t.Type().Geom != elemtype.Tri || t.Type().Order != 1:
		return fmt.Errorf("%w: topology %q is %s, STL holds Tri1NL triangles", utils.ErrValidation, topo, t.Type())
	}
	solid := &stl.Solid{
		Name:      ds.Name,
		IsAscii:   ascii,
		Triangles: make([]stl.Triangle, t.NumElems()),
	}
	for e := range solid.Triangles {
		var (
			tri = t.Elem(e)
			a   = ds.Node(tri[0])
			b   = ds.Node(tri[1])
			c   = ds.Node(tri[2])
		)
		solid.Triangles[e] = stl.Triangle{
			Normal:   toVec3(geometry.TriNormal(a, b, c)),
			Vertices: [3]stl.Vec3{toVec3(a), toVec3(b), toVec3(c)},
		}
	}
	return solid.WriteAll(w)
}

// ReadSTL reads an ASCII or binary STL solid into a dataset with one "tris"
// topology. Vertices with identical coordinates are merged.
func ReadSTL(r io.ReadSeeker, name string) (ds *dataset.Dataset, err error) {
	var solid *stl.Solid
	if solid, err = stl.ReadAll(r); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrValidation, err)
	}
	var (
		nodes = utils.NewMatrix[float64]("nodes", utils.Vec3Kind, 3)
		tris  = utils.NewMatrix[int]("tris", utils.IndexKind, 3)
		index = make(map[stl.Vec3]int)
		row   [3]int
	)
	for _, tri := range solid.Triangles {
		for k, v := range tri.Vertices {
			id, seen := index[v]
			if !seen {
				id = nodes.Rows()
				index[v] = id
				if err = nodes.Append(float64(v[0]), float64(v[1]), float64(v[2])); err != nil {
					return
				}
			}
			row[k] = id
		}
		if err = tris.Append(row[:]...); err != nil {
			return
		}
	}
	if name == "" {
		name = solid.Name
	}
	ds = dataset.NewDataset(name, nodes)
	if _, err = ds.SetTopology(tris, "Tri1NL", true); err != nil {
		return nil, err
	}
	return
}
