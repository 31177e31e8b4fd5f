package meshgen

import (
	"fmt"

	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/utils"
)

// Interpolate evaluates a field of src at every node of res, using the
// element and xi each node was generated from, and adds it to res under the
// same name as a scalar per node field. res must have been generated from
// src. Glyph nodes take the value at their source node.
func Interpolate(res *Result, src *dataset.Dataset, field string, vf dataset.ValueFunc) (f *dataset.Field, err error) {
	if vf.IsZero() {
		vf = dataset.Average
	}
	var (
		n      = res.NumNodes()
		values = utils.NewMatrix[float64](field, utils.RealKind, 1, n)
		topos  = src.Topologies()
	)
	if res.generator == "glyphs" {
		var nf *dataset.Field
		if nf, err = nodeField(src, field, vf.MinCols()); err != nil {
			return
		}
		for i := 0; i < n; i++ {
			values.Set(i, 0, nf.Value(res.Props.At(i, PropElem), vf))
		}
	} else {
		var fv *fieldView
		if fv, err = newFieldView(src, field, vf, false); err != nil {
			return
		}
		checked := make(map[int]bool)
		for i := 0; i < n; i++ {
			ti := res.Props.At(i, PropTopo)
			if ti < 0 || ti >= len(topos) {
				return nil, &utils.IndexRangeError{Topology: res.Props.Name(), Elem: i, Index: ti, Limit: len(topos)}
			}
			if !checked[ti] {
				if err = fv.check(topos[ti]); err != nil {
					return nil, fmt.Errorf("interpolating onto %q: %w", res.Name, err)
				}
				checked[ti] = true
			}
			values.Set(i, 0, fv.at(res.Props.At(i, PropElem), res.Xi(i)))
		}
	}
	f = dataset.NewField(values, res.topo, "", false)
	err = res.AddField(f)
	return
}
