package dataset

import (
	"strconv"

	"github.com/notargets/gomesh/utils"
)

// Field holds one row of components per node, or per element when PerElem.
// Its spatial topology positions the values; its own topology indexes them
// and defaults to the spatial one.
type Field struct {
	*utils.Matrix[float64]
}

func NewField(data *utils.Matrix[float64], spatialTopo, fieldTopo string, perElem bool) *Field {
	if fieldTopo == "" {
		fieldTopo = spatialTopo
	}
	data.SetMeta(MetaSpatial, spatialTopo)
	data.SetMeta(MetaTopology, fieldTopo)
	data.SetMeta(MetaPerElem, strconv.FormatBool(perElem))
	return &Field{Matrix: data}
}

func (f *Field) SpatialTopology() string {
	s, _ := f.Meta(MetaSpatial)
	return s
}

func (f *Field) FieldTopology() string {
	s, _ := f.Meta(MetaTopology)
	if s == "" {
		return f.SpatialTopology()
	}
	return s
}

func (f *Field) PerElem() bool {
	s, _ := f.Meta(MetaPerElem)
	return s == "true"
}

// Value reduces row i with vf.
func (f *Field) Value(i int, vf ValueFunc) float64 {
	return vf.Apply(f.RowView(i))
}

// Range is the extent of the reduced field values.
func (f *Field) Range(vf ValueFunc) (lo, hi float64, ok bool) {
	for i := 0; i < f.Rows(); i++ {
		v := f.Value(i, vf)
		if !ok || v < lo {
			lo = v
		}
		if !ok || v > hi {
			hi = v
		}
		ok = true
	}
	return
}

func (f *Field) Clone() *Field { return &Field{Matrix: f.Matrix.Clone()} }
