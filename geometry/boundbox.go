package geometry

import (
	"fmt"
	"math"

	"github.com/notargets/gomesh/utils"
	"gonum.org/v1/gonum/spatial/r3"
)

// BoundBox is an axis aligned box with Min <= Max componentwise.
type BoundBox struct {
	Min, Max r3.Vec
}

func NewBoundBox(Geometry []r3.Vec) (Box BoundBox, err error) {
	if len(Geometry) == 0 {
		err = fmt.Errorf("%w: bound box of an empty point set", utils.ErrValidation)
		return
	}
	Box.Min, Box.Max = Geometry[0], Geometry[0]
	for _, p := range Geometry[1:] {
		Box.Min = r3.Vec{X: math.Min(Box.Min.X, p.X), Y: math.Min(Box.Min.Y, p.Y), Z: math.Min(Box.Min.Z, p.Z)}
		Box.Max = r3.Vec{X: math.Max(Box.Max.X, p.X), Y: math.Max(Box.Max.Y, p.Y), Z: math.Max(Box.Max.Z, p.Z)}
	}
	return
}

// BoxAround is the cube of side dim centered on center.
func BoxAround(center, dim r3.Vec) BoundBox {
	half := r3.Scale(0.5, dim)
	return BoundBox{Min: r3.Sub(center, half), Max: r3.Add(center, half)}
}

func (bb BoundBox) Center() r3.Vec   { return r3.Scale(0.5, r3.Add(bb.Min, bb.Max)) }
func (bb BoundBox) Diagonal() r3.Vec { return r3.Sub(bb.Max, bb.Min) }
func (bb BoundBox) Radius() float64  { return 0.5 * r3.Norm(bb.Diagonal()) }

// Corners in octant order: x least significant, z most.
func (bb BoundBox) Corners() (c [8]r3.Vec) {
	for i := range c {
		c[i] = bb.Min
		if i&1 != 0 {
			c[i].X = bb.Max.X
		}
		if i&2 != 0 {
			c[i].Y = bb.Max.Y
		}
		if i&4 != 0 {
			c[i].Z = bb.Max.Z
		}
	}
	return
}

// Contains is inclusive of the box surface.
func (bb BoundBox) Contains(p r3.Vec) bool {
	return p.X >= bb.Min.X && p.X <= bb.Max.X &&
		p.Y >= bb.Min.Y && p.Y <= bb.Max.Y &&
		p.Z >= bb.Min.Z && p.Z <= bb.Max.Z
}

// PlaneIntersects is true if corners lie on both sides of the plane, a corner
// on the plane counting as the positive side.
func (bb BoundBox) PlaneIntersects(planePt, planeNorm r3.Vec) bool {
	var above int
	for _, c := range bb.Corners() {
		if PlaneDist(c, planePt, planeNorm) >= 0 {
			above++
		}
	}
	return above != 0 && above != 8
}

// Union is the smallest box holding both.
func (bb BoundBox) Union(o BoundBox) BoundBox {
	bb.Min = r3.Vec{X: math.Min(bb.Min.X, o.Min.X), Y: math.Min(bb.Min.Y, o.Min.Y), Z: math.Min(bb.Min.Z, o.Min.Z)}
	bb.Max = r3.Vec{X: math.Max(bb.Max.X, o.Max.X), Y: math.Max(bb.Max.Y, o.Max.Y), Z: math.Max(bb.Max.Z, o.Max.Z)}
	return bb
}

// Intersect clamps bb to o. ok is false when they do not overlap.
func (bb BoundBox) Intersect(o BoundBox) (r BoundBox, ok bool) {
	r.Min = r3.Vec{X: math.Max(bb.Min.X, o.Min.X), Y: math.Max(bb.Min.Y, o.Min.Y), Z: math.Max(bb.Min.Z, o.Min.Z)}
	r.Max = r3.Vec{X: math.Min(bb.Max.X, o.Max.X), Y: math.Min(bb.Max.Y, o.Max.Y), Z: math.Min(bb.Max.Z, o.Max.Z)}
	ok = r.Min.X <= r.Max.X && r.Min.Y <= r.Max.Y && r.Min.Z <= r.Max.Z
	return
}

// Scale grows the box about its center.
func (bb BoundBox) Scale(scale float64) BoundBox {
	return BoxAround(bb.Center(), r3.Scale(scale, bb.Diagonal()))
}
