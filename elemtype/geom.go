package elemtype

import (
	"fmt"
)

// Geom is the reference shape of an element.
type Geom uint8

const (
	Point Geom = iota
	Line
	Tri
	Quad
	Tet
	Hex
)

var geomNames = [...]string{"Point", "Line", "Tri", "Quad", "Tet", "Hex"}

func (g Geom) String() string {
	if int(g) < len(geomNames) {
		return geomNames[g]
	}
	return fmt.Sprintf("Geom(%d)", g)
}

func ParseGeom(s string) (g Geom, err error) {
	for i, name := range geomNames {
		if name == s {
			return Geom(i), nil
		}
	}
	err = fmt.Errorf("unknown geometry %q", s)
	return
}

// Dim is the number of reference coordinates.
func (g Geom) Dim() int {
	switch g {
	case Point:
		return 0
	case Line:
		return 1
	case Tri, Quad:
		return 2
	default:
		return 3
	}
}

func (g Geom) IsSimplex() bool {
	return g == Line || g == Tri || g == Tet
}

// NumVertices is the number of corner nodes.
func (g Geom) NumVertices() int {
	return [...]int{1, 2, 3, 4, 4, 8}[g]
}

// FaceGeom is the shape of the faces of a volume geometry.
func (g Geom) FaceGeom() (fg Geom, ok bool) {
	switch g {
	case Tet:
		return Tri, true
	case Hex:
		return Quad, true
	}
	return
}
