package readfiles

import (
	"fmt"
	"io"
	"strings"

	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/utils"
)

// gmshType maps a Gmsh element type to an element type name and the
// permutation taking Gmsh node order to control point order.
type gmshType struct {
	name string
	perm []int
}

var gmshTypes = map[int]gmshType{
	1:  {"Line1NL", nil},
	2:  {"Tri1NL", nil},
	3:  {"Quad1NL", []int{0, 1, 3, 2}},
	4:  {"Tet1NL", nil},
	5:  {"Hex1NL", []int{0, 1, 3, 2, 4, 5, 7, 6}},
	8:  {"Line2NL", nil},
	9:  {"Tri2NL", []int{0, 1, 2, 3, 5, 4}},
	10: {"Quad2NL", []int{0, 1, 3, 2, 4, 7, 8, 5, 6}},
	11: {"Tet2NL", []int{0, 1, 2, 3, 4, 6, 5, 7, 9, 8}},
	15: {"Point1NL", nil},
}

// PhysicalMeta is the node matrix metadata key prefix of Gmsh physical names.
const PhysicalMeta = "physical:"

// ReadGmsh reads a Gmsh 2.2 ASCII mesh. Each element type becomes a spatial
// topology with a per element "<topology>_physical" field of physical tags.
// Element types with no nodal Lagrange equivalent, such as prisms, are
// skipped and counted in the log.
func ReadGmsh(r io.Reader, name string, log *utils.Logger) (ds *dataset.Dataset, err error) {
	var (
		lr      = newLineReader(r, "")
		b       = newBuilder(name, "physical")
		skipped = make(map[int]int)
		line    string
		ok      bool
	)
	log = log.OrNoop()
	for {
		if line, ok = lr.next(); !ok {
			break
		}
		switch line {
		case "$MeshFormat":
			if line, err = lr.must("mesh format"); err != nil {
				return
			}
			if f := strings.Fields(line); len(f) < 2 || !strings.HasPrefix(f[0], "2.") || f[1] != "0" {
				return nil, lr.errorf("only Gmsh 2.x ASCII files are read, format is %q", line)
			}
		case "$PhysicalNames":
			err = readSection(lr, func(f []string) error {
				if len(f) < 3 {
					return lr.errorf("physical name needs dimension, tag and name")
				}
				b.meta[PhysicalMeta+f[1]] = strings.Trim(strings.Join(f[2:], " "), `"`)
				return nil
			})
		case "$Nodes":
			err = readSection(lr, func(f []string) error {
				if len(f) < 4 {
					return lr.errorf("node needs id and 3 coordinates")
				}
				id, err := lr.atoi(f[0])
				if err != nil {
					return err
				}
				x, err := lr.floats(f[1:4])
				if err != nil {
					return err
				}
				return b.addNode(id, x[0], x[1], x[2])
			})
		case "$Elements":
			err = readSection(lr, func(f []string) error {
				v, err := lr.ints(f)
				if err != nil {
					return err
				}
				if len(v) < 3 || len(v) < 3+v[2] {
					return lr.errorf("element needs id, type and tags")
				}
				gt, known := gmshTypes[v[1]]
				if !known {
					skipped[v[1]]++
					return nil
				}
				var phys int
				if v[2] > 0 {
					phys = v[3]
				}
				if _, err = b.addElem(gt.name, v[3+v[2]:], gt.perm, phys); err != nil {
					return lr.errorf("%v", err)
				}
				return nil
			})
		default:
			if strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "$End") {
				log.Debug("skipping gmsh section", "section", line)
				err = skipSection(lr, "$End"+line[1:])
			}
		}
		if err != nil {
			return
		}
	}
	if err = lr.sc.Err(); err != nil {
		return
	}
	for t, n := range skipped {
		log.Warn("skipped unsupported gmsh elements", "type", t, "count", n)
	}
	return b.dataset()
}

// readSection reads a count line followed by that many records and the
// closing $End line.
func readSection(lr *lineReader, record func(fields []string) error) (err error) {
	var (
		line string
		n    int
	)
	if line, err = lr.must("section count"); err != nil {
		return
	}
	if n, err = lr.atoi(line); err != nil {
		return
	}
	for i := 0; i < n; i++ {
		if line, err = lr.must("section record"); err != nil {
			return
		}
		if err = record(strings.Fields(line)); err != nil {
			return
		}
	}
	if line, err = lr.must("section end"); err != nil {
		return
	}
	if !strings.HasPrefix(line, "$End") {
		return lr.errorf("expected section end, found %q", line)
	}
	return
}

func skipSection(lr *lineReader, end string) error {
	for {
		line, ok := lr.next()
		if !ok {
			return fmt.Errorf("%w: missing %s", utils.ErrValidation, end)
		}
		if line == end {
			return nil
		}
	}
}
