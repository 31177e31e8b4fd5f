package readfiles

import (
	"io"
	"strings"

	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/utils"
)

// gambitTypes maps Gambit NTYPE codes of linear elements to element types.
// Bricks are stored x fastest, then y, then z, the control point order.
var gambitTypes = map[int]gmshType{
	1: {"Line1NL", nil},
	2: {"Quad1NL", []int{0, 1, 3, 2}},
	3: {"Tri1NL", nil},
	4: {"Hex1NL", nil},
	6: {"Tet1NL", nil},
}

// gambitNodesPerLine is the number of element nodes on the first record
// line; longer records continue on the next.
const gambitNodesPerLine = 7

// ReadGambit reads a Gambit neutral file. Each element type becomes a
// spatial topology with a per element "<topology>_group" field holding the
// element group. Wedges, pyramids and higher order elements are skipped;
// boundary condition sets are ignored.
func ReadGambit(r io.Reader, name string, log *utils.Logger) (ds *dataset.Dataset, err error) {
	var (
		lr        = newLineReader(r, "")
		b         = newBuilder(name, "group")
		elems     = make(map[int]elemRef)
		numNodes  int
		numElems  int
		coordDims = 3
		skipped   = make(map[int]int)
		line      string
		ok        bool
	)
	log = log.OrNoop()
	for {
		if line, ok = lr.next(); !ok {
			break
		}
		switch {
		case strings.HasPrefix(line, "NUMNP"):
			var v []int
			if line, err = lr.must("problem size"); err != nil {
				return
			}
			if v, err = lr.ints(strings.Fields(line)); err != nil {
				return
			}
			if len(v) < 6 {
				return nil, lr.errorf("problem size needs 6 values")
			}
			numNodes, numElems, coordDims = v[0], v[1], v[4]
			if coordDims != 2 && coordDims != 3 {
				return nil, lr.errorf("coordinate dimension %d", coordDims)
			}
			log.Debug("gambit problem size", "nodes", numNodes, "elements", numElems, "dims", coordDims)
		case strings.HasPrefix(line, "NODAL COORDINATES"):
			err = gambitSection(lr, func(f []string) (err error) {
				if len(f) < 1+coordDims {
					return lr.errorf("node needs id and %d coordinates", coordDims)
				}
				var (
					id int
					x  []float64
				)
				if id, err = lr.atoi(f[0]); err != nil {
					return
				}
				if x, err = lr.floats(f[1 : 1+coordDims]); err != nil {
					return
				}
				x = append(x, 0)
				return b.addNode(id, x[0], x[1], x[2])
			})
		case strings.HasPrefix(line, "ELEMENTS/CELLS"):
			err = gambitSection(lr, func(f []string) (err error) {
				var v []int
				if v, err = lr.ints(f); err != nil {
					return
				}
				if len(v) < 3 {
					return lr.errorf("element needs id, type and node count")
				}
				for len(v) < 3+v[2] {
					var more []int
					if line, err = lr.must("element continuation"); err != nil {
						return
					}
					if more, err = lr.ints(strings.Fields(line)); err != nil {
						return
					}
					v = append(v, more...)
				}
				gt, known := gambitTypes[v[1]]
				if !known || len(v)-3 != gambitNodeCount(v[1]) {
					skipped[v[1]]++
					return
				}
				var ref elemRef
				if ref, err = b.addElem(gt.name, v[3:], gt.perm, 0); err != nil {
					return lr.errorf("%v", err)
				}
				elems[v[0]] = ref
				return
			})
		case strings.HasPrefix(line, "ELEMENT GROUP"):
			err = readGambitGroup(lr, elems)
		case strings.HasPrefix(line, "BOUNDARY CONDITIONS"):
			log.Debug("skipping gambit boundary conditions", "line", lr.line)
			err = gambitSection(lr, func([]string) error { return nil })
		}
		if err != nil {
			return
		}
	}
	if err = lr.sc.Err(); err != nil {
		return
	}
	for t, n := range skipped {
		log.Warn("skipped unsupported gambit elements", "type", t, "count", n)
	}
	if b.nodes.Rows() != numNodes {
		log.Warn("gambit node count differs from header", "header", numNodes, "read", b.nodes.Rows())
	}
	return b.dataset()
}

func gambitNodeCount(ntype int) int {
	switch ntype {
	case 1:
		return 2
	case 3:
		return 3
	case 2, 6:
		return 4
	case 4:
		return 8
	}
	return -1
}

// gambitSection passes the fields of each line up to ENDOFSECTION.
func gambitSection(lr *lineReader, record func(fields []string) error) (err error) {
	var line string
	for {
		if line, err = lr.must("ENDOFSECTION"); err != nil {
			return
		}
		if line == "ENDOFSECTION" {
			return
		}
		if err = record(strings.Fields(line)); err != nil {
			return
		}
	}
}

// readGambitGroup reads one group: a GROUP: header, the group name, the
// flags line, then element ids until ENDOFSECTION.
func readGambitGroup(lr *lineReader, elems map[int]elemRef) (err error) {
	var (
		line  string
		group int
	)
	if line, err = lr.must("GROUP:"); err != nil {
		return
	}
	f := strings.Fields(line)
	if len(f) < 2 || f[0] != "GROUP:" {
		return lr.errorf("expected GROUP:, found %q", line)
	}
	if group, err = lr.atoi(f[1]); err != nil {
		return
	}
	for _, what := range []string{"group name", "group flags"} {
		if _, err = lr.must(what); err != nil {
			return
		}
	}
	return gambitSection(lr, func(f []string) (err error) {
		var ids []int
		if ids, err = lr.ints(f); err != nil {
			return
		}
		for _, id := range ids {
			ref, found := elems[id]
			if !found {
				// elements of skipped types keep no group
				continue
			}
			ref.tb.tags[ref.row] = float64(group)
		}
		return
	})
}
