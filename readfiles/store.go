package readfiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/utils"
)

// Dataset directory layout: nodes.mat, topo.<name>.mat and field.<name>.mat,
// each in the matrix file format, with .zst appended when compressed.
const (
	nodesFile   = "nodes"
	topoPrefix  = "topo."
	fieldPrefix = "field."
	matExt      = ".mat"
	metaTime    = "timestep"
)

// StoreDataset writes every matrix of ds into dir, creating it.
func StoreDataset(ds *dataset.Dataset, dir string, compress bool) (err error) {
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	path := func(name string) string {
		p := filepath.Join(dir, name+matExt)
		if compress {
			p += ".zst"
		}
		return p
	}
	nodes := ds.Nodes.Clone()
	nodes.SetMeta(metaTime, strconv.FormatFloat(ds.Timestep, 'g', -1, 64))
	if err = utils.StoreMatrixFile(nodes, path(nodesFile)); err != nil {
		return
	}
	for _, t := range ds.Topologies() {
		if err = utils.StoreMatrixFile(t.Matrix, path(topoPrefix+t.Name())); err != nil {
			return
		}
	}
	for _, f := range ds.Fields() {
		if err = utils.StoreMatrixFile(f.Matrix, path(fieldPrefix+f.Name())); err != nil {
			return
		}
	}
	return
}

// LoadDataset reads a directory written by StoreDataset into a dataset named
// after the directory. Topologies and fields are added in name order.
func LoadDataset(dir string) (ds *dataset.Dataset, err error) {
	var (
		entries       []os.DirEntry
		topos, fields []string
		nodes         *utils.Matrix[float64]
		nodesPath     string
	)
	if entries, err = os.ReadDir(dir); err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		base := strings.TrimSuffix(name, ".zst")
		if e.IsDir() || !strings.HasSuffix(base, matExt) {
			continue
		}
		switch base = strings.TrimSuffix(base, matExt); {
		case base == nodesFile:
			nodesPath = filepath.Join(dir, name)
		case strings.HasPrefix(base, topoPrefix):
			topos = append(topos, filepath.Join(dir, name))
		case strings.HasPrefix(base, fieldPrefix):
			fields = append(fields, filepath.Join(dir, name))
		}
	}
	if nodesPath == "" {
		return nil, fmt.Errorf("%w: %s holds no %s%s", utils.ErrValidation, dir, nodesFile, matExt)
	}
	if nodes, err = utils.ReadMatrixFile[float64](nodesPath); err != nil {
		return
	}
	ds = dataset.NewDataset(filepath.Base(filepath.Clean(dir)), nodes)
	if ts, ok := nodes.Meta(metaTime); ok {
		if ds.Timestep, err = strconv.ParseFloat(ts, 64); err != nil {
			return nil, fmt.Errorf("%w: %s: bad %s %q", utils.ErrValidation, nodesPath, metaTime, ts)
		}
		nodes.DeleteMeta(metaTime)
	}
	sort.Strings(topos)
	sort.Strings(fields)
	for _, p := range topos {
		var (
			m *utils.Matrix[int]
			t *dataset.Topology
		)
		if m, err = utils.ReadMatrixFile[int](p); err != nil {
			return nil, err
		}
		if t, err = dataset.TopologyFromMatrix(m); err != nil {
			return nil, err
		}
		if err = ds.AddTopology(t); err != nil {
			return nil, err
		}
	}
	for _, p := range fields {
		var m *utils.Matrix[float64]
		if m, err = utils.ReadMatrixFile[float64](p); err != nil {
			return nil, err
		}
		if err = ds.AddField(&dataset.Field{Matrix: m}); err != nil {
			return nil, err
		}
	}
	if err = ds.Validate(); err != nil {
		return nil, err
	}
	return
}
