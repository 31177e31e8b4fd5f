/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/notargets/gomesh/adjacency"
	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/readfiles"
	"github.com/notargets/gomesh/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// InfoCmd represents the info command
var InfoCmd = &cobra.Command{
	Use:   "info <mesh>",
	Short: "Summarise a mesh or stored dataset",
	Long: `
Prints the topologies and fields of a mesh. With --faces the face adjacency of
each volume topology is computed and the shared and external faces reported.

gomesh info --faces cube.msh`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			log = logger()
			ds  *dataset.Dataset
		)
		if ds, err = loadInput(args[0], log); err != nil {
			return
		}
		printInfo(cmd, ds)
		if faces, _ := cmd.Flags().GetBool("faces"); !faces {
			return
		}
		depth, _ := cmd.Flags().GetInt("depth")
		var results []adjacency.Result
		results, err = adjacency.Compute(context.Background(), ds, adjacency.Options{
			Depth:     depth,
			MaxProcs:  viper.GetInt("procs"),
			Threshold: viper.GetInt("threshold"),
			Logger:    log,
		})
		if err != nil {
			return
		}
		for _, r := range results {
			fmt.Fprintln(cmd.OutOrStdout(), r)
		}
		return
	},
}

func init() {
	rootCmd.AddCommand(InfoCmd)
	InfoCmd.Flags().Bool("faces", false, "compute face adjacency of volume topologies")
	InfoCmd.Flags().Int("depth", 0, "octree depth for face matching, 0 for the default")
}

func printInfo(cmd *cobra.Command, ds *dataset.Dataset) {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, ds)
	if lo, hi, ok := utils.ColumnRange(ds.Nodes, 0); ok {
		ylo, yhi, _ := utils.ColumnRange(ds.Nodes, 1)
		zlo, zhi, _ := utils.ColumnRange(ds.Nodes, 2)
		fmt.Fprintf(w, "bounds [%g %g %g] - [%g %g %g]\n", lo, ylo, zlo, hi, yhi, zhi)
	}
	for _, t := range ds.Topologies() {
		fmt.Fprintf(w, "topology %-16s %-8s %8d elements spatial=%v\n", t.Name(), t.Type(), t.NumElems(), t.Spatial())
	}
	for _, f := range ds.Fields() {
		lo, hi, _ := f.Range(dataset.Average)
		fmt.Fprintf(w, "field    %-16s %d components over %s, per element=%v, range [%g, %g]\n",
			f.Name(), f.Cols(), f.SpatialTopology(), f.PerElem(), lo, hi)
	}
	keys := ds.Nodes.MetaKeys()
	sort.Strings(keys)
	for _, k := range keys {
		v, _ := ds.Nodes.Meta(k)
		fmt.Fprintf(w, "meta     %s = %s\n", k, v)
	}
}

// loadInput reads a stored dataset directory or a mesh file.
func loadInput(path string, log *utils.Logger) (ds *dataset.Dataset, err error) {
	var fi os.FileInfo
	if fi, err = os.Stat(path); err != nil {
		return
	}
	if fi.IsDir() {
		return readfiles.LoadDataset(path)
	}
	return readfiles.ReadMeshFile(path, log)
}
