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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/notargets/gomesh/dataset"
	"github.com/notargets/gomesh/readfiles"
	"github.com/notargets/gomesh/utils"
	"github.com/spf13/cobra"
)

// ConvertCmd represents the convert command
var ConvertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Convert a mesh to a stored dataset or STL",
	Long: `
Converts a mesh file or dataset directory into a dataset directory of matrix
files, or into an STL file when the output ends in .stl. STL output takes the
first linear triangle topology unless --topology names one.

gomesh convert cube.msh cube
gomesh convert --topology tris sheet.su2 sheet.stl`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			log = logger()
			ds  *dataset.Dataset
			in  = args[0]
			out = args[1]
		)
		topo, _ := cmd.Flags().GetString("topology")
		compress, _ := cmd.Flags().GetBool("compress")
		if ds, err = loadInput(in, log); err != nil {
			return
		}
		if !strings.EqualFold(filepath.Ext(out), ".stl") {
			return readfiles.StoreDataset(ds, out, compress)
		}
		if topo == "" {
			for _, t := range ds.Topologies() {
				if t.Type().Name == "Tri1NL" {
					topo = t.Name()
					break
				}
			}
		}
		if topo == "" {
			return fmt.Errorf("%w: %s has no Tri1NL topology to write as STL", utils.ErrValidation, in)
		}
		ascii, _ := cmd.Flags().GetBool("ascii")
		log.Info("writing stl", "topology", topo, "path", out)
		return writeSTL(ds, topo, out, ascii)
	},
}

func init() {
	rootCmd.AddCommand(ConvertCmd)
	ConvertCmd.Flags().StringP("topology", "t", "", "triangle topology written to STL")
	ConvertCmd.Flags().BoolP("compress", "z", false, "zstd compress the stored matrices")
	ConvertCmd.Flags().Bool("ascii", false, "write ASCII rather than binary STL")
}

func writeSTL(ds *dataset.Dataset, topo, path string, ascii bool) (err error) {
	var f *os.File
	if f, err = os.Create(path); err != nil {
		return
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return readfiles.WriteSTL(f, ds, topo, ascii)
}
