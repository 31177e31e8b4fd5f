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
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/notargets/gomesh/InputParameters"
	"github.com/notargets/gomesh/meshgen"
	"github.com/notargets/gomesh/readfiles"
	"github.com/notargets/gomesh/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GenerateCmd represents the generate command
var GenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a renderable dataset from a mesh",
	Long: `
Reads a mesh (.msh, .neu, .su2, .stl or a stored dataset directory), runs the
generator described by the input parameters file and writes the result as a
dataset directory, or as STL when the output ends in .stl.

gomesh generate -F cube.msh -I params.yaml -o cube_surface.stl`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		var (
			log        = logger()
			ip         *InputParameters.GenerationParameters
			inputFile  string
			meshFile   string
			outputFile string
		)
		inputFile, _ = cmd.Flags().GetString("inputConditionsFile")
		meshFile, _ = cmd.Flags().GetString("meshFile")
		outputFile, _ = cmd.Flags().GetString("output")
		compress, _ := cmd.Flags().GetBool("compress")
		if ip, err = processInput(inputFile); err != nil {
			return
		}
		if meshFile != "" {
			ip.MeshFile = meshFile
		}
		if outputFile != "" {
			ip.Output = outputFile
		}
		if viper.GetBool("verbose") {
			ip.Print(os.Stderr)
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		return RunGenerate(ctx, ip, compress, log)
	},
}

func processInput(inputFile string) (ip *InputParameters.GenerationParameters, err error) {
	if len(inputFile) == 0 {
		exampleFile := `
########################################
Title: "Test Case"
MeshFile: cube.msh
Generator: isosurface # trisurface, points, lines, cylinders, planecut, isolines, glyphs
Refine: 1
Field: pressure
NumThresholds: 3
Interpolate: [temperature]
########################################
`
		return nil, fmt.Errorf("%w: must supply an input parameters file (-I, --inputConditionsFile)\nExample File:%s",
			utils.ErrValidation, exampleFile)
	}
	var data []byte
	if data, err = os.ReadFile(inputFile); err != nil {
		return
	}
	ip = &InputParameters.GenerationParameters{}
	if err = ip.Parse(data); err != nil {
		return nil, fmt.Errorf("%s: %w", inputFile, err)
	}
	return
}

func init() {
	rootCmd.AddCommand(GenerateCmd)
	GenerateCmd.Flags().StringP("meshFile", "F", "", "mesh file or dataset directory, overrides MeshFile")
	GenerateCmd.Flags().StringP("inputConditionsFile", "I", "", "YAML file of generation parameters")
	GenerateCmd.Flags().StringP("output", "o", "", "output dataset directory or .stl file, overrides Output")
	GenerateCmd.Flags().BoolP("compress", "z", false, "zstd compress the stored matrices")
}

// RunGenerate loads the mesh, generates and stores the result.
func RunGenerate(ctx context.Context, ip *InputParameters.GenerationParameters, compress bool,
	log *utils.Logger) (err error) {
	var (
		progress = &utils.Progress{}
		opts     meshgen.Options
		res      *meshgen.Result
	)
	if ip.MeshFile == "" {
		return fmt.Errorf("%w: no mesh file given", utils.ErrValidation)
	}
	ds, err := loadInput(ip.MeshFile, log)
	if err != nil {
		return
	}
	if opts, err = ip.Options(log, progress); err != nil {
		return
	}
	opts.MaxProcs, opts.Threshold = max(opts.MaxProcs, viper.GetInt("procs")), max(opts.Threshold, viper.GetInt("threshold"))
	start := time.Now()
	generate := func() (err error) {
		res, err = ip.Generate(ctx, ds, opts)
		return
	}
	if viper.GetBool("perf") {
		err = countInstructions(log, generate)
	} else {
		err = generate()
	}
	if err != nil {
		return
	}
	log.Info("generated", "dataset", res.Name, "nodes", res.NumNodes(),
		"primitives", res.Primitives().NumElems(), "external", res.External.GetCardinality(),
		"elements", progress.Done(), "elapsed", time.Since(start))
	out := ip.Output
	if out == "" {
		out = filepath.Join(filepath.Dir(ip.MeshFile), res.Name)
	}
	if err = storeResult(res, out, compress); err != nil {
		return
	}
	log.Info("stored", "path", out)
	return
}

func storeResult(res *meshgen.Result, out string, compress bool) (err error) {
	if strings.EqualFold(filepath.Ext(out), ".stl") {
		return writeSTL(res.Dataset, res.Primitives().Name(), out, false)
	}
	if err = readfiles.StoreDataset(res.Dataset, out, compress); err != nil {
		return
	}
	props := filepath.Join(out, "props.mat")
	if compress {
		props += ".zst"
	}
	return utils.StoreMatrixFile(res.Props, props)
}
