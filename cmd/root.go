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
	"log/slog"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/notargets/gomesh/utils"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gomesh",
	Short: "Mesh representation generator",
	Long: `
Reads finite element meshes and generates renderable triangle, line and point
datasets from them: surfaces, plane cuts, isosurfaces, isolines, tubes and glyphs.

gomesh generate -F mesh.msh -I params.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch viper.GetString("profile") {
		case "cpu":
			stopProfile = profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop
		case "mem":
			stopProfile = profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if stopProfile != nil {
			stopProfile()
			stopProfile = nil
		}
		if viper.GetBool("verbose") {
			logger().Debug("memory", "usage", utils.GetMemUsage())
		}
	},
}

var stopProfile func()

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.gomesh.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging and memory usage")
	rootCmd.PersistentFlags().Bool("json", false, "log as JSON lines")
	rootCmd.PersistentFlags().Int("procs", 0, "maximum worker count, number of CPUs when 0")
	rootCmd.PersistentFlags().Int("threshold", 0, "weighted element count below which a single worker runs")
	rootCmd.PersistentFlags().String("profile", "", "write a cpu or mem profile to the current directory")
	rootCmd.PersistentFlags().Bool("perf", false, "count CPU instructions of the generation (linux)")
	for _, name := range []string{"verbose", "json", "procs", "threshold", "profile", "perf"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".gomesh" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".gomesh")
	}

	viper.SetEnvPrefix("gomesh")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		logger().Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

// logger follows the verbose and json settings.
func logger() *utils.Logger {
	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	if viper.GetBool("json") {
		return utils.NewJSONLogger(os.Stderr, level)
	}
	return utils.NewTextLogger(os.Stderr, level)
}
