/*
Copyright © 2024 the FATIMA-WRF authors.
This file is part of FATIMA-WRF.

FATIMA-WRF is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

FATIMA-WRF is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with FATIMA-WRF.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package fatimautil wires the wrfout processing pipeline to its
// command-line and configuration-file interface.
package fatimautil

import (
	"fmt"
	"os"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	fatimawrf "github.com/wangsen992/fatima-wrf"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to FATIMA-WRF.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "wrf_run",
			usage: `
              wrf_run specifies the directory holding the WRF run output,
              organized with one sub-directory per case.`,
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "case_name",
			usage: `
              case_name specifies the simulation case to process. It names
              both the sub-directory of wrf_run holding the wrfout files and
              the sub-directory of proc_dir the result is written to.`,
			defaultVal: "fatima-20220720_20220723",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "file_prefix",
			usage: `
              file_prefix specifies the file name prefix selecting the
              wrfout files to process, for example wrfout_d01 for the
              outermost domain.`,
			defaultVal: "wrfout_d01",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "proc_dir",
			usage: `
              proc_dir specifies the directory processed output is
              written to.`,
			defaultVal: "./data",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "levs",
			usage: `
              levs specifies the vertical levels to interpolate onto, either
              as a half-open range expression 'arange(start, stop, step)' or
              as an explicit comma-separated list. Values are in the units of
              interp_var: meters for geopotential_height, pascals for
              air_pressure.`,
			defaultVal: "arange(100, 2000, 100)",
			flagsets:   []*pflag.FlagSet{preprocCmd.Flags()},
		},
		{
			name: "interp_var",
			usage: `
              interp_var specifies the variable whose values the vertical
              levels are fixed at. Valid options are geopotential_height
              and air_pressure.`,
			defaultVal: fatimawrf.InterpHeight,
			flagsets:   []*pflag.FlagSet{preprocCmd.Flags()},
		},
		{
			name: "overwrite",
			usage: `
              overwrite specifies whether to replace an existing output
              store. If false, processing is skipped when output for the
              same case and file prefix already exists.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{preprocCmd.Flags()},
		},
		{
			name: "logfile",
			usage: `
              logfile specifies the file to write processing logs to,
              in addition to standard output. The default is to log to
              standard output only.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("FATIMA")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(preprocCmd)
	Root.AddCommand(describeCmd)
}

// levsExpr returns the levs configuration value as a level expression
// string. A configuration file may give it as an array of numbers rather
// than a string.
func levsExpr(cfg *viper.Viper) (string, error) {
	v := cfg.Get("levs")
	if s, ok := v.([]interface{}); ok {
		parts, err := cast.ToStringSliceE(s)
		if err != nil {
			return "", fmt.Errorf("fatimawrf: invalid levs configuration %v: %v", v, err)
		}
		return strings.Join(parts, ", "), nil
	}
	return cast.ToStringE(v)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("fatimawrf: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "fatimawrf",
	Short: "A WRF output postprocessor.",
	Long: `FATIMA-WRF processes raw WRF model output into analysis-ready datasets:
it destaggers the wind components onto the mass grid, derives common
meteorological variables, interpolates the three-dimensional fields onto
fixed vertical levels, and writes the result as a chunked, compressed
Zarr store.

Refer to the subcommand documentation for configuration options and default
settings. Configuration can be changed by using a configuration file (and
providing the path to the file using the --config flag), by using
command-line arguments, or by setting environment variables in the format
'FATIMA_var' where 'var' is the name of the variable to be set.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of FATIMA-WRF.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("FATIMA-WRF v%s\n", fatimawrf.Version)
	},
	DisableAutoGenTag: true,
}

var preprocCmd = &cobra.Command{
	Use:   "preproc",
	Short: "Process wrfout files for one case",
	Long: `preproc processes the wrfout files of one simulation case as specified
by the configuration, and saves the result as a Zarr store at
{proc_dir}/{case_name}/{file_prefix}_hlevs.zarr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		levs, err := levsExpr(Cfg)
		if err != nil {
			return err
		}
		return Preproc(
			os.ExpandEnv(Cfg.GetString("wrf_run")),
			os.ExpandEnv(Cfg.GetString("case_name")),
			os.ExpandEnv(Cfg.GetString("file_prefix")),
			os.ExpandEnv(Cfg.GetString("proc_dir")),
			levs,
			Cfg.GetString("interp_var"),
			os.ExpandEnv(Cfg.GetString("logfile")),
			Cfg.GetBool("overwrite"),
		)
	},
	DisableAutoGenTag: true,
}

var describeCmd = &cobra.Command{
	Use:   "describe [path]",
	Short: "Summarize a wrfout file or a processed store",
	Long: `describe prints the dimensions, variables, and attributes of the file or
directory at path, which may be a wrfout NetCDF file or a processed Zarr
store. With no argument, it describes the output store for the configured
case.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := fatimawrf.StorePath(
			os.ExpandEnv(Cfg.GetString("proc_dir")),
			os.ExpandEnv(Cfg.GetString("case_name")),
			os.ExpandEnv(Cfg.GetString("file_prefix")),
		)
		if len(args) > 0 {
			path = args[0]
		}
		return Describe(cmd.OutOrStdout(), path)
	},
	DisableAutoGenTag: true,
}
