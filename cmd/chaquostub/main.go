// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command chaquostub generates Python type stubs (.pyi) for Java
// classes found in one or more .jar/.aar files or directories of
// .class files, per spec.md §6's CLI surface.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baguettex/chaquostub/internal/artifact"
	"github.com/baguettex/chaquostub/internal/bindings"
	"github.com/baguettex/chaquostub/internal/genlog"
	"github.com/baguettex/chaquostub/internal/jarinput"
	"github.com/baguettex/chaquostub/internal/pkgdriver"
)

var (
	flagJvmPath   string
	flagOutputDir string
	flagNoClean   bool
	flagLogLevel  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chaquostub <input>...",
		Short: "Generate Python type stubs for Java classes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runGenerate,
	}
	cmd.Flags().StringVar(&flagJvmPath, "jvmpath", "", "path to the bytecode parser's JVM runtime (unused by this implementation; kept for CLI parity)")
	cmd.Flags().StringVar(&flagOutputDir, "output-dir", "./dist/stubs", "directory to write generated stubs into")
	cmd.Flags().BoolVar(&flagNoClean, "no-clean", false, "do not clear the output directory before writing")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
	genlog.Configure(flagLogLevel)

	resolver := artifact.Unconfigured{}

	packages := make(map[string][]string)
	classData := make(map[string]map[string][]byte)
	cfg := pkgdriver.Config{
		OutputDir: flagOutputDir,
		Clean:     !flagNoClean,
		Injector:  bindings.ChaquopyDefaults{},
	}

	for _, input := range args {
		resolved, err := resolveInput(input, resolver)
		if err != nil {
			return err
		}

		entries, err := jarinput.CollectInput(resolved)
		if err != nil {
			return err
		}
		newPackages, newClassData := jarinput.GroupByPackage(jarinput.Entries(entries))
		if err := pkgdriver.MergeInput(cfg, packages, classData, newPackages, newClassData); err != nil {
			return err
		}
	}

	if err := pkgdriver.Generate(cfg, packages, classData); err != nil {
		genlog.Log.Errorf("one or more packages failed: %v", err)
		fmt.Fprintln(cmd.ErrOrStderr(), "some packages failed to generate; see log output above")
	}
	return nil
}

// resolveInput turns an Android shorthand or Maven coordinate into a
// local file path via resolver, or passes plain file/directory inputs
// through unchanged.
func resolveInput(input string, resolver artifact.Resolver) (string, error) {
	switch {
	case artifact.IsAndroidShorthand(input):
		return resolver.ResolveAndroidJar(input)
	case artifact.IsMavenCoordinate(input):
		coord, err := artifact.ParseMavenCoordinate(input)
		if err != nil {
			return "", err
		}
		return resolver.ResolveMavenArtifact(coord)
	default:
		return input, nil
	}
}
