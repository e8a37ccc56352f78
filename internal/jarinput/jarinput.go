// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jarinput adapts .jar files, .aar files, and plain directories
// of .class files into the (package → class files, package → {class
// name: bytes}) structure internal/pkgdriver consumes, per spec.md
// §4.F. A single GroupByPackage routine implements the grouping shared
// across all three input kinds.
package jarinput

import (
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Entry is one (relative class-file path, raw bytecode) pair.
type Entry struct {
	Path string
	Data []byte
}

// Entries turns a slice of Entry into the iter.Seq2 shape GroupByPackage
// consumes.
func Entries(list []Entry) iter.Seq2[string, []byte] {
	return func(yield func(string, []byte) bool) {
		for _, e := range list {
			if !yield(e.Path, e.Data) {
				return
			}
		}
	}
}

// GroupByPackage groups (class_file, bytecode) pairs by their parent
// directory, returning the two-level structure the rest of the
// pipeline is built on: package directory to its member class-file
// paths, and package directory to {internal class name: bytecode}.
func GroupByPackage(entries iter.Seq2[string, []byte]) (map[string][]string, map[string]map[string][]byte) {
	packages := make(map[string][]string)
	classData := make(map[string]map[string][]byte)
	for classFile, data := range entries {
		pkgDir := path.Dir(classFile)
		if pkgDir == "." {
			pkgDir = ""
		}
		packages[pkgDir] = append(packages[pkgDir], classFile)
		if classData[pkgDir] == nil {
			classData[pkgDir] = make(map[string][]byte)
		}
		internalName := strings.TrimSuffix(classFile, ".class")
		classData[pkgDir][internalName] = data
	}
	return packages, classData
}

// CollectInput dispatches on inputPath's extension: ".jar" reads the
// archive directly; ".aar" extracts and re-enters its embedded
// classes.jar; anything else must be a directory, which is walked
// recursively for "*.class" files. Any other input is an error.
func CollectInput(inputPath string) ([]Entry, error) {
	switch strings.ToLower(filepath.Ext(inputPath)) {
	case ".jar":
		return collectJarFile(inputPath)
	case ".aar":
		return collectAarFile(inputPath)
	default:
		info, err := os.Stat(inputPath)
		if err != nil {
			return nil, errors.Wrapf(err, "opening input %s", inputPath)
		}
		if !info.IsDir() {
			return nil, errors.Errorf("jarinput: unrecognized input %s: expected a .jar, an .aar or a directory", inputPath)
		}
		return collectDirectory(inputPath)
	}
}

func collectJarFile(jarPath string) ([]Entry, error) {
	r, err := zip.OpenReader(jarPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening jar %s", jarPath)
	}
	defer r.Close()
	return collectZipClasses(&r.Reader)
}

// collectAarFile extracts classes.jar from an .aar and re-enters it as
// a zip.Reader backed by an in-memory byte buffer, the Go analog of
// Python's io.BytesIO wrapping.
func collectAarFile(aarPath string) ([]Entry, error) {
	r, err := zip.OpenReader(aarPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening aar %s", aarPath)
	}
	defer r.Close()

	var classesJar *zip.File
	for _, f := range r.File {
		if f.Name == "classes.jar" {
			classesJar = f
			break
		}
	}
	if classesJar == nil {
		names := make([]string, len(r.File))
		for i, f := range r.File {
			names[i] = f.Name
		}
		return nil, errors.Errorf("jarinput: no classes.jar found in AAR %s. Available entries: %v", aarPath, names)
	}

	rc, err := classesJar.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening classes.jar inside %s", aarPath)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading classes.jar inside %s", aarPath)
	}

	inner, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrapf(err, "reading classes.jar inside %s as zip", aarPath)
	}
	return collectZipClasses(inner)
}

func collectZipClasses(r *zip.Reader) ([]Entry, error) {
	var out []Entry
	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, ".class") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "opening zip entry %s", f.Name)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "reading zip entry %s", f.Name)
		}
		out = append(out, Entry{Path: f.Name, Data: data})
	}
	return out, nil
}

// collectDirectory walks root for every "*.class" file, yielding paths
// relative to root with forward-slash separators regardless of host OS.
func collectDirectory(root string) ([]Entry, error) {
	var out []Entry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".class") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out = append(out, Entry{Path: filepath.ToSlash(rel), Data: data})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking directory %s", root)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
