// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stubir defines the language-neutral type model that the rest
// of the generator is built on: parsed Java types on one side, rendered
// Python stub text on the other.
package stubir

// TypeExpr is a tree representing one Python-visible type expression.
//
// Name "typing.Union" always carries two or more Args. A dotted Name
// refers to a fully qualified external entity; Python builtins use
// either a bare name or an explicit "builtins." prefix.
type TypeExpr struct {
	Name string
	Args []*TypeExpr
}

// NewType builds a leaf or parameterized TypeExpr.
func NewType(name string, args ...*TypeExpr) *TypeExpr {
	if len(args) == 0 {
		return &TypeExpr{Name: name}
	}
	return &TypeExpr{Name: name, Args: args}
}

// Union builds a typing.Union node, collapsing to the bare member when
// there is exactly one, per the dedup rule in §4.C.
func Union(members ...*TypeExpr) *TypeExpr {
	deduped := make([]*TypeExpr, 0, len(members))
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		key := m.key()
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, m)
	}
	if len(deduped) == 1 {
		return deduped[0]
	}
	return &TypeExpr{Name: "typing.Union", Args: deduped}
}

// key is a structural identity used only to dedup Union members; it is
// not the rendered text (rendering is pytype's job).
func (t *TypeExpr) key() string {
	if t == nil {
		return ""
	}
	s := t.Name + "("
	for _, a := range t.Args {
		s += a.key() + ","
	}
	return s + ")"
}

// Equal reports whether two TypeExprs are structurally identical. Per
// §4.A, two TypeExprs are only required to compare equal when they
// render to identical text; structural equality is the simpler
// sufficient condition the parser and its tests rely on.
func (t *TypeExpr) Equal(other *TypeExpr) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.Name != other.Name || len(t.Args) != len(other.Args) {
		return false
	}
	for i, a := range t.Args {
		if !a.Equal(other.Args[i]) {
			return false
		}
	}
	return true
}

// TypeVar is the declaration of a generic parameter.
//
// PythonName must be unique within the stub file that declares it; it
// is built from a scope prefix plus JavaName (see sigparser's parseFormalTypeParameters).
type TypeVar struct {
	JavaName   string
	PythonName string
	Bound      *TypeExpr // nil means unbounded
}

// ArgSpec is one method parameter.
type ArgSpec struct {
	Name    string
	Type    *TypeExpr
	VarArgs bool
}

// MethodSig is one overload.
type MethodSig struct {
	Name     string
	Static   bool
	Args     []ArgSpec
	Ret      *TypeExpr
	TypeVars []TypeVar
}

// ClassStubFragment is the per-class intermediate output: a set of
// import lines, module-level type-variable declaration lines, and class
// body code lines (possibly containing indented nested-class blocks).
type ClassStubFragment struct {
	Imports  map[string]struct{}
	TypeVars []string
	Code     []string
}

// NewFragment returns an empty fragment, ready to be merged into.
func NewFragment() *ClassStubFragment {
	return &ClassStubFragment{Imports: make(map[string]struct{})}
}

// MergeImports adds every import line from other into f.
func (f *ClassStubFragment) MergeImports(other *ClassStubFragment) {
	for imp := range other.Imports {
		f.Imports[imp] = struct{}{}
	}
}

// PackageGroup identifies one Java package: its directory path (using
// '/' separators), the top-level class-file paths belonging to it, and
// a mapping from internal class name (e.g. "java/util/Map$Entry") to raw
// class bytes covering both top-level and nested members.
type PackageGroup struct {
	Dir        string
	ClassFiles []string
	ClassData  map[string][]byte
}
