// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pytype is the name translator: it decides, for any Java type
// name encountered anywhere in a signature (field, argument, return,
// type argument, array element, super type, ...), which Python-visible
// surrogate type(s) the bridge should expose, and it renders a TypeExpr
// tree back out as stub text, handling identifier mangling and import
// emission along the way.
package pytype

import (
	"sort"
	"strings"

	"github.com/baguettex/chaquostub/internal/stubir"
)

// Primitive describes one JVM primitive and its various Python-visible
// spellings, grounded on chaquopy's own PRIMITIVES table.
type Primitive struct {
	JavaPrimitive  string
	JavaObject     string // the boxed form, e.g. "java.lang.Integer"
	PythonPrimitive string // the bridge's array-element alias, e.g. "java.jint"
	PythonType     string // the default Python counterpart, e.g. "int"
}

// Primitives lists every JVM primitive type, plus void.
var Primitives = []Primitive{
	{"void", "java.lang.Void", "java.jvoid", "None"},
	{"byte", "java.lang.Byte", "java.jbyte", "int"},
	{"short", "java.lang.Short", "java.jshort", "int"},
	{"int", "java.lang.Integer", "java.jint", "int"},
	{"long", "java.lang.Long", "java.jlong", "int"},
	{"boolean", "java.lang.Boolean", "java.jboolean", "bool"},
	{"double", "java.lang.Double", "java.jdouble", "float"},
	{"float", "java.lang.Float", "java.jfloat", "float"},
	{"char", "java.lang.Character", "java.jchar", "str"},
}

var typeNameToPrimitive = func() map[string]Primitive {
	m := make(map[string]Primitive, len(Primitives)*2)
	for _, p := range Primitives {
		m[p.JavaPrimitive] = p
		m[p.JavaObject] = p
	}
	return m
}()

// ArrayElementAlias maps a bridge primitive alias to its specialized
// Java array wrapper type.
var ArrayElementAlias = map[string]string{
	"java.jboolean": "java.chaquopy.JavaArrayJBoolean",
	"java.jbyte":    "java.chaquopy.JavaArrayJByte",
	"java.jshort":   "java.chaquopy.JavaArrayJShort",
	"java.jint":     "java.chaquopy.JavaArrayJInt",
	"java.jlong":    "java.chaquopy.JavaArrayJLong",
	"java.jfloat":   "java.chaquopy.JavaArrayJFloat",
	"java.jdouble":  "java.chaquopy.JavaArrayJDouble",
	"java.jchar":    "java.chaquopy.JavaArrayJChar",
}

// Context carries the three boolean flags that the translation table in
// §4.C is keyed on.
type Context struct {
	Argument      bool
	ArrayParam    bool
	TypeArgument  bool
}

// Translate maps one Java type name (plus any already-translated type
// arguments) to its Python-visible TypeExpr, applying the bridge's
// implicit-conversion union rules. This is invoked while a signature or
// descriptor is being parsed (see sigparser), not while rendering.
func Translate(typeName string, typeArgs []*stubir.TypeExpr, ctx Context) *stubir.TypeExpr {
	var union []*stubir.TypeExpr

	if p, ok := typeNameToPrimitive[typeName]; ok {
		switch {
		case ctx.ArrayParam:
			union = append(union, stubir.NewType(p.PythonPrimitive))
		case ctx.TypeArgument:
			union = append(union, stubir.NewType(p.JavaObject))
		default:
			union = append(union, stubir.NewType(p.PythonType))
		}
		if ctx.Argument {
			union = append(union, stubir.NewType(p.PythonPrimitive), stubir.NewType(p.JavaObject))
		}
	}

	if typeName == "java.lang.String" {
		if ctx.ArrayParam || ctx.TypeArgument {
			union = append(union, stubir.NewType("java.lang.String"))
		} else {
			union = append(union, stubir.NewType("str"))
			if ctx.Argument {
				union = append(union, stubir.NewType("java.lang.String"))
			}
		}
	}

	if typeName == "java.lang.Class" {
		union = append(union, stubir.NewType("typing.Type", typeArgs...))
	}

	if typeName == "java.lang.Object" {
		union = append(union, stubir.NewType("java.lang.Object"))
		if ctx.Argument {
			union = append(union, stubir.NewType("int"), stubir.NewType("bool"), stubir.NewType("float"), stubir.NewType("str"))
		}
	}

	switch len(union) {
	case 0:
		return stubir.NewType(typeName, typeArgs...)
	case 1:
		return union[0]
	default:
		return stubir.Union(union...)
	}
}

// WrapArrayElement applies the "array element wrapping" rule of §4.C:
// after an array descriptor is parsed, its element type is wrapped in
// the specialized primitive array type when one exists, or the generic
// JavaArray[T] otherwise.
func WrapArrayElement(elem *stubir.TypeExpr) *stubir.TypeExpr {
	if arr, ok := ArrayElementAlias[elem.Name]; ok {
		return stubir.NewType(arr)
	}
	return stubir.NewType("java.chaquopy.JavaArray", elem)
}

// arrayAliasToPrimitive maps a specialized array wrapper's name back to
// the JVM primitive it wraps, so a varargs parameter can recover the
// full argument-context union (e.g. "int | java.jint | java.lang.Integer")
// rather than just the bridge's bare array-element alias.
var arrayAliasToPrimitive = func() map[string]string {
	byAlias := make(map[string]string, len(Primitives))
	for _, p := range Primitives {
		byAlias[p.PythonPrimitive] = p.JavaPrimitive
	}
	m := make(map[string]string, len(ArrayElementAlias))
	for alias, wrapper := range ArrayElementAlias {
		m[wrapper] = byAlias[alias]
	}
	return m
}()

// UnwrapVarargsElement reverses WrapArrayElement for the last parameter
// of a varargs method, so the stub can spell it as "*name: T" rather
// than "*name: JavaArray[T]".
func UnwrapVarargsElement(t *stubir.TypeExpr) *stubir.TypeExpr {
	if t.Name == "java.chaquopy.JavaArray" && len(t.Args) == 1 {
		return t.Args[0]
	}
	if javaPrimitive, ok := arrayAliasToPrimitive[t.Name]; ok {
		return Translate(javaPrimitive, nil, Context{Argument: true})
	}
	return t
}

// reservedWords are Python keywords plus the two words removed from the
// reserved set in Python 3.0 but still unsafe as identifiers here.
var reservedWords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
	"exec": true, "print": true,
}

// IsDunder reports whether name is a Python "dunder" identifier
// (__x__, at least 4 characters) that must never appear in a stub.
func IsDunder(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) >= 4
}

// Pysafe returns the Python-safe spelling of a Java identifier: reserved
// words get a trailing underscore, dunders are rejected outright.
func Pysafe(name string) (string, bool) {
	if IsDunder(name) {
		return "", false
	}
	if reservedWords[name] {
		return name + "_", true
	}
	return name, true
}

// PysafePackagePath mangles every dot-separated segment of a package
// path independently.
func PysafePackagePath(path string) string {
	segs := strings.Split(path, ".")
	for i, s := range segs {
		safe, ok := Pysafe(s)
		if !ok {
			safe = ""
		}
		segs[i] = safe
	}
	return strings.Join(segs, ".")
}

// Renderer converts TypeExpr trees into stub text, accumulating the
// imports and cross-references a rendered class needs. One Renderer is
// shared across every member of a single class render (see classstub).
type Renderer struct {
	PackageName string
	ClassesDone map[string]bool
	ClassesUsed map[string]bool
	Imports     map[string]struct{}
}

// NewRenderer creates a Renderer for one package/class render.
func NewRenderer(packageName string, classesDone, classesUsed map[string]bool) *Renderer {
	return &Renderer{
		PackageName: packageName,
		ClassesDone: classesDone,
		ClassesUsed: classesUsed,
		Imports:     make(map[string]struct{}),
	}
}

func (r *Renderer) addImport(line string) { r.Imports[line] = struct{}{} }

// Render converts one TypeExpr into its textual Python annotation, per
// the import-emission and union-collapsing rules of §4.C/§4.D.
//
// canBeDeferred controls whether a same-package reference to a class
// not yet emitted in this file may use its bare forward-reference name
// (true) or must fall back to a fully qualified import (false, used for
// supertype lists, which Python evaluates immediately rather than
// lazily).
func (r *Renderer) Render(t *stubir.TypeExpr, canBeDeferred bool) string {
	name := t.Name
	if strings.Contains(name, ".") && !strings.HasPrefix(name, "typing.") && !strings.HasPrefix(name, "builtins.") {
		name = PysafePackagePath(name)
		r.ClassesUsed[name] = true
		parent, local := splitLast(name)
		switch {
		case parent == PysafePackagePath(r.PackageName):
			if r.ClassesDone[local] || canBeDeferred {
				name = local
			} else {
				ownPackage := firstSegment(name)
				r.addImport("import " + ownPackage)
			}
		default:
			r.addImport("import " + parent)
		}
	}
	name = strings.ReplaceAll(name, "$", ".")

	if len(t.Args) > 0 || name == "" {
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = r.Render(a, true)
		}
		if name == "typing.Union" {
			return strings.Join(parts, " | ")
		}
		return name + "[" + strings.Join(parts, ", ") + "]"
	}
	return name
}

// RenderTypeVarDecl renders one module-level TypeVar declaration line.
func (r *Renderer) RenderTypeVarDecl(tv stubir.TypeVar) string {
	r.addImport("import typing")
	if tv.Bound != nil {
		return "" + tv.PythonName + " = typing.TypeVar('" + tv.PythonName + "', bound=" +
			r.Render(tv.Bound, true) + ")  # <" + tv.JavaName + ">"
	}
	return tv.PythonName + " = typing.TypeVar('" + tv.PythonName + "')  # <" + tv.JavaName + ">"
}

// SortedImports returns the accumulated imports sorted and deduplicated,
// the form a package-level stub file expects them in.
func (r *Renderer) SortedImports() []string {
	out := make([]string, 0, len(r.Imports))
	for imp := range r.Imports {
		out = append(out, imp)
	}
	sort.Strings(out)
	return out
}

func splitLast(dotted string) (parent, local string) {
	idx := strings.LastIndex(dotted, ".")
	if idx < 0 {
		return "", dotted
	}
	return dotted[:idx], dotted[idx+1:]
}

func firstSegment(dotted string) string {
	idx := strings.Index(dotted, ".")
	if idx < 0 {
		return dotted
	}
	return dotted[:idx]
}
