// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package classstub builds one Python stub fragment (class body, field
// and method declarations, nested classes, type-variable declarations)
// from a parsed JVM class, recursively rendering nested member classes
// in place the way Python actually nests them.
package classstub

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/baguettex/chaquostub/internal/classfile"
	"github.com/baguettex/chaquostub/internal/genlog"
	"github.com/baguettex/chaquostub/internal/genprint"
	"github.com/baguettex/chaquostub/internal/pytype"
	"github.com/baguettex/chaquostub/internal/sigparser"
	"github.com/baguettex/chaquostub/internal/stubir"
)

// canReturnNone whitelists methods whose erased Java return type cannot
// express that the JVM implementation is permitted to return null, so a
// stub that followed the descriptor literally would be a lie. Keyed by
// "internal/class/Name.methodName". A handful of well-known JDK methods
// are seeded here; chaquopy's own list is longer, but this is the shape.
var canReturnNone = map[string]bool{
	"java/util/Map.get":                             true,
	"java/util/Map.put":                             true,
	"java/util/Map.remove":                           true,
	"java/util/Hashtable.get":                        true,
	"java/util/Hashtable.put":                        true,
	"java/util/Hashtable.remove":                     true,
	"java/util/concurrent/ConcurrentHashMap.get":      true,
	"java/util/concurrent/ConcurrentHashMap.put":      true,
	"java/util/concurrent/ConcurrentHashMap.remove":   true,
}

// Builder assembles the Python stub for one top-level class and every
// member class nested inside it, sharing a single pytype.Renderer so
// imports and cross-references accumulate across the whole unit.
type Builder struct {
	classData   map[string][]byte
	renderer    *pytype.Renderer
	printer     *genprint.Printer
	typeVars    []string
	classesUsed map[string]bool
}

// NewBuilder starts a build for one package's stub output. classesDone
// and classesUsed are shared across every top-level class rendered into
// the same package, matching the ordering rules the package driver
// enforces.
func NewBuilder(packageName string, classData map[string][]byte, classesDone, classesUsed map[string]bool) *Builder {
	return &Builder{
		classData:   classData,
		renderer:    pytype.NewRenderer(packageName, classesDone, classesUsed),
		printer:     genprint.New(),
		classesUsed: classesUsed,
	}
}

// BuildTopLevel renders internalName (which must name a top-level class:
// one with no OuterName InnerClasses entry pointing to it) into a
// complete ClassStubFragment, including every member class nested
// inside it.
func (b *Builder) BuildTopLevel(internalName string) (*stubir.ClassStubFragment, error) {
	cn, err := b.parse(internalName)
	if err != nil {
		return nil, err
	}
	if skipClass(cn) {
		return stubir.NewFragment(), nil
	}

	b.printer = genprint.New()
	b.typeVars = nil
	if err := b.renderClass(cn, internalName); err != nil {
		return nil, errors.Wrapf(err, "class %s", internalName)
	}

	frag := stubir.NewFragment()
	frag.Imports = b.renderer.Imports
	frag.TypeVars = b.typeVars
	frag.Code = strings.Split(strings.TrimRight(b.printer.String(), "\n"), "\n")
	return frag, nil
}

func (b *Builder) parse(internalName string) (*classfile.ClassNode, error) {
	data, ok := b.classData[internalName]
	if !ok {
		return nil, errors.Errorf("classstub: no class data for %s", internalName)
	}
	cn, err := classfile.Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", internalName)
	}
	return cn, nil
}

// skipClass implements the "skip synthetic/anonymous" rule: compiler-
// generated and anonymous/local classes have no stable Python identity
// worth exposing.
func skipClass(cn *classfile.ClassNode) bool {
	if cn.Access&classfile.AccSynthetic != 0 {
		return true
	}
	if cn.OuterMethod {
		return true
	}
	return false
}

func isAccessibleMember(access int) bool {
	return access&(classfile.AccPublic|classfile.AccProtected) != 0
}

func localClassName(internalName string) string {
	idx := strings.LastIndexByte(internalName, '$')
	if idx < 0 {
		idx = strings.LastIndexByte(internalName, '/')
		return internalName[idx+1:]
	}
	return internalName[idx+1:]
}

// renderClass writes one class's full `class Name(bases): ...` block,
// recursing into its direct member classes before closing the block.
func (b *Builder) renderClass(cn *classfile.ClassNode, internalName string) error {
	p := b.printer
	localName := localClassName(internalName)
	scope := classScopePrefix(internalName)

	classTypeVars, bases, err := b.classHeader(cn)
	if err != nil {
		return err
	}
	for _, tv := range classTypeVars {
		b.typeVars = append(b.typeVars, b.renderer.RenderTypeVarDecl(tv))
	}
	if len(classTypeVars) > 0 {
		genericArgs := make([]*stubir.TypeExpr, len(classTypeVars))
		for i, tv := range classTypeVars {
			genericArgs[i] = stubir.NewType(tv.PythonName)
		}
		bases = append(bases, stubir.NewType("typing.Generic", genericArgs...))
		b.renderer.Imports["import typing"] = struct{}{}
	}

	baseNames := make([]string, len(bases))
	for i, base := range bases {
		baseNames[i] = b.renderer.Render(base, false)
	}

	p.Printf("class %s(%s):\n", localName, strings.Join(baseNames, ", "))
	p.Indent()

	wroteMember := false

	for _, f := range cn.Fields {
		if !isAccessibleMember(f.Access) || f.Synthetic {
			continue
		}
		b.renderField(f, scope)
		wroteMember = true
	}

	methodsByName := make(map[string][]classfile.MethodNode)
	var methodOrder []string
	for _, m := range cn.Methods {
		if !isAccessibleMember(m.Access) || m.Synthetic || m.Bridge {
			continue
		}
		if _, seen := methodsByName[m.Name]; !seen {
			methodOrder = append(methodOrder, m.Name)
		}
		methodsByName[m.Name] = append(methodsByName[m.Name], m)
	}
	for _, name := range methodOrder {
		if err := b.renderOverloadGroup(internalName, name, methodsByName[name]); err != nil {
			return err
		}
		wroteMember = true
	}

	var childNames []string
	for _, ic := range cn.InnerClasses {
		if ic.OuterName == internalName {
			childNames = append(childNames, ic.Name)
		}
	}
	sort.Strings(childNames)
	for _, child := range childNames {
		childCN, err := b.parse(child)
		if err != nil {
			return err
		}
		if skipClass(childCN) {
			continue
		}
		if err := b.renderClass(childCN, child); err != nil {
			return err
		}
		wroteMember = true
	}

	if !wroteMember {
		p.Printf("pass\n")
	}
	p.Outdent()
	p.Printf("\n")
	return nil
}

// classHeader decodes the class's generic Signature (or its raw
// super/interfaces when it has none) into the TypeVars it declares and
// the base-class list the stub should inherit from.
func (b *Builder) classHeader(cn *classfile.ClassNode) ([]stubir.TypeVar, []*stubir.TypeExpr, error) {
	scope := classScopePrefix(cn.Name)

	var typeVars []stubir.TypeVar
	var super *stubir.TypeExpr
	var ifaces []*stubir.TypeExpr

	if cn.Signature != "" {
		cs, err := sigparser.ParseClassSignature(cn.Signature, scope)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "class signature for %s", cn.Name)
		}
		typeVars, super, ifaces = cs.TypeVars, cs.Super, cs.Interfaces
	} else {
		if cn.SuperName != "" {
			super = pytype.Translate(internalToJava(cn.SuperName), nil, pytype.Context{})
		}
		for _, iface := range cn.Interfaces {
			ifaces = append(ifaces, pytype.Translate(internalToJava(iface), nil, pytype.Context{}))
		}
	}

	var bases []*stubir.TypeExpr
	if super != nil && super.Name != "java.lang.Object" {
		bases = append(bases, super)
	}
	bases = append(bases, ifaces...)
	if cn.Name == "java/lang/Throwable" {
		bases = append(bases, stubir.NewType("builtins.Exception"))
	}
	if len(bases) == 0 && len(typeVars) == 0 {
		bases = append(bases, stubir.NewType("java.lang.Object"))
	}

	return typeVars, bases, nil
}

func internalToJava(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// classScopePrefix turns an internal class name into the scope prefix
// used to build unique TypeVar python_names: the package is dropped and
// each "$"-separated nesting level joins with "__", so
// "com/example/Map$Entry" becomes "Map__Entry".
func classScopePrefix(internalName string) string {
	idx := strings.LastIndexByte(internalName, '/')
	local := internalName[idx+1:]
	return strings.ReplaceAll(local, "$", "__")
}

func (b *Builder) renderField(f classfile.FieldNode, scope string) {
	var ty *stubir.TypeExpr
	var err error
	if f.Signature != "" {
		ty, err = sigparser.ParseFieldType(f.Signature, scope)
	}
	if ty == nil || err != nil {
		ty, err = sigparser.ParseFieldType(f.Desc, scope)
		if err != nil {
			genlog.Log.Warnf("skipping field %s: %v", f.Name, err)
			return
		}
	}
	name, ok := pytype.Pysafe(f.Name)
	if !ok {
		return
	}
	text := b.renderer.Render(ty, true)
	if f.Access&classfile.AccStatic != 0 {
		b.printer.Printf("%s: typing.ClassVar[%s]\n", name, text)
	} else {
		b.printer.Printf("%s: %s\n", name, text)
	}
}

// renderOverloadGroup writes every method sharing one Java name,
// decorating with @typing.overload when there is more than one, sorted
// for determinism by (argument count, raw descriptor).
func (b *Builder) renderOverloadGroup(internalName, name string, methods []classfile.MethodNode) error {
	sort.Slice(methods, func(i, j int) bool {
		ai, aj := argCount(methods[i].Desc), argCount(methods[j].Desc)
		if ai != aj {
			return ai < aj
		}
		return methods[i].Desc < methods[j].Desc
	})

	overload := len(methods) > 1
	for _, m := range methods {
		if err := b.renderMethod(internalName, m, overload); err != nil {
			genlog.Log.Warnf("skipping %v", err)
		}
	}
	return nil
}

func argCount(desc string) int {
	n := 0
	i := 1 // skip '('
	for i < len(desc) && desc[i] != ')' {
		for desc[i] == '[' {
			i++
		}
		if desc[i] == 'L' {
			for desc[i] != ';' {
				i++
			}
		}
		i++
		n++
	}
	return n
}

func (b *Builder) renderMethod(internalName string, m classfile.MethodNode, overload bool) error {
	if pytype.IsDunder(m.Name) {
		return nil
	}
	sig := m.Signature
	var ms *sigparser.MethodSignature
	var err error
	scope := classScopePrefix(internalName) + "__" + pysafeMethodName(m.Name)
	if sig != "" {
		ms, err = sigparser.ParseMethodSignature(sig, scope)
	}
	if ms == nil || err != nil {
		ms, err = sigparser.ParseDescriptor(m.Desc, scope)
		if err != nil {
			return errors.Wrapf(err, "method %s.%s%s", internalName, m.Name, m.Desc)
		}
	}

	eliminateSingleUseTypeVars(ms)

	isStatic := m.Access&classfile.AccStatic != 0
	isCtor := m.Name == "<init>"

	whitelistKey := internalName + "." + m.Name
	if canReturnNone[whitelistKey] && ms.Return != nil {
		ms.Return = stubir.Union(ms.Return, stubir.NewType("None"))
	}

	names := paramNames(m, isStatic, len(ms.Args))

	p := b.printer
	for _, tv := range ms.TypeVars {
		b.typeVars = append(b.typeVars, b.renderer.RenderTypeVarDecl(tv))
	}

	if overload {
		p.Printf("@typing.overload\n")
		b.renderer.Imports["import typing"] = struct{}{}
	}
	if isStatic {
		p.Printf("@staticmethod\n")
	}

	var params []string
	if !isStatic {
		params = append(params, "self")
	}
	for i, arg := range ms.Args {
		varargs := m.Varargs && i == len(ms.Args)-1
		ty := arg
		if varargs {
			ty = pytype.UnwrapVarargsElement(ty)
		}
		text := b.renderer.Render(ty, true)
		pname := names[i]
		if varargs {
			params = append(params, "*"+pname+": "+text)
		} else {
			params = append(params, pname+": "+text)
		}
	}
	if len(ms.Args) > 0 {
		insertAt := len(params)
		if m.Varargs {
			insertAt = len(params) - 1
		}
		params = append(params[:insertAt], append([]string{"/"}, params[insertAt:]...)...)
	}

	pyName := m.Name
	if isCtor {
		pyName = "__init__"
	} else if safe, ok := pytype.Pysafe(m.Name); ok {
		pyName = safe
	}

	retText := "None"
	if !isCtor && ms.Return != nil {
		retText = b.renderer.Render(ms.Return, true)
	}

	p.Printf("def %s(%s) -> %s: ...\n", pyName, strings.Join(params, ", "), retText)
	return nil
}

func pysafeMethodName(name string) string {
	if name == "<init>" {
		return "init"
	}
	safe, ok := pytype.Pysafe(name)
	if !ok {
		return "m"
	}
	return safe
}

// paramNames recovers declared parameter names from the method's
// LocalVariableTable, stepping the slot counter by two for long/double
// parameters (JVMS §2.6.1's double-width local rule), falling back to
// synthesized names when no debug table is present.
func paramNames(m classfile.MethodNode, isStatic bool, argc int) []string {
	widths := slotWidths(m.Desc)
	names := make([]string, argc)
	slot := 0
	if !isStatic {
		slot = 1
	}
	lvByslot := make(map[int]string, len(m.LocalVariables))
	for _, lv := range m.LocalVariables {
		lvByslot[lv.Slot] = lv.Name
	}
	for i := 0; i < argc; i++ {
		if n, ok := lvByslot[slot]; ok && n != "this" {
			if safe, ok := pytype.Pysafe(n); ok {
				names[i] = safe
			} else {
				names[i] = fmt.Sprintf("invalidArgName%d", i)
			}
		} else {
			names[i] = fmt.Sprintf("arg%d", i)
		}
		if i < len(widths) {
			slot += widths[i]
		} else {
			slot++
		}
	}
	return names
}

// slotWidths returns, for each parameter in a raw descriptor, how many
// local-variable slots it occupies: 2 for long/double, 1 otherwise.
func slotWidths(desc string) []int {
	var widths []int
	i := 1
	for i < len(desc) && desc[i] != ')' {
		start := i
		for desc[i] == '[' {
			i++
		}
		switch desc[i] {
		case 'L':
			for desc[i] != ';' {
				i++
			}
			i++
		case 'J', 'D':
			if desc[start] == '[' {
				widths = append(widths, 1)
			} else {
				widths = append(widths, 2)
			}
			i++
			continue
		default:
			i++
		}
		widths = append(widths, 1)
	}
	return widths
}

// eliminateSingleUseTypeVars drops any method type variable that occurs
// at most once in total across the parameter types and the return type
// (every occurrence counts, including repeats inside one parameter),
// substituting its bound (or java.lang.Object, if unbounded) everywhere
// it appears. A TypeVar that occurs only once relates nothing to
// anything else, so keeping it declared adds no information over its
// bound.
func eliminateSingleUseTypeVars(ms *sigparser.MethodSignature) {
	if len(ms.TypeVars) == 0 {
		return
	}
	counts := make(map[string]int)
	for _, arg := range ms.Args {
		countUses(arg, counts)
	}
	countUses(ms.Return, counts)

	kept := ms.TypeVars[:0]
	substitute := make(map[string]*stubir.TypeExpr)
	for _, tv := range ms.TypeVars {
		if counts[tv.PythonName] <= 1 {
			bound := tv.Bound
			if bound == nil {
				bound = stubir.NewType("java.lang.Object")
			}
			substitute[tv.PythonName] = bound
			continue
		}
		kept = append(kept, tv)
	}
	ms.TypeVars = kept

	if len(substitute) == 0 {
		return
	}
	for i, t := range ms.Args {
		ms.Args[i] = substituteTypeExpr(t, substitute)
	}
	if ms.Return != nil {
		ms.Return = substituteTypeExpr(ms.Return, substitute)
	}
}

func countUses(t *stubir.TypeExpr, counts map[string]int) {
	if t == nil {
		return
	}
	if len(t.Args) == 0 {
		counts[t.Name]++
		return
	}
	for _, a := range t.Args {
		countUses(a, counts)
	}
}

func substituteTypeExpr(t *stubir.TypeExpr, sub map[string]*stubir.TypeExpr) *stubir.TypeExpr {
	if t == nil {
		return nil
	}
	if len(t.Args) == 0 {
		if repl, ok := sub[t.Name]; ok {
			return repl
		}
		return t
	}
	newArgs := make([]*stubir.TypeExpr, len(t.Args))
	for i, a := range t.Args {
		newArgs[i] = substituteTypeExpr(a, sub)
	}
	return &stubir.TypeExpr{Name: t.Name, Args: newArgs}
}
