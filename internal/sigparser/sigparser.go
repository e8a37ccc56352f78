// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sigparser decodes JVM generic signatures (JVMS §4.7.9.1) and
// raw type descriptors (JVMS §4.3.2) into stubir.TypeExpr trees, calling
// into pytype for the actual name-translation policy at each leaf.
package sigparser

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/baguettex/chaquostub/internal/pytype"
	"github.com/baguettex/chaquostub/internal/stubir"
)

// cursor walks a signature or descriptor string one byte at a time.
// JVM signatures are ASCII, so byte indexing is safe. scope carries the
// enclosing class/method's TypeVar scope prefix, so a type-variable
// *reference* (the "T" case of parseType) can be resolved to the same
// python_name its declaration was given.
type cursor struct {
	s     string
	pos   int
	scope string
}

func (c *cursor) eof() bool { return c.pos >= len(c.s) }

func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.s[c.pos]
}

func (c *cursor) next() byte {
	b := c.peek()
	c.pos++
	return b
}

func (c *cursor) expect(b byte) error {
	if c.peek() != b {
		return errors.Errorf("sigparser: expected %q at byte %d of %q, found %q", b, c.pos, c.s, c.peek())
	}
	c.pos++
	return nil
}

// readUntil consumes and returns bytes up to (not including) the first
// occurrence of any byte in stop.
func (c *cursor) readUntil(stop string) string {
	start := c.pos
	for !c.eof() && !strings.ContainsRune(stop, rune(c.peek())) {
		c.pos++
	}
	return c.s[start:c.pos]
}

// internalToJava converts a JVM internal class name ("java/util/Map") to
// its dotted Java form ("java.util.Map"); any '$' nested-class separator
// is preserved as-is for pytype to translate at render time.
func internalToJava(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

var primitiveCodes = map[byte]string{
	'B': "byte", 'C': "char", 'D': "double", 'F': "float",
	'I': "int", 'J': "long", 'S': "short", 'Z': "boolean", 'V': "void",
}

// parseType parses one JavaTypeSignature / FieldType starting at c's
// current position, in the given translation context.
func parseType(c *cursor, ctx pytype.Context) (*stubir.TypeExpr, error) {
	switch b := c.peek(); {
	case b == 0:
		return nil, errors.Errorf("sigparser: unexpected end of signature %q", c.s)

	case primitiveCodes[b] != "" && b != 0:
		c.next()
		return pytype.Translate(primitiveCodes[b], nil, ctx), nil

	case b == '[':
		c.next()
		elem, err := parseType(c, pytype.Context{ArrayParam: true})
		if err != nil {
			return nil, err
		}
		return pytype.WrapArrayElement(elem), nil

	case b == 'T':
		c.next()
		name := c.readUntil(";")
		if err := c.expect(';'); err != nil {
			return nil, err
		}
		return stubir.NewType(c.typeVarPythonName(name)), nil

	case b == 'L':
		return parseClassType(c, ctx)

	case b == '*':
		c.next()
		return stubir.NewType("java.lang.Object"), nil

	case b == '+':
		c.next()
		return parseType(c, pytype.Context{TypeArgument: true})

	case b == '-':
		c.next()
		return parseType(c, pytype.Context{TypeArgument: true})

	default:
		return nil, errors.Errorf("sigparser: unrecognized type code %q in %q at %d", b, c.s, c.pos)
	}
}

// parseClassType parses a ClassTypeSignature: "L" Identifier TypeArgs?
// (ClassTypeSignatureSuffix)* ";". Suffix type arguments (for a generic
// member class referenced as Outer<T>.Inner<U>) are parsed for well-
// formedness but discarded, matching chaquopy's own simplification.
func parseClassType(c *cursor, ctx pytype.Context) (*stubir.TypeExpr, error) {
	if err := c.expect('L'); err != nil {
		return nil, err
	}
	name := c.readUntil(";<.")
	name = internalToJava(name)

	var typeArgs []*stubir.TypeExpr
	if c.peek() == '<' {
		args, err := parseTypeArgumentList(c)
		if err != nil {
			return nil, err
		}
		typeArgs = args
	}

	for c.peek() == '.' {
		c.next()
		inner := c.readUntil(";<.")
		name = name + "$" + inner
		if c.peek() == '<' {
			if _, err := parseTypeArgumentList(c); err != nil {
				return nil, err
			}
		}
	}

	if err := c.expect(';'); err != nil {
		return nil, err
	}

	return pytype.Translate(name, typeArgs, ctx), nil
}

func parseTypeArgumentList(c *cursor) ([]*stubir.TypeExpr, error) {
	if err := c.expect('<'); err != nil {
		return nil, err
	}
	var args []*stubir.TypeExpr
	for c.peek() != '>' {
		arg, err := parseType(c, pytype.Context{TypeArgument: true})
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	if err := c.expect('>'); err != nil {
		return nil, err
	}
	return args, nil
}

// typeVarPythonName resolves a type-variable reference to the
// python_name its declaration (in the enclosing class or method) was
// given: "_" + scope + "__" + javaName, matching parseFormalTypeParameters.
func (c *cursor) typeVarPythonName(javaName string) string {
	if c.scope == "" {
		return javaName
	}
	return fmt.Sprintf("_%s__%s", c.scope, javaName)
}

// ParseFieldType parses a field's Signature (if generic) or descriptor
// (otherwise) into its Python-visible TypeExpr. scope is the enclosing
// class's TypeVar scope prefix, used to resolve any type-variable
// reference the field's type makes to that class's own generic
// parameters.
func ParseFieldType(sig string, scope string) (*stubir.TypeExpr, error) {
	c := &cursor{s: sig, scope: scope}
	t, err := parseType(c, pytype.Context{})
	if err != nil {
		return nil, errors.Wrapf(err, "field type %q", sig)
	}
	if !c.eof() {
		return nil, errors.Errorf("sigparser: trailing data in field type %q at byte %d", sig, c.pos)
	}
	return t, nil
}

// MethodSignature is the decoded form of a method's generic Signature or
// raw descriptor: formal type parameters, parameter types in argument
// context, and the return type.
type MethodSignature struct {
	TypeVars []stubir.TypeVar
	Args     []*stubir.TypeExpr
	Return   *stubir.TypeExpr
}

// ParseMethodSignature parses a MethodTypeSignature (or, for a method
// with no generic Signature attribute, its raw descriptor — the two
// grammars agree on everything but formal type parameters and type
// variables, neither of which a descriptor-only method can contain).
//
// scopePrefix distinguishes this method's own type variables from any
// declared by its enclosing class, per parseFormalTypeParameters.
func ParseMethodSignature(sig string, scopePrefix string) (*MethodSignature, error) {
	c := &cursor{s: sig, scope: scopePrefix}

	var typeVars []stubir.TypeVar
	if c.peek() == '<' {
		tvs, err := parseFormalTypeParameters(c, scopePrefix)
		if err != nil {
			return nil, errors.Wrapf(err, "method signature %q", sig)
		}
		typeVars = tvs
	}

	if err := c.expect('('); err != nil {
		return nil, errors.Wrapf(err, "method signature %q", sig)
	}
	var args []*stubir.TypeExpr
	for c.peek() != ')' {
		arg, err := parseType(c, pytype.Context{Argument: true})
		if err != nil {
			return nil, errors.Wrapf(err, "method signature %q", sig)
		}
		args = append(args, arg)
	}
	if err := c.expect(')'); err != nil {
		return nil, errors.Wrapf(err, "method signature %q", sig)
	}

	ret, err := parseType(c, pytype.Context{})
	if err != nil {
		return nil, errors.Wrapf(err, "method signature %q return type", sig)
	}

	// Thrown-exception clauses ("^" ClassTypeSignature | TypeVariableSignature)
	// are not surfaced in a Python stub; consume and discard them.
	for c.peek() == '^' {
		c.next()
		if c.peek() == 'T' {
			c.next()
			c.readUntil(";")
			if err := c.expect(';'); err != nil {
				return nil, err
			}
			continue
		}
		if _, err := parseClassType(c, pytype.Context{}); err != nil {
			return nil, errors.Wrapf(err, "method signature %q throws clause", sig)
		}
	}

	return &MethodSignature{TypeVars: typeVars, Args: args, Return: ret}, nil
}

// ClassSignature is the decoded form of a class's generic Signature
// attribute: formal type parameters, the super class, and implemented
// interfaces.
type ClassSignature struct {
	TypeVars   []stubir.TypeVar
	Super      *stubir.TypeExpr
	Interfaces []*stubir.TypeExpr
}

// ParseClassSignature parses a ClassSignature. If sig is empty (the
// class carries no generic Signature attribute), callers should build
// super/interface types directly from the raw internal names instead.
func ParseClassSignature(sig string, scopePrefix string) (*ClassSignature, error) {
	c := &cursor{s: sig, scope: scopePrefix}

	var typeVars []stubir.TypeVar
	if c.peek() == '<' {
		tvs, err := parseFormalTypeParameters(c, scopePrefix)
		if err != nil {
			return nil, errors.Wrapf(err, "class signature %q", sig)
		}
		typeVars = tvs
	}

	super, err := parseClassType(c, pytype.Context{})
	if err != nil {
		return nil, errors.Wrapf(err, "class signature %q super type", sig)
	}

	var ifaces []*stubir.TypeExpr
	for !c.eof() {
		iface, err := parseClassType(c, pytype.Context{})
		if err != nil {
			return nil, errors.Wrapf(err, "class signature %q interface type", sig)
		}
		ifaces = append(ifaces, iface)
	}

	return &ClassSignature{TypeVars: typeVars, Super: super, Interfaces: ifaces}, nil
}

// parseFormalTypeParameters parses "<" (Identifier ClassBound InterfaceBound*)+ ">".
// Only the class bound is kept; interface bounds are structurally
// consumed but a Python TypeVar may carry only a single bound, matching
// chaquopy's own simplification.
func parseFormalTypeParameters(c *cursor, scopePrefix string) ([]stubir.TypeVar, error) {
	if err := c.expect('<'); err != nil {
		return nil, err
	}
	var out []stubir.TypeVar
	for c.peek() != '>' {
		name := c.readUntil(":")
		if err := c.expect(':'); err != nil {
			return nil, err
		}

		var bound *stubir.TypeExpr
		if c.peek() != ':' && c.peek() != '>' {
			// A bound of exactly "Ljava/lang/Object;" is the absence of an
			// explicit class bound and carries no information worth keeping.
			b, err := parseType(c, pytype.Context{})
			if err != nil {
				return nil, err
			}
			if !(b.Name == "java.lang.Object" && len(b.Args) == 0) {
				bound = b
			}
		}
		for c.peek() == ':' {
			c.next()
			if _, err := parseType(c, pytype.Context{}); err != nil {
				return nil, err
			}
		}

		out = append(out, stubir.TypeVar{
			JavaName:   name,
			PythonName: fmt.Sprintf("_%s__%s", scopePrefix, name),
			Bound:      bound,
		})
	}
	if err := c.expect('>'); err != nil {
		return nil, err
	}
	return out, nil
}

// ParseDescriptor parses a raw (non-generic) field or method descriptor,
// used as a fallback whenever a member carries no Signature attribute.
// A raw descriptor never references a type variable, so scope has no
// effect here; it is accepted only so callers can pass the same scope
// uniformly regardless of which form a member's type came from.
func ParseDescriptor(desc string, scope string) (*MethodSignature, error) {
	if !strings.HasPrefix(desc, "(") {
		t, err := ParseFieldType(desc, scope)
		if err != nil {
			return nil, err
		}
		return &MethodSignature{Return: t}, nil
	}
	return ParseMethodSignature(desc, scope)
}
