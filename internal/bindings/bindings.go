// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package bindings declares the bindings-injector contract the package
// driver consumes when it synthesizes the "java" package (§6 "Bindings
// injector (consumed)"), plus one default implementation supplying the
// hand-written declarations pytype's own output assumes exist:
// java.jint and friends, and the generic/specialized JavaArray family.
package bindings

// Injector mutates a synthetic package's accumulated imports and code
// lines, adding fixed declarations. imports and code are pointers
// because the injector appends to collections the caller already
// started accumulating.
type Injector interface {
	Inject(imports *[]string, code *[]string)
}

// ChaquopyDefaults injects the minimal set of names internal/pytype's
// translation table references but never itself defines: the bridge's
// primitive aliases (java.jint, java.jbyte, ...) and the generic and
// specialized JavaArray wrapper types named in the array-element
// wrapping rule.
type ChaquopyDefaults struct{}

func (ChaquopyDefaults) Inject(imports *[]string, code *[]string) {
	*imports = append(*imports, "import typing")

	*code = append(*code,
		"",
		"jvoid = typing.NewType('jvoid', None)",
		"jboolean = typing.NewType('jboolean', bool)",
		"jbyte = typing.NewType('jbyte', int)",
		"jshort = typing.NewType('jshort', int)",
		"jint = typing.NewType('jint', int)",
		"jlong = typing.NewType('jlong', int)",
		"jfloat = typing.NewType('jfloat', float)",
		"jdouble = typing.NewType('jdouble', float)",
		"jchar = typing.NewType('jchar', str)",
		"",
	)

	elemTypeVar := "_JavaArray__T"
	*code = append(*code,
		elemTypeVar+" = typing.TypeVar('"+elemTypeVar+"')",
		"",
		"class chaquopy:",
		"    class JavaArray(typing.Generic["+elemTypeVar+"]):",
		"        def __getitem__(self, index: int) -> "+elemTypeVar+": ...",
		"        def __setitem__(self, index: int, value: "+elemTypeVar+") -> None: ...",
		"        def __len__(self) -> int: ...",
		"",
	)

	for _, prim := range []string{"JBoolean", "JByte", "JShort", "JInt", "JLong", "JFloat", "JDouble", "JChar"} {
		*code = append(*code,
			"    class JavaArray"+prim+"(JavaArray["+jPrimitiveType(prim)+"]): ...",
		)
	}
	*code = append(*code, "")
}

// jPrimitiveType maps a specialized array class's suffix (matching
// internal/pytype's ArrayElementAlias names, e.g. "JInt") back to the
// bridge alias it wraps.
func jPrimitiveType(suffix string) string {
	switch suffix {
	case "JBoolean":
		return "jboolean"
	case "JByte":
		return "jbyte"
	case "JShort":
		return "jshort"
	case "JInt":
		return "jint"
	case "JLong":
		return "jlong"
	case "JFloat":
		return "jfloat"
	case "JDouble":
		return "jdouble"
	case "JChar":
		return "jchar"
	}
	return "object"
}
