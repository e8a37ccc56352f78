// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classstub_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baguettex/chaquostub/internal/classfile"
	"github.com/baguettex/chaquostub/internal/classfile/cftest"
	"github.com/baguettex/chaquostub/internal/classstub"
)

func buildOne(t *testing.T, pkg string, data map[string][]byte, top string) string {
	t.Helper()
	b := classstub.NewBuilder(pkg, data, map[string]bool{}, map[string]bool{})
	frag, err := b.BuildTopLevel(top)
	require.NoError(t, err)
	return strings.Join(frag.Code, "\n") + "\n" + strings.Join(frag.TypeVars, "\n")
}

func TestGenericClassWithBoundedParameter(t *testing.T) {
	data := cftest.New("test/Map", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		Signature("<K:Ljava/lang/Enum<TK;>;V:Ljava/lang/Object;>Ljava/lang/Object;").
		Bytes()

	out := buildOne(t, "test", map[string][]byte{"test/Map": data}, "test/Map")
	assert.Contains(t, out, "_Map__K = typing.TypeVar('_Map__K', bound=java.lang.Enum[_Map__K])")
	assert.Contains(t, out, "_Map__V = typing.TypeVar('_Map__V')")
	assert.Contains(t, out, "class Map(typing.Generic[_Map__K, _Map__V]):")
}

func TestVarargsMethod(t *testing.T) {
	data := cftest.New("test/Math", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		MethodWithLocals(
			classfile.AccPublic|classfile.AccStatic|classfile.AccVarargs,
			"sum", "([I)I", "",
			map[int]string{0: "xs"},
		).
		Bytes()

	out := buildOne(t, "test", map[string][]byte{"test/Math": data}, "test/Math")
	assert.Contains(t, out, "@staticmethod")
	assert.Contains(t, out, "*xs: int | java.jint | java.lang.Integer) -> int: ...")
}

func TestOverloadSingleUseMethodTypeVarEliminated(t *testing.T) {
	// T appears exactly once across params and return (only in xs's
	// List<T>; the method is void), so it is erased to its bound.
	data := cftest.New("test/Finder", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		MethodWithLocals(
			classfile.AccPublic,
			"discard", "(Ljava/util/List;)V",
			"<T:Ljava/lang/Object;>(Ljava/util/List<TT;>;)V",
			map[int]string{0: "this", 1: "xs"},
		).
		Bytes()

	out := buildOne(t, "test", map[string][]byte{"test/Finder": data}, "test/Finder")
	assert.NotContains(t, out, "typing.TypeVar")
	assert.Contains(t, out, "xs: java.util.List[java.lang.Object]")
}

func TestMethodTypeVarUsedInParamAndReturnIsKept(t *testing.T) {
	// T appears twice across params and return (once in xs's List<T>,
	// once as the return type itself), so it survives.
	data := cftest.New("test/Finder", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		MethodWithLocals(
			classfile.AccPublic,
			"first", "(Ljava/util/List;)Ljava/lang/Object;",
			"<T:Ljava/lang/Object;>(Ljava/util/List<TT;>;)TT;",
			map[int]string{0: "this", 1: "xs"},
		).
		Bytes()

	out := buildOne(t, "test", map[string][]byte{"test/Finder": data}, "test/Finder")
	assert.Contains(t, out, "typing.TypeVar('_Finder__first__T')")
	assert.Contains(t, out, "xs: java.util.List[_Finder__first__T]")
	assert.Contains(t, out, ") -> _Finder__first__T: ...")
}

func TestMethodTypeVarUsedTwiceInOneParameterIsKept(t *testing.T) {
	data := cftest.New("test/Box", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		MethodWithLocals(
			classfile.AccPublic,
			"put", "(Ljava/util/Map;)V",
			"<T:Ljava/lang/Object;>(Ljava/util/Map<TT;TT;>;)V",
			map[int]string{0: "this", 1: "m"},
		).
		Bytes()

	out := buildOne(t, "test", map[string][]byte{"test/Box": data}, "test/Box")
	assert.Contains(t, out, "typing.TypeVar")
	assert.Contains(t, out, "m: java.util.Map[")
	assert.NotContains(t, out, "m: java.util.Map[java.lang.Object, java.lang.Object]")
}

func TestNestedClassWithParentGenerics(t *testing.T) {
	entryData := cftest.New("test/Map$Entry", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccStatic).
		Signature("<E:Ljava/lang/Object;>Ljava/lang/Object;").
		Bytes()
	mapData := cftest.New("test/Map", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		Signature("<K:Ljava/lang/Object;V:Ljava/lang/Object;>Ljava/lang/Object;").
		InnerClass("test/Map$Entry", "test/Map", "Entry", classfile.AccPublic|classfile.AccStatic).
		Bytes()

	out := buildOne(t, "test", map[string][]byte{
		"test/Map":       mapData,
		"test/Map$Entry": entryData,
	}, "test/Map")

	assert.Contains(t, out, "_Map__Entry__E = typing.TypeVar('_Map__Entry__E')")
	assert.Contains(t, out, "class Entry(typing.Generic[_Map__Entry__E]):")
}

func TestThrowableGetsBuiltinsExceptionBase(t *testing.T) {
	data := cftest.New("java/lang/Throwable", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		Bytes()

	out := buildOne(t, "java/lang", map[string][]byte{"java/lang/Throwable": data}, "java/lang/Throwable")
	assert.Contains(t, out, "builtins.Exception")
}

func TestArrayOfPrimitiveArgument(t *testing.T) {
	data := cftest.New("test/Util", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		MethodWithLocals(classfile.AccPublic, "f", "([B)V", "", map[int]string{0: "this", 1: "b"}).
		Bytes()

	out := buildOne(t, "test", map[string][]byte{"test/Util": data}, "test/Util")
	assert.Contains(t, out, "b: java.chaquopy.JavaArrayJByte, /) -> None: ...")
}

func TestObjectDroppedWhenOtherBasesPresent(t *testing.T) {
	data := cftest.New("test/Impl", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		Interface("java/lang/Runnable").
		Bytes()

	out := buildOne(t, "test", map[string][]byte{"test/Impl": data}, "test/Impl")
	assert.Contains(t, out, "class Impl(java.lang.Runnable):")
	assert.NotContains(t, out, "class Impl(java.lang.Object")
}

func TestAnonymousClassSkipped(t *testing.T) {
	data := cftest.New("test/Impl$1", "java/lang/Object").
		Access(classfile.AccPublic).
		OuterMethod().
		Bytes()

	b := classstub.NewBuilder("test", map[string][]byte{"test/Impl$1": data}, map[string]bool{}, map[string]bool{})
	frag, err := b.BuildTopLevel("test/Impl$1")
	require.NoError(t, err)
	assert.Empty(t, frag.Code)
}

func TestOverloadsGetDecorator(t *testing.T) {
	data := cftest.New("test/Multi", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		MethodWithLocals(classfile.AccPublic, "go", "(I)V", "", map[int]string{0: "this", 1: "a"}).
		MethodWithLocals(classfile.AccPublic, "go", "(Ljava/lang/String;)V", "", map[int]string{0: "this", 1: "a"}).
		Bytes()

	out := buildOne(t, "test", map[string][]byte{"test/Multi": data}, "test/Multi")
	assert.Equal(t, 2, strings.Count(out, "@typing.overload"))
}
