// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baguettex/chaquostub/internal/classfile"
	"github.com/baguettex/chaquostub/internal/classfile/cftest"
)

func TestParseBasicClass(t *testing.T) {
	data := cftest.New("com/example/Foo", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		Field(classfile.AccPublic, "bar", "I", "").
		Method(classfile.AccPublic, "<init>", "()V", "").
		Bytes()

	cn, err := classfile.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "com/example/Foo", cn.Name)
	assert.Equal(t, "java/lang/Object", cn.SuperName)
	require.Len(t, cn.Fields, 1)
	assert.Equal(t, "bar", cn.Fields[0].Name)
	assert.Equal(t, "I", cn.Fields[0].Desc)
	require.Len(t, cn.Methods, 1)
	assert.Equal(t, "<init>", cn.Methods[0].Name)
}

func TestParseGenericSignatureAndInnerClasses(t *testing.T) {
	data := cftest.New("com/example/Map", "java/lang/Object").
		Signature("<K:Ljava/lang/Object;V:Ljava/lang/Object;>Ljava/lang/Object;").
		InnerClass("com/example/Map$Entry", "com/example/Map", "Entry", classfile.AccPublic|classfile.AccStatic).
		Bytes()

	cn, err := classfile.Parse(data)
	require.NoError(t, err)
	assert.Contains(t, cn.Signature, "<K:")
	require.Len(t, cn.InnerClasses, 1)
	ic := cn.InnerClasses[0]
	assert.Equal(t, "com/example/Map$Entry", ic.Name)
	assert.Equal(t, "com/example/Map", ic.OuterName)
	assert.Equal(t, "Entry", ic.InnerName)
	assert.True(t, ic.Access&classfile.AccStatic != 0)
}

func TestParseLocalVariableTable(t *testing.T) {
	data := cftest.New("com/example/Calc", "java/lang/Object").
		MethodWithLocals(classfile.AccPublic, "add", "(II)I", "", map[int]string{
			0: "this",
			1: "a",
			2: "b",
		}).
		Bytes()

	cn, err := classfile.Parse(data)
	require.NoError(t, err)
	require.Len(t, cn.Methods, 1)
	lvs := cn.Methods[0].LocalVariables
	require.Len(t, lvs, 3)
	byName := map[int]string{}
	for _, lv := range lvs {
		byName[lv.Slot] = lv.Name
	}
	assert.Equal(t, "this", byName[0])
	assert.Equal(t, "a", byName[1])
	assert.Equal(t, "b", byName[2])
}

func TestOuterMethodMarksAnonymousClass(t *testing.T) {
	data := cftest.New("com/example/Outer$1", "java/lang/Object").
		OuterMethod().
		Bytes()

	cn, err := classfile.Parse(data)
	require.NoError(t, err)
	assert.True(t, cn.OuterMethod)
}

func TestBadMagicNumber(t *testing.T) {
	_, err := classfile.Parse([]byte{0, 1, 2, 3})
	assert.Error(t, err)
}
