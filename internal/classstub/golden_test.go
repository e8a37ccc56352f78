// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package classstub_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/txtar"

	"github.com/baguettex/chaquostub/internal/classfile"
	"github.com/baguettex/chaquostub/internal/classfile/cftest"
	"github.com/baguettex/chaquostub/internal/classstub"
)

// goldenArchive holds one expected-output fragment per named scenario,
// keeping the golden text for all of them in one place instead of
// scattering literal strings across the file.
var goldenArchive = txtar.Parse([]byte(`
-- simple-subclass.pyi --
class Shape(java.lang.Object):
    def __init__(self) -> None: ...

-- interface-implementer.pyi --
class Circle(Shape):
    def __init__(self) -> None: ...
`))

func goldenFile(t *testing.T, name string) string {
	t.Helper()
	for _, f := range goldenArchive.Files {
		if f.Name == name {
			return strings.TrimRight(string(f.Data), "\n")
		}
	}
	t.Fatalf("golden file %q not found in archive", name)
	return ""
}

func TestGoldenSimpleSubclass(t *testing.T) {
	data := cftest.New("test/Shape", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		Method(classfile.AccPublic, "<init>", "()V", "").
		Bytes()

	out := buildOne(t, "test", map[string][]byte{"test/Shape": data}, "test/Shape")
	assert.Contains(t, out, goldenFile(t, "simple-subclass.pyi"))
}

func TestGoldenInterfaceImplementer(t *testing.T) {
	shapeData := cftest.New("test/Shape", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract).
		Bytes()
	circleData := cftest.New("test/Circle", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		Interface("test/Shape").
		Method(classfile.AccPublic, "<init>", "()V", "").
		Bytes()

	b := classstub.NewBuilder("test",
		map[string][]byte{"test/Shape": shapeData, "test/Circle": circleData},
		map[string]bool{"Shape": true}, map[string]bool{})
	frag, err := b.BuildTopLevel("test/Circle")
	require.NoError(t, err)
	out := strings.Join(frag.Code, "\n") + "\n" + strings.Join(frag.TypeVars, "\n")

	assert.Contains(t, out, goldenFile(t, "interface-implementer.pyi"))
}
