// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package jarinput_test

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baguettex/chaquostub/internal/jarinput"
)

func writeZip(t *testing.T, path string, files map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestCollectInputJar(t *testing.T) {
	dir := t.TempDir()
	jarPath := filepath.Join(dir, "lib.jar")
	writeZip(t, jarPath, map[string][]byte{
		"test/Foo.class":       []byte("foo-bytes"),
		"test/Foo$Bar.class":   []byte("bar-bytes"),
		"META-INF/MANIFEST.MF": []byte("manifest"),
	})

	entries, err := jarinput.CollectInput(jarPath)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	packages, classData := jarinput.GroupByPackage(jarinput.Entries(entries))
	require.Contains(t, packages, "test")
	assert.ElementsMatch(t, []string{"test/Foo.class", "test/Foo$Bar.class"}, packages["test"])
	assert.Equal(t, []byte("foo-bytes"), classData["test"]["test/Foo"])
	assert.Equal(t, []byte("bar-bytes"), classData["test"]["test/Foo$Bar"])
}

func TestCollectInputAar(t *testing.T) {
	dir := t.TempDir()

	var classesJarBuf bytes.Buffer
	zw := zip.NewWriter(&classesJarBuf)
	w, err := zw.Create("test/Foo.class")
	require.NoError(t, err)
	_, err = w.Write([]byte("foo-bytes"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	aarPath := filepath.Join(dir, "lib.aar")
	writeZip(t, aarPath, map[string][]byte{
		"classes.jar":  classesJarBuf.Bytes(),
		"AndroidManifest.xml": []byte("<manifest/>"),
	})

	entries, err := jarinput.CollectInput(aarPath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "test/Foo.class", entries[0].Path)
}

func TestCollectInputAarMissingClassesJar(t *testing.T) {
	dir := t.TempDir()
	aarPath := filepath.Join(dir, "lib.aar")
	writeZip(t, aarPath, map[string][]byte{"AndroidManifest.xml": []byte("<manifest/>")})

	_, err := jarinput.CollectInput(aarPath)
	assert.Error(t, err)
}

func TestCollectInputDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "test", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test", "Foo.class"), []byte("foo"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test", "sub", "Bar.class"), []byte("bar"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test", "readme.txt"), []byte("ignored"), 0o644))

	entries, err := jarinput.CollectInput(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	packages, _ := jarinput.GroupByPackage(jarinput.Entries(entries))
	assert.Contains(t, packages, "test")
	assert.Contains(t, packages, "test/sub")
}
