// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baguettex/chaquostub/internal/artifact"
	"github.com/baguettex/chaquostub/internal/classfile"
	"github.com/baguettex/chaquostub/internal/classfile/cftest"
)

func TestResolveInputPassesThroughPlainPaths(t *testing.T) {
	resolved, err := resolveInput("libs/mylib.jar", artifact.Unconfigured{})
	require.NoError(t, err)
	assert.Equal(t, "libs/mylib.jar", resolved)
}

func TestResolveInputDeclinesUnconfiguredAndroidShorthand(t *testing.T) {
	_, err := resolveInput("android-35", artifact.Unconfigured{})
	assert.Error(t, err)
}

func TestResolveInputDeclinesUnconfiguredMavenCoordinate(t *testing.T) {
	_, err := resolveInput("androidx.appcompat:appcompat:1.0.2", artifact.Unconfigured{})
	assert.Error(t, err)
}

func TestRunGenerateEndToEnd(t *testing.T) {
	dir := t.TempDir()
	classesDir := filepath.Join(dir, "classes")
	require.NoError(t, os.MkdirAll(filepath.Join(classesDir, "test"), 0o755))

	data := cftest.New("test/Foo", "java/lang/Object").
		Access(classfile.AccPublic | classfile.AccSuper).
		Bytes()
	require.NoError(t, os.WriteFile(filepath.Join(classesDir, "test", "Foo.class"), data, 0o644))

	outputDir := filepath.Join(dir, "stubs")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--output-dir", outputDir, "--log-level", "error", classesDir})
	require.NoError(t, cmd.Execute())

	out, err := os.ReadFile(filepath.Join(outputDir, "test", "__init__.pyi"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "class Foo(java.lang.Object):")
}
