// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package artifact_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baguettex/chaquostub/internal/artifact"
)

func TestIsAndroidShorthand(t *testing.T) {
	assert.True(t, artifact.IsAndroidShorthand("android-35"))
	assert.True(t, artifact.IsAndroidShorthand("ANDROID-21"))
	assert.False(t, artifact.IsAndroidShorthand("androidx.appcompat:appcompat:1.0.2"))
	assert.False(t, artifact.IsAndroidShorthand("mylib.jar"))
}

func TestIsMavenCoordinate(t *testing.T) {
	assert.True(t, artifact.IsMavenCoordinate("androidx.appcompat:appcompat:1.0.2"))
	assert.False(t, artifact.IsMavenCoordinate("libs/mylib.jar"))
	assert.False(t, artifact.IsMavenCoordinate("a:b"))
	assert.False(t, artifact.IsMavenCoordinate("a::c"))
}

func TestParseMavenCoordinate(t *testing.T) {
	c, err := artifact.ParseMavenCoordinate("androidx.appcompat:appcompat:1.0.2")
	require.NoError(t, err)
	assert.Equal(t, artifact.Coordinate{GroupID: "androidx.appcompat", ArtifactID: "appcompat", Version: "1.0.2"}, c)

	_, err = artifact.ParseMavenCoordinate("invalid")
	assert.Error(t, err)
}

func TestUnconfiguredResolverDeclines(t *testing.T) {
	var r artifact.Resolver = artifact.Unconfigured{}

	_, err := r.ResolveAndroidJar("35")
	assert.Error(t, err)

	_, err = r.ResolveMavenArtifact(artifact.Coordinate{GroupID: "g", ArtifactID: "a", Version: "1"})
	assert.Error(t, err)
}
