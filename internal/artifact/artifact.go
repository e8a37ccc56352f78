// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package artifact declares the artifact-fetcher contract the CLI
// consumes (§6 "Artifact fetcher (consumed)"): recognizing an Android
// platform shorthand or a Maven coordinate among the CLI's positional
// inputs, and the interface a resolver must satisfy to turn one into a
// local file. No resolver that actually reaches a network or on-disk
// cache is implemented here, matching the out-of-scope "synthesis of
// artifact fetching/caching" carve-out; cmd/chaquostub wires a resolver
// that always declines.
package artifact

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var androidShorthandRE = regexp.MustCompile(`(?i)^android-(\d+)$`)

// IsAndroidShorthand reports whether s names an Android platform
// shorthand, e.g. "android-35".
func IsAndroidShorthand(s string) bool {
	return androidShorthandRE.MatchString(s)
}

// Coordinate is a parsed Maven coordinate groupId:artifactId:version.
type Coordinate struct {
	GroupID    string
	ArtifactID string
	Version    string
}

func (c Coordinate) String() string {
	return c.GroupID + ":" + c.ArtifactID + ":" + c.Version
}

// IsMavenCoordinate reports whether s looks like a Maven coordinate
// (three non-empty colon-separated parts).
func IsMavenCoordinate(s string) bool {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// ParseMavenCoordinate parses a "groupId:artifactId:version" string.
func ParseMavenCoordinate(s string) (Coordinate, error) {
	if !IsMavenCoordinate(s) {
		return Coordinate{}, errors.Errorf("artifact: invalid Maven coordinate %q, expected groupId:artifactId:version", s)
	}
	parts := strings.Split(s, ":")
	return Coordinate{GroupID: parts[0], ArtifactID: parts[1], Version: parts[2]}, nil
}

// Resolver turns a recognized artifact reference into a local file
// path the input adapter can open as a .jar or .aar.
type Resolver interface {
	ResolveAndroidJar(apiLevel string) (string, error)
	ResolveMavenArtifact(coord Coordinate) (string, error)
}

// Unconfigured is a Resolver that always declines, satisfying §7's
// "artifact not in any repository" exit path without implementing
// fetching or caching.
type Unconfigured struct{}

func (Unconfigured) ResolveAndroidJar(apiLevel string) (string, error) {
	return "", errors.Errorf("artifact resolution not configured: cannot resolve Android platform %q", apiLevel)
}

func (Unconfigured) ResolveMavenArtifact(coord Coordinate) (string, error) {
	return "", errors.Errorf("artifact resolution not configured: cannot resolve Maven artifact %q", coord.String())
}
