// Copyright The Mantle Authors
// SPDX-License-Identifier: Apache-2.0

// Package version holds the build-time version string, overridden by
// -ldflags "-X github.com/flatcar-linux/otaextract/version.Version=..."
// the way the teacher's own release builds do.
package version

// Version is the engine's release version, set by the build system.
var Version = "unreleased"
