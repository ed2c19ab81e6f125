// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for winbindiff.
//
// Configuration is loaded from a single file specified by either the
// WINBINDIFF_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There are no fallbacks, no ~/.config
// discovery, and no automatic file search.
//
// The file names the artifact store, the directory holding Winbindex
// repository clones, tuning for the download and diff pools, and one
// entry per Winbindex branch listing the binaries to track.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${WINBINDIFF_ROOT} (the directory containing the config
// file), and ${VAR:-default} patterns are expanded. No environment
// variables override config values.
//
// Key exports:
//
//   - [Config] -- the top-level struct, with per-branch [Branch] entries
//   - [Default] -- returns a Config with the standard defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other winbindiff packages.
package config
