// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"path/filepath"

	"github.com/bureau-foundation/winbindiff/lib/winbindex"
)

// BinariesDir is where downloaded builds of binary are kept.
func BinariesDir(storeDir, branch, binary string) string {
	return filepath.Join(storeDir, "binaries", branch, binary)
}

// DiffsDir is the ghidriff output directory for binary on arch.
func DiffsDir(storeDir, branch string, arch winbindex.Arch, binary string) string {
	return filepath.Join(storeDir, "diffs", branch, arch.String(), binary)
}

// ProjectsDir is the Ghidra project directory shared by every
// invocation.
func ProjectsDir(storeDir string) string {
	return filepath.Join(storeDir, "ghidra_projects")
}
