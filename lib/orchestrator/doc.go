// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator decides which builds of each tracked binary to
// diff, drives the download and diff pools, and records progress.
//
// For every configured branch (in sorted order) and every tracked
// binary (in configured order) the orchestrator loads the Winbindex
// feed, plans against the progress ledger, and executes the plan:
//
//   - NEW: the ledger has nothing for the binary. Every downloadable,
//     known-version build is fetched; each architecture's builds are
//     ordered by version and every adjacent pair is diffed. All of
//     them are then recorded, whatever the individual diffs did.
//   - TRACKED: the ledger already has builds. One unrecorded build is
//     picked, diffed against its immediate predecessor, and recorded.
//     A build with no predecessor is skipped and stays unrecorded.
//
// Planning ([PlanBinary]) is pure. Execution ([Orchestrator.ExecutePlan])
// runs the download pool to completion before any diff starts, and
// updates the ledger only on the orchestrating goroutine after the diff
// pool has drained. The ledger is flushed once per branch.
//
// Store layout:
//
//	<store>/binaries/<branch>/<binary>/<hash>_<binary>
//	<store>/diffs/<branch>/<arch>/<binary>/
//	<store>/ghidra_projects/
//	<store>/progress.yaml
//	<store>/progress.lock
package orchestrator
