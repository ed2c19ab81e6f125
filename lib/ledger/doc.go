// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger persists which builds have already been diffed, so a
// rerun only diffs what is new.
//
// The ledger is a single YAML file at <store>/progress.yaml:
//
//	store_path: /var/lib/winbindiff
//	branches:
//	  insider:
//	    binarys_indexed:
//	      ntdll.dll:
//	        - 6f1c...
//	        - 9a02...
//
// The key "binarys_indexed" is part of the on-disk contract and is
// spelled as existing ledgers spell it.
//
// A [Ledger] is loaded with [Open] at the start of a branch, mutated in
// memory through [Branch], and written back in full with
// [Ledger.Flush]. Flush replaces the file atomically, so a crash leaves
// either the previous ledger or the new one, never a torn file. The
// ledger is not safe for concurrent use; the orchestrator owns it and
// worker pools never touch it.
//
// [Lock] takes an exclusive flock(2) on <store>/progress.lock so two
// runs against the same store fail fast instead of overwriting each
// other's progress.
package ledger
