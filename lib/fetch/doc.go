// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fetch downloads Windows binaries from a Microsoft-style
// symbol server.
//
// A [Pipeline] takes a batch of [winbindex.Record] values and fetches
// each one into a destination directory as "<hash>_<name>" using a
// bounded pool of workers. A file already present at its destination
// counts as fetched without a network request, so a re-run only pays
// for what it does not have.
//
// Per-record failures (transport errors, non-200 responses, digest
// mismatches) never abort the batch: they are logged and reported in
// the returned [Result] slice, and nothing is retried. Records without
// a download URL are never requested; they come back as skipped.
//
// Downloads stream into a temporary file in the destination directory
// and are renamed into place only after the body is complete (and, with
// Verify set, its SHA256 matches the record hash), so a partial file
// never appears under the final name.
package fetch
