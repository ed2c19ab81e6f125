// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package winbindex loads Winbindex metadata feeds and resolves the
// per-architecture version timeline of a Windows binary.
//
// A feed is one gzip-compressed JSON file per binary name
// (<repo>/<dataDir>/<name>.json.gz) mapping a SHA256 content hash to
// the build's metadata: a "fileInfo" object (size, machine type, PE
// timestamp, optional virtual size) and a "windowsVersions" tree whose
// update entries carry assembly manifests with a version string.
//
// [LoadFeed] and [ParseFeed] build a [Feed] of immutable [Record]
// values. The feed key is the authoritative identity of a record; any
// hash embedded in the body is ignored. Derived fields (architecture,
// version, symbol server download path) are computed once when the
// record is constructed. Bodies missing the minimum identity (size,
// timestamp, machine type) are dropped without error.
//
// [Timeline] and [FindPredecessor] order the records of one
// architecture by (version, hash). Records whose version could not be
// recovered are left out of timelines entirely, so an unparseable
// version never becomes the newest diff endpoint.
package winbindex
