// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash provides SHA256 content hashing for downloaded
// binaries.
//
// Winbindex identifies every build by the SHA256 of the file, and the
// same digest names the file on disk. Verifying a download against
// that digest catches truncated transfers and symbol server responses
// that are not the expected build.
//
//   - [HashFile] -- streams a file through SHA256 with constant memory
//   - [FormatDigest] / [ParseDigest] -- canonical lower-case hex form
//   - [Verifier] -- an io.Writer that hashes a stream as it is written
//     (tee a download through it) and checks the result
//   - [VerifyFile] -- hash an existing file and compare
//
// This package has no dependencies on other winbindiff packages.
package binhash
