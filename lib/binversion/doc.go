// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binversion models the four-component file version carried in
// Windows PE version resources and assembly manifests
// (major.minor.patch.build, e.g. 10.0.22621.2506).
//
// Versions are totally ordered, lexicographically on the four
// components. [Unknown] is a sentinel for builds whose version could
// not be recovered from metadata; it compares strictly greater than
// every real version. Callers that build timelines decide what to do
// with unknown versions; this package only defines their position in
// the order.
//
// This package depends on no other winbindiff packages.
package binversion
