// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ghidriff runs the ghidriff binary-diffing tool.
//
// Each [Invocation] compares an older build of a binary with a newer
// one and writes ghidriff's report into an output directory. [Tool]
// builds the fixed argument list (see [Args]), resolves the executable
// on PATH, and classifies failures:
//
//   - [LaunchError]: the executable could not be found or started.
//     Nothing after this can succeed, so callers abort the run.
//   - [ExitError]: the tool ran and exited non-zero. This is a failure
//     of one comparison only; callers log it and move on.
//
// [Tool.RunAll] executes a batch on a bounded worker pool. Outcomes
// flow back to the calling goroutine over a channel; the first launch
// error stops dispatch of further invocations.
package ghidriff
