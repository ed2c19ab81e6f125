// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ghidriff

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// DefaultExecutable is the command name resolved on PATH when
// Tool.Executable is empty.
const DefaultExecutable = "ghidriff"

// Engine is the diff engine passed to every invocation.
const Engine = "VersionTrackingDiff"

// stderrTail bounds how much trailing stderr an ExitError carries.
const stderrTail = 4096

// Invocation is one old-vs-new comparison.
type Invocation struct {
	// OutputDir receives the report (ghidriff -o).
	OutputDir string

	// OldPath and NewPath are the binaries to compare, older first.
	OldPath string
	NewPath string
}

// LaunchError reports that the tool could not be started at all.
type LaunchError struct {
	Executable string
	Err        error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s: %v", e.Executable, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ExitError reports a non-zero exit from one invocation.
type ExitError struct {
	Invocation Invocation
	Code       int

	// Stderr is the trailing part of the tool's stderr, when it was
	// captured.
	Stderr string
}

func (e *ExitError) Error() string {
	message := fmt.Sprintf("ghidriff %s vs %s exited with status %d", e.Invocation.OldPath, e.Invocation.NewPath, e.Code)
	if e.Stderr != "" {
		message += ": " + e.Stderr
	}
	return message
}

// Tool runs ghidriff.
type Tool struct {
	// Executable is a command name looked up on PATH or a path to the
	// binary. Defaults to DefaultExecutable.
	Executable string

	// ProjectsDir is the shared Ghidra project directory (ghidriff -p).
	ProjectsDir string

	// Stdout and Stderr receive the tool's output streams. A nil
	// Stdout discards output. Stderr is always captured (its tail goes
	// into ExitError) and additionally copied here when non-nil.
	Stdout io.Writer
	Stderr io.Writer

	Logger *slog.Logger
}

// Args returns the ghidriff argument list for one comparison.
func Args(projectsDir, outputDir, oldPath, newPath string) []string {
	return []string{
		"-p", projectsDir,
		"-o", outputDir,
		"--force-analysis",
		"--engine", Engine,
		oldPath,
		newPath,
	}
}

// FindBinary resolves the tool's executable to an absolute path.
func (t *Tool) FindBinary() (string, error) {
	name := t.executable()
	path, err := exec.LookPath(name)
	if err != nil {
		return "", &LaunchError{Executable: name, Err: err}
	}
	return path, nil
}

// Diff runs one invocation to completion. It returns a *LaunchError
// when the executable cannot be started and an *ExitError when it exits
// non-zero.
func (t *Tool) Diff(ctx context.Context, invocation Invocation) error {
	binaryPath, err := t.FindBinary()
	if err != nil {
		return err
	}

	tail := &tailBuffer{limit: stderrTail}
	command := exec.CommandContext(ctx, binaryPath, Args(t.ProjectsDir, invocation.OutputDir, invocation.OldPath, invocation.NewPath)...)
	command.Stdout = t.Stdout
	if t.Stderr != nil {
		command.Stderr = io.MultiWriter(tail, t.Stderr)
	} else {
		command.Stderr = tail
	}

	if err := command.Start(); err != nil {
		return &LaunchError{Executable: binaryPath, Err: err}
	}
	if err := command.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{
				Invocation: invocation,
				Code:       exitErr.ExitCode(),
				Stderr:     strings.TrimSpace(tail.String()),
			}
		}
		return fmt.Errorf("waiting for ghidriff: %w", err)
	}
	return nil
}

func (t *Tool) executable() string {
	if t.Executable != "" {
		return t.Executable
	}
	return DefaultExecutable
}

func (t *Tool) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	data  []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	if overflow := len(b.data) - b.limit; overflow > 0 {
		b.data = append(b.data[:0], b.data[overflow:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.data)
}
