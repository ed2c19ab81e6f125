// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package git provides typed access to the git CLI for keeping local
// Winbindex clones current. All commands against an existing clone
// target its directory via the -C flag, which is automatically
// injected by all Repository methods.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Repository represents a git working tree at a specific directory.
// All operations target this directory via "git -C <dir>". There is no
// default directory: callers must always specify which repository they
// mean.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Run executes a git command targeting this repository and returns
// stdout. Stderr is captured separately and included in error messages
// on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	return run(ctx, append([]string{"-C", r.dir}, args...), args, r.dir)
}

// Exists reports whether the directory is the top of a git working
// tree.
func (r *Repository) Exists() bool {
	info, err := os.Stat(filepath.Join(r.dir, ".git"))
	return err == nil && info.IsDir()
}

// Head returns the commit hash checked out in the working tree.
func (r *Repository) Head(ctx context.Context) (string, error) {
	output, err := r.Run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// Pull fetches branch from origin and fast-forwards the working tree
// to it. A diverged history is an error; local commits are never
// merged or discarded.
func (r *Repository) Pull(ctx context.Context, branch string) error {
	if _, err := r.Run(ctx, "fetch", "origin", branch); err != nil {
		return err
	}
	if _, err := r.Run(ctx, "merge", "--ff-only", "FETCH_HEAD"); err != nil {
		return err
	}
	return nil
}

// Clone clones a single branch of url into dir and returns the new
// Repository. The parent of dir is created if needed.
func Clone(ctx context.Context, url, branch, dir string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
		return nil, fmt.Errorf("creating clone parent for %s: %w", dir, err)
	}
	args := []string{"clone", "--branch", branch, "--single-branch", url, dir}
	if _, err := run(ctx, args, args, filepath.Dir(dir)); err != nil {
		return nil, err
	}
	return NewRepository(dir), nil
}

// CloneOrPull brings dir up to date with branch of url: an existing
// clone is pulled, anything else is cloned fresh.
func CloneOrPull(ctx context.Context, url, branch, dir string) (*Repository, error) {
	repo := NewRepository(dir)
	if repo.Exists() {
		if err := repo.Pull(ctx, branch); err != nil {
			return nil, err
		}
		return repo, nil
	}
	return Clone(ctx, url, branch, dir)
}

func run(ctx context.Context, fullArgs, args []string, dir string) (string, error) {
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return "", fmt.Errorf("git %s in %s: %w (stderr: %s)",
			strings.Join(args, " "), dir, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
