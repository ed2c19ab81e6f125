// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// FileName is the ledger file name inside the store directory.
const FileName = "progress.yaml"

// document is the on-disk schema.
type document struct {
	StorePath string                     `yaml:"store_path"`
	Branches  map[string]*branchDocument `yaml:"branches"`
}

type branchDocument struct {
	BinariesIndexed map[string][]string `yaml:"binarys_indexed"`
}

// Ledger is the in-memory copy of the progress file.
type Ledger struct {
	path string
	doc  document
}

// Branch is the progress of one Winbindex source.
type Branch struct {
	name string
	doc  *branchDocument
}

// Open loads <storeDir>/progress.yaml, creating storeDir and an empty
// ledger file if neither exists. A ledger that exists but does not
// parse is an error.
func Open(storeDir string) (*Ledger, error) {
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", storeDir, err)
	}

	ledger, exists, err := load(storeDir)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := ledger.Flush(); err != nil {
			return nil, fmt.Errorf("initializing ledger: %w", err)
		}
	}
	return ledger, nil
}

// Read loads the ledger without creating or writing anything. A
// missing ledger reads as empty. The result may be inspected and
// mutated in memory but should not be flushed while another process
// holds the store lock.
func Read(storeDir string) (*Ledger, error) {
	ledger, _, err := load(storeDir)
	return ledger, err
}

func load(storeDir string) (*Ledger, bool, error) {
	ledger := &Ledger{
		path: filepath.Join(storeDir, FileName),
		doc:  document{StorePath: storeDir, Branches: map[string]*branchDocument{}},
	}

	data, err := os.ReadFile(ledger.path)
	if errors.Is(err, fs.ErrNotExist) {
		return ledger, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading ledger %s: %w", ledger.path, err)
	}

	if err := yaml.Unmarshal(data, &ledger.doc); err != nil {
		return nil, false, fmt.Errorf("parsing ledger %s: %w", ledger.path, err)
	}
	if ledger.doc.StorePath == "" {
		ledger.doc.StorePath = storeDir
	}
	if ledger.doc.Branches == nil {
		ledger.doc.Branches = map[string]*branchDocument{}
	}
	return ledger, true, nil
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Branch returns the progress for the named branch, creating an empty
// entry if the branch has never been seen.
func (l *Ledger) Branch(name string) *Branch {
	branch, ok := l.doc.Branches[name]
	if !ok || branch == nil {
		branch = &branchDocument{}
		l.doc.Branches[name] = branch
	}
	if branch.BinariesIndexed == nil {
		branch.BinariesIndexed = map[string][]string{}
	}
	return &Branch{name: name, doc: branch}
}

// Flush writes the whole ledger back to disk, replacing the previous
// file.
func (l *Ledger) Flush() error {
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if err := encoder.Encode(&l.doc); err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	if err := writeFileAtomic(l.path, buffer.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing ledger %s: %w", l.path, err)
	}
	return nil
}

// BinarySummary is the number of indexed hashes for one binary.
type BinarySummary struct {
	Branch  string
	Binary  string
	Indexed int
}

// Summary lists every (branch, binary) with its indexed hash count,
// sorted by branch then binary.
func (l *Ledger) Summary() []BinarySummary {
	var summary []BinarySummary
	for _, branchName := range slices.Sorted(maps.Keys(l.doc.Branches)) {
		branch := l.doc.Branches[branchName]
		if branch == nil {
			continue
		}
		for _, binary := range slices.Sorted(maps.Keys(branch.BinariesIndexed)) {
			summary = append(summary, BinarySummary{
				Branch:  branchName,
				Binary:  binary,
				Indexed: len(branch.BinariesIndexed[binary]),
			})
		}
	}
	return summary
}

// Name returns the branch name.
func (b *Branch) Name() string {
	return b.name
}

// NoneIndexed reports whether no hash has been recorded for binary.
// It stays true until the first Add for that binary.
func (b *Branch) NoneIndexed(binary string) bool {
	return len(b.doc.BinariesIndexed[binary]) == 0
}

// IsIndexed reports whether hash has been recorded for binary.
func (b *Branch) IsIndexed(binary, hash string) bool {
	return slices.Contains(b.doc.BinariesIndexed[binary], hash)
}

// Add records hash for binary. Adding a hash that is already present
// has no effect.
func (b *Branch) Add(binary, hash string) {
	if b.IsIndexed(binary, hash) {
		return
	}
	b.doc.BinariesIndexed[binary] = append(b.doc.BinariesIndexed[binary], hash)
}

// Indexed returns a copy of the hashes recorded for binary, in the
// order they were added.
func (b *Branch) Indexed(binary string) []string {
	return slices.Clone(b.doc.BinariesIndexed[binary])
}

// writeFileAtomic writes data to a temp file next to path, syncs it,
// and renames it over path.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	temp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tempName := temp.Name()
	committed := false
	defer func() {
		if !committed {
			temp.Close()
			os.Remove(tempName)
		}
	}()

	if _, err := temp.Write(data); err != nil {
		return err
	}
	if err := temp.Chmod(perm); err != nil {
		return err
	}
	if err := temp.Sync(); err != nil {
		return err
	}
	if err := temp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tempName, path); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	handle, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer handle.Close()
	return handle.Sync()
}
