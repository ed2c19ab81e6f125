// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// LockFileName is the lock file name inside the store directory.
const LockFileName = "progress.lock"

// ErrLocked is returned by Lock when another process holds the store.
var ErrLocked = errors.New("store is locked by another winbindiff run")

// StoreLock is an exclusive advisory lock on a store directory.
type StoreLock struct {
	file *os.File
}

// Lock takes a non-blocking exclusive flock on <storeDir>/progress.lock.
// It returns ErrLocked (wrapped) if another process holds it. The lock
// is released by Unlock or when the process exits.
func Lock(storeDir string) (*StoreLock, error) {
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", storeDir, err)
	}
	path := filepath.Join(storeDir, LockFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", path, ErrLocked)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	return &StoreLock{file: file}, nil
}

// Unlock releases the lock. It is safe to call more than once.
func (l *StoreLock) Unlock() error {
	if l == nil || l.file == nil {
		return nil
	}
	file := l.file
	l.file = nil
	if err := unix.Flock(int(file.Fd()), unix.LOCK_UN); err != nil {
		file.Close()
		return fmt.Errorf("unlocking %s: %w", file.Name(), err)
	}
	return file.Close()
}
