// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Digest is a SHA256 digest.
type Digest [32]byte

// MismatchError reports content whose digest differs from the expected
// one.
type MismatchError struct {
	Want Digest
	Got  Digest
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("sha256 mismatch: got %s, want %s", FormatDigest(e.Got), FormatDigest(e.Want))
}

// HashFile computes the SHA256 digest of the file at path, streaming it
// through the hash.
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	return sum(hasher), nil
}

// FormatDigest returns the lower-case hex encoding of digest.
func FormatDigest(digest Digest) string {
	return hex.EncodeToString(digest[:])
}

// ParseDigest parses a 64-character hex digest. Upper-case hex is
// accepted.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(strings.ToLower(hexString))
	if err != nil {
		return digest, fmt.Errorf("parsing sha256 digest %q: %w", hexString, err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("sha256 digest %q is %d bytes, want %d", hexString, len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}

// VerifyFile hashes the file at path and returns a *MismatchError if it
// does not match expectedHex.
func VerifyFile(path, expectedHex string) error {
	want, err := ParseDigest(expectedHex)
	if err != nil {
		return err
	}
	got, err := HashFile(path)
	if err != nil {
		return err
	}
	if got != want {
		return &MismatchError{Want: want, Got: got}
	}
	return nil
}

// Verifier hashes everything written to it. Use io.MultiWriter to tee a
// stream through a Verifier while writing it to its destination, then
// call Verify.
type Verifier struct {
	want   Digest
	hasher hash.Hash
}

// NewVerifier returns a Verifier expecting the digest expectedHex.
func NewVerifier(expectedHex string) (*Verifier, error) {
	want, err := ParseDigest(expectedHex)
	if err != nil {
		return nil, err
	}
	return &Verifier{want: want, hasher: sha256.New()}, nil
}

func (v *Verifier) Write(p []byte) (int, error) {
	return v.hasher.Write(p)
}

// Verify returns a *MismatchError if the bytes written so far do not
// hash to the expected digest.
func (v *Verifier) Verify() error {
	got := sum(v.hasher)
	if got != v.want {
		return &MismatchError{Want: v.want, Got: got}
	}
	return nil
}

func sum(hasher hash.Hash) Digest {
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}
