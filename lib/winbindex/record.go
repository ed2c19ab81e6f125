// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package winbindex

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/winbindiff/lib/binversion"
)

// Fields are the raw inputs to a Record. Optional numeric fields are
// pointers so that "absent" is distinct from zero.
type Fields struct {
	// Hash is the SHA256 content hash (the feed key).
	Hash string

	// Name is the binary name, e.g. "ntdll.dll".
	Name string

	// Branch is the Winbindex source the record was loaded from.
	Branch string

	MachineType uint32
	Size        int64

	// Timestamp is the PE header TimeDateStamp.
	Timestamp *int64

	// VirtualSize is the PE SizeOfImage.
	VirtualSize *int64

	// Version is the raw version string recovered from the feed.
	Version string

	Description   string
	MD5           string
	SHA1          string
	SigningStatus string
}

// Record is one build of one binary. Records are values: all fields
// are fixed at construction and derived fields are computed once.
type Record struct {
	hash          string
	name          string
	branch        string
	machineType   uint32
	arch          Arch
	size          int64
	timestamp     int64
	hasTimestamp  bool
	virtualSize   int64
	hasVirtual    bool
	rawVersion    string
	version       binversion.Version
	description   string
	md5           string
	sha1          string
	signingStatus string

	// downloadPath is "<name>/<fileID>/<name>" on the symbol server, or
	// empty when timestamp or virtual size is missing.
	downloadPath string
}

// NewRecord builds a Record, deriving architecture, version and the
// symbol server download path.
func NewRecord(fields Fields) Record {
	record := Record{
		hash:          strings.ToLower(fields.Hash),
		name:          fields.Name,
		branch:        fields.Branch,
		machineType:   fields.MachineType,
		arch:          ArchFromMachineType(fields.MachineType),
		size:          fields.Size,
		rawVersion:    fields.Version,
		version:       binversion.ParseOrUnknown(fields.Version),
		description:   fields.Description,
		md5:           fields.MD5,
		sha1:          fields.SHA1,
		signingStatus: fields.SigningStatus,
	}
	// A negative value cannot form a symbol server file ID.
	if fields.Timestamp != nil && *fields.Timestamp >= 0 {
		record.timestamp = *fields.Timestamp
		record.hasTimestamp = true
	}
	if fields.VirtualSize != nil && *fields.VirtualSize >= 0 {
		record.virtualSize = *fields.VirtualSize
		record.hasVirtual = true
	}
	if record.hasTimestamp && record.hasVirtual && record.name != "" {
		fileID := fmt.Sprintf("%08X%x", record.timestamp, record.virtualSize)
		record.downloadPath = record.name + "/" + fileID + "/" + record.name
	}
	return record
}

func (r Record) Hash() string                { return r.hash }
func (r Record) Name() string                { return r.name }
func (r Record) Branch() string              { return r.branch }
func (r Record) MachineType() uint32         { return r.machineType }
func (r Record) Arch() Arch                  { return r.arch }
func (r Record) Size() int64                 { return r.size }
func (r Record) Version() binversion.Version { return r.version }
func (r Record) RawVersion() string          { return r.rawVersion }
func (r Record) Description() string         { return r.description }
func (r Record) MD5() string                 { return r.md5 }
func (r Record) SHA1() string                { return r.sha1 }
func (r Record) SigningStatus() string       { return r.signingStatus }

// Timestamp returns the PE timestamp and whether it is known.
func (r Record) Timestamp() (int64, bool) {
	return r.timestamp, r.hasTimestamp
}

// VirtualSize returns the PE image size and whether it is known.
func (r Record) VirtualSize() (int64, bool) {
	return r.virtualSize, r.hasVirtual
}

// Downloadable reports whether the record has enough identity to be
// fetched from a symbol server. Records that are not downloadable must
// never enter a download batch.
func (r Record) Downloadable() bool {
	return r.downloadPath != ""
}

// DownloadURL returns the symbol server URL for the binary:
//
//	https://<server>/download/symbols/<name>/<TIMESTAMP><imagesize>/<name>
//
// where the timestamp is eight upper-case hex digits and the image size
// is lower-case hex. Returns false when the record is not downloadable.
func (r Record) DownloadURL(symbolServer string) (string, bool) {
	if r.downloadPath == "" {
		return "", false
	}
	return "https://" + symbolServer + "/download/symbols/" + r.downloadPath, true
}

// FileName is the on-disk name of the downloaded binary: "<hash>_<name>".
func (r Record) FileName() string {
	return r.hash + "_" + r.name
}

// Downloadable is a predicate form of Record.Downloadable, for use with
// FindPredecessor.
func Downloadable(r Record) bool {
	return r.Downloadable()
}
