// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package winbindex

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// FeedSuffix is appended to a binary name to form its feed file name.
const FeedSuffix = ".json.gz"

// Feed is the set of records for one binary name within one branch,
// keyed by content hash.
type Feed struct {
	name    string
	branch  string
	records map[string]Record
	dropped int
}

// FeedPath returns <repoPath>/<dataDir>/<binaryName>.json.gz.
func FeedPath(repoPath, dataDir, binaryName string) string {
	return filepath.Join(repoPath, dataDir, binaryName+FeedSuffix)
}

// LoadFeed opens and parses the feed file for binaryName.
func LoadFeed(repoPath, dataDir, binaryName, branch string) (*Feed, error) {
	path := FeedPath(repoPath, dataDir, binaryName)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening feed %s: %w", path, err)
	}
	defer file.Close()

	feed, err := ParseFeed(file, binaryName, branch)
	if err != nil {
		return nil, fmt.Errorf("loading feed %s: %w", path, err)
	}
	return feed, nil
}

// ParseFeed decompresses and decodes a feed. A corrupt gzip stream or
// a top level that is not a JSON object is an error. Individual bodies
// that cannot be decoded or lack size, timestamp or machine type are
// skipped and counted in Dropped.
func ParseFeed(r io.Reader, binaryName, branch string) (*Feed, error) {
	decompressed, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer decompressed.Close()

	var bodies map[string]json.RawMessage
	if err := json.NewDecoder(decompressed).Decode(&bodies); err != nil {
		return nil, fmt.Errorf("decoding feed JSON: %w", err)
	}

	feed := &Feed{
		name:    binaryName,
		branch:  branch,
		records: make(map[string]Record, len(bodies)),
	}
	for key, raw := range bodies {
		record, ok := decodeRecord(key, raw, binaryName, branch)
		if !ok {
			feed.dropped++
			continue
		}
		feed.records[record.Hash()] = record
	}
	return feed, nil
}

// NewFeed builds a feed from already-constructed records. Records with
// a duplicate hash replace earlier ones.
func NewFeed(binaryName, branch string, records ...Record) *Feed {
	feed := &Feed{
		name:    binaryName,
		branch:  branch,
		records: make(map[string]Record, len(records)),
	}
	for _, record := range records {
		feed.records[record.Hash()] = record
	}
	return feed
}

// Name returns the binary name the feed describes.
func (f *Feed) Name() string { return f.name }

// Branch returns the Winbindex source the feed was loaded from.
func (f *Feed) Branch() string { return f.branch }

// Len returns the number of records.
func (f *Feed) Len() int { return len(f.records) }

// Dropped returns how many bodies were skipped at load.
func (f *Feed) Dropped() int { return f.dropped }

// Get returns the record with the given content hash.
func (f *Feed) Get(hash string) (Record, bool) {
	record, ok := f.records[strings.ToLower(hash)]
	return record, ok
}

// Records returns all records sorted by hash.
func (f *Feed) Records() []Record {
	hashes := slices.Sorted(maps.Keys(f.records))
	records := make([]Record, 0, len(hashes))
	for _, hash := range hashes {
		records = append(records, f.records[hash])
	}
	return records
}

// Each calls fn for every record in map iteration order, which is
// unspecified and varies between calls. Iteration stops when fn returns
// false.
func (f *Feed) Each(fn func(Record) bool) {
	for _, record := range f.records {
		if !fn(record) {
			return
		}
	}
}

// UnknownVersions counts records whose version could not be recovered.
func (f *Feed) UnknownVersions() int {
	count := 0
	for _, record := range f.records {
		if record.Version().IsUnknown() {
			count++
		}
	}
	return count
}

// feedBody mirrors the parts of a Winbindex body that are consumed.
type feedBody struct {
	FileInfo        *feedFileInfo   `json:"fileInfo"`
	WindowsVersions json.RawMessage `json:"windowsVersions"`
}

type feedFileInfo struct {
	Size          *int64 `json:"size"`
	MD5           string `json:"md5"`
	SHA1          string `json:"sha1"`
	SHA256        string `json:"sha256"`
	MachineType   *int64 `json:"machineType"`
	Timestamp     *int64 `json:"timestamp"`
	VirtualSize   *int64 `json:"virtualSize"`
	Version       string `json:"version"`
	Description   string `json:"description"`
	SigningStatus string `json:"signingStatus"`
}

// feedUpdate is one entry under windowsVersions.<winver>. Base
// installation entries have no assemblies.
type feedUpdate struct {
	Assemblies map[string]struct {
		AssemblyIdentity struct {
			Version string `json:"version"`
		} `json:"assemblyIdentity"`
	} `json:"assemblies"`
}

func decodeRecord(key string, raw json.RawMessage, binaryName, branch string) (Record, bool) {
	var body feedBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return Record{}, false
	}
	info := body.FileInfo
	if info == nil || info.Size == nil || info.Timestamp == nil || info.MachineType == nil {
		return Record{}, false
	}
	if *info.MachineType < 0 || *info.MachineType > 0xffff {
		return Record{}, false
	}

	// Only assemblies carry a build version. Entries without one are
	// Unknown even when the PE resource string has a version.
	version := assemblyVersion(body.WindowsVersions)

	return NewRecord(Fields{
		Hash:          key,
		Name:          binaryName,
		Branch:        branch,
		MachineType:   uint32(*info.MachineType),
		Size:          *info.Size,
		Timestamp:     info.Timestamp,
		VirtualSize:   info.VirtualSize,
		Version:       version,
		Description:   info.Description,
		MD5:           info.MD5,
		SHA1:          info.SHA1,
		SigningStatus: info.SigningStatus,
	}), true
}

// assemblyVersion returns the version of the first assembly found
// under windowsVersions, visiting Windows versions, updates and
// assemblies in sorted key order so the choice is stable across runs.
// Shapes that do not match are treated as carrying no version.
func assemblyVersion(raw json.RawMessage) string {
	var windowsVersions map[string]map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &windowsVersions) != nil {
		return ""
	}
	for _, windowsVersion := range slices.Sorted(maps.Keys(windowsVersions)) {
		updates := windowsVersions[windowsVersion]
		for _, updateName := range slices.Sorted(maps.Keys(updates)) {
			var update feedUpdate
			if err := json.Unmarshal(updates[updateName], &update); err != nil {
				continue
			}
			for _, assemblyName := range slices.Sorted(maps.Keys(update.Assemblies)) {
				return update.Assemblies[assemblyName].AssemblyIdentity.Version
			}
		}
	}
	return ""
}
