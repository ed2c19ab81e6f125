// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package winbindex

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFeed(t *testing.T) {
	t.Parallel()

	data := gzipJSON(t, map[string]any{
		"AAAA": feedEntry(0x8664, 0x5f000000, 0x1f0000, "10.0.22621.1"),
		"bbbb": feedEntry(0x14c, 0x5f000001, nil, "10.0.22621.2"),
		"cccc": map[string]any{"windowsVersions": map[string]any{}},
		"dddd": map[string]any{"fileInfo": map[string]any{"size": 1, "machineType": 0x8664}},
		"eeee": map[string]any{"fileInfo": map[string]any{"timestamp": 1, "machineType": 0x8664}},
		"ffff": map[string]any{"fileInfo": "garbage"},
	})

	feed, err := ParseFeed(bytes.NewReader(data), "ntdll.dll", "insider")
	if err != nil {
		t.Fatalf("ParseFeed: %v", err)
	}
	if feed.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (hashes: %v)", feed.Len(), feed.Records())
	}
	if feed.Dropped() != 4 {
		t.Errorf("Dropped = %d, want 4", feed.Dropped())
	}

	amd64, ok := feed.Get("aaaa")
	if !ok {
		t.Fatal("record aaaa missing")
	}
	if amd64.Hash() != "aaaa" {
		t.Errorf("Hash = %q, want the feed key", amd64.Hash())
	}
	if amd64.Arch() != ArchAMD64 || amd64.Name() != "ntdll.dll" || amd64.Branch() != "insider" {
		t.Errorf("record = %s/%s/%s", amd64.Arch(), amd64.Name(), amd64.Branch())
	}
	if amd64.Version().String() != "10.0.22621.1" {
		t.Errorf("Version = %s", amd64.Version())
	}
	if !amd64.Downloadable() {
		t.Error("record with timestamp and virtual size is not downloadable")
	}

	x86, ok := feed.Get("BBBB")
	if !ok {
		t.Fatal("record bbbb missing")
	}
	if x86.Arch() != ArchX86 {
		t.Errorf("Arch = %s, want x86", x86.Arch())
	}
	if x86.Downloadable() {
		t.Error("record without virtual size is downloadable")
	}
}

func TestParseFeed_VersionFromAssembliesOnly(t *testing.T) {
	t.Parallel()

	noAssemblies := map[string]any{
		"fileInfo": map[string]any{
			"size": 1, "machineType": 0x8664, "timestamp": 2, "virtualSize": 3,
			"version": "10.0.19041.1202 (WinBuild.160101.0800)",
		},
		"windowsVersions": map[string]any{
			"2004": map[string]any{"BASE": map[string]any{"sourcePaths": []any{"x"}}},
		},
	}
	nothing := map[string]any{
		"fileInfo": map[string]any{"size": 1, "machineType": 0x8664, "timestamp": 2},
	}
	badVersion := feedEntry(0x8664, 1, 1, "10.0.x.1")
	badVersion["fileInfo"].(map[string]any)["version"] = "10.0.19041.1 (WinBuild.160101.0800)"

	data := gzipJSON(t, map[string]any{"01": noAssemblies, "02": nothing, "03": badVersion})
	feed, err := ParseFeed(bytes.NewReader(data), "ntdll.dll", "insider")
	if err != nil {
		t.Fatalf("ParseFeed: %v", err)
	}

	if record, _ := feed.Get("01"); !record.Version().IsUnknown() {
		t.Errorf("version with no assemblies = %s, want unknown", record.Version())
	}
	if record, _ := feed.Get("02"); !record.Version().IsUnknown() {
		t.Errorf("missing version = %s, want unknown", record.Version())
	}
	if record, _ := feed.Get("03"); !record.Version().IsUnknown() {
		t.Errorf("unparseable version = %s, want unknown", record.Version())
	}
	if feed.UnknownVersions() != 3 {
		t.Errorf("UnknownVersions = %d, want 3", feed.UnknownVersions())
	}
}

func TestParseFeed_AssemblyVersionIsStable(t *testing.T) {
	t.Parallel()

	entry := map[string]any{
		"fileInfo": map[string]any{"size": 1, "machineType": 0x8664, "timestamp": 2},
		"windowsVersions": map[string]any{
			"22H2": map[string]any{
				"KB2": map[string]any{"assemblies": map[string]any{
					"b": map[string]any{"assemblyIdentity": map[string]any{"version": "10.0.0.2"}},
				}},
			},
			"21H2": map[string]any{
				"KB9": map[string]any{"assemblies": map[string]any{
					"z": map[string]any{"assemblyIdentity": map[string]any{"version": "10.0.0.9"}},
					"a": map[string]any{"assemblyIdentity": map[string]any{"version": "10.0.0.1"}},
				}},
			},
		},
	}
	data := gzipJSON(t, map[string]any{"01": entry})
	for range 5 {
		feed, err := ParseFeed(bytes.NewReader(data), "ntdll.dll", "insider")
		if err != nil {
			t.Fatalf("ParseFeed: %v", err)
		}
		record, _ := feed.Get("01")
		if record.Version().String() != "10.0.0.1" {
			t.Fatalf("Version = %s, want 10.0.0.1 (first assembly in sorted order)", record.Version())
		}
	}
}

func TestParseFeed_NegativeIdentityNotDownloadable(t *testing.T) {
	t.Parallel()

	data := gzipJSON(t, map[string]any{
		"01": feedEntry(0x8664, -1, 0x1000, "10.0.0.1"),
		"02": feedEntry(0x8664, 0x5f000000, -1, "10.0.0.2"),
	})
	feed, err := ParseFeed(bytes.NewReader(data), "ntdll.dll", "insider")
	if err != nil {
		t.Fatalf("ParseFeed: %v", err)
	}
	if feed.Len() != 2 {
		t.Fatalf("Len = %d, want 2", feed.Len())
	}
	for _, record := range feed.Records() {
		if record.Downloadable() {
			url, _ := record.DownloadURL("msdl.microsoft.com")
			t.Errorf("%s: Downloadable() = true, url %q", record.Hash(), url)
		}
	}
}

func TestParseFeed_Errors(t *testing.T) {
	t.Parallel()

	if _, err := ParseFeed(strings.NewReader("not gzip"), "x", "y"); err == nil {
		t.Error("ParseFeed(plain text) succeeded")
	}
	if _, err := ParseFeed(bytes.NewReader(gzipJSON(t, []string{"array"})), "x", "y"); err == nil {
		t.Error("ParseFeed(JSON array) succeeded")
	}
}

func TestLoadFeed(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	dataDir := filepath.Join("data", "by_filename_compressed")
	if err := os.MkdirAll(filepath.Join(repo, dataDir), 0755); err != nil {
		t.Fatal(err)
	}
	path := FeedPath(repo, dataDir, "ntdll.dll")
	if !strings.HasSuffix(path, filepath.Join(dataDir, "ntdll.dll.json.gz")) {
		t.Errorf("FeedPath = %q", path)
	}
	data := gzipJSON(t, map[string]any{"aa": feedEntry(0x8664, 1, 2, "1.0.0.1")})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	feed, err := LoadFeed(repo, dataDir, "ntdll.dll", "insider")
	if err != nil {
		t.Fatalf("LoadFeed: %v", err)
	}
	if feed.Len() != 1 || feed.Name() != "ntdll.dll" || feed.Branch() != "insider" {
		t.Errorf("feed = %d records, %s, %s", feed.Len(), feed.Name(), feed.Branch())
	}

	if _, err := LoadFeed(repo, dataDir, "missing.dll", "insider"); err == nil {
		t.Error("LoadFeed(missing) succeeded")
	}
}
