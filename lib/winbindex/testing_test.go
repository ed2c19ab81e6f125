// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package winbindex

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/klauspost/compress/gzip"
)

// gzipJSON encodes value as JSON and gzips it.
func gzipJSON(t *testing.T, value any) []byte {
	t.Helper()

	encoded, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal feed: %v", err)
	}
	var buffer bytes.Buffer
	writer := gzip.NewWriter(&buffer)
	if _, err := writer.Write(encoded); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buffer.Bytes()
}

// feedEntry builds a Winbindex body with one update carrying one
// assembly at the given version.
func feedEntry(machineType, timestamp int64, virtualSize any, version string) map[string]any {
	fileInfo := map[string]any{
		"size":        123456,
		"md5":         "d41d8cd98f00b204e9800998ecf8427e",
		"sha256":      "this-is-not-the-key",
		"machineType": machineType,
		"timestamp":   timestamp,
		"description": "NT Layer DLL",
	}
	if virtualSize != nil {
		fileInfo["virtualSize"] = virtualSize
	}
	return map[string]any{
		"fileInfo": fileInfo,
		"windowsVersions": map[string]any{
			"22H2": map[string]any{
				"KB5031455": map[string]any{
					"updateInfo": map[string]any{"build": "22621.2506", "created": 1697587200},
					"assemblies": map[string]any{
						"amd64_microsoft-windows-ntdll_31bf3856ad364e35_10.0.22621.2506_none_a": map[string]any{
							"assemblyIdentity": map[string]any{
								"name":    "Microsoft-Windows-Ntdll",
								"version": version,
							},
							"attributes": []any{},
						},
					},
				},
			},
		},
	}
}

func int64Pointer(value int64) *int64 {
	return &value
}

// testRecord builds a downloadable amd64 record.
func testRecord(hash, version string) Record {
	return NewRecord(Fields{
		Hash:        hash,
		Name:        "ntdll.dll",
		Branch:      "insider",
		MachineType: machineAMD64,
		Size:        1000,
		Timestamp:   int64Pointer(0x12345678),
		VirtualSize: int64Pointer(0x1f000),
		Version:     version,
	})
}
