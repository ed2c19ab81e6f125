// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "winbindiff.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

// validConfig returns a config that passes Validate.
func validConfig() *Config {
	cfg := Default()
	cfg.Branches = map[string]*Branch{
		"insider": {
			RepoURL: "https://github.com/m417z/winbindex",
			Branch:  "gh-pages",
			DataDir: "data/by_filename_compressed",
			Files:   []string{"ntdll.dll"},
		},
	}
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.SymbolServer != "msdl.microsoft.com" {
		t.Errorf("expected symbol_server=msdl.microsoft.com, got %s", cfg.SymbolServer)
	}
	if cfg.DiffTool != "ghidriff" {
		t.Errorf("expected diff_tool=ghidriff, got %s", cfg.DiffTool)
	}
	if cfg.DownloadConcurrency != 8 || cfg.DiffConcurrency != 8 {
		t.Errorf("expected concurrency 8/8, got %d/%d", cfg.DownloadConcurrency, cfg.DiffConcurrency)
	}
	if cfg.VerifyDownloads {
		t.Error("expected verify_downloads=false by default")
	}
}

func TestLoad_RequiresEnvVar(t *testing.T) {
	t.Setenv(EnvVar, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when WINBINDIFF_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "WINBINDIFF_CONFIG environment variable not set") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestLoad_WithEnvVar(t *testing.T) {
	configPath := writeConfig(t, `
store_dir: /test/store
repo_dir: /test/repos
`)
	t.Setenv(EnvVar, configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.StoreDir != "/test/store" {
		t.Errorf("expected store_dir=/test/store, got %s", cfg.StoreDir)
	}
	if cfg.RepoDir != "/test/repos" {
		t.Errorf("expected repo_dir=/test/repos, got %s", cfg.RepoDir)
	}
	// Unset fields keep their defaults.
	if cfg.DiffConcurrency != 8 {
		t.Errorf("expected default diff_concurrency=8, got %d", cfg.DiffConcurrency)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := writeConfig(t, `
store_dir: /custom/store
repo_dir: /custom/repos
symbol_server: symbols.example.com
diff_tool: /opt/ghidriff/bin/ghidriff
download_concurrency: 4
diff_concurrency: 2
verify_downloads: true
branches:
  insider:
    repo_url: https://github.com/m417z/winbindex
    branch: gh-pages
    data_dir: data/by_filename_compressed
    files: [ntdll.dll, win32k.sys]
  arm64:
    repo_url: https://github.com/m417z/winbindex-arm64
    branch: gh-pages
    data_dir: data/by_filename_compressed
    files: [ntoskrnl.exe]
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.SymbolServer != "symbols.example.com" {
		t.Errorf("expected symbol_server=symbols.example.com, got %s", cfg.SymbolServer)
	}
	if cfg.DiffTool != "/opt/ghidriff/bin/ghidriff" {
		t.Errorf("expected diff_tool override, got %s", cfg.DiffTool)
	}
	if cfg.DownloadConcurrency != 4 || cfg.DiffConcurrency != 2 {
		t.Errorf("expected concurrency 4/2, got %d/%d", cfg.DownloadConcurrency, cfg.DiffConcurrency)
	}
	if !cfg.VerifyDownloads {
		t.Error("expected verify_downloads=true")
	}

	if got := cfg.BranchNames(); !slices.Equal(got, []string{"arm64", "insider"}) {
		t.Errorf("BranchNames() = %v, want sorted [arm64 insider]", got)
	}
	insider := cfg.Branches["insider"]
	if !slices.Equal(insider.Files, []string{"ntdll.dll", "win32k.sys"}) {
		t.Errorf("insider files = %v, want configured order", insider.Files)
	}
	if insider.DataDir != "data/by_filename_compressed" {
		t.Errorf("insider data_dir = %s", insider.DataDir)
	}
	if got := cfg.RepoPath("insider"); got != "/custom/repos/insider" {
		t.Errorf("RepoPath(insider) = %s", got)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFile(writeConfig(t, "store_dir: [unclosed")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadFile_ExpandsVariables(t *testing.T) {
	t.Setenv("HOME", "/home/analyst")
	t.Setenv("WINBINDIFF_TEST_TOOL", "")

	configPath := writeConfig(t, `
store_dir: ${HOME}/winbindiff/store
repo_dir: ${WINBINDIFF_ROOT}/repos
diff_tool: ${WINBINDIFF_TEST_TOOL:-ghidriff}
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.StoreDir != "/home/analyst/winbindiff/store" {
		t.Errorf("store_dir = %s", cfg.StoreDir)
	}
	if want := filepath.Join(filepath.Dir(configPath), "repos"); cfg.RepoDir != want {
		t.Errorf("repo_dir = %s, want %s", cfg.RepoDir, want)
	}
	if cfg.DiffTool != "ghidriff" {
		t.Errorf("diff_tool = %s, want default from ${VAR:-default}", cfg.DiffTool)
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	t.Setenv("WINBINDIFF_STORE_DIR", "/env/store")
	t.Setenv("STORE_DIR", "/env/store")

	cfg, err := LoadFile(writeConfig(t, "store_dir: /file/store\n"))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.StoreDir != "/file/store" {
		t.Errorf("expected store_dir=/file/store from file, got %s (env vars should not override)", cfg.StoreDir)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{
			input:    "${HOME}/winbindiff",
			vars:     map[string]string{"HOME": "/home/user"},
			expected: "/home/user/winbindiff",
		},
		{
			input:    "${WINBINDIFF_TEST_MISSING:-default}",
			vars:     map[string]string{},
			expected: "default",
		},
		{
			input:    "${PRESENT:-default}",
			vars:     map[string]string{"PRESENT": "value"},
			expected: "value",
		},
		{
			input:    "${A}/${B}",
			vars:     map[string]string{"A": "first", "B": "second"},
			expected: "first/second",
		},
		{
			input:    "no variables here",
			vars:     map[string]string{},
			expected: "no variables here",
		},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			modify: func(c *Config) {},
		},
		{
			name:    "no branches",
			modify:  func(c *Config) { c.Branches = nil },
			wantErr: "at least one branch",
		},
		{
			name:    "empty store dir",
			modify:  func(c *Config) { c.StoreDir = "" },
			wantErr: "store_dir is required",
		},
		{
			name:    "symbol server given as URL",
			modify:  func(c *Config) { c.SymbolServer = "https://msdl.microsoft.com/download" },
			wantErr: "host name",
		},
		{
			name:    "zero download concurrency",
			modify:  func(c *Config) { c.DownloadConcurrency = 0 },
			wantErr: "download_concurrency",
		},
		{
			name:    "zero diff concurrency",
			modify:  func(c *Config) { c.DiffConcurrency = 0 },
			wantErr: "diff_concurrency",
		},
		{
			name:    "branch without repo url",
			modify:  func(c *Config) { c.Branches["insider"].RepoURL = "" },
			wantErr: "branches.insider.repo_url is required",
		},
		{
			name:    "branch without git branch",
			modify:  func(c *Config) { c.Branches["insider"].Branch = "" },
			wantErr: "branches.insider.branch is required",
		},
		{
			name:    "branch without data dir",
			modify:  func(c *Config) { c.Branches["insider"].DataDir = "" },
			wantErr: "branches.insider.data_dir",
		},
		{
			name:    "branch without files",
			modify:  func(c *Config) { c.Branches["insider"].Files = nil },
			wantErr: "branches.insider.files",
		},
		{
			name:    "binary name with path separator",
			modify:  func(c *Config) { c.Branches["insider"].Files = []string{"../ntdll.dll"} },
			wantErr: "invalid binary name",
		},
		{
			name:    "empty branch entry",
			modify:  func(c *Config) { c.Branches["arm64"] = nil },
			wantErr: "branches.arm64 is empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnsurePaths(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Default()
	cfg.StoreDir = filepath.Join(tmpDir, "store")
	cfg.RepoDir = filepath.Join(tmpDir, "repos")

	if err := cfg.EnsurePaths(); err != nil {
		t.Fatalf("EnsurePaths failed: %v", err)
	}
	for _, path := range []string{cfg.StoreDir, cfg.RepoDir} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("path %s not created: %v", path, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("path %s is not a directory", path)
		}
	}
}
