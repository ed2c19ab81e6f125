// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable read by Load.
const EnvVar = "WINBINDIFF_CONFIG"

// Config is the top-level winbindiff configuration.
type Config struct {
	// StoreDir is the artifact store: downloaded binaries, diff
	// reports, Ghidra projects and the progress ledger live here.
	StoreDir string `yaml:"store_dir"`

	// RepoDir holds one Winbindex clone per branch, at
	// <RepoDir>/<branch name>.
	RepoDir string `yaml:"repo_dir"`

	// SymbolServer is the host binaries are downloaded from.
	// Default: msdl.microsoft.com
	SymbolServer string `yaml:"symbol_server"`

	// DiffTool is the ghidriff executable, a name looked up on PATH or
	// a path. Default: ghidriff
	DiffTool string `yaml:"diff_tool"`

	// DownloadConcurrency bounds simultaneous downloads. Default: 8
	DownloadConcurrency int `yaml:"download_concurrency"`

	// DiffConcurrency bounds simultaneous ghidriff processes. Default: 8
	DiffConcurrency int `yaml:"diff_concurrency"`

	// VerifyDownloads checks each downloaded binary's SHA256 against
	// its Winbindex hash before accepting it.
	VerifyDownloads bool `yaml:"verify_downloads"`

	// Branches maps a Winbindex branch name (e.g. "insider") to its
	// source and tracked binaries.
	Branches map[string]*Branch `yaml:"branches"`
}

// Branch is one Winbindex source.
type Branch struct {
	// RepoURL is the git remote of the Winbindex data repository.
	RepoURL string `yaml:"repo_url"`

	// Branch is the git branch to check out, usually gh-pages.
	Branch string `yaml:"branch"`

	// DataDir is the feed directory inside the clone, e.g.
	// data/by_filename_compressed.
	DataDir string `yaml:"data_dir"`

	// Files lists the binary names to track, processed in this order.
	Files []string `yaml:"files"`
}

// Default returns the default configuration. The config file is
// unmarshaled over it, so fields the file omits keep these values.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	root := filepath.Join(homeDir, ".cache", "winbindiff")

	return &Config{
		StoreDir:            filepath.Join(root, "store"),
		RepoDir:             filepath.Join(root, "repos"),
		SymbolServer:        "msdl.microsoft.com",
		DiffTool:            "ghidriff",
		DownloadConcurrency: 8,
		DiffConcurrency:     8,
	}
}

// Load loads configuration from the WINBINDIFF_CONFIG environment
// variable. There is no fallback: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your winbindiff.yaml config file, or use --config flag", EnvVar)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path and expands
// variables in its path fields. It does not validate; call Validate.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving config directory: %w", err)
	}
	cfg.expandVariables(root)
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables(root string) {
	vars := map[string]string{
		"WINBINDIFF_ROOT": root,
		"HOME":            os.Getenv("HOME"),
	}

	c.StoreDir = expandVars(c.StoreDir, vars)
	c.RepoDir = expandVars(c.RepoDir, vars)
	c.DiffTool = expandVars(c.DiffTool, vars)
	for _, branch := range c.Branches {
		if branch == nil {
			continue
		}
		branch.RepoURL = expandVars(branch.RepoURL, vars)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns. Provided vars
// take precedence over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.StoreDir == "" {
		errs = append(errs, fmt.Errorf("store_dir is required"))
	}
	if c.RepoDir == "" {
		errs = append(errs, fmt.Errorf("repo_dir is required"))
	}
	if c.SymbolServer == "" {
		errs = append(errs, fmt.Errorf("symbol_server is required"))
	} else if strings.Contains(c.SymbolServer, "/") {
		errs = append(errs, fmt.Errorf("symbol_server must be a host name, not a URL: %q", c.SymbolServer))
	}
	if c.DiffTool == "" {
		errs = append(errs, fmt.Errorf("diff_tool is required"))
	}
	if c.DownloadConcurrency < 1 {
		errs = append(errs, fmt.Errorf("download_concurrency must be at least 1, got %d", c.DownloadConcurrency))
	}
	if c.DiffConcurrency < 1 {
		errs = append(errs, fmt.Errorf("diff_concurrency must be at least 1, got %d", c.DiffConcurrency))
	}
	if len(c.Branches) == 0 {
		errs = append(errs, fmt.Errorf("at least one branch is required"))
	}

	for _, name := range c.BranchNames() {
		branch := c.Branches[name]
		if branch == nil {
			errs = append(errs, fmt.Errorf("branches.%s is empty", name))
			continue
		}
		if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			errs = append(errs, fmt.Errorf("branches.%s: name must be a single path component", name))
		}
		if branch.RepoURL == "" {
			errs = append(errs, fmt.Errorf("branches.%s.repo_url is required", name))
		}
		if branch.Branch == "" {
			errs = append(errs, fmt.Errorf("branches.%s.branch is required", name))
		}
		if branch.DataDir == "" {
			errs = append(errs, fmt.Errorf("branches.%s.data_dir is required", name))
		}
		if len(branch.Files) == 0 {
			errs = append(errs, fmt.Errorf("branches.%s.files must list at least one binary", name))
		}
		for _, file := range branch.Files {
			if file == "" || strings.ContainsAny(file, `/\`) {
				errs = append(errs, fmt.Errorf("branches.%s.files: invalid binary name %q", name, file))
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// BranchNames returns the configured branch names in sorted order, the
// order branches are processed in.
func (c *Config) BranchNames() []string {
	names := make([]string, 0, len(c.Branches))
	for name := range c.Branches {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RepoPath returns the local clone directory for a branch.
func (c *Config) RepoPath(branchName string) string {
	return filepath.Join(c.RepoDir, branchName)
}

// EnsurePaths creates the store and repository directories if they
// don't exist.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.StoreDir, c.RepoDir} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
