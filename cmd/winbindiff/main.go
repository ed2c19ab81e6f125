// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// winbindiff keeps a store of ghidriff reports for Windows binaries up
// to date with Winbindex.
//
// Each run walks the configured Winbindex branches, finds builds of the
// tracked binaries that have not been diffed yet, downloads them from
// the symbol server, and runs ghidriff against each build's
// predecessor. Progress is kept in <store>/progress.yaml so a run only
// does new work.
//
// Subcommands:
//
//	winbindiff run     download, diff and record progress
//	winbindiff plan    print what run would diff, without side effects
//	winbindiff status  print how many builds are recorded per binary
//
// Configuration comes from --config or the WINBINDIFF_CONFIG
// environment variable.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/winbindiff/lib/config"
	"github.com/bureau-foundation/winbindiff/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

// usageError is a command-line mistake. It exits with status 2.
type usageError struct {
	message string
}

func (e *usageError) Error() string { return e.message }

func (e *usageError) ExitCode() int { return 2 }

func usageErrorf(format string, args ...any) error {
	return &usageError{message: fmt.Sprintf(format, args...)}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stderr)
		return usageErrorf("missing command")
	}

	switch args[0] {
	case "--version", "version":
		version.Fprint(stdout, "winbindiff")
		return nil
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	case "run":
		return runCommand(args[1:], stdout, stderr)
	case "plan":
		return planCommand(args[1:], stdout, stderr)
	case "status":
		return statusCommand(args[1:], stdout, stderr)
	default:
		printUsage(stderr)
		return usageErrorf("unknown command %q", args[0])
	}
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	configPath string
	debug      bool
}

func (c *commonFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.configPath, "config", "", "path to the winbindiff YAML config (default: $"+config.EnvVar+")")
	flagSet.BoolVar(&c.debug, "debug", false, "enable debug logging")
}

// loadConfig loads and validates the configuration.
func (c *commonFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// parseFlags parses args into flagSet. It returns done=true when help
// was requested and printed.
func parseFlags(flagSet *pflag.FlagSet, args []string) (done bool, err error) {
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, &usageError{message: err.Error()}
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return false, usageErrorf("unexpected argument: %s", extra[0])
	}
	return false, nil
}

func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("winbindiff "+name, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	return flagSet
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, `winbindiff keeps ghidriff reports of Windows binaries current with Winbindex.

Usage:
  winbindiff run    [--config FILE] [--branch NAME] [--sync] [--debug]
  winbindiff plan   [--config FILE] [--branch NAME] [--debug]
  winbindiff status [--config FILE]
  winbindiff --version

The config file is taken from --config or $%s.
`, config.EnvVar)
}
