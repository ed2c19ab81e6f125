// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/bureau-foundation/winbindiff/lib/config"
	"github.com/bureau-foundation/winbindiff/lib/fetch"
	"github.com/bureau-foundation/winbindiff/lib/ghidriff"
	"github.com/bureau-foundation/winbindiff/lib/ledger"
	"github.com/bureau-foundation/winbindiff/lib/orchestrator"
)

func runCommand(args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var branch string
	var sync bool

	flagSet := newFlagSet("run", stderr)
	common.register(flagSet)
	flagSet.StringVar(&branch, "branch", "", "process only this configured branch")
	flagSet.BoolVar(&sync, "sync", false, "clone or pull each Winbindex repository first")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}

	cfg, err := common.loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(stderr, common.debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tool := &ghidriff.Tool{
		Executable:  cfg.DiffTool,
		ProjectsDir: orchestrator.ProjectsDir(cfg.StoreDir),
		Logger:      logger,
	}
	if common.debug {
		tool.Stdout = stderr
		tool.Stderr = stderr
	}
	if _, err := tool.FindBinary(); err != nil {
		return err
	}

	pipeline := &fetch.Pipeline{
		Client:       &http.Client{},
		SymbolServer: cfg.SymbolServer,
		Concurrency:  cfg.DownloadConcurrency,
		Verify:       cfg.VerifyDownloads,
		Logger:       logger,
	}

	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	runner := orchestrator.New(orchestrator.Options{
		StoreDir:        cfg.StoreDir,
		Fetcher:         pipeline,
		Differ:          tool,
		DiffConcurrency: cfg.DiffConcurrency,
		Branch:          branch,
		Sync:            sync,
		Logger:          logger,
	})

	reports, err := runner.Run(ctx, cfg)
	writeReports(stdout, reports)
	return err
}

func planCommand(args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	var branch string

	flagSet := newFlagSet("plan", stderr)
	common.register(flagSet)
	flagSet.StringVar(&branch, "branch", "", "plan only this configured branch")
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}

	cfg, err := common.loadConfig()
	if err != nil {
		return err
	}
	planner := orchestrator.New(orchestrator.Options{
		StoreDir: cfg.StoreDir,
		Branch:   branch,
		Logger:   newLogger(stderr, common.debug),
	})

	plans, err := planner.PlanAll(cfg)
	if err != nil {
		return err
	}
	writePlans(stdout, plans)
	return nil
}

func statusCommand(args []string, stdout, stderr io.Writer) error {
	var common commonFlags

	flagSet := newFlagSet("status", stderr)
	common.register(flagSet)
	if done, err := parseFlags(flagSet, args); done || err != nil {
		return err
	}

	cfg, err := common.loadConfig()
	if err != nil {
		return err
	}
	progress, err := ledger.Read(cfg.StoreDir)
	if err != nil {
		return err
	}
	writeStatus(stdout, cfg, progress.Summary())
	return nil
}

func writeReports(w io.Writer, reports []orchestrator.Report) {
	if len(reports) == 0 {
		return
	}
	writer := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(writer, "BRANCH\tBINARY\tMODE\tDOWNLOADED\tFAILED\tDIFFS\tDIFF FAILURES\tRECORDED")
	for _, report := range reports {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			report.Branch, report.Binary, report.Mode,
			report.Downloaded, report.DownloadFailures,
			report.Diffs, report.DiffFailures, report.Indexed)
	}
	writer.Flush()
}

func writePlans(w io.Writer, plans []orchestrator.BinaryPlan) {
	writer := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(writer, "BRANCH\tBINARY\tMODE\tARCH\tOLD\tNEW")
	for _, entry := range plans {
		plan := entry.Plan
		switch {
		case plan.Skipped != "":
			fmt.Fprintf(writer, "%s\t%s\t%s\t-\t(no predecessor)\t%s\n", entry.Branch, entry.Binary, plan.Mode, plan.Skipped)
		case len(plan.Pairs) == 0:
			fmt.Fprintf(writer, "%s\t%s\t%s\t-\t-\t(nothing to diff, %d to record)\n", entry.Branch, entry.Binary, plan.Mode, len(plan.Index))
		}
		for _, pair := range plan.Pairs {
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s %s\t%s %s\n",
				entry.Branch, entry.Binary, plan.Mode, pair.New.Arch(),
				pair.Old.Version(), shortHash(pair.Old.Hash()),
				pair.New.Version(), shortHash(pair.New.Hash()))
		}
	}
	writer.Flush()
}

// writeStatus lists recorded builds per binary. Configured binaries
// with nothing recorded are listed with zero.
func writeStatus(w io.Writer, cfg *config.Config, summary []ledger.BinarySummary) {
	type key struct{ branch, binary string }
	seen := make(map[key]bool, len(summary))

	writer := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(writer, "BRANCH\tBINARY\tRECORDED")
	for _, entry := range summary {
		seen[key{entry.Branch, entry.Binary}] = true
		fmt.Fprintf(writer, "%s\t%s\t%d\n", entry.Branch, entry.Binary, entry.Indexed)
	}
	for _, branch := range cfg.BranchNames() {
		for _, binary := range cfg.Branches[branch].Files {
			if !seen[key{branch, binary}] {
				fmt.Fprintf(writer, "%s\t%s\t0\n", branch, binary)
			}
		}
	}
	writer.Flush()
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

var (
	_ orchestrator.Fetcher = (*fetch.Pipeline)(nil)
	_ orchestrator.Differ  = (*ghidriff.Tool)(nil)
)
