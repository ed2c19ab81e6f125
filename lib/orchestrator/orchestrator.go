// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/winbindiff/lib/config"
	"github.com/bureau-foundation/winbindiff/lib/fetch"
	"github.com/bureau-foundation/winbindiff/lib/ghidriff"
	"github.com/bureau-foundation/winbindiff/lib/git"
	"github.com/bureau-foundation/winbindiff/lib/ledger"
	"github.com/bureau-foundation/winbindiff/lib/winbindex"
)

// Fetcher downloads a batch of records into dir. *fetch.Pipeline
// implements it.
type Fetcher interface {
	Fetch(ctx context.Context, dir string, records []winbindex.Record) []fetch.Result
}

// Differ runs a batch of comparisons. *ghidriff.Tool implements it.
type Differ interface {
	RunAll(ctx context.Context, invocations []ghidriff.Invocation, concurrency int) ([]ghidriff.Outcome, error)
}

// Options configures an Orchestrator.
type Options struct {
	// StoreDir is the artifact store root. Required.
	StoreDir string

	// Fetcher defaults to a fetch.Pipeline with default settings.
	Fetcher Fetcher

	// Differ defaults to a ghidriff.Tool using ProjectsDir(StoreDir).
	Differ Differ

	// DiffConcurrency bounds simultaneous diff invocations. Zero uses
	// ghidriff.DefaultConcurrency.
	DiffConcurrency int

	// Branch restricts Run and PlanAll to one configured branch.
	Branch string

	// Sync clones or pulls each branch's Winbindex repository before
	// processing it.
	Sync bool

	Logger *slog.Logger
}

// Orchestrator plans and executes diffs against one store.
type Orchestrator struct {
	storeDir        string
	fetcher         Fetcher
	differ          Differ
	diffConcurrency int
	branch          string
	sync            bool
	logger          *slog.Logger
}

// Report summarizes what ExecutePlan did for one binary.
type Report struct {
	Branch string
	Binary string
	Mode   Mode

	// Planned is the number of pairs in the plan.
	Planned int

	Downloaded       int
	DownloadFailures int

	// DroppedPairs counts pairs not run because a side failed to
	// download.
	DroppedPairs int

	Diffs        int
	DiffFailures int

	// Indexed is the number of hashes recorded in the ledger.
	Indexed int

	Skipped string
}

// BinaryPlan is a plan together with what it is for.
type BinaryPlan struct {
	Branch string
	Binary string
	Plan   Plan
}

// New returns an Orchestrator for options.StoreDir.
func New(options Options) *Orchestrator {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fetcher := options.Fetcher
	if fetcher == nil {
		fetcher = &fetch.Pipeline{Logger: logger}
	}
	differ := options.Differ
	if differ == nil {
		differ = &ghidriff.Tool{ProjectsDir: ProjectsDir(options.StoreDir), Logger: logger}
	}
	return &Orchestrator{
		storeDir:        options.StoreDir,
		fetcher:         fetcher,
		differ:          differ,
		diffConcurrency: options.DiffConcurrency,
		branch:          options.Branch,
		sync:            options.Sync,
		logger:          logger,
	}
}

// Run processes every configured branch, strictly one after another,
// and returns a report per binary processed. The store is locked for
// the whole run.
//
// Directory creation, feed, ledger and git failures abort the run, as
// does a diff tool that cannot be launched. Failed downloads and
// non-zero diff exits do not.
func (o *Orchestrator) Run(ctx context.Context, cfg *config.Config) ([]Report, error) {
	names, err := o.branchNames(cfg)
	if err != nil {
		return nil, err
	}

	lock, err := ledger.Lock(o.storeDir)
	if err != nil {
		return nil, err
	}
	defer lock.Unlock()

	var reports []Report
	for _, name := range names {
		branchReports, err := o.runBranch(ctx, cfg, name)
		reports = append(reports, branchReports...)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

func (o *Orchestrator) runBranch(ctx context.Context, cfg *config.Config, name string) (reports []Report, err error) {
	branchConfig := cfg.Branches[name]
	repoPath := cfg.RepoPath(name)
	logger := o.logger.With("branch", name)

	if o.sync {
		repo, syncErr := git.CloneOrPull(ctx, branchConfig.RepoURL, branchConfig.Branch, repoPath)
		if syncErr != nil {
			return nil, fmt.Errorf("syncing branch %s: %w", name, syncErr)
		}
		if head, headErr := repo.Head(ctx); headErr == nil {
			logger.Info("winbindex repository synced", "path", repoPath, "commit", head)
		}
	}

	progressLedger, err := ledger.Open(o.storeDir)
	if err != nil {
		return nil, err
	}
	progress := progressLedger.Branch(name)
	defer func() {
		// Progress recorded before an abort is real; keep it.
		if flushErr := progressLedger.Flush(); flushErr != nil && err == nil {
			err = flushErr
		}
	}()

	for _, binary := range branchConfig.Files {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return reports, ctxErr
		}
		feed, loadErr := o.loadFeed(repoPath, branchConfig.DataDir, binary, name)
		if loadErr != nil {
			return reports, loadErr
		}
		report, execErr := o.ExecutePlan(ctx, name, binary, PlanBinary(feed, progress), progress)
		reports = append(reports, report)
		if execErr != nil {
			return reports, fmt.Errorf("%s/%s: %w", name, binary, execErr)
		}
	}
	logger.Info("branch finished", "binaries", len(branchConfig.Files))
	return reports, nil
}

// PlanAll plans every configured binary against the current ledger
// without downloading, diffing or writing anything.
func (o *Orchestrator) PlanAll(cfg *config.Config) ([]BinaryPlan, error) {
	names, err := o.branchNames(cfg)
	if err != nil {
		return nil, err
	}
	progressLedger, err := ledger.Read(o.storeDir)
	if err != nil {
		return nil, err
	}

	var plans []BinaryPlan
	for _, name := range names {
		branchConfig := cfg.Branches[name]
		progress := progressLedger.Branch(name)
		for _, binary := range branchConfig.Files {
			feed, err := o.loadFeed(cfg.RepoPath(name), branchConfig.DataDir, binary, name)
			if err != nil {
				return plans, err
			}
			plans = append(plans, BinaryPlan{Branch: name, Binary: binary, Plan: PlanBinary(feed, progress)})
		}
	}
	return plans, nil
}

// ExecutePlan downloads the plan's records, diffs every pair whose
// builds are both present, and then records the plan's hashes in
// branch. In TRACKED mode a failed download leaves branch untouched so
// the build is retried on the next run.
func (o *Orchestrator) ExecutePlan(ctx context.Context, branchName, binary string, plan Plan, branch *ledger.Branch) (Report, error) {
	report := Report{
		Branch:  branchName,
		Binary:  binary,
		Mode:    plan.Mode,
		Planned: len(plan.Pairs),
		Skipped: plan.Skipped,
	}
	logger := o.logger.With("branch", branchName, "binary", binary, "mode", plan.Mode.String())

	if plan.Skipped != "" {
		logger.Info("build has no predecessor, leaving it unrecorded", "hash", plan.Skipped)
	}
	if plan.Empty() {
		logger.Debug("nothing to diff")
		return report, nil
	}

	binariesDir := BinariesDir(o.storeDir, branchName, binary)
	if err := os.MkdirAll(binariesDir, 0755); err != nil {
		return report, fmt.Errorf("creating binaries directory: %w", err)
	}

	results := o.fetcher.Fetch(ctx, binariesDir, plan.Records)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	present := make(map[string]string, len(results))
	for _, result := range results {
		if result.OK() {
			present[result.Record.Hash()] = result.Path
			report.Downloaded++
		} else {
			report.DownloadFailures++
		}
	}

	var invocations []ghidriff.Invocation
	for _, pair := range plan.Pairs {
		oldPath, oldOK := present[pair.Old.Hash()]
		newPath, newOK := present[pair.New.Hash()]
		if !oldOK || !newOK {
			report.DroppedPairs++
			logger.Warn("skipping pair with a missing build",
				"old", pair.Old.Hash(), "new", pair.New.Hash())
			continue
		}
		invocations = append(invocations, ghidriff.Invocation{
			OutputDir: DiffsDir(o.storeDir, branchName, pair.New.Arch(), binary),
			OldPath:   oldPath,
			NewPath:   newPath,
		})
	}

	if plan.Mode == ModeTracked && report.DroppedPairs > 0 {
		logger.Warn("download failed, will retry on the next run")
		return report, nil
	}

	if len(invocations) > 0 {
		if err := o.prepareDiffDirs(invocations); err != nil {
			return report, err
		}
		outcomes, err := o.differ.RunAll(ctx, invocations, o.diffConcurrency)
		report.Diffs = len(outcomes)
		for _, outcome := range outcomes {
			if outcome.Err != nil {
				report.DiffFailures++
			}
		}
		if err != nil {
			return report, fmt.Errorf("running ghidriff: %w", err)
		}
	}

	for _, hash := range plan.Index {
		branch.Add(binary, hash)
	}
	report.Indexed = len(plan.Index)

	logger.Info("binary processed",
		"pairs", report.Planned,
		"downloaded", report.Downloaded,
		"download_failures", report.DownloadFailures,
		"diffs", report.Diffs,
		"diff_failures", report.DiffFailures,
		"indexed", report.Indexed)
	return report, nil
}

func (o *Orchestrator) prepareDiffDirs(invocations []ghidriff.Invocation) error {
	if err := os.MkdirAll(ProjectsDir(o.storeDir), 0755); err != nil {
		return fmt.Errorf("creating ghidra projects directory: %w", err)
	}
	created := make(map[string]bool)
	for _, invocation := range invocations {
		if created[invocation.OutputDir] {
			continue
		}
		if err := os.MkdirAll(invocation.OutputDir, 0755); err != nil {
			return fmt.Errorf("creating diff directory: %w", err)
		}
		created[invocation.OutputDir] = true
	}
	return nil
}

func (o *Orchestrator) loadFeed(repoPath, dataDir, binary, branch string) (*winbindex.Feed, error) {
	feed, err := winbindex.LoadFeed(repoPath, dataDir, binary, branch)
	if err != nil {
		return nil, err
	}
	logger := o.logger.With("branch", branch, "binary", binary)
	if unknown := feed.UnknownVersions(); unknown > 0 {
		logger.Warn("builds with an unrecoverable version are excluded", "count", unknown)
	}
	if dropped := feed.Dropped(); dropped > 0 {
		logger.Debug("feed entries without file info were dropped", "count", dropped)
	}
	logger.Debug("feed loaded", "records", feed.Len())
	return feed, nil
}

func (o *Orchestrator) branchNames(cfg *config.Config) ([]string, error) {
	if o.branch == "" {
		return cfg.BranchNames(), nil
	}
	if _, ok := cfg.Branches[o.branch]; !ok {
		return nil, fmt.Errorf("branch %q is not configured", o.branch)
	}
	return []string{o.branch}, nil
}
