// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ghidriff

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// DefaultConcurrency bounds simultaneous invocations when RunAll is
// given a non-positive concurrency.
const DefaultConcurrency = 8

// Outcome is the result of one invocation that was started.
type Outcome struct {
	Invocation Invocation

	// Err is nil on success, an *ExitError on a non-zero exit, or
	// another error from waiting on the process.
	Err error
}

// RunAll runs invocations with at most concurrency running at once and
// returns the outcomes of those that ran, in input order.
//
// Exit failures are recorded in their Outcome and logged; they do not
// stop the batch. The first *LaunchError stops dispatch: invocations
// not yet started are dropped, in-flight ones finish, and the launch
// error is returned. A cancelled ctx likewise stops dispatch and
// ctx.Err() is returned.
func (t *Tool) RunAll(ctx context.Context, invocations []Invocation, concurrency int) ([]Outcome, error) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	type workItem struct {
		index      int
		invocation Invocation
	}
	type workResult struct {
		index   int
		outcome Outcome
		launch  *LaunchError
	}

	work := make(chan workItem)
	done := make(chan workResult)
	stop := make(chan struct{})
	var stopOnce sync.Once
	stopped := func() bool {
		select {
		case <-stop:
			return true
		default:
			return false
		}
	}

	var workers sync.WaitGroup
	for range min(concurrency, len(invocations)) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for item := range work {
				if stopped() || ctx.Err() != nil {
					continue
				}
				err := t.Diff(ctx, item.invocation)
				var launchErr *LaunchError
				if errors.As(err, &launchErr) {
					stopOnce.Do(func() { close(stop) })
					done <- workResult{index: item.index, launch: launchErr}
					continue
				}
				done <- workResult{index: item.index, outcome: Outcome{Invocation: item.invocation, Err: err}}
			}
		}()
	}

	go func() {
		defer close(work)
		for index, invocation := range invocations {
			if stopped() {
				return
			}
			select {
			case work <- workItem{index: index, invocation: invocation}:
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		workers.Wait()
		close(done)
	}()

	type indexed struct {
		index   int
		outcome Outcome
	}
	var collected []indexed
	var firstLaunch *LaunchError
	for result := range done {
		if result.launch != nil {
			if firstLaunch == nil {
				firstLaunch = result.launch
			}
			continue
		}
		if result.outcome.Err != nil {
			t.logger().Error("ghidriff failed",
				"old", result.outcome.Invocation.OldPath,
				"new", result.outcome.Invocation.NewPath,
				"output", result.outcome.Invocation.OutputDir,
				"error", result.outcome.Err)
		} else {
			t.logger().Info("ghidriff finished",
				"old", result.outcome.Invocation.OldPath,
				"new", result.outcome.Invocation.NewPath,
				"output", result.outcome.Invocation.OutputDir)
		}
		collected = append(collected, indexed{index: result.index, outcome: result.outcome})
	}

	slices.SortFunc(collected, func(a, b indexed) int { return a.index - b.index })
	outcomes := make([]Outcome, len(collected))
	for i, entry := range collected {
		outcomes[i] = entry.outcome
	}

	if firstLaunch != nil {
		return outcomes, firstLaunch
	}
	if err := ctx.Err(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}
