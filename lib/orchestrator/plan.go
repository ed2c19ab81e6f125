// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"github.com/bureau-foundation/winbindiff/lib/ledger"
	"github.com/bureau-foundation/winbindiff/lib/winbindex"
)

// Mode selects how a binary is processed.
type Mode int

const (
	// ModeNew diffs the whole history of a binary never seen before.
	ModeNew Mode = iota

	// ModeTracked diffs one new build against its predecessor.
	ModeTracked
)

func (m Mode) String() string {
	switch m {
	case ModeNew:
		return "new"
	case ModeTracked:
		return "tracked"
	default:
		return "unknown"
	}
}

// Pair is one comparison, older build first.
type Pair struct {
	Old winbindex.Record
	New winbindex.Record
}

// Plan is the work for one binary.
type Plan struct {
	Mode Mode

	// Records are the builds to download.
	Records []winbindex.Record

	// Pairs are the comparisons to run, in timeline order.
	Pairs []Pair

	// Index lists the hashes recorded in the ledger once the plan has
	// executed.
	Index []string

	// Skipped is the hash of a TRACKED candidate that has no
	// predecessor. It is not recorded and will be picked again.
	Skipped string
}

// Empty reports whether the plan does nothing.
func (p Plan) Empty() bool {
	return len(p.Records) == 0 && len(p.Index) == 0
}

// batchEligible reports whether a record may take part in a diff batch.
func batchEligible(record winbindex.Record) bool {
	return record.Downloadable() && !record.Version().IsUnknown() && record.Arch().Valid()
}

// PlanBinary plans the next step for the feed's binary given the
// branch's progress. It reads the ledger but never changes it.
func PlanBinary(feed *winbindex.Feed, branch *ledger.Branch) Plan {
	if branch.NoneIndexed(feed.Name()) {
		return planNew(feed)
	}
	return planTracked(feed, branch)
}

func planNew(feed *winbindex.Feed) Plan {
	plan := Plan{Mode: ModeNew}

	var batch []winbindex.Record
	for _, record := range feed.Records() {
		if batchEligible(record) {
			batch = append(batch, record)
		}
	}

	for _, arch := range winbindex.Arches {
		timeline := winbindex.Timeline(batch, arch)
		for _, record := range timeline {
			plan.Records = append(plan.Records, record)
			plan.Index = append(plan.Index, record.Hash())
		}
		for _, pair := range winbindex.Pairs(timeline) {
			plan.Pairs = append(plan.Pairs, Pair{Old: pair[0], New: pair[1]})
		}
	}
	return plan
}

func planTracked(feed *winbindex.Feed, branch *ledger.Branch) Plan {
	plan := Plan{Mode: ModeTracked}

	var candidate winbindex.Record
	found := false
	feed.Each(func(record winbindex.Record) bool {
		if batchEligible(record) && !branch.IsIndexed(feed.Name(), record.Hash()) {
			candidate = record
			found = true
			return false
		}
		return true
	})
	if !found {
		return plan
	}

	predecessor, ok := winbindex.FindPredecessor(feed, candidate, winbindex.Downloadable)
	if !ok {
		plan.Skipped = candidate.Hash()
		return plan
	}

	plan.Records = []winbindex.Record{predecessor, candidate}
	plan.Pairs = []Pair{{Old: predecessor, New: candidate}}
	plan.Index = []string{candidate.Hash()}
	return plan
}
