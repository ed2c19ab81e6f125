// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package winbindex

import (
	"cmp"
	"slices"

	"github.com/bureau-foundation/winbindiff/lib/binversion"
)

// CompareRecords orders records by version, breaking ties by hash so
// that two builds with the same version both keep a position.
func CompareRecords(a, b Record) int {
	if c := binversion.Compare(a.Version(), b.Version()); c != 0 {
		return c
	}
	return cmp.Compare(a.Hash(), b.Hash())
}

// Timeline returns the records of one architecture ordered by
// (version, hash). Records with an unknown version are excluded.
func Timeline(records []Record, arch Arch) []Record {
	var timeline []Record
	for _, record := range records {
		if record.Arch() != arch || record.Version().IsUnknown() {
			continue
		}
		timeline = append(timeline, record)
	}
	slices.SortFunc(timeline, CompareRecords)
	return timeline
}

// FindPredecessor returns the record immediately preceding record in
// its architecture's timeline. Only records accepted by eligible are
// considered (nil accepts all); record itself is always considered.
// Returns false when record is the earliest entry, has an unknown
// version, or is not in the feed.
func FindPredecessor(feed *Feed, record Record, eligible func(Record) bool) (Record, bool) {
	if _, ok := feed.Get(record.Hash()); !ok {
		return Record{}, false
	}

	var candidates []Record
	for _, candidate := range feed.records {
		if candidate.Hash() == record.Hash() || eligible == nil || eligible(candidate) {
			candidates = append(candidates, candidate)
		}
	}
	timeline := Timeline(candidates, record.Arch())

	position := slices.IndexFunc(timeline, func(candidate Record) bool {
		return candidate.Hash() == record.Hash()
	})
	if position <= 0 {
		return Record{}, false
	}
	return timeline[position-1], true
}

// Pairs returns the adjacent pairs of a timeline: N records produce
// N-1 pairs (sliding window of width 2, stride 1).
func Pairs(timeline []Record) [][2]Record {
	if len(timeline) < 2 {
		return nil
	}
	pairs := make([][2]Record, 0, len(timeline)-1)
	for i := 1; i < len(timeline); i++ {
		pairs = append(pairs, [2]Record{timeline[i-1], timeline[i]})
	}
	return pairs
}
