// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package finalize selects the bounded, recency-balanced final corpus
// from the accepted papers.
package finalize

import (
	"math"
	"sort"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Input holds the selection parameters for one run.
type Input struct {
	// Papers is the accepted corpus.
	Papers []types.PaperNode

	// MaxPapers caps the final selection size.
	MaxPapers int

	// RecencyYears sets the recent/older cutoff relative to CurrentYear.
	RecencyYears int

	// RecencyQuota is the target fraction of recent papers, in [0,1].
	RecencyQuota float64

	// CurrentYear anchors the cutoff; callers pass time.Now().Year().
	CurrentYear int
}

// Selection is the ordered final corpus and quota accounting.
type Selection struct {
	// IDs is the final selection, relevance-ranked, recent bucket first.
	IDs []string

	// RecentCount is how many selected papers fall in the recent bucket.
	RecentCount int

	// TargetRecent is floor(MaxPapers × RecencyQuota).
	TargetRecent int

	// RecentFraction is RecentCount / len(IDs); 0 for an empty selection.
	RecentFraction float64
}

// Select partitions the corpus by recency, ranks each bucket by
// relevance, and fills the quota. Guarantees
// len(IDs) == min(MaxPapers, len(Papers)): when the recent pool cannot
// fill its quota the older pool takes the slots, and leftover recent
// papers backfill any remaining shortfall.
//
// Ties on relevance score break deterministically by discovery stage
// ascending, then id ascending, so earlier-discovered papers win.
func Select(in Input) Selection {
	if len(in.Papers) == 0 || in.MaxPapers <= 0 {
		return Selection{}
	}

	cutoff := in.CurrentYear - in.RecencyYears

	// Small corpora skip the quota: everything is selected, ranked.
	if len(in.Papers) <= in.MaxPapers {
		ranked := rank(in.Papers)
		return tally(ranked, cutoff, in)
	}

	var recent, older []types.PaperNode
	for _, p := range in.Papers {
		if p.Year >= cutoff {
			recent = append(recent, p)
		} else {
			older = append(older, p)
		}
	}
	recent = rank(recent)
	older = rank(older)

	targetRecent := int(math.Floor(float64(in.MaxPapers) * in.RecencyQuota))
	takeRecent := min(targetRecent, len(recent))
	takeOlder := min(in.MaxPapers-takeRecent, len(older))

	selected := make([]types.PaperNode, 0, in.MaxPapers)
	selected = append(selected, recent[:takeRecent]...)
	selected = append(selected, older[:takeOlder]...)

	// Backfill from leftover recent papers, never exceeding the cap.
	if shortfall := in.MaxPapers - len(selected); shortfall > 0 && len(recent) > takeRecent {
		extra := min(shortfall, len(recent)-takeRecent)
		selected = append(selected, recent[takeRecent:takeRecent+extra]...)
	}

	return tally(selected, cutoff, in)
}

// rank sorts papers by relevance descending with the deterministic
// (discovery stage, id) tie-break.
func rank(papers []types.PaperNode) []types.PaperNode {
	out := append([]types.PaperNode(nil), papers...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].RelevanceScore != out[j].RelevanceScore {
			return out[i].RelevanceScore > out[j].RelevanceScore
		}
		if out[i].DiscoveryStage != out[j].DiscoveryStage {
			return out[i].DiscoveryStage < out[j].DiscoveryStage
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func tally(selected []types.PaperNode, cutoff int, in Input) Selection {
	sel := Selection{
		IDs:          make([]string, 0, len(selected)),
		TargetRecent: int(math.Floor(float64(in.MaxPapers) * in.RecencyQuota)),
	}
	for _, p := range selected {
		sel.IDs = append(sel.IDs, p.ID)
		if p.Year >= cutoff {
			sel.RecentCount++
		}
	}
	if len(sel.IDs) > 0 {
		sel.RecentFraction = float64(sel.RecentCount) / float64(len(sel.IDs))
	}
	return sel
}
