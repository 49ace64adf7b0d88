// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"context"
	"math"
	"strings"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// HeuristicScorer scores candidates without any external API: graph
// overlap, citation counts, and topic-term matches in the title and
// abstract. A degraded offline mode for runs without scoring credentials;
// deterministic and cheap, nowhere near a topical model.
type HeuristicScorer struct{}

// ScoreBatch rates each candidate from local signals. Order preserved.
func (HeuristicScorer) ScoreBatch(_ context.Context, cands []types.Candidate, topic string, _ []string) ([]Score, error) {
	terms := strings.Fields(strings.ToLower(topic))

	scores := make([]Score, len(cands))
	for i, c := range cands {
		// Overlap with the corpus is the strongest local signal.
		score := 0.3 + 0.4*(1-math.Exp(-0.5*float64(c.OverlapCount)))

		// Topic-term hits in title weigh more than abstract hits.
		title := strings.ToLower(c.Title)
		abstract := strings.ToLower(c.Abstract)
		for _, term := range terms {
			if len(term) < 4 {
				continue
			}
			if strings.Contains(title, term) {
				score += 0.1
			} else if strings.Contains(abstract, term) {
				score += 0.04
			}
		}

		// Mild citation prior, saturating at ~100 citations.
		score += 0.1 * (1 - math.Exp(-float64(c.CitationCount)/50))

		if score > 1 {
			score = 1
		}
		scores[i] = Score{ID: c.ID, Value: score}
	}
	return scores, nil
}
