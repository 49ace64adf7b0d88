// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter partitions fetched candidates into relevant, fallback,
// and rejected sets. Filtering is two-stage: a free overlap enrichment
// against the corpus neighborhood, then batched topical scoring through
// a Scorer backend. The stages are independent functions composed by the
// diffusion controller.
package filter

import (
	"context"
	"fmt"
	"io"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Rejection reasons attached to discarded candidates.
const (
	ReasonLowScore      = "low_score"
	ReasonScoringFailed = "scoring_failed"
	ReasonZeroOverlap   = "zero_overlap"
	ReasonNearMiss      = "below_relevance_threshold"
)

// Score is one scored candidate id, order-preserving within a batch.
type Score struct {
	ID    string  `json:"id"`
	Value float64 `json:"score"`
}

// Scorer assigns topical relevance in [0,1] to a batch of candidates.
// Implementations must preserve input order so ids reassociate by index.
type Scorer interface {
	ScoreBatch(ctx context.Context, cands []types.Candidate, topic string, questions []string) ([]Score, error)
}

// OverlapFunc returns the corpus-neighbor overlap count for a candidate id.
type OverlapFunc func(id string) int

// EnrichOverlap attaches the cheap overlap feature to every candidate.
// It never rejects; zero-overlap handling is a separate, optional step.
func EnrichOverlap(cands []types.Candidate, overlap OverlapFunc) {
	for i := range cands {
		cands[i].OverlapCount = overlap(cands[i].ID)
	}
}

// SplitZeroOverlap partitions candidates by whether they share any graph
// neighbor with the corpus. Used only when the hard prefilter is enabled.
func SplitZeroOverlap(cands []types.Candidate) (connected, disconnected []types.Candidate) {
	for _, c := range cands {
		if c.OverlapCount > 0 {
			connected = append(connected, c)
		} else {
			disconnected = append(disconnected, c)
		}
	}
	return connected, disconnected
}

// ScoredCandidate is a candidate that passed the relevance threshold.
type ScoredCandidate struct {
	Candidate types.Candidate
	Score     float64
}

// Rejection records a discarded candidate and why.
type Rejection struct {
	ID     string
	Score  float64
	Reason string
}

// Outcome is the stage-2 partition of one stage's candidates.
type Outcome struct {
	Relevant []ScoredCandidate
	Fallback []types.FallbackCandidate
	Rejected []Rejection

	// BatchesFailed counts scoring batches that failed outright.
	BatchesFailed int

	// BatchesTotal counts scoring batches attempted.
	BatchesTotal int
}

// AllBatchesFailed reports whether no batch produced scores.
func (o Outcome) AllBatchesFailed() bool {
	return o.BatchesTotal > 0 && o.BatchesFailed == o.BatchesTotal
}

// Run executes both filter stages over the stage's deduplicated
// candidates and returns the partition. Batches are chunked and scored
// with bounded parallelism; chunk order within a batch is preserved for
// id reassociation, merge order across chunks does not matter.
//
// Failure handling follows the degradation ladder: a failed chunk
// degrades only its own candidates to rejected ("scoring_failed"); if
// every chunk fails the whole stage's candidates are rejected and an
// ERROR line is written, but the run continues.
func Run(ctx context.Context, scorer Scorer, cands []types.Candidate, topic string, questions []string, cfg types.ScoringConfig, overlap OverlapFunc, w io.Writer) Outcome {
	EnrichOverlap(cands, overlap)

	var out Outcome

	if cfg.SkipZeroOverlap {
		var disconnected []types.Candidate
		cands, disconnected = SplitZeroOverlap(cands)
		for _, c := range disconnected {
			out.Rejected = append(out.Rejected, Rejection{ID: c.ID, Reason: ReasonZeroOverlap})
		}
		if len(disconnected) > 0 {
			fmt.Fprintf(w, "prefilter: skipped %d zero-overlap candidates\n", len(disconnected))
		}
	}

	if len(cands) == 0 {
		return out
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 20
	}
	parallel := cfg.MaxParallelBatches
	if parallel <= 0 {
		parallel = 2
	}

	type chunkResult struct {
		scores []Score
		err    error
	}

	var chunks [][]types.Candidate
	for start := 0; start < len(cands); start += batchSize {
		end := start + batchSize
		if end > len(cands) {
			end = len(cands)
		}
		chunks = append(chunks, cands[start:end])
	}

	// Each goroutine writes a distinct slot, so no lock is needed.
	results := make([]chunkResult, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, chunk := range chunks {
		g.Go(func() error {
			scores, err := scorer.ScoreBatch(gctx, chunk, topic, questions)
			results[i] = chunkResult{scores: scores, err: err}
			return nil
		})
	}
	g.Wait()

	out.BatchesTotal = len(chunks)
	for i, chunk := range chunks {
		res := results[i]
		if res.err != nil || len(res.scores) != len(chunk) {
			out.BatchesFailed++
			if res.err != nil {
				fmt.Fprintf(w, "warning: scoring batch %d/%d failed: %v\n", i+1, len(chunks), res.err)
			} else {
				fmt.Fprintf(w, "warning: scoring batch %d/%d returned %d scores for %d candidates\n", i+1, len(chunks), len(res.scores), len(chunk))
			}
			for _, c := range chunk {
				out.Rejected = append(out.Rejected, Rejection{ID: c.ID, Reason: ReasonScoringFailed})
			}
			continue
		}
		for j, c := range chunk {
			out.absorb(c, res.scores[j], cfg)
		}
	}

	if out.AllBatchesFailed() {
		fmt.Fprintf(w, "ERROR: all %d scoring batches failed; stage candidates rejected\n", out.BatchesTotal)
	}
	return out
}

// absorb routes one scored candidate by the threshold pair.
func (o *Outcome) absorb(c types.Candidate, s Score, cfg types.ScoringConfig) {
	score := s.Value
	if math.IsNaN(score) || score < 0 {
		o.Rejected = append(o.Rejected, Rejection{ID: c.ID, Reason: ReasonScoringFailed})
		return
	}
	if score > 1 {
		score = 1
	}

	switch {
	case score >= cfg.RelevanceThreshold:
		o.Relevant = append(o.Relevant, ScoredCandidate{Candidate: c, Score: score})
	case score >= cfg.FallbackThreshold:
		o.Fallback = append(o.Fallback, types.FallbackCandidate{
			ID:             c.ID,
			RelevanceScore: score,
			Reason:         ReasonNearMiss,
		})
	default:
		o.Rejected = append(o.Rejected, Rejection{ID: c.ID, Score: score, Reason: ReasonLowScore})
	}
}
