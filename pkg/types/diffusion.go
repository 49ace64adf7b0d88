// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Phase is the controller state machine position.
type Phase string

const (
	PhaseSeeding    Phase = "seeding"
	PhaseExpanding  Phase = "expanding"
	PhaseFinalizing Phase = "finalizing"
	PhaseDone       Phase = "done"
)

// Decision is the saturation monitor's verdict after a stage completes.
type Decision string

const (
	// DecisionContinue tells the controller to expand another stage.
	DecisionContinue Decision = "continue"

	// DecisionMaxStage terminates because the stage budget is exhausted.
	DecisionMaxStage Decision = "max_stage"

	// DecisionMaxCollected terminates because the corpus reached the
	// overcollection target.
	DecisionMaxCollected Decision = "max_collected"

	// DecisionSaturated terminates because expansion stopped yielding
	// new relevant material.
	DecisionSaturated Decision = "saturated"

	// DecisionCancelled terminates because the caller cancelled the run.
	DecisionCancelled Decision = "cancelled"
)

// Terminal reports whether the decision ends the expansion loop.
func (d Decision) Terminal() bool { return d != DecisionContinue }

// DiffusionState tracks expansion progress across stages. The saturation
// monitor consumes and returns it by value; the controller owns the
// authoritative copy.
type DiffusionState struct {
	// CurrentStage is the index of the most recently completed stage.
	// Seeds are stage 0; expansion stages start at 1.
	CurrentStage int `json:"current_stage" yaml:"current_stage"`

	// MaxStages bounds the number of expansion stages.
	MaxStages int `json:"max_stages" yaml:"max_stages"`

	// CorpusSize is the accepted corpus size after the stage committed.
	CorpusSize int `json:"corpus_size" yaml:"corpus_size"`

	// CollectionTarget is final_target × overcollection_factor.
	CollectionTarget int `json:"collection_target" yaml:"collection_target"`

	// ConsecutiveLowCoverage counts back-to-back stages whose coverage
	// delta fell below the saturation threshold.
	ConsecutiveLowCoverage int `json:"consecutive_low_coverage" yaml:"consecutive_low_coverage"`

	// CoverageHistory records the coverage delta of each completed stage.
	CoverageHistory []float64 `json:"coverage_history" yaml:"coverage_history"`
}

// StageReport summarizes one completed expansion stage.
type StageReport struct {
	Stage         int     `json:"stage" yaml:"stage"`
	FrontierSize  int     `json:"frontier_size" yaml:"frontier_size"`
	Fetched       int     `json:"fetched" yaml:"fetched"`
	FetchFailures int     `json:"fetch_failures" yaml:"fetch_failures"`
	NewCandidates int     `json:"new_candidates" yaml:"new_candidates"`
	Relevant      int     `json:"relevant" yaml:"relevant"`
	Fallback      int     `json:"fallback" yaml:"fallback"`
	Rejected      int     `json:"rejected" yaml:"rejected"`
	CoverageDelta float64 `json:"coverage_delta" yaml:"coverage_delta"`
}

// RunResult is the read-only output handed to downstream consumers once
// a run reaches DONE. The engine performs no text retrieval or synthesis;
// consumers work from the id list, node metadata, and edge list.
type RunResult struct {
	// RunID uniquely identifies this discovery run.
	RunID string `json:"run_id" yaml:"run_id"`

	// Topic is the research topic the corpus was selected for.
	Topic string `json:"topic" yaml:"topic"`

	// Seeds lists the resolved seed paper ids.
	Seeds []string `json:"seeds" yaml:"seeds"`

	// FinalCorpusIDs is the ordered final selection, highest rank first.
	FinalCorpusIDs []string `json:"final_corpus_ids" yaml:"final_corpus_ids"`

	// Papers maps every graph node id to its metadata, accepted or not.
	Papers map[string]PaperNode `json:"papers" yaml:"papers"`

	// AcceptedIDs lists every corpus member, including papers the final
	// quota excluded.
	AcceptedIDs []string `json:"accepted_ids" yaml:"accepted_ids"`

	// Edges is the full citation edge list.
	Edges []CitationEdge `json:"edges" yaml:"edges"`

	// Fallbacks holds near-miss candidates for operator substitution.
	Fallbacks []FallbackCandidate `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`

	// Stages reports per-stage counters in order.
	Stages []StageReport `json:"stages" yaml:"stages"`

	// Termination is the decision that ended expansion.
	Termination Decision `json:"termination" yaml:"termination"`

	// TerminationReason is the human-readable explanation.
	TerminationReason string `json:"termination_reason" yaml:"termination_reason"`

	// RecentFraction is the achieved share of recent papers in the
	// final selection.
	RecentFraction float64 `json:"recent_fraction" yaml:"recent_fraction"`

	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}
