// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package diffusion

import (
	"testing"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

func TestDecideContinue(t *testing.T) {
	st := types.DiffusionState{CurrentStage: 1, MaxStages: 3, CorpusSize: 10, CollectionTarget: 150}

	st, decision, reason := Decide(st, 0.5, 0.1)
	if decision != types.DecisionContinue {
		t.Errorf("decision = %s, want continue (reason %q)", decision, reason)
	}
	if st.ConsecutiveLowCoverage != 0 {
		t.Errorf("ConsecutiveLowCoverage = %d, want 0 after healthy stage", st.ConsecutiveLowCoverage)
	}
	if len(st.CoverageHistory) != 1 || st.CoverageHistory[0] != 0.5 {
		t.Errorf("CoverageHistory = %v", st.CoverageHistory)
	}
}

func TestDecideMaxStage(t *testing.T) {
	st := types.DiffusionState{CurrentStage: 3, MaxStages: 3, CorpusSize: 10, CollectionTarget: 150}

	_, decision, reason := Decide(st, 0.5, 0.1)
	if decision != types.DecisionMaxStage {
		t.Errorf("decision = %s, want max_stage", decision)
	}
	if reason == "" {
		t.Error("reason must be non-empty")
	}
}

func TestDecideMaxCollected(t *testing.T) {
	st := types.DiffusionState{CurrentStage: 2, MaxStages: 5, CorpusSize: 150, CollectionTarget: 150}

	_, decision, _ := Decide(st, 0.9, 0.1)
	if decision != types.DecisionMaxCollected {
		t.Errorf("decision = %s, want max_collected", decision)
	}
}

func TestDecideSaturatedAfterTwoLowStages(t *testing.T) {
	st := types.DiffusionState{CurrentStage: 1, MaxStages: 10, CorpusSize: 10, CollectionTarget: 150}

	st, decision, _ := Decide(st, 0.05, 0.1)
	if decision != types.DecisionContinue {
		t.Fatalf("first low stage: decision = %s, want continue", decision)
	}
	if st.ConsecutiveLowCoverage != 1 {
		t.Fatalf("ConsecutiveLowCoverage = %d, want 1", st.ConsecutiveLowCoverage)
	}

	st.CurrentStage = 2
	st, decision, _ = Decide(st, 0.02, 0.1)
	if decision != types.DecisionSaturated {
		t.Errorf("second low stage: decision = %s, want saturated", decision)
	}
	if st.ConsecutiveLowCoverage != 2 {
		t.Errorf("ConsecutiveLowCoverage = %d, want 2", st.ConsecutiveLowCoverage)
	}
}

func TestDecideHealthyStageResetsCounter(t *testing.T) {
	st := types.DiffusionState{CurrentStage: 1, MaxStages: 10, CorpusSize: 10, CollectionTarget: 150, ConsecutiveLowCoverage: 1}

	st, decision, _ := Decide(st, 0.8, 0.1)
	if decision != types.DecisionContinue {
		t.Errorf("decision = %s, want continue", decision)
	}
	if st.ConsecutiveLowCoverage != 0 {
		t.Errorf("ConsecutiveLowCoverage = %d, want reset to 0", st.ConsecutiveLowCoverage)
	}
}

func TestDecidePrecedence(t *testing.T) {
	// All three conditions hold; stage budget wins, then collection target.
	st := types.DiffusionState{
		CurrentStage:           3,
		MaxStages:              3,
		CorpusSize:             200,
		CollectionTarget:       150,
		ConsecutiveLowCoverage: 1,
	}
	_, decision, _ := Decide(st, 0.0, 0.1)
	if decision != types.DecisionMaxStage {
		t.Errorf("decision = %s, want max_stage to win precedence", decision)
	}

	st.CurrentStage = 2
	_, decision, _ = Decide(st, 0.0, 0.1)
	if decision != types.DecisionMaxCollected {
		t.Errorf("decision = %s, want max_collected before saturated", decision)
	}
}

func TestDecideZeroCoverageStageCounts(t *testing.T) {
	// A stage with zero successful fetches still completes and counts
	// toward saturation.
	st := types.DiffusionState{CurrentStage: 1, MaxStages: 10, CorpusSize: 2, CollectionTarget: 150}
	st, _, _ = Decide(st, 0, 0.1)
	st.CurrentStage = 2
	_, decision, _ := Decide(st, 0, 0.1)
	if decision != types.DecisionSaturated {
		t.Errorf("decision = %s, want saturated after two empty stages", decision)
	}
}
