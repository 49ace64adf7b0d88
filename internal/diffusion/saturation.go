// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package diffusion

import (
	"fmt"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// lowCoverageLimit is the number of consecutive low-coverage stages that
// triggers saturation.
const lowCoverageLimit = 2

// Decide evaluates diffusion state after a stage commits and returns the
// updated state plus the termination decision. Pure: callers own the
// returned state.
//
// Precedence, first match wins: stage budget exhausted, collection
// target reached, then consecutive low coverage.
func Decide(st types.DiffusionState, coverageDelta, saturationThreshold float64) (types.DiffusionState, types.Decision, string) {
	st.CoverageHistory = append(st.CoverageHistory, coverageDelta)
	if coverageDelta < saturationThreshold {
		st.ConsecutiveLowCoverage++
	} else {
		st.ConsecutiveLowCoverage = 0
	}

	if st.CurrentStage >= st.MaxStages {
		return st, types.DecisionMaxStage,
			fmt.Sprintf("stage budget exhausted (%d/%d)", st.CurrentStage, st.MaxStages)
	}
	if st.CollectionTarget > 0 && st.CorpusSize >= st.CollectionTarget {
		return st, types.DecisionMaxCollected,
			fmt.Sprintf("collection target reached (%d/%d)", st.CorpusSize, st.CollectionTarget)
	}
	if st.ConsecutiveLowCoverage >= lowCoverageLimit {
		return st, types.DecisionSaturated,
			fmt.Sprintf("coverage below %.2f for %d consecutive stages", saturationThreshold, st.ConsecutiveLowCoverage)
	}
	return st, types.DecisionContinue, ""
}
