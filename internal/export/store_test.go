// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

func sampleResult() *types.RunResult {
	return &types.RunResult{
		RunID:          "run-001",
		Topic:          "spiking neural networks",
		Seeds:          []string{"W1"},
		FinalCorpusIDs: []string{"W2", "W1"},
		AcceptedIDs:    []string{"W1", "W2"},
		Papers: map[string]types.PaperNode{
			"W1": {ID: "W1", Title: "Seed paper", Year: 2020, CitationCount: 120,
				DiscoveryStage: 0, DiscoveryMethod: types.DiscoverySeed, RelevanceScore: 1.0, Scored: true},
			"W2": {ID: "W2", Title: "Citing paper", Year: 2024, CitationCount: 8,
				DiscoveryStage: 1, DiscoveryMethod: types.DiscoveryForward, RelevanceScore: 0.91, Scored: true,
				InDegree: 0, OutDegree: 1},
			"W3": {ID: "W3", Title: "Rejected paper", Year: 2019, CitationCount: 30,
				DiscoveryStage: 1, DiscoveryMethod: types.DiscoveryBackward, RelevanceScore: 0.2, Scored: true},
		},
		Edges: []types.CitationEdge{
			{CitingID: "W2", CitedID: "W1", Type: types.EdgeForward},
			{CitingID: "W1", CitedID: "W3", Type: types.EdgeBackward},
		},
		Fallbacks: []types.FallbackCandidate{
			{ID: "W4", RelevanceScore: 0.55, Reason: "below_relevance_threshold", Stage: 1},
		},
		Stages: []types.StageReport{
			{Stage: 1, FrontierSize: 1, Fetched: 3, NewCandidates: 2, Relevant: 1, Rejected: 1, CoverageDelta: 1.0},
		},
		Termination:       types.DecisionSaturated,
		TerminationReason: "empty frontier",
		RecentFraction:    0.5,
		StartedAt:         time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		FinishedAt:        time.Date(2026, 8, 30, 10, 5, 0, 0, time.UTC),
	}
}

func TestStoreSaveAndQueryRun(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(types.ExportConfig{CorpusDir: dir})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveRun(sampleResult()))

	runs, err := store.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-001", runs[0].RunID)
	assert.Equal(t, "spiking neural networks", runs[0].Topic)
	assert.Equal(t, "saturated", runs[0].Termination)
	assert.Equal(t, 2, runs[0].FinalSize)
}

func TestStoreFinalCorpusRankOrder(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(types.ExportConfig{CorpusDir: dir})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveRun(sampleResult()))

	final, err := store.FinalCorpus("run-001")
	require.NoError(t, err)
	require.Len(t, final, 2)

	// Rank order follows FinalCorpusIDs, not insertion order.
	assert.Equal(t, "W2", final[0].ID)
	assert.Equal(t, "W1", final[1].ID)
	assert.Equal(t, types.DiscoveryForward, final[0].DiscoveryMethod)
	assert.InDelta(t, 0.91, final[0].RelevanceScore, 1e-9)
}

func TestStoreNonFinalPapersExcluded(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(types.ExportConfig{CorpusDir: dir})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveRun(sampleResult()))

	final, err := store.FinalCorpus("run-001")
	require.NoError(t, err)
	for _, p := range final {
		assert.NotEqual(t, "W3", p.ID)
	}
}

func TestStoreEdgesFor(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(types.ExportConfig{CorpusDir: dir})
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveRun(sampleResult()))

	edges, err := store.EdgesFor("run-001", "W1")
	require.NoError(t, err)
	require.Len(t, edges, 2)

	edges, err = store.EdgesFor("run-001", "W3")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, "W1", edges[0].CitingID)
	assert.Equal(t, types.EdgeBackward, edges[0].Type)
}

func TestStoreSaveRunIdempotent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(types.ExportConfig{CorpusDir: dir})
	require.NoError(t, err)
	defer store.Close()

	res := sampleResult()
	require.NoError(t, store.SaveRun(res))
	require.NoError(t, store.SaveRun(res))

	runs, err := store.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	final, err := store.FinalCorpus("run-001")
	require.NoError(t, err)
	assert.Len(t, final, 2)
}

func TestStoreReopenPreservesData(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(types.ExportConfig{CorpusDir: dir})
	require.NoError(t, err)
	require.NoError(t, store.SaveRun(sampleResult()))
	require.NoError(t, store.Close())

	store, err = NewStore(types.ExportConfig{CorpusDir: dir})
	require.NoError(t, err)
	defer store.Close()

	runs, err := store.Runs()
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestWriteManifest(t *testing.T) {
	dir := t.TempDir()
	res := sampleResult()

	path, err := WriteManifest(dir, res)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "final", "corpus.yaml"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var m Manifest
	require.NoError(t, yaml.Unmarshal(data, &m))
	assert.Equal(t, "run-001", m.RunID)
	assert.Equal(t, "saturated", m.Termination)
	require.Len(t, m.Papers, 2)
	assert.Equal(t, 1, m.Papers[0].Rank)
	assert.Equal(t, "W2", m.Papers[0].ID)
	assert.Equal(t, 2, m.Papers[1].Rank)
	assert.Equal(t, "W1", m.Papers[1].ID)
}

func TestWriteManifestMissingPaper(t *testing.T) {
	res := sampleResult()
	res.FinalCorpusIDs = append(res.FinalCorpusIDs, "W99")

	_, err := WriteManifest(t.TempDir(), res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "W99")
}
