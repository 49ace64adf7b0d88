// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package export

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

const manifestFile = "corpus.yaml"

// ManifestEntry is one paper in the YAML corpus manifest.
type ManifestEntry struct {
	Rank           int     `yaml:"rank"`
	ID             string  `yaml:"id"`
	Title          string  `yaml:"title"`
	Year           int     `yaml:"year"`
	CitationCount  int     `yaml:"citation_count"`
	RelevanceScore float64 `yaml:"relevance_score"`
	DiscoveryStage int     `yaml:"discovery_stage"`
}

// Manifest is the YAML document written alongside the database for
// human inspection and downstream tooling.
type Manifest struct {
	RunID             string          `yaml:"run_id"`
	Topic             string          `yaml:"topic"`
	Seeds             []string        `yaml:"seeds"`
	Termination       string          `yaml:"termination"`
	TerminationReason string          `yaml:"termination_reason"`
	RecentFraction    float64         `yaml:"recent_fraction"`
	Papers            []ManifestEntry `yaml:"papers"`
}

// WriteManifest writes corpusDir/final/corpus.yaml describing the
// final selection of the given run in rank order.
func WriteManifest(corpusDir string, res *types.RunResult) (string, error) {
	outDir := filepath.Join(corpusDir, finalDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("creating final directory: %w", err)
	}

	m := Manifest{
		RunID:             res.RunID,
		Topic:             res.Topic,
		Seeds:             res.Seeds,
		Termination:       string(res.Termination),
		TerminationReason: res.TerminationReason,
		RecentFraction:    res.RecentFraction,
		Papers:            make([]ManifestEntry, 0, len(res.FinalCorpusIDs)),
	}
	for i, id := range res.FinalCorpusIDs {
		p, ok := res.Papers[id]
		if !ok {
			return "", fmt.Errorf("final corpus id %s has no paper record", id)
		}
		m.Papers = append(m.Papers, ManifestEntry{
			Rank:           i + 1,
			ID:             p.ID,
			Title:          p.Title,
			Year:           p.Year,
			CitationCount:  p.CitationCount,
			RelevanceScore: p.RelevanceScore,
			DiscoveryStage: p.DiscoveryStage,
		})
	}

	data, err := yaml.Marshal(&m)
	if err != nil {
		return "", fmt.Errorf("encoding manifest: %w", err)
	}
	outPath := filepath.Join(outDir, manifestFile)
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing manifest: %w", err)
	}
	return outPath, nil
}
