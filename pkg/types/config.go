package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "corpus-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds settings for the citation fetch adapter.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`

	// MaxRetries is the retry budget for transient failures (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// PerPage is the result page size per sub-fetch (default 50, max 200).
	PerPage int `json:"per_page" yaml:"per_page"`

	// RequestsPerSecond paces outbound API calls (default 5).
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// ScoringConfig holds settings for the two-stage relevance filter.
type ScoringConfig struct {
	// Model is the scoring model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates the scoring API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// RelevanceThreshold admits candidates scoring at or above it (default 0.6).
	RelevanceThreshold float64 `json:"relevance_threshold" yaml:"relevance_threshold"`

	// FallbackThreshold routes candidates in [fallback, relevance) to the
	// fallback queue (default 0.5).
	FallbackThreshold float64 `json:"fallback_threshold" yaml:"fallback_threshold"`

	// BatchSize is the number of candidates per scoring batch (default 20).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// MaxParallelBatches bounds concurrent scoring batches (default 2).
	MaxParallelBatches int `json:"max_parallel_batches" yaml:"max_parallel_batches"`

	// SkipZeroOverlap hard-skips scoring for candidates that share no
	// graph neighbors with the corpus. Off by default: disconnected
	// candidates can still be topically relevant.
	SkipZeroOverlap bool `json:"skip_zero_overlap" yaml:"skip_zero_overlap"`
}

// DiffusionConfig holds immutable per-run expansion parameters.
type DiffusionConfig struct {
	// MaxStages bounds the number of expansion stages (default 3).
	MaxStages int `json:"max_stages" yaml:"max_stages"`

	// MaxPapers is the final corpus size cap (default 50).
	MaxPapers int `json:"max_papers" yaml:"max_papers"`

	// MinCitations filters the older sub-pass; the recent sub-pass is
	// exempt so new papers are not penalized (default 5).
	MinCitations int `json:"min_citations" yaml:"min_citations"`

	// SaturationThreshold is the coverage delta below which a stage
	// counts as low coverage (default 0.1).
	SaturationThreshold float64 `json:"saturation_threshold" yaml:"saturation_threshold"`

	// RecencyYears sets the recent/older cutoff for both the fetch
	// sub-passes and the final quota partition (default 3).
	RecencyYears int `json:"recency_years" yaml:"recency_years"`

	// RecencyQuota is the target fraction of recent papers in the final
	// selection, in [0,1] (default 0.25).
	RecencyQuota float64 `json:"recency_quota" yaml:"recency_quota"`

	// OvercollectionFactor multiplies MaxPapers to set the collection
	// target, so enough recent candidates survive the finalize quota
	// (default 3).
	OvercollectionFactor float64 `json:"overcollection_factor" yaml:"overcollection_factor"`

	// MaxConcurrentFetches bounds parallel fetches within a stage (default 5).
	MaxConcurrentFetches int `json:"max_concurrent_fetches" yaml:"max_concurrent_fetches"`
}

// ExportConfig holds settings for run snapshot persistence.
type ExportConfig struct {
	// CorpusDir is the base directory for snapshots (contains index/, final/).
	CorpusDir string `json:"corpus_dir" yaml:"corpus_dir"`
}

// EngineConfig groups all component configurations for a run.
type EngineConfig struct {
	Fetch     FetchConfig     `json:"fetch" yaml:"fetch"`
	Scoring   ScoringConfig   `json:"scoring" yaml:"scoring"`
	Diffusion DiffusionConfig `json:"diffusion" yaml:"diffusion"`
	Export    ExportConfig    `json:"export" yaml:"export"`
}

// DefaultEngineConfig returns the documented defaults for a run.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Fetch: FetchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "corpus-engine/0.1",
			},
			MaxRetries:        3,
			PerPage:           50,
			RequestsPerSecond: 5,
		},
		Scoring: ScoringConfig{
			Model:              "gpt-4o-mini",
			RelevanceThreshold: 0.6,
			FallbackThreshold:  0.5,
			BatchSize:          20,
			MaxParallelBatches: 2,
		},
		Diffusion: DiffusionConfig{
			MaxStages:            3,
			MaxPapers:            50,
			MinCitations:         5,
			SaturationThreshold:  0.1,
			RecencyYears:         3,
			RecencyQuota:         0.25,
			OvercollectionFactor: 3,
			MaxConcurrentFetches: 5,
		},
		Export: ExportConfig{
			CorpusDir: "corpus",
		},
	}
}

// CollectionTarget returns MaxPapers scaled by the overcollection factor.
func (c DiffusionConfig) CollectionTarget() int {
	factor := c.OvercollectionFactor
	if factor <= 0 {
		factor = 3
	}
	return int(float64(c.MaxPapers) * factor)
}
