// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/corpus-engine/internal/diffusion"
	"github.com/pdiddy/corpus-engine/internal/export"
	"github.com/pdiddy/corpus-engine/internal/fetch"
	"github.com/pdiddy/corpus-engine/internal/filter"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [seed identifiers...]",
	Short: "Discover a corpus by citation diffusion from seed papers",
	Long: `Discover expands outward from the given seed papers (OpenAlex work ids
or DOIs) through the citation graph. Each stage fetches citing and cited
works for the current frontier, scores candidates against the research
topic, and admits relevant papers to the corpus. Expansion stops at the
stage budget, the collection target, or saturation.

The final selection is written to the corpus directory as a SQLite
snapshot and a YAML manifest. Interrupting the run (Ctrl-C) finishes
in-flight fetches and exports the partial corpus.`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().String("topic", "", "research topic to score candidates against (required)")
	discoverCmd.Flags().StringSlice("question", nil, "research question refining the topic (repeatable)")
	discoverCmd.Flags().String("scorer", "openai", "relevance scorer: openai or heuristic")
	discoverCmd.Flags().String("model", "", "scoring model (default gpt-4o-mini)")
	discoverCmd.Flags().String("email", "", "contact email for the OpenAlex polite pool")
	discoverCmd.Flags().Int("max-stages", 0, "maximum expansion stages (default 3)")
	discoverCmd.Flags().Int("max-papers", 0, "final corpus size cap (default 50)")
	discoverCmd.Flags().Int("min-citations", -1, "citation floor for the older sub-pass (default 5)")
	discoverCmd.Flags().Int("recency-years", 0, "recent/older cutoff in years (default 3)")
	discoverCmd.Flags().Float64("recency-quota", -1, "target fraction of recent papers in the final selection (default 0.25)")
	discoverCmd.Flags().String("corpus-dir", "corpus", "base directory for run snapshots")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more seed identifiers (OpenAlex work ids or DOIs)")
	}
	topic, _ := cmd.Flags().GetString("topic")
	if topic == "" {
		topic = viper.GetString("topic")
	}
	if topic == "" {
		return fmt.Errorf("a research topic is required: pass --topic")
	}
	questions, _ := cmd.Flags().GetStringSlice("question")

	cfg := discoverConfig(cmd)

	scorerName, _ := cmd.Flags().GetString("scorer")
	var scorer filter.Scorer
	switch scorerName {
	case "openai", "":
		if cfg.Scoring.APIKey == "" {
			return fmt.Errorf("openai scorer requires an API key: add .secrets/openai-api-key or use --scorer heuristic")
		}
		scorer = filter.NewOpenAIScorer(cfg.Scoring)
	case "heuristic":
		scorer = filter.HeuristicScorer{}
	default:
		return fmt.Errorf("unknown scorer %q: use openai or heuristic", scorerName)
	}

	adapter := fetch.NewOpenAlexAdapter(cfg.Fetch)
	ctrl := diffusion.New(cfg, adapter, scorer, os.Stdout)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, runErr := ctrl.Run(ctx, args, topic, questions)
	if result == nil {
		return runErr
	}

	store, err := export.NewStore(cfg.Export)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveRun(result); err != nil {
		return fmt.Errorf("saving run snapshot: %w", err)
	}
	manifestPath, err := export.WriteManifest(cfg.Export.CorpusDir, result)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "\nRun %s finished: %s (%s)\n", result.RunID, result.Termination, result.TerminationReason)
	fmt.Fprintf(os.Stdout, "Final corpus: %d papers (%.0f%% recent), %d fallback candidates held\n",
		len(result.FinalCorpusIDs), result.RecentFraction*100, len(result.Fallbacks))

	if central := ctrl.Graph().TopCentral(5); len(central) > 0 {
		fmt.Fprintln(os.Stdout, "Most central papers:")
		for _, cn := range central {
			title := ""
			if p, ok := result.Papers[cn.ID]; ok {
				title = p.Title
			}
			fmt.Fprintf(os.Stdout, "  %-14s  %.4f  %s\n", cn.ID, cn.Score, title)
		}
	}
	fmt.Fprintf(os.Stdout, "Manifest: %s\n", manifestPath)

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	return nil
}

// discoverConfig builds the engine configuration from defaults, the config
// file, flags, and loaded secrets, in increasing precedence.
func discoverConfig(cmd *cobra.Command) types.EngineConfig {
	cfg := types.DefaultEngineConfig()

	if v := viper.GetString("scoring.model"); v != "" {
		cfg.Scoring.Model = v
	}
	if v := viper.GetFloat64("fetch.requests_per_second"); v > 0 {
		cfg.Fetch.RequestsPerSecond = v
	}

	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Scoring.Model = v
	}
	if v, _ := cmd.Flags().GetInt("max-stages"); v > 0 {
		cfg.Diffusion.MaxStages = v
	}
	if v, _ := cmd.Flags().GetInt("max-papers"); v > 0 {
		cfg.Diffusion.MaxPapers = v
	}
	if v, _ := cmd.Flags().GetInt("min-citations"); v >= 0 {
		cfg.Diffusion.MinCitations = v
	}
	if v, _ := cmd.Flags().GetInt("recency-years"); v > 0 {
		cfg.Diffusion.RecencyYears = v
	}
	if v, _ := cmd.Flags().GetFloat64("recency-quota"); v >= 0 {
		cfg.Diffusion.RecencyQuota = v
	}
	if v, _ := cmd.Flags().GetString("corpus-dir"); v != "" {
		cfg.Export.CorpusDir = v
	}

	email, _ := cmd.Flags().GetString("email")
	cfg.Fetch.OpenAlexEmail = secretDefault("openalex-email", email)
	cfg.Scoring.APIKey = secretDefault("openai-api-key", strings.TrimSpace(os.Getenv("OPENAI_API_KEY")))

	return cfg
}
