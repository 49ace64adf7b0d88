// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/corpus-engine/internal/export"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect saved discovery runs",
	Long: `Inspect reads the corpus snapshot database written by discover.
Use subcommands to list runs, print a run's final corpus, or show the
citation edges around a single paper.`,
}

var inspectRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List saved runs, most recent first",
	RunE:  runInspectRuns,
}

var inspectCorpusCmd = &cobra.Command{
	Use:   "corpus [run-id]",
	Short: "Print a run's final corpus in rank order",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspectCorpus,
}

var inspectEdgesCmd = &cobra.Command{
	Use:   "edges [run-id] [paper-id]",
	Short: "Show citation edges touching a paper in a run",
	Args:  cobra.ExactArgs(2),
	RunE:  runInspectEdges,
}

func init() {
	inspectCmd.PersistentFlags().String("corpus-dir", "corpus", "base directory for run snapshots")
	inspectCorpusCmd.Flags().Bool("json", false, "output as JSON")

	inspectCmd.AddCommand(inspectRunsCmd)
	inspectCmd.AddCommand(inspectCorpusCmd)
	inspectCmd.AddCommand(inspectEdgesCmd)

	rootCmd.AddCommand(inspectCmd)
}

func openSnapshot(cmd *cobra.Command) (*export.Store, error) {
	dir, _ := cmd.Flags().GetString("corpus-dir")
	return export.NewStore(types.ExportConfig{CorpusDir: dir})
}

func runInspectRuns(cmd *cobra.Command, args []string) error {
	store, err := openSnapshot(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No saved runs.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-30s  %-13s  %-6s  %s\n",
		"Run", "Topic", "Termination", "Final", "Finished")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
	for _, r := range runs {
		topic := r.Topic
		if len(topic) > 30 {
			topic = topic[:27] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-36s  %-30s  %-13s  %-6d  %s\n",
			r.RunID, topic, r.Termination, r.FinalSize, r.FinishedAt)
	}
	return nil
}

func runInspectCorpus(cmd *cobra.Command, args []string) error {
	store, err := openSnapshot(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	papers, err := store.FinalCorpus(args[0])
	if err != nil {
		return err
	}
	if len(papers) == 0 {
		return fmt.Errorf("no final corpus found for run %s", args[0])
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(papers)
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-14s  %-50s  %-5s  %-6s  %s\n",
		"Rank", "ID", "Title", "Year", "Cites", "Score")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 95))
	for i, p := range papers {
		title := p.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-14s  %-50s  %-5d  %-6d  %.2f\n",
			i+1, p.ID, title, p.Year, p.CitationCount, p.RelevanceScore)
	}
	fmt.Fprintf(os.Stdout, "\n%d papers\n", len(papers))
	return nil
}

func runInspectEdges(cmd *cobra.Command, args []string) error {
	store, err := openSnapshot(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	edges, err := store.EdgesFor(args[0], args[1])
	if err != nil {
		return err
	}
	if len(edges) == 0 {
		fmt.Println("No edges found.")
		return nil
	}

	for _, e := range edges {
		fmt.Fprintf(os.Stdout, "%s -> %s  (%s)\n", e.CitingID, e.CitedID, e.Type)
	}
	fmt.Fprintf(os.Stdout, "\n%d edges\n", len(edges))
	return nil
}
