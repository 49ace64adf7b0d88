// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package diffusion orchestrates staged citation-graph expansion: fetch
// fan-out, relevance filtering, corpus commits, and saturation-driven
// termination. Each stage is a synchronization barrier: all fetches
// complete before scoring, and scoring completes before the next
// frontier is computed, so overlap features always read a consistent
// corpus snapshot.
package diffusion

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/corpus-engine/internal/fetch"
	"github.com/pdiddy/corpus-engine/internal/filter"
	"github.com/pdiddy/corpus-engine/internal/finalize"
	"github.com/pdiddy/corpus-engine/internal/graphstore"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Controller owns the diffusion state machine for one run.
type Controller struct {
	cfg     types.EngineConfig
	adapter fetch.Adapter
	scorer  filter.Scorer
	graph   *graphstore.Store
	w       io.Writer

	// now is injectable for deterministic year cutoffs in tests.
	now func() time.Time

	phase types.Phase
}

// New builds a controller with a fresh graph.
func New(cfg types.EngineConfig, adapter fetch.Adapter, scorer filter.Scorer, w io.Writer) *Controller {
	return &Controller{
		cfg:     cfg,
		adapter: adapter,
		scorer:  scorer,
		graph:   graphstore.New(),
		w:       w,
		now:     time.Now,
		phase:   types.PhaseSeeding,
	}
}

// Graph exposes the citation graph for read-only downstream use.
func (c *Controller) Graph() *graphstore.Store { return c.graph }

// Phase returns the current state machine position.
func (c *Controller) Phase() types.Phase { return c.phase }

// stageOutcome aggregates one stage's commit results.
type stageOutcome struct {
	report    types.StageReport
	accepted  []string
	fallbacks []types.FallbackCandidate
}

// Run executes a full discovery: seed resolution, staged expansion until
// a termination decision, then final selection. No stage failure is
// fatal; Run always produces a (possibly reduced) result. On caller
// cancellation the in-flight stage drains, the partial corpus is
// finalized, and ctx's error is returned alongside the result.
func (c *Controller) Run(ctx context.Context, seeds []string, topic string, questions []string) (*types.RunResult, error) {
	result := &types.RunResult{
		RunID:     uuid.NewString(),
		Topic:     topic,
		StartedAt: c.now(),
	}

	corpus := make(map[string]struct{})
	var corpusOrder []string

	// SEEDING: resolve identifiers, admit seeds as trusted corpus members.
	c.phase = types.PhaseSeeding
	var frontier []string
	for _, seed := range seeds {
		r, err := c.adapter.Resolve(ctx, seed)
		if err != nil {
			fmt.Fprintf(c.w, "warning: seed %s skipped: %v\n", seed, err)
			continue
		}
		c.graph.AddNode(r.ID, graphstore.Metadata{
			Title:           r.Title,
			Year:            r.Year,
			CitationCount:   r.CitationCount,
			Abstract:        r.Abstract,
			DiscoveryStage:  0,
			DiscoveryMethod: types.DiscoverySeed,
		})
		c.graph.SetRelevance(r.ID, 1.0)
		if _, ok := corpus[r.ID]; !ok {
			corpus[r.ID] = struct{}{}
			corpusOrder = append(corpusOrder, r.ID)
			frontier = append(frontier, r.ID)
		}
	}
	result.Seeds = append([]string(nil), frontier...)
	fmt.Fprintf(c.w, "seeded corpus with %d of %d identifiers\n", len(frontier), len(seeds))

	state := types.DiffusionState{
		MaxStages:        c.cfg.Diffusion.MaxStages,
		CorpusSize:       len(corpus),
		CollectionTarget: c.cfg.Diffusion.CollectionTarget(),
	}

	// seen tracks every id the filter has already judged, so rejected
	// and fallback papers are not rescored in later stages.
	seen := make(map[string]struct{})

	decision := types.DecisionSaturated
	reason := "no seeds resolved"

	// EXPANDING.
	c.phase = types.PhaseExpanding
	for stage := 1; len(frontier) > 0; stage++ {
		if ctx.Err() != nil {
			decision = types.DecisionCancelled
			reason = "caller cancelled"
			break
		}

		outcome := c.runStage(ctx, stage, frontier, corpus, topic, questions, seen)

		for _, id := range outcome.accepted {
			corpus[id] = struct{}{}
			corpusOrder = append(corpusOrder, id)
		}
		result.Fallbacks = append(result.Fallbacks, outcome.fallbacks...)
		result.Stages = append(result.Stages, outcome.report)

		state.CurrentStage = stage
		state.CorpusSize = len(corpus)
		state, decision, reason = Decide(state, outcome.report.CoverageDelta, c.cfg.Diffusion.SaturationThreshold)

		fmt.Fprintf(c.w, "stage %d: frontier %d, fetched %d, new %d, relevant %d, fallback %d, rejected %d, coverage %.3f\n",
			stage, outcome.report.FrontierSize, outcome.report.Fetched, outcome.report.NewCandidates,
			outcome.report.Relevant, outcome.report.Fallback, outcome.report.Rejected, outcome.report.CoverageDelta)

		if decision.Terminal() {
			break
		}

		frontier = outcome.accepted
		if len(frontier) == 0 {
			decision = types.DecisionSaturated
			reason = "empty frontier: no newly accepted papers to expand"
		}
	}
	if ctx.Err() != nil && decision != types.DecisionCancelled {
		decision = types.DecisionCancelled
		reason = "caller cancelled"
	}
	result.Termination = decision
	result.TerminationReason = reason
	fmt.Fprintf(c.w, "expansion terminated: %s (%s)\n", decision, reason)

	// FINALIZING: quota-balanced selection over the accepted corpus.
	c.phase = types.PhaseFinalizing
	accepted := make([]types.PaperNode, 0, len(corpusOrder))
	for _, id := range corpusOrder {
		if n, ok := c.graph.Node(id); ok {
			accepted = append(accepted, n)
		}
	}
	sel := finalize.Select(finalize.Input{
		Papers:       accepted,
		MaxPapers:    c.cfg.Diffusion.MaxPapers,
		RecencyYears: c.cfg.Diffusion.RecencyYears,
		RecencyQuota: c.cfg.Diffusion.RecencyQuota,
		CurrentYear:  c.now().Year(),
	})
	result.FinalCorpusIDs = sel.IDs
	result.RecentFraction = sel.RecentFraction
	fmt.Fprintf(c.w, "final corpus: %d of %d accepted papers, recent fraction %.2f (configured quota %.2f)\n",
		len(sel.IDs), len(accepted), sel.RecentFraction, c.cfg.Diffusion.RecencyQuota)

	result.AcceptedIDs = corpusOrder
	result.Papers = make(map[string]types.PaperNode)
	for _, n := range c.graph.Nodes() {
		result.Papers[n.ID] = n
	}
	result.Edges = c.graph.Edges()
	result.FinishedAt = c.now()
	c.phase = types.PhaseDone

	return result, ctx.Err()
}

// fetchTask is one sub-fetch within a stage: a frontier paper, a
// direction, and either the recent or the older citation window.
type fetchTask struct {
	frontierID string
	dir        types.Direction
	opts       fetch.Options
}

// runStage performs fan-out fetch, dedup, graph commit, and filtering
// for one expansion stage. The corpus map is read-only here; accepted
// ids are returned for the caller to commit, keeping the stage barrier
// explicit.
func (c *Controller) runStage(ctx context.Context, stage int, frontier []string, corpus map[string]struct{}, topic string, questions []string, seen map[string]struct{}) stageOutcome {
	dcfg := c.cfg.Diffusion
	cutoff := c.now().Year() - dcfg.RecencyYears

	// Two sub-passes per direction: recent papers are exempt from the
	// citation-count threshold so they are not penalized for youth.
	var tasks []fetchTask
	for _, fid := range frontier {
		for _, dir := range []types.Direction{types.DirectionForward, types.DirectionBackward} {
			tasks = append(tasks,
				fetchTask{frontierID: fid, dir: dir, opts: fetch.Options{FromYear: cutoff}},
				fetchTask{frontierID: fid, dir: dir, opts: fetch.Options{MinCitations: dcfg.MinCitations, ToYear: cutoff - 1}},
			)
		}
	}

	type fetchHit struct {
		res  fetch.Result
		prov types.Provenance
	}

	var (
		mu       sync.Mutex
		hits     []fetchHit
		fetched  int
		failures int
	)

	limit := dcfg.MaxConcurrentFetches
	if limit <= 0 {
		limit = 5
	}
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for _, tk := range tasks {
		// Drain on cancellation: stop launching, let in-flight finish.
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results, err := c.adapter.Query(ctx, tk.frontierID, tk.dir, tk.opts)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				fmt.Fprintf(c.w, "warning: fetch %s %s failed, skipping: %v\n", tk.dir, tk.frontierID, err)
				return nil
			}
			fetched += len(results)
			prov := types.Provenance{FrontierID: tk.frontierID, Direction: tk.dir}
			for _, r := range results {
				hits = append(hits, fetchHit{res: r, prov: prov})
			}
			return nil
		})
	}
	g.Wait()

	// Deduplicate by canonical id, merging provenance and keeping the
	// richest metadata seen.
	candByID := make(map[string]*types.Candidate)
	var order []string
	for _, h := range hits {
		id := h.res.ID
		if id == "" || id == h.prov.FrontierID {
			continue
		}
		cand, ok := candByID[id]
		if !ok {
			cand = &types.Candidate{
				ID:            id,
				Title:         h.res.Title,
				Year:          h.res.Year,
				CitationCount: h.res.CitationCount,
				Abstract:      h.res.Abstract,
			}
			candByID[id] = cand
			order = append(order, id)
		} else {
			if cand.Title == "" {
				cand.Title = h.res.Title
			}
			if cand.Abstract == "" {
				cand.Abstract = h.res.Abstract
			}
			if h.res.CitationCount > cand.CitationCount {
				cand.CitationCount = h.res.CitationCount
			}
		}
		if !hasProvenance(cand.FoundVia, h.prov) {
			cand.FoundVia = append(cand.FoundVia, h.prov)
		}
	}

	// Commit discovery to the graph before filtering: nodes upsert
	// idempotently and edges connect candidates to their discoverers, so
	// the overlap feature can read real neighborhoods. Non-admitted
	// candidates simply remain graph nodes outside the corpus.
	var newCands []types.Candidate
	for _, id := range order {
		cand := candByID[id]
		method := discoveryMethod(cand.FoundVia)
		c.graph.AddNode(id, graphstore.Metadata{
			Title:           cand.Title,
			Year:            cand.Year,
			CitationCount:   cand.CitationCount,
			Abstract:        cand.Abstract,
			DiscoveryStage:  stage,
			DiscoveryMethod: method,
		})
		for _, p := range cand.FoundVia {
			if p.Direction == types.DirectionForward {
				// The candidate cites the frontier paper.
				c.graph.AddEdge(id, p.FrontierID, types.EdgeForward)
			} else {
				// The frontier paper cites the candidate.
				c.graph.AddEdge(p.FrontierID, id, types.EdgeBackward)
			}
		}

		if _, ok := corpus[id]; ok {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		newCands = append(newCands, *cand)
	}

	outcome := filter.Run(ctx, c.scorer, newCands, topic, questions, c.cfg.Scoring,
		func(id string) int { return c.graph.OverlapCount(id, corpus) }, c.w)

	var so stageOutcome
	for _, sc := range outcome.Relevant {
		c.graph.SetRelevance(sc.Candidate.ID, sc.Score)
		so.accepted = append(so.accepted, sc.Candidate.ID)
	}
	for _, fb := range outcome.Fallback {
		fb.Stage = stage
		seen[fb.ID] = struct{}{}
		so.fallbacks = append(so.fallbacks, fb)
	}
	for _, rj := range outcome.Rejected {
		seen[rj.ID] = struct{}{}
		fmt.Fprintf(c.w, "rejected: %s (%s, score %.2f)\n", rj.ID, rj.Reason, rj.Score)
	}

	corpusBefore := len(corpus)
	so.report = types.StageReport{
		Stage:         stage,
		FrontierSize:  len(frontier),
		Fetched:       fetched,
		FetchFailures: failures,
		NewCandidates: len(newCands),
		Relevant:      len(outcome.Relevant),
		Fallback:      len(outcome.Fallback),
		Rejected:      len(outcome.Rejected),
		CoverageDelta: float64(len(so.accepted)) / float64(max(corpusBefore, 1)),
	}
	return so
}

// hasProvenance reports whether p is already recorded.
func hasProvenance(list []types.Provenance, p types.Provenance) bool {
	for _, q := range list {
		if q == p {
			return true
		}
	}
	return false
}

// discoveryMethod picks the method label from the first discovering pass.
func discoveryMethod(provs []types.Provenance) types.DiscoveryMethod {
	if len(provs) == 0 {
		return types.DiscoveryForward
	}
	if provs[0].Direction == types.DirectionBackward {
		return types.DiscoveryBackward
	}
	return types.DiscoveryForward
}
