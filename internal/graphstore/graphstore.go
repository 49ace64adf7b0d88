// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graphstore maintains the in-memory directed citation graph.
// Nodes are kept in an id-keyed table with upsert semantics so concurrent
// discovery of the same paper via forward and backward passes merges
// without conflict. Derived analysis (centrality) is cached behind a
// dirty flag and lazily recomputed after mutations.
package graphstore

import (
	"sort"
	"sync"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Metadata carries the mutable fields of a node upsert.
type Metadata struct {
	Title           string
	Year            int
	CitationCount   int
	Abstract        string
	DiscoveryStage  int
	DiscoveryMethod types.DiscoveryMethod
}

// Store is the citation graph. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*types.PaperNode
	out   map[string]map[string]types.EdgeType
	in    map[string]map[string]types.EdgeType

	// order preserves insertion order for deterministic iteration.
	order []string

	// Cached derived analysis, recomputed lazily after mutations.
	dirty      bool
	centrality map[string]float64
}

// New returns an empty graph store.
func New() *Store {
	return &Store{
		nodes: make(map[string]*types.PaperNode),
		out:   make(map[string]map[string]types.EdgeType),
		in:    make(map[string]map[string]types.EdgeType),
		dirty: true,
	}
}

// AddNode upserts a node. On first insert the node is created with the
// given metadata and zero degrees. Re-adding updates metadata fields that
// carry information (non-empty title, non-zero year, higher citation
// count) but preserves degree counters and the original discovery
// stage/method. Idempotent: identical repeated calls leave the graph
// unchanged.
func (s *Store) AddNode(id string, meta Metadata) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.nodes[id]; ok {
		if meta.Title != "" {
			n.Title = meta.Title
		}
		if meta.Year != 0 {
			n.Year = meta.Year
		}
		if meta.CitationCount > n.CitationCount {
			n.CitationCount = meta.CitationCount
		}
		if meta.Abstract != "" && n.Abstract == "" {
			n.Abstract = meta.Abstract
		}
		s.dirty = true
		return
	}

	s.nodes[id] = &types.PaperNode{
		ID:              id,
		Title:           meta.Title,
		Year:            meta.Year,
		CitationCount:   meta.CitationCount,
		Abstract:        meta.Abstract,
		DiscoveryStage:  meta.DiscoveryStage,
		DiscoveryMethod: meta.DiscoveryMethod,
	}
	s.out[id] = make(map[string]types.EdgeType)
	s.in[id] = make(map[string]types.EdgeType)
	s.order = append(s.order, id)
	s.dirty = true
}

// AddEdge inserts a directed citation edge and increments the endpoint
// degrees. It reports false without mutating when either endpoint is
// unknown, the edge already exists, or citing == cited.
func (s *Store) AddEdge(citing, cited string, t types.EdgeType) bool {
	if citing == cited {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[citing]; !ok {
		return false
	}
	if _, ok := s.nodes[cited]; !ok {
		return false
	}
	if _, ok := s.out[citing][cited]; ok {
		return false
	}

	s.out[citing][cited] = t
	s.in[cited][citing] = t
	s.nodes[citing].OutDegree++
	s.nodes[cited].InDegree++
	s.dirty = true
	return true
}

// InvalidateCache marks cached derived analysis stale. Mutators call it
// implicitly; it is exported for callers that mutate node metadata
// indirectly.
func (s *Store) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = true
}

// SetRelevance assigns a relevance score to an existing node.
func (s *Store) SetRelevance(id string, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.nodes[id]; ok {
		n.RelevanceScore = score
		n.Scored = true
	}
}

// OverlapCount returns the number of directed neighbors of id (successors
// union predecessors) that are members of corpus. Unknown ids count zero.
func (s *Store) OverlapCount(id string, corpus map[string]struct{}) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for nb := range s.out[id] {
		if _, ok := corpus[nb]; ok {
			seen[nb] = struct{}{}
		}
	}
	for nb := range s.in[id] {
		if _, ok := corpus[nb]; ok {
			seen[nb] = struct{}{}
		}
	}
	return len(seen)
}

// Node returns a copy of the node and whether it exists.
func (s *Store) Node(id string) (types.PaperNode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	if !ok {
		return types.PaperNode{}, false
	}
	return *n, true
}

// Nodes returns copies of all nodes in insertion order.
func (s *Store) Nodes() []types.PaperNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.PaperNode, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.nodes[id])
	}
	return out
}

// Edges returns the full edge list, ordered by citing then cited id.
func (s *Store) Edges() []types.CitationEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var edges []types.CitationEdge
	for citing, targets := range s.out {
		for cited, t := range targets {
			edges = append(edges, types.CitationEdge{CitingID: citing, CitedID: cited, Type: t})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].CitingID != edges[j].CitingID {
			return edges[i].CitingID < edges[j].CitingID
		}
		return edges[i].CitedID < edges[j].CitedID
	})
	return edges
}

// NodeCount returns the number of nodes.
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of edges.
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, targets := range s.out {
		total += len(targets)
	}
	return total
}
