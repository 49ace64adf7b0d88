// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graphstore

import (
	"sort"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
)

const (
	pagerankDamping   = 0.85
	pagerankTolerance = 1e-6
)

// CentralNode pairs a paper id with its centrality score.
type CentralNode struct {
	ID    string
	Score float64
}

// Centrality returns PageRank scores over the citation graph, keyed by
// paper id. The result is cached; any mutation marks the cache dirty and
// the next call recomputes it.
func (s *Store) Centrality() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty && s.centrality != nil {
		return copyScores(s.centrality)
	}

	s.centrality = s.computeCentralityLocked()
	s.dirty = false
	return copyScores(s.centrality)
}

// TopCentral returns the n highest-centrality papers, score descending
// with id ascending as tie-break.
func (s *Store) TopCentral(n int) []CentralNode {
	scores := s.Centrality()
	ranked := make([]CentralNode, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, CentralNode{ID: id, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// computeCentralityLocked builds a gonum directed graph mirroring the
// store and runs PageRank. Caller holds the write lock.
func (s *Store) computeCentralityLocked() map[string]float64 {
	if len(s.order) == 0 {
		return map[string]float64{}
	}

	g := simple.NewDirectedGraph()
	index := make(map[string]int64, len(s.order))
	for i, id := range s.order {
		gid := int64(i)
		index[id] = gid
		g.AddNode(simple.Node(gid))
	}
	for citing, targets := range s.out {
		for cited := range targets {
			g.SetEdge(simple.Edge{F: simple.Node(index[citing]), T: simple.Node(index[cited])})
		}
	}

	ranks := network.PageRank(g, pagerankDamping, pagerankTolerance)

	scores := make(map[string]float64, len(s.order))
	for id, gid := range index {
		scores[id] = ranks[gid]
	}
	return scores
}

func copyScores(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
