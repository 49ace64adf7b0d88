// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graphstore

import (
	"fmt"
	"sync"
	"testing"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

func seedStore(ids ...string) *Store {
	s := New()
	for i, id := range ids {
		s.AddNode(id, Metadata{Title: "Paper " + id, Year: 2020 + i, DiscoveryMethod: types.DiscoverySeed})
	}
	return s
}

func TestAddNodeIdempotent(t *testing.T) {
	s := New()
	s.AddNode("W1", Metadata{Title: "First", Year: 2021, CitationCount: 10})
	s.AddNode("W1", Metadata{Title: "First", Year: 2021, CitationCount: 10})

	if got := s.NodeCount(); got != 1 {
		t.Fatalf("NodeCount() = %d, want 1", got)
	}
	n, ok := s.Node("W1")
	if !ok {
		t.Fatal("node W1 missing")
	}
	if n.Title != "First" || n.Year != 2021 || n.CitationCount != 10 {
		t.Errorf("node = %+v, metadata changed by repeated add", n)
	}
}

func TestAddNodeUpsertPreservesDegreesAndDiscovery(t *testing.T) {
	s := seedStore("W1", "W2")
	if !s.AddEdge("W1", "W2", types.EdgeBackward) {
		t.Fatal("AddEdge failed")
	}

	// Re-add with richer metadata; degrees and discovery fields must survive.
	s.AddNode("W1", Metadata{Title: "Updated Title", CitationCount: 99, DiscoveryStage: 3, DiscoveryMethod: types.DiscoveryForward})

	n, _ := s.Node("W1")
	if n.Title != "Updated Title" {
		t.Errorf("Title = %q, want updated", n.Title)
	}
	if n.CitationCount != 99 {
		t.Errorf("CitationCount = %d, want 99", n.CitationCount)
	}
	if n.OutDegree != 1 {
		t.Errorf("OutDegree = %d, want 1 (preserved)", n.OutDegree)
	}
	if n.DiscoveryStage != 0 || n.DiscoveryMethod != types.DiscoverySeed {
		t.Errorf("discovery fields changed on upsert: stage=%d method=%s", n.DiscoveryStage, n.DiscoveryMethod)
	}
}

func TestAddEdge(t *testing.T) {
	s := seedStore("W1", "W2")

	tests := []struct {
		name           string
		citing, cited  string
		want           bool
	}{
		{"first insert", "W1", "W2", true},
		{"duplicate", "W1", "W2", false},
		{"reverse direction is distinct", "W2", "W1", true},
		{"unknown citing", "W9", "W2", false},
		{"unknown cited", "W1", "W9", false},
		{"self edge", "W1", "W1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.AddEdge(tt.citing, tt.cited, types.EdgeForward); got != tt.want {
				t.Errorf("AddEdge(%s, %s) = %v, want %v", tt.citing, tt.cited, got, tt.want)
			}
		})
	}

	if got := s.EdgeCount(); got != 2 {
		t.Errorf("EdgeCount() = %d, want 2", got)
	}
}

func TestAddEdgeIdempotentDegrees(t *testing.T) {
	s := seedStore("W1", "W2")
	s.AddEdge("W1", "W2", types.EdgeForward)
	s.AddEdge("W1", "W2", types.EdgeForward)
	s.AddEdge("W1", "W2", types.EdgeBackward)

	n1, _ := s.Node("W1")
	n2, _ := s.Node("W2")
	if n1.OutDegree != 1 || n2.InDegree != 1 {
		t.Errorf("degrees = out %d / in %d, want 1/1 after duplicate inserts", n1.OutDegree, n2.InDegree)
	}
}

func TestOverlapCount(t *testing.T) {
	s := seedStore("W1", "W2", "W3", "W4", "C")
	s.AddEdge("C", "W1", types.EdgeBackward)
	s.AddEdge("W2", "C", types.EdgeForward)
	s.AddEdge("C", "W4", types.EdgeBackward)

	corpus := map[string]struct{}{"W1": {}, "W2": {}, "W3": {}}

	if got := s.OverlapCount("C", corpus); got != 2 {
		t.Errorf("OverlapCount(C) = %d, want 2 (W1 via out, W2 via in; W4 not in corpus)", got)
	}
	if got := s.OverlapCount("unknown", corpus); got != 0 {
		t.Errorf("OverlapCount(unknown) = %d, want 0", got)
	}
}

func TestOverlapCountNeighborBothDirections(t *testing.T) {
	// A neighbor reachable via both in and out edges counts once.
	s := seedStore("A", "B")
	s.AddEdge("A", "B", types.EdgeBackward)
	s.AddEdge("B", "A", types.EdgeForward)

	corpus := map[string]struct{}{"B": {}}
	if got := s.OverlapCount("A", corpus); got != 1 {
		t.Errorf("OverlapCount(A) = %d, want 1", got)
	}
}

func TestCentralityLazyRecompute(t *testing.T) {
	s := seedStore("W1", "W2", "W3")
	s.AddEdge("W2", "W1", types.EdgeForward)
	s.AddEdge("W3", "W1", types.EdgeForward)

	first := s.Centrality()
	if len(first) != 3 {
		t.Fatalf("len(Centrality()) = %d, want 3", len(first))
	}
	if first["W1"] <= first["W2"] {
		t.Errorf("W1 (cited twice) should outrank W2: %f vs %f", first["W1"], first["W2"])
	}

	// Mutation invalidates the cache; the next read reflects the new edge.
	s.AddNode("W4", Metadata{Title: "Paper W4"})
	s.AddEdge("W4", "W2", types.EdgeForward)

	second := s.Centrality()
	if len(second) != 4 {
		t.Fatalf("len(Centrality()) after mutation = %d, want 4", len(second))
	}
	if second["W2"] <= first["W2"] {
		t.Errorf("W2 centrality should rise after gaining a citation: %f -> %f", first["W2"], second["W2"])
	}
}

func TestCentralityCachedBetweenReads(t *testing.T) {
	s := seedStore("W1", "W2")
	s.AddEdge("W1", "W2", types.EdgeBackward)

	a := s.Centrality()
	b := s.Centrality()
	for id := range a {
		if a[id] != b[id] {
			t.Errorf("cached centrality differs for %s: %f vs %f", id, a[id], b[id])
		}
	}
}

func TestTopCentral(t *testing.T) {
	s := seedStore("W1", "W2", "W3")
	s.AddEdge("W2", "W1", types.EdgeForward)
	s.AddEdge("W3", "W1", types.EdgeForward)
	s.AddEdge("W3", "W2", types.EdgeForward)

	top := s.TopCentral(2)
	if len(top) != 2 {
		t.Fatalf("len(TopCentral(2)) = %d, want 2", len(top))
	}
	if top[0].ID != "W1" {
		t.Errorf("top central = %s, want W1", top[0].ID)
	}
}

func TestConcurrentMergeSameID(t *testing.T) {
	// Forward and backward passes discovering the same paper concurrently
	// must produce exactly one node and one edge per direction.
	s := seedStore("F1", "F2")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.AddNode("X", Metadata{Title: "Shared", Year: 2024})
			if i%2 == 0 {
				s.AddEdge("X", "F1", types.EdgeForward)
			} else {
				s.AddEdge("F2", "X", types.EdgeBackward)
			}
		}(i)
	}
	wg.Wait()

	if got := s.NodeCount(); got != 3 {
		t.Errorf("NodeCount() = %d, want 3", got)
	}
	if got := s.EdgeCount(); got != 2 {
		t.Errorf("EdgeCount() = %d, want 2 (one per direction)", got)
	}
}

func TestEdgesDeterministicOrder(t *testing.T) {
	s := seedStore("A", "B", "C")
	s.AddEdge("C", "A", types.EdgeForward)
	s.AddEdge("B", "A", types.EdgeForward)
	s.AddEdge("B", "C", types.EdgeBackward)

	edges := s.Edges()
	for i := 1; i < len(edges); i++ {
		prev := fmt.Sprintf("%s/%s", edges[i-1].CitingID, edges[i-1].CitedID)
		cur := fmt.Sprintf("%s/%s", edges[i].CitingID, edges[i].CitedID)
		if prev > cur {
			t.Errorf("edges out of order: %s before %s", prev, cur)
		}
	}
}
