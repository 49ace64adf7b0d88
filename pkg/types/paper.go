// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Direction identifies which side of the citation relation a fetch walks.
type Direction string

const (
	// DirectionForward fetches works that cite the frontier paper.
	DirectionForward Direction = "forward"

	// DirectionBackward fetches works the frontier paper references.
	DirectionBackward Direction = "backward"
)

// DiscoveryMethod records how a paper entered the graph.
type DiscoveryMethod string

const (
	DiscoverySeed     DiscoveryMethod = "seed"
	DiscoveryForward  DiscoveryMethod = "forward"
	DiscoveryBackward DiscoveryMethod = "backward"
)

// PaperNode is a document in the citation graph. Nodes are created on
// first discovery and updated in place as edges and relevance scores
// arrive; they are never deleted.
type PaperNode struct {
	// ID is the canonical identifier (e.g. an OpenAlex work id "W2741809807").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// Year is the publication year. Zero when unknown.
	Year int `json:"year" yaml:"year"`

	// CitationCount is the total citation count reported by the source API.
	CitationCount int `json:"citation_count" yaml:"citation_count"`

	// Abstract is the paper abstract, kept for relevance scoring.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// DiscoveryStage is the diffusion stage at which the paper first
	// appeared (0 for seeds).
	DiscoveryStage int `json:"discovery_stage" yaml:"discovery_stage"`

	// DiscoveryMethod records the pass that first surfaced the paper.
	DiscoveryMethod DiscoveryMethod `json:"discovery_method" yaml:"discovery_method"`

	// RelevanceScore is the topical score in [0,1]. Valid only when
	// Scored is true; seeds are scored 1.0 on admission.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// Scored reports whether RelevanceScore has been assigned.
	Scored bool `json:"scored" yaml:"scored"`

	// InDegree counts citation edges pointing at this paper.
	InDegree int `json:"in_degree" yaml:"in_degree"`

	// OutDegree counts citation edges leaving this paper.
	OutDegree int `json:"out_degree" yaml:"out_degree"`
}

// EdgeType distinguishes how a citation edge was discovered.
type EdgeType string

const (
	EdgeForward  EdgeType = "forward"
	EdgeBackward EdgeType = "backward"
)

// CitationEdge is a directed citation: the citing paper references the
// cited paper. At most one edge exists per ordered (citing, cited) pair.
type CitationEdge struct {
	CitingID string   `json:"citing_id" yaml:"citing_id"`
	CitedID  string   `json:"cited_id" yaml:"cited_id"`
	Type     EdgeType `json:"type" yaml:"type"`
}

// Provenance records one fetch pass that surfaced a candidate: which
// frontier paper was being expanded and in which direction.
type Provenance struct {
	FrontierID string    `json:"frontier_id" yaml:"frontier_id"`
	Direction  Direction `json:"direction" yaml:"direction"`
}

// Candidate is raw metadata for a newly fetched paper, enriched with the
// cheap overlap feature before scoring. Candidates are transient; they
// are consumed by the relevance filter each stage.
type Candidate struct {
	ID            string `json:"id" yaml:"id"`
	Title         string `json:"title" yaml:"title"`
	Year          int    `json:"year" yaml:"year"`
	CitationCount int    `json:"citation_count" yaml:"citation_count"`
	Abstract      string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// OverlapCount is the number of directed graph neighbors the
	// candidate shares with the current corpus. Attached by the cheap
	// filter stage.
	OverlapCount int `json:"overlap_count" yaml:"overlap_count"`

	// FoundVia lists every fetch pass that surfaced this candidate in
	// the current stage. Duplicate discoveries merge here.
	FoundVia []Provenance `json:"found_via,omitempty" yaml:"found_via,omitempty"`
}

// FallbackCandidate is a paper that scored below the relevance threshold
// but above the fallback floor. Held for operator substitution; never
// promoted automatically.
type FallbackCandidate struct {
	ID             string  `json:"id" yaml:"id"`
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`
	Reason         string  `json:"reason" yaml:"reason"`
	Stage          int     `json:"stage" yaml:"stage"`
}
