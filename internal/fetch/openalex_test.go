// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pdiddy/corpus-engine/internal/httputil"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = 1 * time.Millisecond
}

const worksListJSON = `{
  "meta": {"count": 2, "per_page": 50, "page": 1},
  "results": [
    {
      "id": "https://openalex.org/W100",
      "title": "Graph Diffusion Methods",
      "publication_year": 2024,
      "cited_by_count": 12,
      "abstract_inverted_index": {"Graph": [0], "diffusion": [1], "works": [2]}
    },
    {
      "id": "https://openalex.org/W200",
      "title": "Citation Networks",
      "publication_year": 2019,
      "cited_by_count": 340
    }
  ]
}`

func withServer(t *testing.T, handler http.HandlerFunc) *OpenAlexAdapter {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	old := openAlexWorksBase
	openAlexWorksBase = ts.URL
	t.Cleanup(func() { openAlexWorksBase = old })
	return &OpenAlexAdapter{
		Client:     http.DefaultClient,
		Email:      "dev@example.org",
		UserAgent:  "corpus-engine-test/0.1",
		PerPage:    50,
		MaxRetries: 2,
	}
}

func TestQueryForwardBuildsCitesFilter(t *testing.T) {
	var gotFilter, gotMailto string
	a := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		gotMailto = r.URL.Query().Get("mailto")
		w.Write([]byte(worksListJSON))
	})

	results, err := a.Query(context.Background(), "W42", types.DirectionForward, Options{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if gotFilter != "cites:W42" {
		t.Errorf("filter = %q, want cites:W42", gotFilter)
	}
	if gotMailto != "dev@example.org" {
		t.Errorf("mailto = %q, want polite-pool email", gotMailto)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].ID != "W100" {
		t.Errorf("ID = %q, want canonical short id W100", results[0].ID)
	}
	if results[0].Abstract != "Graph diffusion works" {
		t.Errorf("Abstract = %q, want reconstructed text", results[0].Abstract)
	}
}

func TestQueryBackwardAppliesThresholdAndYearWindow(t *testing.T) {
	var gotFilter string
	a := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		w.Write([]byte(`{"meta":{},"results":[]}`))
	})

	_, err := a.Query(context.Background(), "W42", types.DirectionBackward, Options{
		MinCitations: 5,
		ToYear:       2022,
	})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	for _, want := range []string{"cited_by:W42", "cited_by_count:>4", "to_publication_date:2022-12-31"} {
		if !strings.Contains(gotFilter, want) {
			t.Errorf("filter = %q, missing %q", gotFilter, want)
		}
	}
}

func TestQueryRecentSubPassOmitsThreshold(t *testing.T) {
	var gotFilter string
	a := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotFilter = r.URL.Query().Get("filter")
		w.Write([]byte(`{"meta":{},"results":[]}`))
	})

	_, err := a.Query(context.Background(), "W42", types.DirectionForward, Options{FromYear: 2023})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if strings.Contains(gotFilter, "cited_by_count") {
		t.Errorf("filter = %q, recent sub-pass must not filter by citation count", gotFilter)
	}
	if !strings.Contains(gotFilter, "from_publication_date:2023-01-01") {
		t.Errorf("filter = %q, missing year floor", gotFilter)
	}
}

func TestQueryUnknownIDReturnsEmpty(t *testing.T) {
	a := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	results, err := a.Query(context.Background(), "W404", types.DirectionForward, Options{})
	if err != nil {
		t.Fatalf("Query() error = %v, want empty list for unknown id", err)
	}
	if len(results) != 0 {
		t.Errorf("len(results) = %d, want 0", len(results))
	}
}

func TestQueryTransientRetriesThenSucceeds(t *testing.T) {
	var calls int32
	a := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(worksListJSON))
	})

	results, err := a.Query(context.Background(), "W42", types.DirectionForward, Options{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("len(results) = %d, want 2", len(results))
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3 (two retries)", calls)
	}
}

func TestQueryTransientExhaustion(t *testing.T) {
	a := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := a.Query(context.Background(), "W42", types.DirectionForward, Options{})
	if !IsTransient(err) {
		t.Errorf("err = %v, want transient classification", err)
	}
}

func TestQueryPermanentError(t *testing.T) {
	a := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := a.Query(context.Background(), "W42", types.DirectionForward, Options{})
	if !IsPermanent(err) {
		t.Errorf("err = %v, want permanent classification", err)
	}
}

func TestResolveDOI(t *testing.T) {
	var gotPath string
	a := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"id":               "https://openalex.org/W555",
			"title":            "Seed Paper",
			"publication_year": 2021,
			"cited_by_count":   88,
		})
	})

	got, err := a.Resolve(context.Background(), "10.1145/1234567.1234568")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !strings.Contains(gotPath, "doi:10.1145") {
		t.Errorf("path = %q, want doi: prefix routing", gotPath)
	}
	if got.ID != "W555" || got.Year != 2021 || got.CitationCount != 88 {
		t.Errorf("result = %+v", got)
	}
}

func TestResolveUnknownIsPermanent(t *testing.T) {
	a := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := a.Resolve(context.Background(), "W000")
	if !IsPermanent(err) {
		t.Errorf("err = %v, want permanent classification", err)
	}
}

func TestReconstructAbstract(t *testing.T) {
	tests := []struct {
		name  string
		index map[string][]int
		want  string
	}{
		{"empty", nil, ""},
		{"single word", map[string][]int{"hello": {0}}, "hello"},
		{"ordered", map[string][]int{"world": {1}, "hello": {0}}, "hello world"},
		{"repeated word", map[string][]int{"the": {0, 2}, "end": {1}}, "the end the"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reconstructAbstract(tt.index); got != tt.want {
				t.Errorf("reconstructAbstract() = %q, want %q", got, tt.want)
			}
		})
	}
}
