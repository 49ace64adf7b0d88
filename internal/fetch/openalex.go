// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pdiddy/corpus-engine/internal/httputil"
	"github.com/pdiddy/corpus-engine/pkg/types"
)

// openAlexWorksBase is the OpenAlex Works endpoint. Declared as a var so
// tests can substitute an httptest server.
var openAlexWorksBase = "https://api.openalex.org/works"

// errNotFound marks an HTTP 404 from the works endpoint.
var errNotFound = errors.New("work not found")

// OpenAlexAdapter queries OpenAlex citation filters. OpenAlex is
// DOI-centric and free; the mailto parameter grants polite-pool rates.
type OpenAlexAdapter struct {
	Client *http.Client

	// Email is sent as mailto parameter for polite pool access.
	Email string

	// UserAgent identifies this client in requests.
	UserAgent string

	// PerPage caps results per sub-fetch (default 50, OpenAlex max 200).
	PerPage int

	// MaxRetries bounds backoff retries on transient failures.
	MaxRetries int

	// Limiter paces outbound requests. Nil disables pacing.
	Limiter *rate.Limiter
}

// NewOpenAlexAdapter builds an adapter from fetch configuration.
func NewOpenAlexAdapter(cfg types.FetchConfig) *OpenAlexAdapter {
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	return &OpenAlexAdapter{
		Client:     &http.Client{Timeout: cfg.Timeout},
		Email:      cfg.OpenAlexEmail,
		UserAgent:  cfg.UserAgent,
		PerPage:    perPage,
		MaxRetries: cfg.MaxRetries,
		Limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Query fetches one citation neighborhood page. Forward uses the
// cites: filter (works citing frontierID); backward uses cited_by:
// (works frontierID references). An unknown id yields an empty list.
func (a *OpenAlexAdapter) Query(ctx context.Context, frontierID string, dir types.Direction, opts Options) ([]Result, error) {
	var relation string
	switch dir {
	case types.DirectionForward:
		relation = "cites:" + frontierID
	case types.DirectionBackward:
		relation = "cited_by:" + frontierID
	default:
		return nil, &PermanentError{Err: fmt.Errorf("unknown direction %q", dir)}
	}

	filters := []string{relation}
	if opts.MinCitations > 0 {
		filters = append(filters, fmt.Sprintf("cited_by_count:>%d", opts.MinCitations-1))
	}
	if opts.FromYear > 0 {
		filters = append(filters, fmt.Sprintf("from_publication_date:%d-01-01", opts.FromYear))
	}
	if opts.ToYear > 0 {
		filters = append(filters, fmt.Sprintf("to_publication_date:%d-12-31", opts.ToYear))
	}

	perPage := a.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	if perPage > 200 {
		perPage = 200
	}

	params := url.Values{
		"filter":   {strings.Join(filters, ",")},
		"per_page": {fmt.Sprintf("%d", perPage)},
		"page":     {"1"},
	}
	if a.Email != "" {
		params.Set("mailto", a.Email)
	}

	var resp openAlexListResponse
	if err := a.getJSON(ctx, openAlexWorksBase+"?"+params.Encode(), &resp); err != nil {
		// Unknown frontier ids are empty neighborhoods, not failures.
		if errors.Is(err, errNotFound) {
			return []Result{}, nil
		}
		return nil, err
	}

	results := make([]Result, 0, len(resp.Results))
	for _, work := range resp.Results {
		results = append(results, work.toResult())
	}
	return results, nil
}

// Resolve fetches metadata for a single work. DOIs are accepted as
// "10.xxxx/..." and routed through the doi: path segment.
func (a *OpenAlexAdapter) Resolve(ctx context.Context, identifier string) (Result, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return Result{}, &PermanentError{Err: fmt.Errorf("empty identifier")}
	}

	path := identifier
	if strings.HasPrefix(identifier, "10.") {
		path = "doi:" + identifier
	}

	reqURL := openAlexWorksBase + "/" + url.PathEscape(path)
	if a.Email != "" {
		reqURL += "?mailto=" + url.QueryEscape(a.Email)
	}

	var work openAlexWork
	if err := a.getJSON(ctx, reqURL, &work); err != nil {
		return Result{}, err
	}
	if work.ID == "" {
		return Result{}, &PermanentError{Err: fmt.Errorf("no work found for %q", identifier)}
	}
	return work.toResult(), nil
}

// getJSON performs a rate-limited GET with retry and decodes the body.
// Status codes map to the error taxonomy: 200 decodes, 404 on a list
// query is unreachable (OpenAlex returns empty lists), other 4xx are
// permanent, and 429/5xx surviving retries are transient.
func (a *OpenAlexAdapter) getJSON(ctx context.Context, reqURL string, v any) error {
	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &PermanentError{Err: fmt.Errorf("creating request: %w", err)}
	}
	if a.UserAgent != "" {
		req.Header.Set("User-Agent", a.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, a.MaxRetries)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return &PermanentError{Err: errNotFound}
	case httputil.Retryable(resp.StatusCode):
		return &TransientError{Err: fmt.Errorf("OpenAlex returned HTTP %d after retries", resp.StatusCode)}
	default:
		return &PermanentError{Err: fmt.Errorf("OpenAlex returned HTTP %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &TransientError{Err: fmt.Errorf("parsing OpenAlex response: %w", err)}
	}
	return nil
}

// OpenAlex API JSON structures.
type openAlexListResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID                    string           `json:"id"`
	Title                 string           `json:"title"`
	DOI                   string           `json:"doi"`
	PublicationYear       int              `json:"publication_year"`
	CitedByCount          int              `json:"cited_by_count"`
	AbstractInvertedIndex map[string][]int `json:"abstract_inverted_index"`
}

func (w openAlexWork) toResult() Result {
	return Result{
		ID:            canonicalWorkID(w.ID),
		Title:         w.Title,
		Year:          w.PublicationYear,
		CitationCount: w.CitedByCount,
		Abstract:      reconstructAbstract(w.AbstractInvertedIndex),
	}
}

// canonicalWorkID strips the https://openalex.org/ prefix so ids are
// stable short keys ("W2741809807").
func canonicalWorkID(id string) string {
	return strings.TrimPrefix(id, "https://openalex.org/")
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to a list of positions
// where that word appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}
