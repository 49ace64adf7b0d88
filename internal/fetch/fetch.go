// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch retrieves citation neighborhoods from academic APIs.
// Each adapter implements the Adapter interface per the Strategy pattern;
// the diffusion controller consumes it and never sees transport details.
package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/pdiddy/corpus-engine/pkg/types"
)

// Result is raw candidate metadata returned by a citation query.
type Result struct {
	ID            string
	Title         string
	Year          int
	CitationCount int
	Abstract      string
}

// Options narrows a citation query. Zero values mean no constraint.
type Options struct {
	// MinCitations excludes works below this citation count.
	MinCitations int

	// FromYear includes only works published in or after this year.
	FromYear int

	// ToYear includes only works published in or before this year.
	ToYear int
}

// Adapter fetches citation neighbors of a frontier paper. Unknown ids
// yield an empty result list, not an error.
type Adapter interface {
	// Query returns works related to frontierID in the given direction:
	// forward lists works citing it, backward lists works it references.
	Query(ctx context.Context, frontierID string, dir types.Direction, opts Options) ([]Result, error)

	// Resolve looks up a single identifier (canonical id or DOI) and
	// returns its metadata. Used for seed resolution.
	Resolve(ctx context.Context, identifier string) (Result, error)
}

// TransientError wraps a retryable failure (network errors, HTTP 429/5xx).
// The caller skips the affected frontier pass after retries exhaust.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient fetch failure: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps a non-retryable failure (HTTP 4xx, malformed ids).
// The caller skips immediately without retrying.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return fmt.Sprintf("permanent fetch failure: %v", e.Err) }
func (e *PermanentError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable fetch failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err is a non-retryable fetch failure.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
