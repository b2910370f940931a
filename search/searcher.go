package search

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jonwraymond/apidiscovery/index"
)

// Hit is one lexical search result.
type Hit struct {
	// Position is the endpoint's index in the searched slice.
	Position int
	// Score is strategy specific; higher is better.
	Score float64
}

// Searcher ranks endpoints against a free-text query.
//
// Implementations must be safe for concurrent use. Results reference
// endpoints by position so callers keep ownership of the slice.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, limit int, endpoints []index.Endpoint) ([]Hit, error)
}

// Haystack returns the text a substring query is matched against:
// path, method, summary, description, operationId and tags joined by spaces.
func Haystack(ep index.Endpoint) string {
	return strings.Join([]string{
		ep.Path,
		ep.Method,
		ep.Summary,
		ep.Description,
		ep.OperationID,
		strings.Join(ep.Tags, " "),
	}, " ")
}

// Contains reports whether needle occurs in ep's haystack, ignoring case.
// An empty needle matches everything.
func Contains(ep index.Endpoint, needle string) bool {
	if needle == "" {
		return true
	}
	fold := cases.Fold()
	return strings.Contains(fold.String(Haystack(ep)), fold.String(needle))
}

// SubstringSearcher matches the whole query as a case-insensitive substring.
// Hits are returned in corpus order, each with score 1.
type SubstringSearcher struct{}

var _ Searcher = SubstringSearcher{}

// NewSubstringSearcher returns a SubstringSearcher.
func NewSubstringSearcher() SubstringSearcher { return SubstringSearcher{} }

// Name returns "substring".
func (SubstringSearcher) Name() string { return "substring" }

// Search scans endpoints in order and stops once limit hits are collected.
// A non-positive limit means no limit.
func (SubstringSearcher) Search(ctx context.Context, query string, limit int, endpoints []index.Endpoint) ([]Hit, error) {
	fold := cases.Fold()
	needle := fold.String(query)

	hits := make([]Hit, 0)
	for i, ep := range endpoints {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if needle != "" && !strings.Contains(fold.String(Haystack(ep)), needle) {
			continue
		}
		hits = append(hits, Hit{Position: i, Score: 1})
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, nil
}
