package discovery

import (
	"github.com/jonwraymond/apidiscovery/index"
)

// ScoreType indicates the source of a search result's score.
type ScoreType string

const (
	// ScoreEmbedding indicates cosine similarity from the semantic index.
	ScoreEmbedding ScoreType = "embedding"

	// ScoreBM25 indicates the score came from BM25 lexical search.
	ScoreBM25 ScoreType = "bm25"

	// ScoreSubstring indicates a plain substring match. Every hit scores 1.
	ScoreSubstring ScoreType = "substring"
)

// Result represents a unified search result with score details.
type Result struct {
	Endpoint index.Endpoint

	// Score is the relevance score for this result.
	// The score's interpretation depends on ScoreType.
	Score float64

	// ScoreType indicates how the Score was computed.
	ScoreType ScoreType
}

// Results is a slice of Result with helper methods.
type Results []Result

// Keys returns the "METHOD path" keys of the results.
func (r Results) Keys() []string {
	keys := make([]string, len(r))
	for i, result := range r {
		keys[i] = result.Endpoint.Key()
	}
	return keys
}

// Endpoints returns just the endpoints from the results.
func (r Results) Endpoints() []index.Endpoint {
	endpoints := make([]index.Endpoint, len(r))
	for i, result := range r {
		endpoints[i] = result.Endpoint
	}
	return endpoints
}

// FilterByTag returns results whose endpoint carries tag.
func (r Results) FilterByTag(tag string) Results {
	filtered := Results{}
	for _, result := range r {
		if result.Endpoint.HasTag(tag) {
			filtered = append(filtered, result)
		}
	}
	return filtered
}

// FilterByMinScore returns results with score >= minScore.
func (r Results) FilterByMinScore(minScore float64) Results {
	filtered := Results{}
	for _, result := range r {
		if result.Score >= minScore {
			filtered = append(filtered, result)
		}
	}
	return filtered
}
