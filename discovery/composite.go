package discovery

import (
	"context"
	"strings"

	"github.com/jonwraymond/apidiscovery/index"
	"github.com/jonwraymond/apidiscovery/search"
	"github.com/jonwraymond/apidiscovery/semantic"
)

// Search ranks endpoints against query and returns at most limit results.
//
// The semantic index answers when it is usable. It is initialized on first
// use if the background path has not started, and ctx bounds the wait. An
// empty query, a disabled model, or an Unavailable index falls through to
// the lexical fallback searcher.
func (d *Discovery) Search(ctx context.Context, query string, limit int) (Results, error) {
	if limit <= 0 {
		return Results{}, nil
	}
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(query) != "" {
		if ix := d.semanticIndex(snap); ix != nil {
			matches, err := ix.Search(ctx, query, limit, d.minSimilarity)
			if err != nil {
				return nil, err
			}
			if ix.Available() {
				return fromMatches(matches), nil
			}
			d.logger.Debug("semantic search unavailable, using fallback",
				"fallback", d.fallback.Name(), "state", ix.State())
		}
	}

	return d.lexical(ctx, query, limit, snap.Endpoints)
}

func (d *Discovery) lexical(ctx context.Context, query string, limit int, endpoints []index.Endpoint) (Results, error) {
	hits, err := d.fallback.Search(ctx, query, limit, endpoints)
	if err != nil {
		return nil, err
	}
	scoreType := scoreTypeOf(d.fallback)
	results := make(Results, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 || h.Position >= len(endpoints) {
			continue
		}
		results = append(results, Result{
			Endpoint:  endpoints[h.Position],
			Score:     h.Score,
			ScoreType: scoreType,
		})
	}
	return results, nil
}

func fromMatches(matches []semantic.Match) Results {
	results := make(Results, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Endpoint:  m.Endpoint,
			Score:     m.Score,
			ScoreType: ScoreEmbedding,
		}
	}
	return results
}

func scoreTypeOf(s search.Searcher) ScoreType {
	switch s.Name() {
	case string(ScoreBM25):
		return ScoreBM25
	case string(ScoreSubstring):
		return ScoreSubstring
	default:
		return ScoreType(s.Name())
	}
}
