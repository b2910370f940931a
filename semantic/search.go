package semantic

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/jonwraymond/apidiscovery/embedcache"
	"github.com/jonwraymond/apidiscovery/index"
)

// Match is one ranked search result.
type Match struct {
	Endpoint index.Endpoint
	Score    float64
	// Position is the endpoint's index in the corpus.
	Position int
}

// Search returns up to topK endpoints whose cosine similarity to query is
// at least minSimilarity, best first. Equal scores keep corpus order.
//
// An empty result with a nil error means nothing cleared the threshold or
// semantic search is unavailable; callers check Available to tell the two
// apart. Only argument and ctx errors are returned.
func (ix *Index) Search(ctx context.Context, query string, topK int, minSimilarity float64) ([]Match, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive, got %d", ErrInvalidArgument, topK)
	}
	if math.IsNaN(minSimilarity) || minSimilarity < 0 || minSimilarity > 1 {
		return nil, fmt.Errorf("%w: minSimilarity must be in [0, 1], got %v", ErrInvalidArgument, minSimilarity)
	}
	if err := ix.EnsureReady(ctx); err != nil {
		return nil, err
	}
	if ix.State() != StateReady || len(ix.matrix) == 0 {
		return []Match{}, nil
	}

	vecs, err := ix.model.EmbedBatch(ctx, []string{query})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		ix.degrade(fmt.Errorf("encode query: %w", err))
		return []Match{}, nil
	}
	if len(vecs) != 1 || len(vecs[0]) != ix.matrix.Dim() {
		ix.degrade(fmt.Errorf("%w: query vector does not match dim %d", ErrDimensionMismatch, ix.matrix.Dim()))
		return []Match{}, nil
	}

	return rank(ix.endpoints, ix.matrix, normalize(vecs[0]), topK, minSimilarity), nil
}

// rank scores every row against q and keeps the best topK above the
// threshold. rows and q must be unit-normalized.
func rank(endpoints []index.Endpoint, rows embedcache.Matrix, q []float32, topK int, minSimilarity float64) []Match {
	matches := make([]Match, 0, len(rows))
	for i, row := range rows {
		score := dot(q, row)
		if score >= minSimilarity {
			matches = append(matches, Match{Endpoint: endpoints[i], Score: score, Position: i})
		}
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// normalize returns a unit-length copy of v. A zero vector is returned as is.
func normalize(v []float32) []float32 {
	var sq float64
	for _, x := range v {
		sq += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sq == 0 {
		copy(out, v)
		return out
	}
	inv := 1 / math.Sqrt(sq)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func normalizeRows(m embedcache.Matrix) embedcache.Matrix {
	out := make(embedcache.Matrix, len(m))
	for i, row := range m {
		out[i] = normalize(row)
	}
	return out
}
