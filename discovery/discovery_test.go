package discovery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/apidiscovery/index"
	"github.com/jonwraymond/apidiscovery/search"
	"github.com/jonwraymond/apidiscovery/semantic"
	"github.com/jonwraymond/apidiscovery/tooldoc"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleDoc() index.Document {
	return index.Document{
		"openapi": "3.0.0",
		"info":    map[string]any{"title": "Test API", "version": "1.0.0"},
		"paths":   map[string]any{},
		"components": map[string]any{
			"schemas": map[string]any{
				"User": map[string]any{"type": "object", "required": []any{"name"}},
			},
		},
	}
}

func sampleEndpoints() []index.Endpoint {
	return []index.Endpoint{
		{Method: "GET", Path: "/users", Summary: "List users", Tags: []string{"users"}},
		{Method: "POST", Path: "/users", Summary: "Create a user", Tags: []string{"users"}},
		{Method: "DELETE", Path: "/users/{id}", Summary: "Delete a user", Tags: []string{"users"}},
		{Method: "GET", Path: "/orders", Summary: "List orders", Tags: []string{"orders"}},
	}
}

func staticLoad(loads *atomic.Int32) index.LoadFunc {
	return func(context.Context, string) (index.Document, []index.Endpoint, error) {
		if loads != nil {
			loads.Add(1)
		}
		return sampleDoc(), sampleEndpoints(), nil
	}
}

var vocabulary = []string{"create", "list", "delete", "user"}

// keywordEmbedder maps text to counts of vocabulary words.
type keywordEmbedder struct {
	calls atomic.Int32
	err   error
}

func (k *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	k.calls.Add(1)
	if k.err != nil {
		return nil, k.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		row := make([]float32, len(vocabulary))
		for j, word := range vocabulary {
			row[j] = float32(strings.Count(lower, word))
		}
		out[i] = row
	}
	return out, nil
}

func countingModel(loads *atomic.Int32, e semantic.Embedder, err error) semantic.ModelLoader {
	return func(context.Context) (semantic.Embedder, error) {
		loads.Add(1)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

func newStarted(t *testing.T, opts Options) *Discovery {
	t.Helper()
	if opts.Load == nil {
		opts.Load = staticLoad(nil)
	}
	opts.Logger = quietLogger()
	d, err := New(opts)
	require.NoError(t, err)
	require.True(t, d.Start("test://spec"))
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, index.ErrNoLoadFunc)

	_, err = New(Options{Load: staticLoad(nil), MinSimilarity: Threshold(1.5)})
	assert.ErrorIs(t, err, semantic.ErrInvalidArgument)

	d, err := New(Options{Load: staticLoad(nil)})
	require.NoError(t, err)
	assert.Equal(t, DefaultMinSimilarity, d.minSimilarity)
	assert.Equal(t, "substring", d.fallback.Name())

	d, err = New(Options{Load: staticLoad(nil), MinSimilarity: Threshold(0)})
	require.NoError(t, err)
	assert.Equal(t, 0.0, d.minSimilarity)
}

func TestDiscovery_NotStarted(t *testing.T) {
	d, err := New(Options{Load: staticLoad(nil), Logger: quietLogger()})
	require.NoError(t, err)

	_, err = d.ListEndpoints(context.Background(), "", "")
	assert.ErrorIs(t, err, index.ErrNotStarted)
	_, err = d.Search(context.Background(), "users", 5)
	assert.ErrorIs(t, err, index.ErrNotStarted)

	st := d.Status()
	assert.Equal(t, "not_started", st.IndexState)
	assert.Equal(t, SemanticDisabled, st.SemanticState)
}

func TestDiscovery_StartOnce(t *testing.T) {
	var loads atomic.Int32
	d := newStarted(t, Options{Load: staticLoad(&loads)})
	assert.False(t, d.Start("test://other"))

	_, err := d.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, "test://spec", d.Status().Source)
}

func TestDiscovery_ListEndpoints(t *testing.T) {
	d := newStarted(t, Options{})
	ctx := context.Background()

	all, err := d.ListEndpoints(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	orders, err := d.ListEndpoints(ctx, "orders", "")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "/orders", orders[0].Path)

	deletes, err := d.ListEndpoints(ctx, "users", "DELETE")
	require.NoError(t, err)
	require.Len(t, deletes, 1)
	assert.Equal(t, "DELETE /users/{id}", deletes[0].Key())

	none, err := d.ListEndpoints(ctx, "missing", "")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDiscovery_EndpointDetails(t *testing.T) {
	d := newStarted(t, Options{})
	ctx := context.Background()

	doc, err := d.EndpointDetails(ctx, "post", "/users", tooldoc.DetailSummary)
	require.NoError(t, err)
	assert.Equal(t, "POST", doc.Method)
	assert.Equal(t, "Create a user", doc.Summary)

	_, err = d.EndpointDetails(ctx, "PATCH", "/users", tooldoc.DetailFull)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.EndpointDetails(ctx, "GET", "/users", tooldoc.DetailLevel("verbose"))
	assert.ErrorIs(t, err, tooldoc.ErrInvalidDetail)
}

func TestDiscovery_SchemaTagsSpec(t *testing.T) {
	d := newStarted(t, Options{Decorate: tooldoc.DocsLinks(tooldoc.RendererScalar, "https://docs.example.com")})
	ctx := context.Background()

	def, err := d.Schema(ctx, "User")
	require.NoError(t, err)
	assert.Equal(t, "User", def.Name)
	assert.Equal(t, "object", def.Schema["type"])
	assert.Equal(t, "https://docs.example.com#test-api-v1/schema/User", def.DocsURL)

	_, err = d.Schema(ctx, "Nope")
	assert.ErrorIs(t, err, ErrNotFound)

	tags, err := d.ListTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []index.TagCount{{Tag: "orders", EndpointCount: 1}, {Tag: "users", EndpointCount: 3}}, tags)

	spec, err := d.Spec(ctx)
	require.NoError(t, err)
	assert.Equal(t, "3.0.0", spec["openapi"])
}

func TestSearch_Semantic(t *testing.T) {
	var loads atomic.Int32
	d := newStarted(t, Options{
		Model:         countingModel(&loads, &keywordEmbedder{}, nil),
		MinSimilarity: Threshold(0.3),
	})

	results, err := d.Search(context.Background(), "create a user", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "POST /users", results[0].Endpoint.Key())
	assert.Equal(t, ScoreEmbedding, results[0].ScoreType)
	assert.Greater(t, results[0].Score, 0.3)
	assert.Equal(t, int32(1), loads.Load())
}

func TestSearch_ZeroThreshold(t *testing.T) {
	ctx := context.Background()

	d := newStarted(t, Options{
		Model:         semantic.StaticModel(&keywordEmbedder{}),
		MinSimilarity: Threshold(0),
	})
	results, err := d.Search(ctx, "orders", 10)
	require.NoError(t, err)
	assert.Len(t, results, len(sampleEndpoints()))
	for _, r := range results {
		assert.Equal(t, ScoreEmbedding, r.ScoreType)
	}

	d = newStarted(t, Options{Model: semantic.StaticModel(&keywordEmbedder{})})
	results, err = d.Search(ctx, "orders", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_NoModelUsesSubstring(t *testing.T) {
	d := newStarted(t, Options{})

	results, err := d.Search(context.Background(), "USERS", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /users", "POST /users"}, results.Keys())
	for _, r := range results {
		assert.Equal(t, ScoreSubstring, r.ScoreType)
		assert.Equal(t, 1.0, r.Score)
	}
}

func TestSearch_FailingModelFallsBack(t *testing.T) {
	var loads atomic.Int32
	d := newStarted(t, Options{
		Model: countingModel(&loads, nil, errors.New("model download failed")),
	})
	ctx := context.Background()

	results, err := d.Search(ctx, "/users/{id}", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"DELETE /users/{id}"}, results.Keys())
	assert.Equal(t, ScoreSubstring, results[0].ScoreType)

	_, err = d.Search(ctx, "orders", 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load(), "no retry after failure")

	st := d.Status()
	assert.Equal(t, "unavailable", st.SemanticState)
	assert.Contains(t, st.SemanticError, "model download failed")
}

func TestSearch_EmptyQueryUsesFallback(t *testing.T) {
	emb := &keywordEmbedder{}
	var loads atomic.Int32
	d := newStarted(t, Options{Model: countingModel(&loads, emb, nil)})

	results, err := d.Search(context.Background(), "  ", 3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Equal(t, ScoreSubstring, results[0].ScoreType)
}

func TestSearch_NonPositiveLimit(t *testing.T) {
	d := newStarted(t, Options{})
	results, err := d.Search(context.Background(), "users", 0)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSearch_BM25Fallback(t *testing.T) {
	d := newStarted(t, Options{Fallback: search.NewBM25Searcher(search.BM25Config{})})

	results, err := d.Search(context.Background(), "orders", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "GET /orders", results[0].Endpoint.Key())
	assert.Equal(t, ScoreBM25, results[0].ScoreType)
}

func TestSearch_ConcurrentSingleInit(t *testing.T) {
	var loads atomic.Int32
	emb := &keywordEmbedder{}
	d := newStarted(t, Options{Model: countingModel(&loads, emb, nil)})

	const callers = 16
	var wg sync.WaitGroup
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Search(context.Background(), "create a user", 3)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, int32(1+callers), emb.calls.Load(), "one corpus batch plus one call per query")
}

func TestDiscovery_FailedLoad(t *testing.T) {
	d := newStarted(t, Options{Load: func(context.Context, string) (index.Document, []index.Endpoint, error) {
		return nil, nil, errors.New("connection refused")
	}})

	_, err := d.Snapshot(context.Background())
	require.ErrorIs(t, err, index.ErrLoadFailed)
	assert.ErrorContains(t, err, "connection refused")

	_, err = d.ListTags(context.Background())
	assert.ErrorIs(t, err, index.ErrLoadFailed)

	st := d.Status()
	assert.Equal(t, "failed", st.IndexState)
	assert.Contains(t, st.IndexError, "connection refused")
}

func TestDiscovery_WarmAndStatus(t *testing.T) {
	var loads atomic.Int32
	d := newStarted(t, Options{Model: countingModel(&loads, &keywordEmbedder{}, nil)})

	info, err := d.Warm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, semantic.StateReady, info.State)
	assert.Equal(t, 4, info.Endpoints)

	st := d.Status()
	assert.Equal(t, "loaded", st.IndexState)
	assert.Equal(t, "ready", st.SemanticState)
	assert.Equal(t, 4, st.Endpoints)
	assert.Equal(t, 1, st.Schemas)
	assert.Equal(t, 2, st.Tags)
	assert.Equal(t, len(vocabulary), st.Dim)
	assert.NotEmpty(t, st.CacheKey)
	assert.False(t, st.CacheHit)
}

func TestDiscovery_WarmWithoutModel(t *testing.T) {
	d := newStarted(t, Options{})
	info, err := d.Warm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, info.Endpoints)
	assert.Equal(t, SemanticDisabled, d.Status().SemanticState)
}

func TestResults_Helpers(t *testing.T) {
	eps := sampleEndpoints()
	r := Results{
		{Endpoint: eps[0], Score: 0.9},
		{Endpoint: eps[3], Score: 0.4},
	}
	assert.Equal(t, []string{"GET /users", "GET /orders"}, r.Keys())
	assert.Len(t, r.Endpoints(), 2)
	assert.Equal(t, []string{"GET /orders"}, r.FilterByTag("orders").Keys())
	assert.Equal(t, []string{"GET /users"}, r.FilterByMinScore(0.5).Keys())
	assert.Empty(t, r.FilterByTag("nope"))
}
