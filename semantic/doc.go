// Package semantic provides lazily initialized embedding search over API
// endpoints.
//
// An [Index] owns an embedding model handle, one searchable text per
// endpoint, and the corpus embedding matrix. Nothing expensive happens in
// [New]; the model is loaded and the corpus encoded on first use.
//
// # Lifecycle
//
// The index moves through four states:
//
//	NotStarted -> Initializing -> Ready
//	                           -> Unavailable
//
// Either [Index.TriggerBackgroundInit] (non-blocking) or
// [Index.EnsureReady] (runs on the caller when nothing has started) begins
// initialization. Concurrent callers never start a second run; they wait
// for the in-flight one. Unavailable is terminal: a model that fails to load
// or encode is not retried.
//
// # Initialization
//
//  1. Build a search text per endpoint ([SearchText])
//  2. Compute the corpus cache key ([embedcache.Key])
//  3. Load the model and look up the cache; a hit must have one row per endpoint
//  4. On a miss, encode the whole corpus in one batch and store it
//
// The key ignores corpus order, so cached rows are kept in sorted-text order
// ([embedcache.Order]) and mapped back to corpus positions on a hit. Rows
// are unit-normalized when adopted, so similarity is a dot product.
//
// # Search
//
//	ix, _ := semantic.New(snap.Endpoints, semantic.Options{
//	    Model: semantic.StaticModel(embedder),
//	    Cache: cache,
//	})
//	matches, err := ix.Search(ctx, "create a user", 5, 0.3)
//
// Results are sorted by descending cosine similarity with ties kept in
// corpus order. An Unavailable index returns an empty result, never an
// error; callers that need a non-empty answer fall back to lexical search
// when [Index.Available] is false.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package semantic
