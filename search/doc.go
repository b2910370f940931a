// Package search provides lexical fallback search over API endpoints.
//
// It is used whenever embedding search is unavailable (model failed to load,
// still initializing, or an empty query).
//
// # Strategies
//
//   - [SubstringSearcher]: the whole query as a case-folded substring of
//     path, method, summary, description, operationId and tags; corpus order
//   - [BM25Searcher]: Bleve BM25 ranking with per-field boosts
//
// Both implement [Searcher] and return [Hit] values that reference endpoints
// by position.
//
// # Thread Safety
//
// BM25Searcher is safe for concurrent use. It uses an internal RWMutex to
// protect index state and caches the Bleve index keyed by an endpoint
// fingerprint, only rebuilding when the endpoint set changes.
//
// # Behavior
//
// Empty queries return the first N endpoints. Non-empty BM25 queries rank by
// score DESC, then position ASC.
package search
