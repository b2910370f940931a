// Package index owns the parsed API snapshot and the loader that produces it.
//
// A [Snapshot] is an immutable view of one resolved OpenAPI document: the
// endpoint list plus lookup maps by tag, by (method, path), and by schema or
// security-scheme name. Exactly one snapshot is published per [Loader].
//
// # Loading
//
// The [Loader] runs the load pipeline once, in a background goroutine:
//
//	loader, err := index.NewLoader(index.LoaderOptions{
//	    Load:      openapi.Load,              // fetch + resolve + extract
//	    Decorate:  tooldoc.DocsLinks("scalar", "https://api.example.com/docs"),
//	    OnPublish: func(s *index.Snapshot) { /* trigger semantic init */ },
//	})
//	loader.StartBackgroundLoad("https://api.example.com/openapi.json")
//
//	// Any goroutine, any time after StartBackgroundLoad:
//	snap, err := loader.GetIndex(ctx)
//
// GetIndex blocks while the load is in flight and returns the same snapshot
// pointer to every caller once it completes. Calling GetIndex before
// StartBackgroundLoad returns [ErrNotStarted], which is distinct from
// "still loading".
//
// # Failure Policy
//
// There is exactly one load attempt per Loader. A failed load is recorded and
// every current and future GetIndex caller receives an error wrapping both
// [ErrLoadFailed] and the underlying cause. The pipeline is never re-run.
//
// # Thread Safety
//
// All Loader methods are safe for concurrent use. A published Snapshot is
// read-only and may be shared freely without further synchronization.
package index
