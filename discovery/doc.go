// Package discovery is the query facade over one API description.
//
// It wires the index loader, the semantic index and a lexical fallback
// searcher together, and exposes the read operations the protocol layer
// serves.
//
// # Basic Usage
//
//	disc, err := discovery.New(discovery.Options{
//	    Load:     openapi.NewLoader(openapi.Options{}).Load,
//	    Decorate: tooldoc.DocsLinks(tooldoc.RendererScalar, docsBaseURL),
//	    Model:    semantic.StaticModel(provider.NewHash(0)),
//	    Cache:    fileCache,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	disc.Start(specURL) // returns immediately
//
//	// Any goroutine, any time later:
//	results, err := disc.Search(ctx, "create a user", 10)
//	doc, err := disc.EndpointDetails(ctx, "POST", "/users", tooldoc.DetailSchema)
//
// Every read waits for the snapshot. A failed load is reported to every
// caller as an error wrapping [index.ErrLoadFailed].
//
// # Search Routing
//
// The semantic index is created once, when the snapshot is published, and
// its initialization starts in the background right away. Search uses it
// whenever it is usable, waiting on an in-flight initialization if needed.
// Empty queries, a nil Model, and an Unavailable index all go to
// Options.Fallback instead. Each [Result] carries a [ScoreType] naming
// which path produced it.
//
// # Thread Safety
//
// All Discovery methods are safe for concurrent use.
package discovery
