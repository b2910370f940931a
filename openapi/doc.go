// Package openapi fetches, resolves and flattens OpenAPI 3.x descriptions.
//
// [Loader.Load] is the production [index.LoadFunc]:
//
//	loader := openapi.NewLoader(openapi.Options{CacheDir: "/var/cache/apimcp"})
//	doc, endpoints, err := loader.Load(ctx, "https://api.example.com/openapi.yaml")
//
// References may be http(s) URLs, file:// URLs or local paths. JSON and YAML
// are both accepted. Every $ref, local or external, is expanded; a reference
// that would recurse into itself is kept as {"$ref": ...} at the cycle.
//
// Endpoints come out in lexical path order, then in [Methods] order.
package openapi
