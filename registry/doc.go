// Package registry serves a discovery.Discovery over the Model Context
// Protocol.
//
// Tools:
//   - list_api_endpoints(tag?, search?)
//   - get_endpoint_details(method, path, detail?)
//   - get_schema_definition(schema_name)
//   - search_api_endpoints(query, max_results?)
//   - list_api_tags()
//   - get_server_status()
//
// Resource: openapi://api-specification, the resolved document as indented
// JSON.
//
// Example usage:
//
//	reg := registry.New(disc, registry.Config{
//	    ServerInfo: registry.ServerInfo{Name: "petstore-api", Version: "1.0.0"},
//	})
//	disc.Start(specURL)
//	registry.ServeStdio(ctx, reg)
//
// Handlers wait for the snapshot, so the server can accept the initialize
// handshake while the description is still loading. Lookups that find
// nothing and load failures come back as tool errors (IsError), not as
// protocol errors.
package registry
