// Package tooldoc renders documentation for indexed API endpoints: deep
// links into a docs UI and progressive, tiered endpoint descriptions.
//
// # Docs Links
//
// [AttachDocsLinks] decorates a snapshot before it is published. Only the
// Scalar renderer is supported:
//
//	endpoint: {base}#{api}/tag/{firstTag|default}/{method}/{path}
//	schema:   {base}#{api}/schema/{name}
//	security: {base}#{api}/security/{name}
//
// Use [DocsLinks] to obtain an index.DecorateFunc. An empty base URL or an
// unknown renderer leaves the snapshot untouched.
//
// # Documentation Tiers
//
// Summary: method, path, summary, tags, docs link. Cheap enough to list.
//
// Schema: adds parameters (with required names), the request body (with
// required top-level fields) and responses.
//
// Full: adds description, operationId and a security summary such as
// "apiKey,oauth2".
//
// [DescribeEndpoint] returns [ErrInvalidDetail] for any other level.
package tooldoc
