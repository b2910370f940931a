package tooldoc

import (
	"strings"

	"github.com/jonwraymond/apidiscovery/index"
)

// Renderer names a docs UI that deep links can be generated for.
type Renderer string

// RendererScalar is the Scalar API reference UI.
const RendererScalar Renderer = "scalar"

// AttachDocsLinks fills DocsURL on every endpoint and the schema and
// security-scheme link maps of snap. It is a no-op when baseURL is empty or
// the renderer is unknown.
func AttachDocsLinks(snap *index.Snapshot, renderer Renderer, baseURL string) {
	if snap == nil || baseURL == "" {
		return
	}
	switch renderer {
	case RendererScalar:
		attachScalarLinks(snap, baseURL)
	}
}

// DocsLinks returns AttachDocsLinks bound to a renderer and base URL, for use
// as an index.DecorateFunc.
func DocsLinks(renderer Renderer, baseURL string) index.DecorateFunc {
	return func(snap *index.Snapshot) {
		AttachDocsLinks(snap, renderer, baseURL)
	}
}

// ScalarEndpointLink builds a Scalar deep link:
//
//	{base}#{prefix}/tag/{tag}/{method}/{path}
//
// The "{prefix}/" segment is omitted when prefix is empty. tag is the first
// endpoint tag or "default"; method is lowercased; the leading slash of path
// is dropped and everything except / { } - and unreserved characters is
// percent-encoded.
func ScalarEndpointLink(baseURL, prefix string, ep index.Endpoint) string {
	tag := "default"
	if len(ep.Tags) > 0 {
		tag = ep.Tags[0]
	}
	path := quote(strings.TrimLeft(ep.Path, "/"), "/{}-")
	return scalarAnchor(baseURL, prefix) + "tag/" + tag + "/" + strings.ToLower(ep.Method) + "/" + path
}

// ScalarPrefix derives the per-document anchor prefix Scalar uses, from
// info.title and the major part of info.version: "Test API" at "1.0.0"
// becomes "test-api-v1". It is empty when the document has no title.
func ScalarPrefix(doc index.Document) string {
	info, _ := doc["info"].(map[string]any)
	title, _ := info["title"].(string)
	slug := slugify(title)
	if slug == "" {
		return ""
	}
	version, _ := info["version"].(string)
	version = strings.TrimPrefix(strings.TrimSpace(version), "v")
	major, _, _ := strings.Cut(version, ".")
	if major == "" {
		return slug
	}
	return slug + "-v" + major
}

func scalarAnchor(baseURL, prefix string) string {
	if prefix == "" {
		return baseURL + "#"
	}
	return baseURL + "#" + prefix + "/"
}

func attachScalarLinks(snap *index.Snapshot, baseURL string) {
	prefix := ScalarPrefix(snap.Document)
	anchor := scalarAnchor(baseURL, prefix)

	for i := range snap.Endpoints {
		snap.Endpoints[i].DocsURL = ScalarEndpointLink(baseURL, prefix, snap.Endpoints[i])
	}

	schemaLinks := make(map[string]string, len(snap.Schemas))
	for name := range snap.Schemas {
		schemaLinks[name] = anchor + "schema/" + quote(name, "-_.")
	}
	snap.SchemaDocsURLs = schemaLinks

	secLinks := make(map[string]string, len(snap.SecuritySchemes))
	for name := range snap.SecuritySchemes {
		secLinks[name] = anchor + "security/" + quote(name, "-_.")
	}
	snap.SecuritySchemeDocsURLs = secLinks
}

// slugify lowercases s and collapses every run of non-alphanumeric ASCII
// into a single hyphen.
func slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

const upperhex = "0123456789ABCDEF"

// quote percent-encodes s byte-wise, leaving ASCII letters, digits, the
// unreserved marks "-._~", and any byte in safe untouched.
func quote(s, safe string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) || strings.IndexByte(safe, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}
