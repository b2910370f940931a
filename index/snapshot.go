package index

import (
	"sort"
	"strings"
)

// Document is a fully resolved OpenAPI document.
type Document = map[string]any

// Endpoint is a single API operation, identified by Method and Path.
type Endpoint struct {
	Path        string           `json:"path"`
	Method      string           `json:"method"`
	Summary     string           `json:"summary,omitempty"`
	Description string           `json:"description,omitempty"`
	OperationID string           `json:"operation_id,omitempty"`
	Tags        []string         `json:"tags"`
	Parameters  []map[string]any `json:"parameters,omitempty"`
	RequestBody map[string]any   `json:"request_body,omitempty"`
	Responses   map[string]any   `json:"responses,omitempty"`
	Security    []map[string]any `json:"security,omitempty"`

	// DocsURL is a deep link into rendered API docs, set by decoration.
	DocsURL string `json:"docs_url,omitempty"`
}

// Key returns the canonical "METHOD path" identifier.
func (e Endpoint) Key() string {
	return EndpointKey(e.Method, e.Path)
}

// HasTag reports whether the endpoint carries tag.
func (e Endpoint) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// EndpointKey builds the lookup key for a method and path.
// The method is uppercased.
func EndpointKey(method, path string) string {
	return strings.ToUpper(method) + " " + path
}

// TagCount reports how many endpoints carry a tag.
type TagCount struct {
	Tag           string `json:"tag"`
	EndpointCount int    `json:"endpoint_count"`
}

// Snapshot is an immutable parsed-index view of one API description.
//
// The exported maps may be filled in by a DecorateFunc before publication.
// After a Loader publishes a Snapshot nothing mutates it.
type Snapshot struct {
	SourceRef       string
	Document        Document
	Endpoints       []Endpoint
	Schemas         map[string]map[string]any
	SecuritySchemes map[string]map[string]any

	SchemaDocsURLs         map[string]string
	SecuritySchemeDocsURLs map[string]string

	byKey map[string]int
	byTag map[string][]int
	tags  []TagCount
}

// NewSnapshot builds a snapshot and its derived lookup maps.
//
// Endpoint order is preserved. If two endpoints share a key, the first wins
// for lookups.
func NewSnapshot(sourceRef string, doc Document, endpoints []Endpoint) *Snapshot {
	s := &Snapshot{
		SourceRef:              sourceRef,
		Document:               doc,
		Endpoints:              endpoints,
		Schemas:                componentMap(doc, "schemas"),
		SecuritySchemes:        componentMap(doc, "securitySchemes"),
		SchemaDocsURLs:         map[string]string{},
		SecuritySchemeDocsURLs: map[string]string{},
		byKey:                  make(map[string]int, len(endpoints)),
		byTag:                  make(map[string][]int),
	}

	for i, ep := range endpoints {
		key := ep.Key()
		if _, exists := s.byKey[key]; !exists {
			s.byKey[key] = i
		}
		for _, tag := range ep.Tags {
			s.byTag[tag] = append(s.byTag[tag], i)
		}
	}

	s.tags = make([]TagCount, 0, len(s.byTag))
	for tag, positions := range s.byTag {
		s.tags = append(s.tags, TagCount{Tag: tag, EndpointCount: len(positions)})
	}
	sort.Slice(s.tags, func(i, j int) bool { return s.tags[i].Tag < s.tags[j].Tag })

	return s
}

// Endpoint looks up an endpoint by method (case-insensitive) and exact path.
func (s *Snapshot) Endpoint(method, path string) (Endpoint, bool) {
	i, ok := s.byKey[EndpointKey(method, path)]
	if !ok {
		return Endpoint{}, false
	}
	return s.Endpoints[i], true
}

// EndpointsByTag returns the endpoints carrying tag, in corpus order.
func (s *Snapshot) EndpointsByTag(tag string) []Endpoint {
	positions := s.byTag[tag]
	out := make([]Endpoint, len(positions))
	for i, p := range positions {
		out[i] = s.Endpoints[p]
	}
	return out
}

// Tags returns every tag with its endpoint count, sorted by tag.
func (s *Snapshot) Tags() []TagCount {
	out := make([]TagCount, len(s.tags))
	copy(out, s.tags)
	return out
}

// Schema returns a component schema by name.
func (s *Snapshot) Schema(name string) (map[string]any, bool) {
	schema, ok := s.Schemas[name]
	return schema, ok
}

func componentMap(doc Document, kind string) map[string]map[string]any {
	out := map[string]map[string]any{}
	components, _ := doc["components"].(map[string]any)
	entries, _ := components[kind].(map[string]any)
	for name, raw := range entries {
		if m, ok := raw.(map[string]any); ok {
			out[name] = m
		}
	}
	return out
}
