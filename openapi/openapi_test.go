package openapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// dig walks nested maps by key.
func dig(t *testing.T, v any, keys ...string) any {
	t.Helper()
	for _, k := range keys {
		m, ok := v.(map[string]any)
		require.Truef(t, ok, "at %q: %T is not a map", k, v)
		v, ok = m[k]
		require.Truef(t, ok, "key %q missing", k)
	}
	return v
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestParse_JSONAndYAML(t *testing.T) {
	j, err := Parse([]byte(`  {"openapi":"3.0.0","paths":{}}`))
	require.NoError(t, err)
	assert.Equal(t, "3.0.0", j["openapi"])

	y, err := Parse([]byte(`
openapi: 3.1
paths:
  /pets:
    get:
      responses:
        200:
          description: ok
`))
	require.NoError(t, err)
	assert.Equal(t, "ok", dig(t, y, "paths", "/pets", "get", "responses", "200", "description"))
	require.NoError(t, Validate(y), "unquoted numeric version is accepted")
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Parse([]byte(`{"openapi": `))
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Parse([]byte("- a\n- b\n"))
	assert.ErrorIs(t, err, ErrInvalidDocument, "top level must be a mapping")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]any
		ok   bool
	}{
		{"openapi 3", map[string]any{"openapi": "3.0.3", "paths": map[string]any{}}, true},
		{"swagger", map[string]any{"swagger": "2.0", "paths": map[string]any{}}, true},
		{"openapi 2", map[string]any{"openapi": "2.0", "paths": map[string]any{}}, false},
		{"no version", map[string]any{"paths": map[string]any{}}, false},
		{"no paths", map[string]any{"openapi": "3.0.0"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.doc)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidDocument)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	kind, target, err := classify("https://example.com/openapi.json")
	require.NoError(t, err)
	assert.Equal(t, refHTTP, kind)
	assert.Equal(t, "https://example.com/openapi.json", target)

	kind, target, err = classify("file:///tmp/spec.yaml")
	require.NoError(t, err)
	assert.Equal(t, refFile, kind)
	assert.Equal(t, filepath.FromSlash("/tmp/spec.yaml"), target)

	kind, _, err = classify("specs/openapi.yaml")
	require.NoError(t, err)
	assert.Equal(t, refFile, kind)

	_, _, err = classify("ftp://example.com/spec.json")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)

	_, _, err = classify("")
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestJoinRef(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"https://h/specs/root.json", "common.json", "https://h/specs/common.json"},
		{"https://h/specs/root.json", "../shared/a.yaml", "https://h/shared/a.yaml"},
		{"https://h/specs/root.json", "https://other/x.json", "https://other/x.json"},
		{"file:///tmp/a/root.yaml", "c.yaml", "file:///tmp/a/c.yaml"},
		{"/tmp/a/root.yaml", "../b/c.yaml", filepath.FromSlash("/tmp/b/c.yaml")},
		{"/tmp/a/root.yaml", "", "/tmp/a/root.yaml"},
	}
	for _, tt := range tests {
		got, err := joinRef(tt.base, tt.ref)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s + %s", tt.base, tt.ref)
	}
}

func TestFetch_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apidiscovery", r.Header.Get("User-Agent"))
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := NewFetcher()
	b, err := f.Fetch(context.Background(), srv.URL+"/spec.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(b))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestFetch_Headers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	f := NewFetcher()
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "HTTP 401")

	f.Headers, err = ParseHeaders("Authorization=Bearer s3cret, ")
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), srv.URL)
	assert.NoError(t, err)
}

func TestParseHeaders(t *testing.T) {
	h, err := ParseHeaders("X-Api-Key = abc,Accept-Language=en")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"X-Api-Key": "abc", "Accept-Language": "en"}, h)

	h, err = ParseHeaders("")
	require.NoError(t, err)
	assert.Empty(t, h)

	_, err = ParseHeaders("novalue")
	assert.Error(t, err)
}

func TestFetch_File(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "spec.yaml", "openapi: 3.0.0\n")

	b, err := NewFetcher().Fetch(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "openapi: 3.0.0\n", string(b))

	_, err = NewFetcher().Fetch(context.Background(), filepath.Join(dir, "nope.yaml"))
	assert.ErrorIs(t, err, ErrFetch)
}

func TestResolve_LocalRefs(t *testing.T) {
	doc, err := Parse([]byte(`{
	  "openapi": "3.0.0",
	  "paths": {
	    "/users": {"post": {
	      "requestBody": {"content": {"application/json": {"schema": {"$ref": "#/components/schemas/User"}}}},
	      "responses": {"201": {"$ref": "#/components/responses/Created"}}
	    }}
	  },
	  "components": {
	    "schemas": {
	      "User": {"type": "object", "description": "a user", "properties": {"owner": {"$ref": "#/components/schemas/a~1b", "description": "the owner"}}},
	      "a/b": {"type": "string", "description": "slashed"}
	    },
	    "responses": {"Created": {"description": "created"}}
	  }
	}`))
	require.NoError(t, err)

	out, err := NewResolver(nil).Resolve(context.Background(), "/virtual/root.json", doc)
	require.NoError(t, err)

	schema := dig(t, out, "paths", "/users", "post", "requestBody", "content", "application/json", "schema")
	assert.Equal(t, "object", dig(t, schema, "type"))
	assert.Equal(t, "string", dig(t, schema, "properties", "owner", "type"), "~1 unescapes to /")
	assert.Equal(t, "the owner", dig(t, schema, "properties", "owner", "description"), "siblings overlay the target")
	assert.Equal(t, "slashed", dig(t, out, "components", "schemas", "a/b", "description"), "target itself is untouched")
	assert.Equal(t, "created", dig(t, out, "paths", "/users", "post", "responses", "201", "description"))
}

func TestResolve_CycleKeepsRef(t *testing.T) {
	doc := map[string]any{
		"openapi": "3.0.0",
		"paths":   map[string]any{},
		"components": map[string]any{"schemas": map[string]any{
			"Node": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"next": map[string]any{"$ref": "#/components/schemas/Node"},
				},
			},
		}},
	}

	out, err := NewResolver(nil).Resolve(context.Background(), "/virtual/root.json", doc)
	require.NoError(t, err)

	next := dig(t, out, "components", "schemas", "Node", "properties", "next")
	assert.Equal(t, "object", dig(t, next, "type"), "first level expands")
	assert.Equal(t, "#/components/schemas/Node", dig(t, next, "properties", "next", "$ref"), "cycle is cut")
}

func TestResolve_UnresolvedRef(t *testing.T) {
	doc := map[string]any{
		"openapi": "3.0.0",
		"paths":   map[string]any{"/x": map[string]any{"$ref": "#/components/pathItems/Missing"}},
	}
	_, err := NewResolver(nil).Resolve(context.Background(), "/virtual/root.json", doc)
	assert.ErrorIs(t, err, ErrUnresolvedRef)
}

func TestResolve_ExternalFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "shared"), 0o755))
	writeFile(t, filepath.Join(dir, "shared"), "common.yaml", `
Pet:
  type: object
  properties:
    tag:
      $ref: '#/Tag'
Tag:
  type: string
`)
	root := writeFile(t, dir, "root.yaml", `
openapi: 3.0.0
info: {title: Pets, version: 1.0.0}
paths:
  /pets:
    get:
      tags: [pets]
      responses:
        200:
          description: ok
          content:
            application/json:
              schema:
                $ref: 'shared/common.yaml#/Pet'
`)

	doc, endpoints, err := Load(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, endpoints, 1)

	schema := dig(t, doc, "paths", "/pets", "get", "responses", "200", "content", "application/json", "schema")
	assert.Equal(t, "string", dig(t, schema, "properties", "tag", "type"), "nested refs resolve against the external document")
	assert.Contains(t, endpoints[0].Responses, "200")
}

func TestExtract(t *testing.T) {
	doc, err := Parse([]byte(`
openapi: 3.0.0
security:
  - apiKey: []
paths:
  /users/{id}:
    parameters:
      - {name: id, in: path, required: true, description: shared}
    delete:
      security: []
    get:
      operationId: getUser
      summary: Get a user
      tags: [users]
      parameters:
        - {name: id, in: path, required: true, description: own}
        - {name: expand, in: query}
  /users:
    post:
      operationId: createUser
      requestBody:
        content:
          application/json:
            schema: {type: object}
    get:
      operationId: listUsers
    x-internal: true
`))
	require.NoError(t, err)

	eps := Extract(doc)
	keys := make([]string, len(eps))
	for i, ep := range eps {
		keys[i] = ep.Key()
	}
	assert.Equal(t, []string{"GET /users", "POST /users", "GET /users/{id}", "DELETE /users/{id}"}, keys)

	get := eps[2]
	assert.Equal(t, "getUser", get.OperationID)
	assert.Equal(t, []string{"users"}, get.Tags)
	require.Len(t, get.Parameters, 2)
	assert.Equal(t, "own", get.Parameters[0]["description"], "operation parameter overrides path parameter")
	assert.Equal(t, "expand", get.Parameters[1]["name"])
	assert.Equal(t, []map[string]any{{"apiKey": []any{}}}, get.Security, "inherits document security")

	del := eps[3]
	require.Len(t, del.Parameters, 1)
	assert.Equal(t, "shared", del.Parameters[0]["description"])
	assert.NotNil(t, del.Tags)
	assert.Empty(t, del.Tags)
	assert.NotNil(t, del.Security)
	assert.Empty(t, del.Security, "explicit empty security clears inheritance")

	assert.NotNil(t, eps[1].RequestBody)
	assert.Nil(t, eps[0].RequestBody)
}

func newSpecServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	files := map[string]string{
		"/specs/root.json": `{"openapi":"3.0.3","info":{"title":"Pets","version":"1.0.0"},
		  "paths":{"/pets":{"get":{"summary":"List pets","tags":["pets"],
		    "responses":{"200":{"description":"ok","content":{"application/json":{"schema":{"$ref":"common.json#/components/schemas/Pet"}}}}}}}}}`,
		"/specs/common.json": `{"components":{"schemas":{
		  "Pet":{"type":"object","properties":{"tag":{"$ref":"#/components/schemas/Tag"}}},
		  "Tag":{"type":"string"}}}}`,
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
}

func TestLoader_HTTPWithExternalRef(t *testing.T) {
	var hits atomic.Int32
	srv := newSpecServer(t, &hits)
	defer srv.Close()

	doc, endpoints, err := NewLoader(Options{}).Load(context.Background(), srv.URL+"/specs/root.json")
	require.NoError(t, err)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "GET /pets", endpoints[0].Key())
	assert.Equal(t, "string", dig(t, doc, "paths", "/pets", "get", "responses", "200", "content", "application/json", "schema", "properties", "tag", "type"))
	assert.Equal(t, int32(2), hits.Load(), "root and one external document")
}

func TestLoader_CacheSkipsFetch(t *testing.T) {
	var hits atomic.Int32
	srv := newSpecServer(t, &hits)
	defer srv.Close()

	dir := t.TempDir()
	ref := srv.URL + "/specs/root.json"

	_, first, err := NewLoader(Options{CacheDir: dir}).Load(context.Background(), ref)
	require.NoError(t, err)
	require.Equal(t, int32(2), hits.Load())

	_, second, err := NewLoader(Options{CacheDir: dir}).Load(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "cache hit does no fetch")
	require.Len(t, second, len(first))
	assert.Equal(t, first[0].Key(), second[0].Key())
	assert.Equal(t, first[0].Summary, second[0].Summary)
}

func TestLoader_FailedFetch(t *testing.T) {
	var hits atomic.Int32
	srv := newSpecServer(t, &hits)
	defer srv.Close()

	_, _, err := NewLoader(Options{}).Load(context.Background(), srv.URL+"/specs/nope.json")
	assert.ErrorIs(t, err, ErrFetch)
}

func TestLoader_InvalidDocument(t *testing.T) {
	p := writeFile(t, t.TempDir(), "spec.json", `{"info":{"title":"x"}}`)
	_, _, err := Load(context.Background(), p)
	assert.ErrorIs(t, err, ErrInvalidDocument)
}

func TestSpecCache_TTLAndCorruption(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c := &specCache{dir: dir, ttl: time.Hour, logger: discardLogger(), now: func() time.Time { return now }}

	ref := "https://example.com/openapi.json"
	c.store(ref, map[string]any{"openapi": "3.0.0", "paths": map[string]any{}})

	doc, ok := c.load(ref)
	require.True(t, ok)
	assert.Equal(t, "3.0.0", doc["openapi"])

	_, ok = c.load("https://example.com/other.json")
	assert.False(t, ok)

	now = now.Add(2 * time.Hour)
	_, ok = c.load(ref)
	assert.False(t, ok, "stale entries miss")

	require.NoError(t, os.WriteFile(c.path(ref), []byte("not json"), 0o644))
	now = now.Add(-2 * time.Hour)
	_, ok = c.load(ref)
	assert.False(t, ok, "corrupt entries miss")
}
