package openapi

import (
	"context"
	"fmt"
	"maps"
	"net/url"
	"strconv"
	"strings"
)

// Resolver expands $ref references in place of their targets.
//
// Local pointers (#/components/schemas/User) and external documents
// (common.yaml#/Pet, https://host/spec.json#/Pet) are supported. Each
// external document is fetched once per Resolver. A reference that would
// recurse into itself is left as {"$ref": ...} at the point of the cycle.
type Resolver struct {
	fetcher *Fetcher
	docs    map[string]map[string]any
	memo    map[string]any
}

// NewResolver returns a Resolver that fetches external documents with f.
func NewResolver(f *Fetcher) *Resolver {
	if f == nil {
		f = NewFetcher()
	}
	return &Resolver{
		fetcher: f,
		docs:    map[string]map[string]any{},
		memo:    map[string]any{},
	}
}

// Resolve returns a copy of root, located at rootRef, with every resolvable
// $ref expanded.
func (r *Resolver) Resolve(ctx context.Context, rootRef string, root map[string]any) (map[string]any, error) {
	r.docs[docKey(rootRef)] = root
	out, _, err := r.walk(ctx, root, rootRef, nil)
	if err != nil {
		return nil, err
	}
	resolved, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: resolved root is %T", ErrInvalidDocument, out)
	}
	return resolved, nil
}

// walk returns the expanded node and whether a cycle was cut below it.
// Results containing a cut depend on the active stack and are not memoized.
func (r *Resolver) walk(ctx context.Context, node any, docRef string, stack []string) (any, bool, error) {
	switch t := node.(type) {
	case map[string]any:
		if ref, ok := t["$ref"].(string); ok {
			return r.expand(ctx, t, ref, docRef, stack)
		}
		out := make(map[string]any, len(t))
		cyclic := false
		for k, v := range t {
			w, c, err := r.walk(ctx, v, docRef, stack)
			if err != nil {
				return nil, false, err
			}
			out[k] = w
			cyclic = cyclic || c
		}
		return out, cyclic, nil
	case []any:
		out := make([]any, len(t))
		cyclic := false
		for i, v := range t {
			w, c, err := r.walk(ctx, v, docRef, stack)
			if err != nil {
				return nil, false, err
			}
			out[i] = w
			cyclic = cyclic || c
		}
		return out, cyclic, nil
	default:
		return node, false, nil
	}
}

func (r *Resolver) expand(ctx context.Context, node map[string]any, ref, docRef string, stack []string) (any, bool, error) {
	target, pointer, err := splitRef(docRef, ref)
	if err != nil {
		return nil, false, err
	}
	key := docKey(target) + "#" + pointer

	for _, active := range stack {
		if active == key {
			return maps.Clone(node), true, nil
		}
	}

	var (
		resolved any
		cyclic   bool
	)
	if cached, ok := r.memo[key]; ok {
		resolved = cached
	} else {
		doc, err := r.document(ctx, target)
		if err != nil {
			return nil, false, err
		}
		value, err := lookupPointer(doc, pointer)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %s: %w", ErrUnresolvedRef, ref, err)
		}
		resolved, cyclic, err = r.walk(ctx, value, target, append(stack, key))
		if err != nil {
			return nil, false, err
		}
		if !cyclic {
			r.memo[key] = resolved
		}
	}

	if len(node) == 1 {
		return resolved, cyclic, nil
	}

	// Sibling keys next to $ref (description, nullable...) overlay the target.
	base, ok := resolved.(map[string]any)
	if !ok {
		return resolved, cyclic, nil
	}
	merged := maps.Clone(base)
	for k, v := range node {
		if k == "$ref" {
			continue
		}
		w, c, err := r.walk(ctx, v, docRef, stack)
		if err != nil {
			return nil, false, err
		}
		merged[k] = w
		cyclic = cyclic || c
	}
	return merged, cyclic, nil
}

func (r *Resolver) document(ctx context.Context, ref string) (map[string]any, error) {
	key := docKey(ref)
	if doc, ok := r.docs[key]; ok {
		return doc, nil
	}
	b, err := r.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnresolvedRef, err)
	}
	doc, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnresolvedRef, ref, err)
	}
	r.docs[key] = doc
	return doc, nil
}

// splitRef resolves ref against the document it appears in and splits off
// the JSON pointer fragment.
func splitRef(docRef, ref string) (target, pointer string, err error) {
	docPart, frag, _ := strings.Cut(ref, "#")
	if docPart == "" {
		return docRef, frag, nil
	}
	target, err = joinRef(docRef, docPart)
	if err != nil {
		return "", "", err
	}
	return target, frag, nil
}

// docKey strips any fragment so refs into the same document share a cache
// entry.
func docKey(ref string) string {
	k, _, _ := strings.Cut(ref, "#")
	return k
}

// lookupPointer follows an RFC 6901 JSON pointer, percent-decoded as a URI
// fragment.
func lookupPointer(doc map[string]any, pointer string) (any, error) {
	if p, err := url.PathUnescape(pointer); err == nil {
		pointer = p
	}
	if pointer == "" || pointer == "/" {
		return doc, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("pointer %q must start with /", pointer)
	}

	var cur any = doc
	for _, tok := range strings.Split(pointer[1:], "/") {
		tok = strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[tok]
			if !ok {
				return nil, fmt.Errorf("key %q not found", tok)
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range", tok)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %T at %q", cur, tok)
		}
	}
	return cur, nil
}
