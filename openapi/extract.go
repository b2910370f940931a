package openapi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jonwraymond/apidiscovery/index"
)

// Methods lists the operation keys of a path item, in extraction order.
var Methods = []string{"get", "put", "post", "delete", "options", "head", "patch", "trace"}

// Extract flattens the operations of a resolved document into endpoints.
//
// Paths are visited in lexical order and methods in Methods order, so the
// result is deterministic for a given document.
func Extract(doc index.Document) []index.Endpoint {
	paths, _ := doc["paths"].(map[string]any)

	names := make([]string, 0, len(paths))
	for p := range paths {
		names = append(names, p)
	}
	sort.Strings(names)

	docSecurity, hasDocSecurity := securityList(doc)

	var endpoints []index.Endpoint
	for _, path := range names {
		item, ok := paths[path].(map[string]any)
		if !ok {
			continue
		}
		shared := parameterList(item["parameters"])

		for _, method := range Methods {
			op, ok := item[method].(map[string]any)
			if !ok {
				continue
			}
			ep := index.Endpoint{
				Path:        path,
				Method:      strings.ToUpper(method),
				Summary:     stringField(op, "summary"),
				Description: stringField(op, "description"),
				OperationID: stringField(op, "operationId"),
				Tags:        tagList(op["tags"]),
				Parameters:  mergeParameters(shared, parameterList(op["parameters"])),
				Responses:   responseMap(op["responses"]),
			}
			if rb, ok := op["requestBody"].(map[string]any); ok {
				ep.RequestBody = rb
			}
			if sec, ok := securityList(op); ok {
				ep.Security = sec
			} else if hasDocSecurity {
				ep.Security = docSecurity
			}
			endpoints = append(endpoints, ep)
		}
	}
	return endpoints
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func tagList(v any) []string {
	raw, _ := v.([]any)
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if s, ok := t.(string); ok && s != "" {
			tags = append(tags, s)
		}
	}
	return tags
}

func parameterList(v any) []map[string]any {
	raw, _ := v.([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, p := range raw {
		if m, ok := p.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// mergeParameters appends operation parameters to path-level ones. An
// operation parameter replaces a path-level one with the same name and in.
func mergeParameters(shared, own []map[string]any) []map[string]any {
	if len(shared) == 0 {
		return own
	}
	key := func(p map[string]any) string {
		return fmt.Sprint(p["in"]) + "\x00" + fmt.Sprint(p["name"])
	}
	overridden := make(map[string]struct{}, len(own))
	for _, p := range own {
		overridden[key(p)] = struct{}{}
	}

	out := make([]map[string]any, 0, len(shared)+len(own))
	for _, p := range shared {
		if _, ok := overridden[key(p)]; ok {
			continue
		}
		out = append(out, p)
	}
	return append(out, own...)
}

func responseMap(v any) map[string]any {
	raw, _ := v.(map[string]any)
	out := make(map[string]any, len(raw))
	for code, resp := range raw {
		if m, ok := resp.(map[string]any); ok {
			out[code] = m
		}
	}
	return out
}

// securityList reads a security requirement array. The boolean reports
// whether the key is present, since an explicit empty list clears
// inherited requirements.
func securityList(m map[string]any) ([]map[string]any, bool) {
	v, present := m["security"]
	if !present {
		return nil, false
	}
	raw, _ := v.([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if req, ok := r.(map[string]any); ok {
			out = append(out, req)
		}
	}
	return out, true
}
