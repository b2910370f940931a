package tooldoc

import (
	"sort"
	"strings"
)

func stringSliceFromAny(v any) []string {
	switch t := v.(type) {
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// securitySummary joins the scheme names referenced by a security
// requirement list, sorted and de-duplicated. An empty requirement object
// ({}) marks optional auth and is reported as "none".
func securitySummary(reqs []map[string]any) string {
	if len(reqs) == 0 {
		return ""
	}
	names := schemeNamesFromRequirements(reqs)
	optional := false
	for _, req := range reqs {
		if len(req) == 0 {
			optional = true
		}
	}
	if optional {
		names = append(names, "none")
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	names = dedupSorted(names)
	return strings.Join(names, ",")
}

func schemeNamesFromRequirements(raw any) []string {
	switch reqs := raw.(type) {
	case []map[string]any:
		out := make([]string, 0, len(reqs))
		for _, req := range reqs {
			for name := range req {
				out = append(out, name)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(reqs))
		for _, item := range reqs {
			if reqMap, ok := item.(map[string]any); ok {
				for name := range reqMap {
					out = append(out, name)
				}
			}
		}
		return out
	default:
		return nil
	}
}

func dedupSorted(in []string) []string {
	out := in[:0]
	for i, s := range in {
		if i > 0 && s == in[i-1] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// requiredParameterNames lists parameters marked required, in order.
func requiredParameterNames(params []map[string]any) []string {
	var out []string
	for _, p := range params {
		if req, _ := p["required"].(bool); !req {
			continue
		}
		if name, _ := p["name"].(string); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// requiredBodyFields returns the top-level required properties of the
// first JSON-ish request body schema.
func requiredBodyFields(body map[string]any) []string {
	content, _ := body["content"].(map[string]any)
	if len(content) == 0 {
		return nil
	}
	types := make([]string, 0, len(content))
	for mt := range content {
		types = append(types, mt)
	}
	sort.Strings(types)
	for _, mt := range types {
		if mt != "application/json" && !strings.HasSuffix(mt, "+json") {
			continue
		}
		media, _ := content[mt].(map[string]any)
		schema, _ := media["schema"].(map[string]any)
		return stringSliceFromAny(schema["required"])
	}
	return nil
}
