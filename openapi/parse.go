package openapi

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Parse decodes a JSON or YAML document into plain Go values. Mapping keys
// are always strings, so YAML status codes such as 200 become "200".
func Parse(b []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidDocument)
	}

	var raw any
	if trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: json: %w", ErrInvalidDocument, err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("%w: yaml: %w", ErrInvalidDocument, err)
		}
	}

	doc, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: top level is %T, want a mapping", ErrInvalidDocument, raw)
	}
	return doc, nil
}

// normalize rewrites YAML's map[any]any into map[string]any, recursively.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}

// Validate checks the minimal shape every loader step relies on.
func Validate(doc map[string]any) error {
	if v, ok := versionField(doc, "openapi"); ok {
		if len(v) < 2 || v[:2] != "3." {
			return fmt.Errorf("%w: unsupported openapi version %q", ErrInvalidDocument, v)
		}
	} else if _, ok := versionField(doc, "swagger"); !ok {
		return fmt.Errorf("%w: missing openapi or swagger version field", ErrInvalidDocument)
	}
	if _, ok := doc["paths"].(map[string]any); !ok {
		return fmt.Errorf("%w: missing paths object", ErrInvalidDocument)
	}
	return nil
}

// versionField reads a version that unquoted YAML may have decoded as a
// number (openapi: 3.1).
func versionField(doc map[string]any, key string) (string, bool) {
	switch v := doc[key].(type) {
	case string:
		return v, v != ""
	case float64, int:
		return fmt.Sprint(v), true
	default:
		return "", false
	}
}
