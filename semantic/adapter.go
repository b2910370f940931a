package semantic

import (
	"strings"

	"github.com/jonwraymond/apidiscovery/index"
)

// SearchText builds the text embedded for an endpoint.
//
// Fields are joined with single spaces in this order, skipping empty ones:
//   - Method
//   - Path
//   - Summary
//   - Description
//   - OperationID
//   - Tags (each tag is its own field)
func SearchText(ep index.Endpoint) string {
	parts := make([]string, 0, 5+len(ep.Tags))
	for _, s := range []string{ep.Method, ep.Path, ep.Summary, ep.Description, ep.OperationID} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	for _, tag := range ep.Tags {
		if tag != "" {
			parts = append(parts, tag)
		}
	}
	return strings.Join(parts, " ")
}

// SearchTexts converts endpoints to search texts, preserving order.
// Returns nil for empty input.
func SearchTexts(endpoints []index.Endpoint) []string {
	if len(endpoints) == 0 {
		return nil
	}
	out := make([]string, len(endpoints))
	for i, ep := range endpoints {
		out[i] = SearchText(ep)
	}
	return out
}
