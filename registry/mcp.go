package registry

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SpecResourceURI addresses the full resolved API description.
const SpecResourceURI = "openapi://api-specification"

func (r *Registry) registerResources() {
	r.server.AddResource(&mcp.Resource{
		URI:         SpecResourceURI,
		Name:        "api-specification",
		Title:       "OpenAPI specification",
		Description: "The complete OpenAPI specification in JSON, with every $ref expanded. Use the tools to query it.",
		MIMEType:    "application/json",
	}, r.readSpec)
}

func (r *Registry) readSpec(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	doc, err := r.disc.Spec(ctx)
	if err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode specification: %w", err)
	}

	uri := SpecResourceURI
	if req != nil && req.Params != nil && req.Params.URI != "" {
		uri = req.Params.URI
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		}},
	}, nil
}
