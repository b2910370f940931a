package registry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/apidiscovery/discovery"
	"github.com/jonwraymond/apidiscovery/index"
	"github.com/jonwraymond/apidiscovery/tooldoc"
)

// Tool names served by the registry.
const (
	ToolListEndpoints  = "list_api_endpoints"
	ToolEndpointDetail = "get_endpoint_details"
	ToolSchema         = "get_schema_definition"
	ToolSearch         = "search_api_endpoints"
	ToolListTags       = "list_api_tags"
	ToolStatus         = "get_server_status"
)

// EndpointSummary is the list/search view of an endpoint.
type EndpointSummary struct {
	Path        string   `json:"path"`
	Method      string   `json:"method"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	OperationID string   `json:"operation_id"`
	Tags        []string `json:"tags"`
	DocsURL     string   `json:"docs_url,omitempty"`
}

func summarize(ep index.Endpoint) EndpointSummary {
	tags := ep.Tags
	if tags == nil {
		tags = []string{}
	}
	return EndpointSummary{
		Path:        ep.Path,
		Method:      ep.Method,
		Summary:     ep.Summary,
		Description: ep.Description,
		OperationID: ep.OperationID,
		Tags:        tags,
		DocsURL:     ep.DocsURL,
	}
}

type listEndpointsInput struct {
	Tag    string `json:"tag,omitempty" jsonschema:"filter by API category/tag, e.g. users"`
	Search string `json:"search,omitempty" jsonschema:"case-insensitive substring matched against path, method, summary, description, operationId and tags"`
}

type listEndpointsOutput struct {
	Endpoints []EndpointSummary `json:"endpoints"`
	Count     int               `json:"count"`
}

type endpointDetailsInput struct {
	Method string `json:"method" jsonschema:"HTTP method, e.g. GET or POST"`
	Path   string `json:"path" jsonschema:"API path exactly as documented, e.g. /users/{userId}"`
	Detail string `json:"detail,omitempty" jsonschema:"summary, schema or full (default full)"`
}

type schemaInput struct {
	SchemaName string `json:"schema_name" jsonschema:"component schema name, e.g. User"`
}

type searchInput struct {
	Query      string `json:"query" jsonschema:"what the user wants to do, e.g. create a user"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of results (default 20)"`
}

// SearchHit is one search_api_endpoints result.
type SearchHit struct {
	Path        string   `json:"path"`
	Method      string   `json:"method"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	OperationID string   `json:"operation_id"`
	Tags        []string `json:"tags"`
	DocsURL     string   `json:"docs_url,omitempty"`
	Score       float64  `json:"score"`
	ScoreType   string   `json:"score_type"`
}

type searchOutput struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

type listTagsOutput struct {
	Tags []index.TagCount `json:"tags"`
}

func (r *Registry) registerTools() {
	mcp.AddTool(r.server, &mcp.Tool{
		Name:        ToolListEndpoints,
		Description: "Get an overview of available API endpoints. Use this to answer \"What can this API do?\" or to find endpoints by category.",
	}, r.listEndpoints)

	mcp.AddTool(r.server, &mcp.Tool{
		Name:        ToolEndpointDetail,
		Description: "Get detailed information about one endpoint: parameters, request body, responses and docs link.",
	}, r.endpointDetails)

	mcp.AddTool(r.server, &mcp.Tool{
		Name:        ToolSchema,
		Description: "Get the structure of a data schema, e.g. \"What fields does a User object have?\"",
	}, r.schemaDefinition)

	mcp.AddTool(r.server, &mcp.Tool{
		Name:        ToolSearch,
		Description: "Search for endpoints by functionality, e.g. \"create knowledge base\" or \"upload file\". Uses semantic search when available.",
	}, r.searchEndpoints)

	mcp.AddTool(r.server, &mcp.Tool{
		Name:        ToolListTags,
		Description: "Get all API categories/tags with endpoint counts.",
	}, r.listTags)

	mcp.AddTool(r.server, &mcp.Tool{
		Name:        ToolStatus,
		Description: "Report whether the API index and semantic search are ready.",
	}, r.status)
}

func (r *Registry) listEndpoints(ctx context.Context, _ *mcp.CallToolRequest, in listEndpointsInput) (*mcp.CallToolResult, listEndpointsOutput, error) {
	defer r.logCall(ToolListEndpoints, time.Now())

	eps, err := r.disc.ListEndpoints(ctx, in.Tag, in.Search)
	if err != nil {
		return nil, listEndpointsOutput{}, err
	}
	out := listEndpointsOutput{Endpoints: make([]EndpointSummary, len(eps)), Count: len(eps)}
	for i, ep := range eps {
		out.Endpoints[i] = summarize(ep)
	}
	return nil, out, nil
}

func (r *Registry) endpointDetails(ctx context.Context, _ *mcp.CallToolRequest, in endpointDetailsInput) (*mcp.CallToolResult, tooldoc.EndpointDoc, error) {
	defer r.logCall(ToolEndpointDetail, time.Now())

	if strings.TrimSpace(in.Method) == "" || strings.TrimSpace(in.Path) == "" {
		return nil, tooldoc.EndpointDoc{}, fmt.Errorf("%w: method and path are required", ErrInvalidRequest)
	}
	level, err := tooldoc.ParseDetailLevel(in.Detail)
	if err != nil {
		return nil, tooldoc.EndpointDoc{}, err
	}
	doc, err := r.disc.EndpointDetails(ctx, in.Method, in.Path, level)
	if err != nil {
		return nil, tooldoc.EndpointDoc{}, err
	}
	return nil, doc, nil
}

func (r *Registry) schemaDefinition(ctx context.Context, _ *mcp.CallToolRequest, in schemaInput) (*mcp.CallToolResult, discovery.SchemaDefinition, error) {
	defer r.logCall(ToolSchema, time.Now())

	if strings.TrimSpace(in.SchemaName) == "" {
		return nil, discovery.SchemaDefinition{}, fmt.Errorf("%w: schema_name is required", ErrInvalidRequest)
	}
	def, err := r.disc.Schema(ctx, in.SchemaName)
	if err != nil {
		return nil, discovery.SchemaDefinition{}, err
	}
	return nil, def, nil
}

func (r *Registry) searchEndpoints(ctx context.Context, _ *mcp.CallToolRequest, in searchInput) (*mcp.CallToolResult, searchOutput, error) {
	defer r.logCall(ToolSearch, time.Now())

	limit := in.MaxResults
	if limit <= 0 {
		limit = r.maxResults
	}
	results, err := r.disc.Search(ctx, in.Query, limit)
	if err != nil {
		return nil, searchOutput{}, err
	}
	out := searchOutput{Query: in.Query, Results: make([]SearchHit, len(results))}
	for i, res := range results {
		sum := summarize(res.Endpoint)
		out.Results[i] = SearchHit{
			Path:        sum.Path,
			Method:      sum.Method,
			Summary:     sum.Summary,
			Description: sum.Description,
			OperationID: sum.OperationID,
			Tags:        sum.Tags,
			DocsURL:     sum.DocsURL,
			Score:       res.Score,
			ScoreType:   string(res.ScoreType),
		}
	}
	return nil, out, nil
}

func (r *Registry) listTags(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, listTagsOutput, error) {
	defer r.logCall(ToolListTags, time.Now())

	tags, err := r.disc.ListTags(ctx)
	if err != nil {
		return nil, listTagsOutput{}, err
	}
	return nil, listTagsOutput{Tags: tags}, nil
}

func (r *Registry) status(_ context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, discovery.Status, error) {
	defer r.logCall(ToolStatus, time.Now())

	return nil, r.disc.Status(), nil
}

func (r *Registry) logCall(tool string, start time.Time) {
	r.logger.Debug("tool call", "tool", tool, "elapsed", time.Since(start))
}
