package tooldoc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/apidiscovery/index"
)

// ErrInvalidDetail is returned for an unknown DetailLevel.
var ErrInvalidDetail = errors.New("invalid detail level")

// DetailLevel selects how much of an endpoint is described.
type DetailLevel string

const (
	// DetailSummary: method, path, summary, tags and docs link.
	DetailSummary DetailLevel = "summary"
	// DetailSchema: summary plus parameters, request body and responses.
	DetailSchema DetailLevel = "schema"
	// DetailFull: schema plus description, operationId and security.
	DetailFull DetailLevel = "full"
)

// IsValid reports whether d is a known level.
func (d DetailLevel) IsValid() bool {
	switch d {
	case DetailSummary, DetailSchema, DetailFull:
		return true
	}
	return false
}

// ParseDetailLevel parses s case-insensitively. An empty string is
// DetailFull.
func ParseDetailLevel(s string) (DetailLevel, error) {
	if s == "" {
		return DetailFull, nil
	}
	d := DetailLevel(strings.ToLower(strings.TrimSpace(s)))
	if !d.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDetail, s)
	}
	return d, nil
}

// EndpointDoc is the tiered description of one endpoint.
type EndpointDoc struct {
	Level   DetailLevel `json:"detail"`
	Method  string      `json:"method"`
	Path    string      `json:"path"`
	Summary string      `json:"summary,omitempty"`
	Tags    []string    `json:"tags"`
	DocsURL string      `json:"docs_url,omitempty"`

	// Schema and Full.
	Parameters         []map[string]any `json:"parameters,omitempty"`
	RequiredParameters []string         `json:"required_parameters,omitempty"`
	RequestBody        map[string]any   `json:"request_body,omitempty"`
	RequiredBodyFields []string         `json:"required_body_fields,omitempty"`
	Responses          map[string]any   `json:"responses,omitempty"`

	// Full only.
	Description     string `json:"description,omitempty"`
	OperationID     string `json:"operation_id,omitempty"`
	SecuritySummary string `json:"security,omitempty"`
}

// DescribeEndpoint renders ep at the requested level.
func DescribeEndpoint(ep index.Endpoint, level DetailLevel) (EndpointDoc, error) {
	if !level.IsValid() {
		return EndpointDoc{}, fmt.Errorf("%w: %q", ErrInvalidDetail, level)
	}

	tags := ep.Tags
	if tags == nil {
		tags = []string{}
	}
	doc := EndpointDoc{
		Level:   level,
		Method:  ep.Method,
		Path:    ep.Path,
		Summary: ep.Summary,
		Tags:    tags,
		DocsURL: ep.DocsURL,
	}
	if level == DetailSummary {
		return doc, nil
	}

	doc.Parameters = ep.Parameters
	doc.RequiredParameters = requiredParameterNames(ep.Parameters)
	doc.RequestBody = ep.RequestBody
	doc.RequiredBodyFields = requiredBodyFields(ep.RequestBody)
	doc.Responses = ep.Responses
	if level == DetailSchema {
		return doc, nil
	}

	doc.Description = ep.Description
	doc.OperationID = ep.OperationID
	doc.SecuritySummary = securitySummary(ep.Security)
	return doc, nil
}
