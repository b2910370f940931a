package openapi

import "errors"

// Error values for loading API descriptions.
var (
	// ErrUnsupportedScheme is returned for references that are neither
	// http(s) URLs, file:// URLs nor local paths.
	ErrUnsupportedScheme = errors.New("unsupported spec reference scheme")

	// ErrInvalidDocument is returned when the document is not a mapping
	// with an openapi/swagger version and paths.
	ErrInvalidDocument = errors.New("invalid OpenAPI document")

	// ErrUnresolvedRef is returned when a $ref target cannot be found.
	ErrUnresolvedRef = errors.New("unresolved $ref")

	// ErrFetch wraps transport and non-2xx failures.
	ErrFetch = errors.New("fetch failed")
)
