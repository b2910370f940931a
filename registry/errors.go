package registry

import "errors"

// Sentinel errors for consistent error handling.
var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidTransport = errors.New("invalid transport")
)

// Transport names accepted by Serve.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)
