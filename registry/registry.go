package registry

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/apidiscovery/discovery"
)

// Config configures a Registry.
type Config struct {
	ServerInfo ServerInfo

	// DefaultMaxResults bounds search_api_endpoints when the caller omits
	// max_results. Default: 20.
	DefaultMaxResults int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// ServerInfo describes this MCP server for the initialize response.
type ServerInfo struct {
	Name    string
	Version string
}

// DefaultServerName is used when Config.ServerInfo.Name is empty.
const DefaultServerName = "apidiscovery"

// DefaultMaxResults is the search_api_endpoints default.
const DefaultMaxResults = 20

// Registry exposes a Discovery instance as MCP tools and resources.
type Registry struct {
	disc       *discovery.Discovery
	server     *mcp.Server
	logger     *slog.Logger
	maxResults int
}

// New builds the MCP server over disc and registers every tool and the
// specification resource. disc may still be loading; handlers wait for it.
func New(disc *discovery.Discovery, cfg Config) *Registry {
	if cfg.ServerInfo.Name == "" {
		cfg.ServerInfo.Name = DefaultServerName
	}
	if cfg.ServerInfo.Version == "" {
		cfg.ServerInfo.Version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxResults := cfg.DefaultMaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	r := &Registry{
		disc:       disc,
		logger:     logger,
		maxResults: maxResults,
	}
	r.server = mcp.NewServer(&mcp.Implementation{
		Name:    cfg.ServerInfo.Name,
		Version: cfg.ServerInfo.Version,
	}, nil)

	r.registerTools()
	r.registerResources()
	return r
}

// Server returns the underlying MCP server.
func (r *Registry) Server() *mcp.Server {
	return r.server
}

// Discovery returns the facade the handlers query.
func (r *Registry) Discovery() *discovery.Discovery {
	return r.disc
}
