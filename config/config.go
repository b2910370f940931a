package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/apidiscovery/openapi"
)

// Error values for configuration.
var (
	ErrMissingSpecURL   = errors.New("OPENAPI_SPEC_URL is required")
	ErrInvalidTransport = errors.New("invalid MCP transport")
	ErrInvalidValue     = errors.New("invalid configuration value")
)

// Configuration keys. Each is read from the environment, the dotenv files
// and the YAML config file, in that order.
const (
	KeySpecURL          = "OPENAPI_SPEC_URL"
	KeySpecHeaders      = "OPENAPI_SPEC_HEADERS"
	KeySpecCacheDir     = "OPENAPI_CACHE_DIR"
	KeySpecCacheTTL     = "OPENAPI_CACHE_TTL"
	KeyDocsRenderer     = "DOCS_RENDERER"
	KeyDocsBaseURL      = "DOCS_BASE_URL"
	KeyTransport        = "MCP_TRANSPORT"
	KeyHTTPAddr         = "MCP_HTTP_ADDR"
	KeyProvider         = "EMBEDDINGS_PROVIDER"
	KeyModel            = "EMBEDDINGS_MODEL"
	KeyAPIKey           = "EMBEDDINGS_API_KEY"
	KeyBaseURL          = "EMBEDDINGS_BASE_URL"
	KeyDim              = "EMBEDDINGS_DIM"
	KeyEmbedCacheDir    = "EMBEDDINGS_CACHE_DIR"
	KeyEmbedCacheDriver = "EMBEDDINGS_CACHE_BACKEND"
	KeyMinSimilarity    = "SEARCH_MIN_SIMILARITY"
	KeyFallback         = "SEARCH_FALLBACK"
	KeyLogLevel         = "LOG_LEVEL"
)

// Transports.
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// Embedding providers understood by the CLI. ProviderNone disables
// semantic search.
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
	ProviderNone   = "none"
)

// Cache backends.
const (
	CacheFile   = "file"
	CacheSQLite = "sqlite"
)

// Lexical fallbacks.
const (
	FallbackSubstring = "substring"
	FallbackBM25      = "bm25"
)

// Config is the resolved server configuration.
type Config struct {
	SpecURL      string
	SpecHeaders  map[string]string
	SpecCacheDir string
	SpecCacheTTL time.Duration

	DocsRenderer string
	DocsBaseURL  string

	Transport string
	HTTPAddr  string

	EmbeddingsProvider string
	EmbeddingsModel    string
	EmbeddingsAPIKey   string
	EmbeddingsBaseURL  string
	EmbeddingsDim      int
	EmbedCacheDir      string
	EmbedCacheBackend  string

	MinSimilarity float64
	Fallback      string

	LogLevel string
}

// Options controls where Load reads values from.
type Options struct {
	// File is an optional YAML file of KEY: value pairs.
	File string

	// Getenv defaults to os.Getenv.
	Getenv func(string) string

	// DotEnvPaths defaults to DefaultDotEnvPaths(). Earlier files win.
	DotEnvPaths []string
}

// Load resolves every key and validates the result.
func Load(opts Options) (*Config, error) {
	src, err := newSource(opts)
	if err != nil {
		return nil, err
	}
	cfg, err := src.build()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerations and required keys.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.SpecURL) == "" {
		return ErrMissingSpecURL
	}
	switch c.Transport {
	case TransportStdio, TransportStreamableHTTP:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidTransport, c.Transport)
	}
	if err := oneOf(KeyProvider, c.EmbeddingsProvider, ProviderHash, ProviderOpenAI, ProviderNone); err != nil {
		return err
	}
	if err := oneOf(KeyEmbedCacheDriver, c.EmbedCacheBackend, CacheFile, CacheSQLite); err != nil {
		return err
	}
	if err := oneOf(KeyFallback, c.Fallback, FallbackSubstring, FallbackBM25); err != nil {
		return err
	}
	if c.MinSimilarity < 0 || c.MinSimilarity > 1 {
		return fmt.Errorf("%w: %s must be in [0, 1], got %v", ErrInvalidValue, KeyMinSimilarity, c.MinSimilarity)
	}
	if c.EmbeddingsDim < 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidValue, KeyDim)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: %s: %q", ErrInvalidValue, KeyLogLevel, c.LogLevel)
	}
	return lvl, nil
}

// SemanticEnabled reports whether an embedding provider is configured.
func (c *Config) SemanticEnabled() bool {
	return c.EmbeddingsProvider != ProviderNone
}

func oneOf(key, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s=%q (want %s)", ErrInvalidValue, key, v, strings.Join(allowed, "|"))
}

// source is the layered lookup: env, then dotenv files, then the YAML file.
type source struct {
	getenv func(string) string
	dotenv []map[string]string
	file   map[string]string
}

func newSource(opts Options) (*source, error) {
	s := &source{getenv: opts.Getenv}
	if s.getenv == nil {
		s.getenv = os.Getenv
	}

	paths := opts.DotEnvPaths
	if paths == nil {
		paths = DefaultDotEnvPaths()
	}
	for _, p := range paths {
		m, err := LoadDotEnv(p)
		if err != nil {
			return nil, err
		}
		s.dotenv = append(s.dotenv, m)
	}

	if opts.File != "" {
		m, err := loadFile(opts.File)
		if err != nil {
			return nil, err
		}
		s.file = m
	}
	return s, nil
}

func (s *source) get(key string) string {
	if v := s.getenv(key); v != "" {
		return v
	}
	for _, m := range s.dotenv {
		if v := m[key]; v != "" {
			return v
		}
	}
	return s.file[key]
}

func (s *source) getDefault(key, def string) string {
	if v := strings.TrimSpace(s.get(key)); v != "" {
		return v
	}
	return def
}

func (s *source) build() (*Config, error) {
	cfg := &Config{
		SpecURL:      strings.TrimSpace(s.get(KeySpecURL)),
		SpecCacheDir: s.get(KeySpecCacheDir),

		DocsRenderer: strings.ToLower(s.getDefault(KeyDocsRenderer, "scalar")),
		DocsBaseURL:  strings.TrimSpace(s.get(KeyDocsBaseURL)),

		Transport: strings.ToLower(s.getDefault(KeyTransport, TransportStdio)),
		HTTPAddr:  s.getDefault(KeyHTTPAddr, ":8080"),

		EmbeddingsProvider: strings.ToLower(s.getDefault(KeyProvider, ProviderHash)),
		EmbeddingsModel:    s.get(KeyModel),
		EmbeddingsAPIKey:   s.get(KeyAPIKey),
		EmbeddingsBaseURL:  s.getDefault(KeyBaseURL, "https://api.openai.com/v1"),
		EmbedCacheBackend:  strings.ToLower(s.getDefault(KeyEmbedCacheDriver, CacheFile)),

		Fallback: strings.ToLower(s.getDefault(KeyFallback, FallbackSubstring)),
		LogLevel: strings.ToLower(s.getDefault(KeyLogLevel, "info")),
	}

	var err error
	if cfg.SpecHeaders, err = openapi.ParseHeaders(s.get(KeySpecHeaders)); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidValue, KeySpecHeaders, err)
	}
	if cfg.SpecCacheTTL, err = time.ParseDuration(s.getDefault(KeySpecCacheTTL, "1h")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidValue, KeySpecCacheTTL, err)
	}
	if cfg.EmbeddingsDim, err = strconv.Atoi(s.getDefault(KeyDim, "384")); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidValue, KeyDim, err)
	}
	if cfg.MinSimilarity, err = strconv.ParseFloat(s.getDefault(KeyMinSimilarity, "0.5"), 64); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidValue, KeyMinSimilarity, err)
	}

	cfg.EmbedCacheDir = s.get(KeyEmbedCacheDir)
	if cfg.EmbedCacheDir == "" {
		root := s.getDefault("SENTENCE_TRANSFORMERS_HOME", "models")
		cfg.EmbedCacheDir = filepath.Join(root, "cache")
	}
	return cfg, nil
}

// loadFile reads a flat YAML mapping. Scalar values of any type are kept
// in their textual form.
func loadFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case nil:
		case map[string]any:
			// openapi_spec_headers may be written as a nested mapping.
			pairs := make([]string, 0, len(t))
			for name, value := range t {
				pairs = append(pairs, name+"="+fmt.Sprint(value))
			}
			sort.Strings(pairs)
			out[strings.ToUpper(k)] = strings.Join(pairs, ",")
		default:
			out[strings.ToUpper(k)] = fmt.Sprint(v)
		}
	}
	return out, nil
}
