package openapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonwraymond/apidiscovery/index"
)

// Options configures a Loader.
type Options struct {
	// Fetcher reads the root and any external documents. Defaults to
	// NewFetcher().
	Fetcher *Fetcher

	// CacheDir enables the resolved-document cache for http(s) sources.
	// Empty disables it.
	CacheDir string

	// CacheTTL defaults to DefaultCacheTTL.
	CacheTTL time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Loader runs fetch, parse, validate, resolve and extract for one source.
// Its Load method satisfies index.LoadFunc.
type Loader struct {
	fetcher *Fetcher
	cache   *specCache
	logger  *slog.Logger
}

var _ index.LoadFunc = Load

// NewLoader creates a Loader.
func NewLoader(opts Options) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher()
	}
	l := &Loader{fetcher: fetcher, logger: logger}
	if opts.CacheDir != "" {
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		l.cache = &specCache{dir: opts.CacheDir, ttl: ttl, logger: logger, now: time.Now}
	}
	return l
}

// Load returns the resolved document behind ref and its endpoints.
func (l *Loader) Load(ctx context.Context, ref string) (index.Document, []index.Endpoint, error) {
	kind, _, err := classify(ref)
	if err != nil {
		return nil, nil, err
	}
	cacheable := l.cache != nil && kind == refHTTP

	if cacheable {
		if doc, ok := l.cache.load(ref); ok {
			l.logger.Info("loaded api description from cache", "source", ref)
			return doc, Extract(doc), nil
		}
	}

	start := time.Now()
	b, err := l.fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	raw, err := Parse(b)
	if err != nil {
		return nil, nil, err
	}
	if err := Validate(raw); err != nil {
		return nil, nil, err
	}
	doc, err := NewResolver(l.fetcher).Resolve(ctx, ref, raw)
	if err != nil {
		return nil, nil, err
	}
	endpoints := Extract(doc)
	l.logger.Debug("resolved api description",
		"source", ref,
		"bytes", len(b),
		"endpoints", len(endpoints),
		"elapsed", time.Since(start))

	if cacheable {
		l.cache.store(ref, doc)
	}
	return doc, endpoints, nil
}

// Load fetches and resolves ref with default options.
func Load(ctx context.Context, ref string) (index.Document, []index.Endpoint, error) {
	return NewLoader(Options{}).Load(ctx, ref)
}
