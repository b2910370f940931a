package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/apidiscovery/config"
	"github.com/jonwraymond/apidiscovery/discovery"
	"github.com/jonwraymond/apidiscovery/embedcache"
	"github.com/jonwraymond/apidiscovery/openapi"
	"github.com/jonwraymond/apidiscovery/provider"
	"github.com/jonwraymond/apidiscovery/registry"
	"github.com/jonwraymond/apidiscovery/search"
	"github.com/jonwraymond/apidiscovery/tooldoc"
)

// app is the composition root shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	disc    *discovery.Discovery
	reg     *registry.Registry
	closers []io.Closer
}

// loadConfig resolves config from env, dotenv, --config and flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(config.Options{File: path})
	if err != nil {
		return nil, err
	}

	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.LogLevel = f.Value.String()
	}
	if f := cmd.Flags().Lookup("transport"); f != nil && f.Changed {
		cfg.Transport = f.Value.String()
	}
	if f := cmd.Flags().Lookup("addr"); f != nil && f.Changed {
		cfg.HTTPAddr = f.Value.String()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads config and builds the app. Logs go to the command's stderr;
// stdout stays free for the stdio transport.
func setup(cmd *cobra.Command, version string) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, version, cmd.ErrOrStderr())
}

func newApp(cfg *config.Config, version string, logOut io.Writer) (*app, error) {
	lvl, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: lvl}))
	a := &app{cfg: cfg, logger: logger}

	fetcher := openapi.NewFetcher()
	fetcher.UserAgent = "apimcp/" + version
	fetcher.Headers = cfg.SpecHeaders
	loader := openapi.NewLoader(openapi.Options{
		Fetcher:  fetcher,
		CacheDir: cfg.SpecCacheDir,
		CacheTTL: cfg.SpecCacheTTL,
		Logger:   logger,
	})

	opts := discovery.Options{
		Load:          loader.Load,
		Decorate:      tooldoc.DocsLinks(tooldoc.Renderer(cfg.DocsRenderer), cfg.DocsBaseURL),
		MinSimilarity: discovery.Threshold(cfg.MinSimilarity),
		Logger:        logger,
	}
	if cfg.SemanticEnabled() {
		model, err := provider.Default().ModelLoader(cfg.EmbeddingsProvider, provider.Config{
			Model:   cfg.EmbeddingsModel,
			APIKey:  cfg.EmbeddingsAPIKey,
			BaseURL: cfg.EmbeddingsBaseURL,
			Dim:     cfg.EmbeddingsDim,
			Logger:  logger,
		})
		if err != nil {
			return nil, err
		}
		cache, err := a.openCache()
		if err != nil {
			return nil, err
		}
		opts.Model = model
		opts.Cache = cache
	}

	switch cfg.Fallback {
	case config.FallbackBM25:
		opts.Fallback = search.NewBM25Searcher(search.BM25Config{})
	default:
		opts.Fallback = search.NewSubstringSearcher()
	}

	disc, err := discovery.New(opts)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.disc = disc
	a.closers = append(a.closers, disc)

	a.reg = registry.New(disc, registry.Config{
		ServerInfo: registry.ServerInfo{Name: registry.DefaultServerName, Version: version},
		Logger:     logger,
	})
	return a, nil
}

// openCache returns the configured embedding cache. A cache that cannot be
// opened disables persistence rather than semantic search.
func (a *app) openCache() (embedcache.Cache, error) {
	dir := a.cfg.EmbedCacheDir
	switch a.cfg.EmbedCacheBackend {
	case config.CacheSQLite:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			a.logger.Warn("embedding cache unavailable", "dir", dir, "err", err)
			return embedcache.Nop{}, nil
		}
		c, err := embedcache.OpenSQLite(filepath.Join(dir, "embeddings.db"), a.logger)
		if err != nil {
			a.logger.Warn("embedding cache unavailable", "dir", dir, "err", err)
			return embedcache.Nop{}, nil
		}
		a.closers = append(a.closers, c)
		return c, nil
	case config.CacheFile:
		c, err := embedcache.NewFileCache(dir, embedcache.FileOptions{Logger: a.logger})
		if err != nil {
			a.logger.Warn("embedding cache unavailable", "dir", dir, "err", err)
			return embedcache.Nop{}, nil
		}
		return c, nil
	default:
		return nil, fmt.Errorf("%w: cache backend %q", config.ErrInvalidValue, a.cfg.EmbedCacheBackend)
	}
}

// Close releases everything newApp opened, newest first.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
