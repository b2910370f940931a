package discovery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/jonwraymond/apidiscovery/embedcache"
	"github.com/jonwraymond/apidiscovery/index"
	"github.com/jonwraymond/apidiscovery/search"
	"github.com/jonwraymond/apidiscovery/semantic"
	"github.com/jonwraymond/apidiscovery/tooldoc"
)

// Error values for discovery operations.
var (
	ErrNotFound = errors.New("not found")
)

// DefaultMinSimilarity is the cosine threshold for semantic results.
const DefaultMinSimilarity = 0.5

// Threshold returns a pointer to v for Options.MinSimilarity.
func Threshold(v float64) *float64 {
	return &v
}

// Options configures a Discovery instance.
type Options struct {
	// Load runs the fetch/resolve pipeline. Required.
	Load index.LoadFunc

	// Decorate fills docs links before the snapshot is published. Optional.
	Decorate index.DecorateFunc

	// Model enables semantic search when provided.
	// If nil, every query uses Fallback.
	Model semantic.ModelLoader

	// Cache persists corpus embeddings. Default: embedcache.Nop.
	Cache embedcache.Cache

	// Fallback answers queries when semantic search is disabled or
	// unavailable. Default: search.SubstringSearcher.
	Fallback search.Searcher

	// MinSimilarity is the semantic score threshold in [0, 1].
	// Default: DefaultMinSimilarity when nil. See Threshold.
	MinSimilarity *float64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Discovery is the query facade over one API description.
// It combines the loader, the semantic index and the lexical fallback.
type Discovery struct {
	loader        *index.Loader
	model         semantic.ModelLoader
	cache         embedcache.Cache
	fallback      search.Searcher
	minSimilarity float64
	logger        *slog.Logger

	mu  sync.Mutex
	sem *semantic.Index
}

// New creates a Discovery instance. Nothing is loaded until Start.
func New(opts Options) (*Discovery, error) {
	minSim := DefaultMinSimilarity
	if opts.MinSimilarity != nil {
		minSim = *opts.MinSimilarity
	}
	if math.IsNaN(minSim) || minSim < 0 || minSim > 1 {
		return nil, fmt.Errorf("%w: minSimilarity must be in [0, 1], got %v", semantic.ErrInvalidArgument, minSim)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = search.NewSubstringSearcher()
	}

	d := &Discovery{
		model:         opts.Model,
		cache:         opts.Cache,
		fallback:      fallback,
		minSimilarity: minSim,
		logger:        logger,
	}

	loader, err := index.NewLoader(index.LoaderOptions{
		Load:      opts.Load,
		Decorate:  opts.Decorate,
		OnPublish: d.onPublish,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	d.loader = loader
	return d, nil
}

// Start begins loading sourceRef in the background. Only the first call has
// an effect; it reports whether this call started the load.
func (d *Discovery) Start(sourceRef string) bool {
	return d.loader.StartBackgroundLoad(sourceRef)
}

// Loader returns the underlying index loader.
func (d *Discovery) Loader() *index.Loader {
	return d.loader
}

// Snapshot waits for the published snapshot.
func (d *Discovery) Snapshot(ctx context.Context) (*index.Snapshot, error) {
	return d.loader.GetIndex(ctx)
}

func (d *Discovery) onPublish(snap *index.Snapshot) {
	if ix := d.semanticIndex(snap); ix != nil {
		ix.TriggerBackgroundInit()
	}
}

// semanticIndex returns the semantic index for snap, creating it on first use.
// It is nil when no model is configured.
func (d *Discovery) semanticIndex(snap *index.Snapshot) *semantic.Index {
	if d.model == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sem == nil {
		ix, err := semantic.New(snap.Endpoints, semantic.Options{
			Model:  d.model,
			Cache:  d.cache,
			Logger: d.logger,
		})
		if err != nil {
			d.logger.Error("semantic index disabled", "err", err)
			return nil
		}
		d.sem = ix
	}
	return d.sem
}

// ListEndpoints returns endpoints carrying tag (when non-empty) whose
// haystack contains needle (when non-empty), in corpus order.
func (d *Discovery) ListEndpoints(ctx context.Context, tag, needle string) ([]index.Endpoint, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := []index.Endpoint{}
	for _, ep := range snap.Endpoints {
		if tag != "" && !ep.HasTag(tag) {
			continue
		}
		if !search.Contains(ep, needle) {
			continue
		}
		out = append(out, ep)
	}
	return out, nil
}

// EndpointDetails describes the endpoint identified by method and path.
func (d *Discovery) EndpointDetails(ctx context.Context, method, path string, level tooldoc.DetailLevel) (tooldoc.EndpointDoc, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return tooldoc.EndpointDoc{}, err
	}
	ep, ok := snap.Endpoint(strings.TrimSpace(method), path)
	if !ok {
		return tooldoc.EndpointDoc{}, fmt.Errorf("%w: endpoint %s", ErrNotFound, index.EndpointKey(method, path))
	}
	return tooldoc.DescribeEndpoint(ep, level)
}

// SchemaDefinition is a named component schema.
type SchemaDefinition struct {
	Name    string         `json:"name"`
	Schema  map[string]any `json:"schema"`
	DocsURL string         `json:"docs_url,omitempty"`
}

// Schema returns the component schema called name.
func (d *Discovery) Schema(ctx context.Context, name string) (SchemaDefinition, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return SchemaDefinition{}, err
	}
	schema, ok := snap.Schema(name)
	if !ok {
		return SchemaDefinition{}, fmt.Errorf("%w: schema %q", ErrNotFound, name)
	}
	return SchemaDefinition{
		Name:    name,
		Schema:  schema,
		DocsURL: snap.SchemaDocsURLs[name],
	}, nil
}

// ListTags returns every tag with its endpoint count, sorted by tag.
func (d *Discovery) ListTags(ctx context.Context) ([]index.TagCount, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Tags(), nil
}

// Spec returns the full resolved document.
func (d *Discovery) Spec(ctx context.Context) (index.Document, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Document, nil
}

// Warm waits for the snapshot and for semantic initialization, so the next
// query is served from memory. It returns the resulting semantic state.
func (d *Discovery) Warm(ctx context.Context) (semantic.Info, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return semantic.Info{}, err
	}
	ix := d.semanticIndex(snap)
	if ix == nil {
		return semantic.Info{Endpoints: len(snap.Endpoints)}, nil
	}
	if err := ix.EnsureReady(ctx); err != nil {
		return semantic.Info{}, err
	}
	return ix.Info(), nil
}

// Close releases the fallback searcher if it holds resources.
func (d *Discovery) Close() error {
	if c, ok := d.fallback.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
