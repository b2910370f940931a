package semantic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonwraymond/apidiscovery/embedcache"
	"github.com/jonwraymond/apidiscovery/index"
)

// State is the lifecycle state of an Index.
type State int32

const (
	StateNotStarted State = iota
	StateInitializing
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures an Index.
type Options struct {
	// Model loads the embedding model on first use. Required.
	Model ModelLoader

	// Cache persists the corpus embedding matrix. Default: embedcache.Nop.
	Cache embedcache.Cache

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Info is a point-in-time view of an Index for status reporting.
type Info struct {
	State     State
	Endpoints int
	Dim       int
	CacheKey  string
	CacheHit  bool
	Err       error
}

// Index answers similarity queries over a fixed endpoint corpus.
//
// The model load and corpus encoding happen at most once, either on the
// first EnsureReady/Search call or after TriggerBackgroundInit. A failed
// initialization leaves the index Unavailable for its lifetime.
type Index struct {
	endpoints []index.Endpoint
	texts     []string
	key       string
	order     []int
	loadModel ModelLoader
	cache     embedcache.Cache
	logger    *slog.Logger

	state atomic.Int32
	done  chan struct{}

	// Written once under mu before state becomes Ready; read-only afterwards.
	mu       sync.Mutex
	model    Embedder
	matrix   embedcache.Matrix
	cacheHit bool
	err      error
}

// New builds an Index over endpoints. No model work happens until the index
// is first used.
func New(endpoints []index.Endpoint, opts Options) (*Index, error) {
	if opts.Model == nil {
		return nil, ErrInvalidEmbedder
	}
	cache := opts.Cache
	if cache == nil {
		cache = embedcache.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	texts := SearchTexts(endpoints)
	return &Index{
		endpoints: endpoints,
		texts:     texts,
		key:       embedcache.Key(texts),
		order:     embedcache.Order(texts),
		loadModel: opts.Model,
		cache:     cache,
		logger:    logger,
		done:      make(chan struct{}),
	}, nil
}

// State returns the current lifecycle state.
func (ix *Index) State() State {
	return State(ix.state.Load())
}

// Available reports whether similarity search is usable right now.
func (ix *Index) Available() bool {
	return ix.State() == StateReady
}

// CacheKey returns the content address of the corpus.
func (ix *Index) CacheKey() string {
	return ix.key
}

// Done is closed once initialization finishes, successfully or not.
func (ix *Index) Done() <-chan struct{} {
	return ix.done
}

// Info returns a snapshot of the index state.
func (ix *Index) Info() Info {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return Info{
		State:     ix.State(),
		Endpoints: len(ix.endpoints),
		Dim:       ix.matrix.Dim(),
		CacheKey:  ix.key,
		CacheHit:  ix.cacheHit,
		Err:       ix.err,
	}
}

// TriggerBackgroundInit starts initialization in a new goroutine if it has
// not started yet. It never blocks and reports whether it started the work.
func (ix *Index) TriggerBackgroundInit() bool {
	if !ix.claim() {
		return false
	}
	go ix.initialize()
	return true
}

// EnsureReady makes sure initialization has run to completion.
//
// When the index is NotStarted the caller runs initialization itself. When
// it is Initializing the caller waits for the in-flight run; ctx bounds only
// that wait. The only errors returned are ctx errors: initialization
// failures move the index to Unavailable instead.
func (ix *Index) EnsureReady(ctx context.Context) error {
	switch ix.State() {
	case StateReady, StateUnavailable:
		return nil
	}

	if ix.claim() {
		ix.initialize()
		return nil
	}

	select {
	case <-ix.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// claim wins the NotStarted -> Initializing transition for exactly one caller.
func (ix *Index) claim() bool {
	if ix.State() != StateNotStarted {
		return false
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.State() != StateNotStarted {
		return false
	}
	ix.state.Store(int32(StateInitializing))
	return true
}

func (ix *Index) initialize() {
	start := time.Now()
	model, matrix, hit, err := ix.build(context.Background())

	ix.mu.Lock()
	if err != nil {
		ix.err = err
		ix.state.Store(int32(StateUnavailable))
	} else {
		ix.model = model
		ix.matrix = matrix
		ix.cacheHit = hit
		ix.state.Store(int32(StateReady))
	}
	close(ix.done)
	ix.mu.Unlock()

	if err != nil {
		ix.logger.Warn("semantic search unavailable", "endpoints", len(ix.endpoints), "err", err)
		return
	}
	ix.logger.Info("semantic search ready",
		"endpoints", len(ix.endpoints),
		"dim", matrix.Dim(),
		"cache_key", ix.key,
		"cache_hit", hit,
		"elapsed", time.Since(start))
}

func (ix *Index) build(ctx context.Context) (model Embedder, matrix embedcache.Matrix, hit bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			model, matrix, hit = nil, nil, false
			err = fmt.Errorf("panic during semantic init: %v", r)
		}
	}()

	if len(ix.endpoints) == 0 {
		return nil, nil, false, nil
	}

	model, err = ix.loadModel(ctx)
	if err != nil {
		return nil, nil, false, fmt.Errorf("load model: %w", err)
	}
	if model == nil {
		return nil, nil, false, ErrInvalidEmbedder
	}

	// Cached rows are in sorted-text order, which is shared by every
	// permutation of the corpus that maps to the same key.
	if cached, ok := ix.cache.Load(ctx, ix.key); ok {
		if cached.Rows() == len(ix.endpoints) && cached.Validate() == nil {
			return model, normalizeRows(cached.Unsorted(ix.order)), true, nil
		}
		ix.logger.Warn("embedding cache entry does not match corpus, recomputing",
			"cache_key", ix.key, "rows", cached.Rows(), "endpoints", len(ix.endpoints))
	}

	rows, err := model.EmbedBatch(ctx, ix.texts)
	if err != nil {
		return nil, nil, false, fmt.Errorf("encode corpus: %w", err)
	}
	computed := embedcache.Matrix(rows)
	if computed.Rows() != len(ix.texts) {
		return nil, nil, false, fmt.Errorf("%w: got %d rows for %d texts",
			ErrDimensionMismatch, computed.Rows(), len(ix.texts))
	}
	if err := computed.Validate(); err != nil {
		return nil, nil, false, fmt.Errorf("%w: %w", ErrDimensionMismatch, err)
	}

	if err := ix.cache.Store(ctx, ix.key, computed.Sorted(ix.order)); err != nil {
		ix.logger.Warn("embedding cache store failed", "cache_key", ix.key, "err", err)
	}
	return model, normalizeRows(computed), false, nil
}

// degrade moves a Ready index to Unavailable after a query-time model
// failure. Only the first failure is recorded.
func (ix *Index) degrade(err error) {
	if !ix.state.CompareAndSwap(int32(StateReady), int32(StateUnavailable)) {
		return
	}
	ix.mu.Lock()
	ix.err = err
	ix.mu.Unlock()
	ix.logger.Warn("semantic search disabled after query failure", "err", err)
}
