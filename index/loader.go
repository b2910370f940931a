package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Error values for loader operations.
var (
	ErrNotStarted = errors.New("index load not started")
	ErrLoadFailed = errors.New("index load failed")
	ErrNoLoadFunc = errors.New("load function is required")
)

// State is the lifecycle state of a Loader.
type State int32

const (
	StateNotStarted State = iota
	StateLoading
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// LoadFunc fetches, resolves and extracts an API description.
type LoadFunc func(ctx context.Context, sourceRef string) (Document, []Endpoint, error)

// DecorateFunc fills cosmetic fields (such as docs links) on a snapshot
// before it is published.
type DecorateFunc func(*Snapshot)

// LoaderOptions configures a Loader.
type LoaderOptions struct {
	// Load runs the fetch/resolve pipeline. Required.
	Load LoadFunc

	// Decorate is applied to the snapshot before publication. Optional.
	Decorate DecorateFunc

	// OnPublish runs in the load goroutine after the snapshot is published.
	// It is the hook that triggers semantic index initialization.
	OnPublish func(*Snapshot)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Loader produces exactly one Snapshot per lifetime, in the background.
type Loader struct {
	load      LoadFunc
	decorate  DecorateFunc
	onPublish func(*Snapshot)
	logger    *slog.Logger

	state atomic.Int32
	snap  atomic.Pointer[Snapshot]

	mu        sync.Mutex
	done      chan struct{}
	err       error
	sourceRef string
}

// NewLoader creates a Loader in the NotStarted state.
func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.Load == nil {
		return nil, ErrNoLoadFunc
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		load:      opts.Load,
		decorate:  opts.Decorate,
		onPublish: opts.OnPublish,
		logger:    logger,
		done:      make(chan struct{}),
	}, nil
}

// StartBackgroundLoad begins loading sourceRef in a new goroutine.
// Only the first call wins; later calls are no-ops. It reports whether this
// call started the load.
func (l *Loader) StartBackgroundLoad(sourceRef string) bool {
	if l.State() != StateNotStarted {
		return false
	}

	l.mu.Lock()
	if l.State() != StateNotStarted {
		l.mu.Unlock()
		return false
	}
	l.sourceRef = sourceRef
	l.state.Store(int32(StateLoading))
	l.mu.Unlock()

	go l.run(sourceRef)
	return true
}

// GetIndex returns the published snapshot, waiting for an in-flight load.
//
// ctx bounds only the wait; it never cancels the load itself.
func (l *Loader) GetIndex(ctx context.Context) (*Snapshot, error) {
	switch l.State() {
	case StateLoaded:
		return l.snap.Load(), nil
	case StateNotStarted:
		return nil, ErrNotStarted
	}

	select {
	case <-l.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	return l.snap.Load(), nil
}

// State returns the current lifecycle state.
func (l *Loader) State() State {
	return State(l.state.Load())
}

// Done is closed once the load finishes, successfully or not.
func (l *Loader) Done() <-chan struct{} {
	return l.done
}

// Err returns the recorded load failure, if any.
func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// SourceRef returns the reference passed to the winning StartBackgroundLoad.
func (l *Loader) SourceRef() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sourceRef
}

func (l *Loader) run(sourceRef string) {
	start := time.Now()
	snap, err := l.build(sourceRef)

	l.mu.Lock()
	if err != nil {
		l.err = fmt.Errorf("%w: %s: %w", ErrLoadFailed, sourceRef, err)
		l.state.Store(int32(StateFailed))
	} else {
		l.snap.Store(snap)
		l.state.Store(int32(StateLoaded))
	}
	close(l.done)
	l.mu.Unlock()

	if err != nil {
		l.logger.Error("api index load failed", "source", sourceRef, "err", err)
		return
	}
	l.logger.Info("api index loaded",
		"source", sourceRef,
		"endpoints", len(snap.Endpoints),
		"schemas", len(snap.Schemas),
		"elapsed", time.Since(start))

	if l.onPublish != nil {
		l.onPublish(snap)
	}
}

func (l *Loader) build(sourceRef string) (snap *Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap = nil
			err = fmt.Errorf("panic during load: %v", r)
		}
	}()

	doc, endpoints, err := l.load(context.Background(), sourceRef)
	if err != nil {
		return nil, err
	}

	snap = NewSnapshot(sourceRef, doc, endpoints)
	if l.decorate != nil {
		l.decorate(snap)
	}
	return snap, nil
}
