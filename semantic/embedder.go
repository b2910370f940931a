package semantic

import (
	"context"
	"errors"
)

// Error values for semantic index operations.
var (
	// ErrInvalidArgument is returned by Search for a non-positive topK or a
	// similarity threshold outside [0, 1].
	ErrInvalidArgument = errors.New("invalid search argument")

	// ErrInvalidEmbedder is returned when no model loader is configured or
	// the loader yields a nil Embedder.
	ErrInvalidEmbedder = errors.New("embedder is required")

	// ErrDimensionMismatch reports a model output whose shape does not match
	// its input or the stored matrix.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Embedder generates one fixed-length vector per input text.
//
// Implementations must be safe for concurrent use and return rows in input
// order.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderFunc adapts a function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, texts []string) ([][]float32, error)

// EmbedBatch calls f.
func (f EmbedderFunc) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

// ModelLoader produces the Embedder lazily. Loading may be slow (model
// download, warm-up); it runs at most once per Index.
type ModelLoader func(ctx context.Context) (Embedder, error)

// StaticModel returns a ModelLoader that always yields e.
func StaticModel(e Embedder) ModelLoader {
	return func(context.Context) (Embedder, error) { return e, nil }
}
