package embedcache

import (
	"context"
	"errors"
)

// Error values for cache operations.
var (
	ErrCorruptEntry = errors.New("corrupt cache entry")
	ErrInvalidKey   = errors.New("invalid cache key")
	ErrEmptyMatrix  = errors.New("empty matrix")
)

// Cache is a content-addressed store of embedding matrices.
//
// Load never fails the caller: unreadable or corrupt entries are logged by
// the implementation and reported as absent. Store errors are non-fatal for
// callers, which already hold the matrix in memory.
type Cache interface {
	Load(ctx context.Context, key string) (Matrix, bool)
	Store(ctx context.Context, key string, m Matrix) error
}

// Nop is a Cache that never hits and discards stores.
type Nop struct{}

// Load always reports a miss.
func (Nop) Load(context.Context, string) (Matrix, bool) { return nil, false }

// Store discards m.
func (Nop) Store(context.Context, string, Matrix) error { return nil }

var _ Cache = Nop{}
