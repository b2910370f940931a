package embedcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// DefaultLockTimeout bounds how long Store waits for another writer.
const DefaultLockTimeout = 5 * time.Second

// FileOptions configures a FileCache.
type FileOptions struct {
	// LockTimeout bounds the wait for the per-entry write lock.
	// Default: DefaultLockTimeout.
	LockTimeout time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// FileCache stores one file per key under a root directory:
//
//	<dir>/embeddings_<key>.f32
//
// Writes go to a temp file that is renamed into place while holding a
// flock on <path>.lock, so concurrent writers in other processes are safe.
type FileCache struct {
	dir         string
	lockTimeout time.Duration
	logger      *slog.Logger
}

var _ Cache = (*FileCache)(nil)

// NewFileCache creates dir if needed and returns a cache rooted there.
func NewFileCache(dir string, opts FileOptions) (*FileCache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create cache dir %s: %w", dir, err)
	}
	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FileCache{dir: dir, lockTimeout: timeout, logger: logger}, nil
}

// Dir returns the cache root.
func (c *FileCache) Dir() string { return c.dir }

// Path returns the file path used for key.
func (c *FileCache) Path(key string) string {
	return filepath.Join(c.dir, "embeddings_"+key+".f32")
}

// Load reads the entry for key. Missing, unreadable, and corrupt entries all
// report a miss.
func (c *FileCache) Load(_ context.Context, key string) (Matrix, bool) {
	if !ValidKey(key) {
		c.logger.Warn("embedding cache: invalid key", "key", key)
		return nil, false
	}
	path := c.Path(key)

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("embedding cache miss", "path", path)
		} else {
			c.logger.Warn("embedding cache unreadable", "path", path, "err", err)
		}
		return nil, false
	}

	m, err := Decode(b)
	if err != nil {
		c.logger.Warn("embedding cache corrupt", "path", path, "err", err)
		return nil, false
	}
	c.logger.Info("embedding cache hit", "path", path, "rows", m.Rows(), "dim", m.Dim())
	return m, true
}

// Store writes m under key. An existing entry is left untouched since a key
// always maps to the same content.
func (c *FileCache) Store(ctx context.Context, key string, m Matrix) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	b, err := Encode(m)
	if err != nil {
		return err
	}
	path := c.Path(key)

	unlock, err := c.lock(ctx, path+".lock")
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(path); err == nil {
		c.logger.Debug("embedding cache entry exists", "path", path)
		return nil
	}

	tmp, err := os.CreateTemp(c.dir, "embeddings_"+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("cannot create temp cache file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cannot write cache file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("cannot sync cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("cannot move cache file into place: %w", err)
	}

	c.logger.Info("embedding cache stored", "path", path, "rows", m.Rows(), "dim", m.Dim())
	return nil
}

func (c *FileCache) lock(ctx context.Context, lockPath string) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	defer cancel()

	l := flock.New(lockPath)
	locked, err := l.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("cannot acquire cache lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("cache lock %s is held by another writer", lockPath)
	}
	return func() { _ = l.Unlock() }, nil
}
