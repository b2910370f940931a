package embedcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS embedding_cache (
    cache_key  TEXT PRIMARY KEY,
    rows       INTEGER NOT NULL,
    dim        INTEGER NOT NULL,
    matrix     BLOB NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// SQLiteCache keeps every matrix as one row of a SQLite table. It suits
// deployments that prefer a single cache file over a directory of entries.
type SQLiteCache struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Cache = (*SQLiteCache)(nil)

// OpenSQLite opens (or creates) a SQLite database at dsn and ensures the
// cache table exists. Pass ":memory:" for an ephemeral cache.
func OpenSQLite(dsn string, logger *slog.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open sqlite cache %s: %w", dsn, err)
	}
	if dsn == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	c, err := NewSQLiteCache(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// NewSQLiteCache wraps an existing database handle.
func NewSQLiteCache(db *sql.DB, logger *slog.Logger) (*SQLiteCache, error) {
	if db == nil {
		return nil, errors.New("embedcache: db is nil")
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, fmt.Errorf("cannot create cache table: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteCache{db: db, logger: logger}, nil
}

// Load returns the matrix stored under key.
func (c *SQLiteCache) Load(ctx context.Context, key string) (Matrix, bool) {
	if !ValidKey(key) {
		c.logger.Warn("embedding cache: invalid key", "key", key)
		return nil, false
	}

	var blob []byte
	err := c.db.QueryRowContext(ctx, `SELECT matrix FROM embedding_cache WHERE cache_key = ?`, key).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.logger.Debug("embedding cache miss", "key", key)
		} else {
			c.logger.Warn("embedding cache unreadable", "key", key, "err", err)
		}
		return nil, false
	}

	m, err := Decode(blob)
	if err != nil {
		c.logger.Warn("embedding cache corrupt", "key", key, "err", err)
		return nil, false
	}
	c.logger.Info("embedding cache hit", "key", key, "rows", m.Rows(), "dim", m.Dim())
	return m, true
}

// Store inserts m under key. Existing rows are kept.
func (c *SQLiteCache) Store(ctx context.Context, key string, m Matrix) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	blob, err := Encode(m)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO embedding_cache(cache_key, rows, dim, matrix) VALUES(?, ?, ?, ?)`,
		key, m.Rows(), m.Dim(), blob)
	if err != nil {
		return fmt.Errorf("cannot store cache entry %s: %w", key, err)
	}
	c.logger.Info("embedding cache stored", "key", key, "rows", m.Rows(), "dim", m.Dim())
	return nil
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
