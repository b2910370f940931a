package openapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonwraymond/apidiscovery/index"
)

// DefaultCacheTTL is how long a cached resolved document stays fresh.
const DefaultCacheTTL = time.Hour

// specCache stores resolved documents on disk, one JSON file per source
// URL. Entries older than ttl are ignored.
type specCache struct {
	dir    string
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

type cacheEntry struct {
	SourceRef string         `json:"source_ref"`
	FetchedAt time.Time      `json:"fetched_at"`
	Document  index.Document `json:"document"`
}

func (c *specCache) path(ref string) string {
	sum := sha256.Sum256([]byte(ref))
	return filepath.Join(c.dir, "spec_"+hex.EncodeToString(sum[:])[:16]+".json")
}

// load returns a fresh cached document for ref. Missing, stale and corrupt
// entries are misses.
func (c *specCache) load(ref string) (index.Document, bool) {
	p := c.path(ref)
	b, err := os.ReadFile(p)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("spec cache read failed", "path", p, "err", err)
		}
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(b, &entry); err != nil || entry.Document == nil || entry.SourceRef != ref {
		c.logger.Warn("spec cache entry is corrupt, ignoring", "path", p)
		return nil, false
	}
	if age := c.now().Sub(entry.FetchedAt); age > c.ttl {
		c.logger.Debug("spec cache entry is stale", "path", p, "age", age)
		return nil, false
	}
	return entry.Document, true
}

// store writes doc atomically. Failures are logged and otherwise ignored.
func (c *specCache) store(ref string, doc index.Document) {
	if err := c.write(ref, doc); err != nil {
		c.logger.Warn("spec cache write failed", "source", ref, "err", err)
	}
}

func (c *specCache) write(ref string, doc index.Document) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	b, err := json.Marshal(cacheEntry{SourceRef: ref, FetchedAt: c.now().UTC(), Document: doc})
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(c.dir, ".spec-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, c.path(ref))
}
