package search

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/jonwraymond/apidiscovery/index"
)

// ErrClosed is returned by Search after Close.
var ErrClosed = errors.New("searcher is closed")

// BM25Config tunes field boosts and safety limits.
type BM25Config struct {
	// PathBoost weights path matches. Default: 3.
	PathBoost float64
	// SummaryBoost weights summary matches. Default: 2.
	SummaryBoost float64
	// OperationIDBoost weights operationId matches. Default: 2.
	OperationIDBoost float64
	// TagsBoost weights tag matches. Default: 2.
	TagsBoost float64
	// DescriptionBoost weights description matches. Default: 1.
	DescriptionBoost float64

	// MaxDocs caps how many endpoints are indexed. 0 means unlimited.
	MaxDocs int
	// MaxDescriptionLen truncates long descriptions. 0 means unlimited.
	MaxDescriptionLen int
}

func (c BM25Config) withDefaults() BM25Config {
	if c.PathBoost <= 0 {
		c.PathBoost = 3
	}
	if c.SummaryBoost <= 0 {
		c.SummaryBoost = 2
	}
	if c.OperationIDBoost <= 0 {
		c.OperationIDBoost = 2
	}
	if c.TagsBoost <= 0 {
		c.TagsBoost = 2
	}
	if c.DescriptionBoost <= 0 {
		c.DescriptionBoost = 1
	}
	return c
}

// BM25Searcher ranks endpoints with Bleve's BM25 scoring over an in-memory
// index. The index is built on first use and rebuilt only when the endpoint
// set changes.
type BM25Searcher struct {
	cfg BM25Config

	mu          sync.RWMutex
	idx         bleve.Index
	fingerprint string
	indexed     int
	closed      bool
}

var _ Searcher = (*BM25Searcher)(nil)

// NewBM25Searcher returns a BM25Searcher. Zero config fields take defaults.
func NewBM25Searcher(cfg BM25Config) *BM25Searcher {
	return &BM25Searcher{cfg: cfg.withDefaults()}
}

// Name returns "bm25".
func (s *BM25Searcher) Name() string { return "bm25" }

// Search ranks endpoints by BM25 score, breaking ties by corpus position.
// An empty query returns the first limit endpoints in order.
func (s *BM25Searcher) Search(ctx context.Context, q string, limit int, endpoints []index.Endpoint) ([]Hit, error) {
	if limit <= 0 || limit > len(endpoints) {
		limit = len(endpoints)
	}
	q = strings.TrimSpace(q)
	if q == "" {
		hits := make([]Hit, limit)
		for i := range hits {
			hits[i] = Hit{Position: i}
		}
		return hits, nil
	}

	res, err := s.query(ctx, q, endpoints)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return []Hit{}, nil
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, m := range res.Hits {
		pos, err := strconv.Atoi(m.ID)
		if err != nil || pos < 0 || pos >= len(endpoints) {
			continue
		}
		hits = append(hits, Hit{Position: pos, Score: m.Score})
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close releases the Bleve index. Search fails with ErrClosed afterwards.
func (s *BM25Searcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.idx == nil {
		return nil
	}
	err := s.idx.Close()
	s.idx = nil
	return err
}

func (s *BM25Searcher) buildQuery(q string) query.Query {
	field := func(name string, boost float64) query.Query {
		mq := bleve.NewMatchQuery(q)
		mq.SetField(name)
		mq.SetBoost(boost)
		return mq
	}
	return bleve.NewDisjunctionQuery(
		field("path", s.cfg.PathBoost),
		field("summary", s.cfg.SummaryBoost),
		field("operation_id", s.cfg.OperationIDBoost),
		field("tags", s.cfg.TagsBoost),
		field("description", s.cfg.DescriptionBoost),
	)
}

// query runs q against the index for endpoints, rebuilding the index first
// when the endpoint set changed. The search itself runs under the read lock
// so a concurrent rebuild cannot close the index mid-query.
func (s *BM25Searcher) query(ctx context.Context, q string, endpoints []index.Endpoint) (*bleve.SearchResult, error) {
	fp := computeFingerprint(endpoints)

	for attempt := 0; attempt < 3; attempt++ {
		s.mu.RLock()
		if s.closed {
			s.mu.RUnlock()
			return nil, ErrClosed
		}
		if s.idx != nil && s.fingerprint == fp {
			if s.indexed == 0 {
				s.mu.RUnlock()
				return nil, nil
			}
			req := bleve.NewSearchRequestOptions(s.buildQuery(q), s.indexed, 0, false)
			res, err := s.idx.SearchInContext(ctx, req)
			s.mu.RUnlock()
			if err != nil {
				return nil, fmt.Errorf("bm25 search: %w", err)
			}
			return res, nil
		}
		s.mu.RUnlock()

		if err := s.rebuild(endpoints, fp); err != nil {
			return nil, err
		}
	}
	return nil, errors.New("bm25 index kept changing during search")
}

func (s *BM25Searcher) rebuild(endpoints []index.Endpoint, fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.idx != nil && s.fingerprint == fp {
		return nil
	}

	idx, n, err := s.build(endpoints)
	if err != nil {
		return err
	}
	if s.idx != nil {
		_ = s.idx.Close()
	}
	s.idx, s.fingerprint, s.indexed = idx, fp, n
	return nil
}

func (s *BM25Searcher) build(endpoints []index.Endpoint) (bleve.Index, int, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, 0, fmt.Errorf("bm25 index: %w", err)
	}

	n := len(endpoints)
	if s.cfg.MaxDocs > 0 && n > s.cfg.MaxDocs {
		n = s.cfg.MaxDocs
	}

	batch := idx.NewBatch()
	for i := 0; i < n; i++ {
		ep := endpoints[i]
		desc := truncate(ep.Description, s.cfg.MaxDescriptionLen)
		doc := map[string]any{
			"path":         ep.Path,
			"method":       ep.Method,
			"summary":      ep.Summary,
			"description":  desc,
			"operation_id": splitIdentifier(ep.OperationID),
			"tags":         strings.Join(ep.Tags, " "),
		}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			_ = idx.Close()
			return nil, 0, fmt.Errorf("bm25 index endpoint %s: %w", ep.Key(), err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, 0, fmt.Errorf("bm25 index batch: %w", err)
	}
	return idx, n, nil
}

// splitIdentifier turns camelCase and snake_case identifiers into words so
// "createUser" matches a query for "create user".
func splitIdentifier(id string) string {
	var b strings.Builder
	b.Grow(len(id) + 8)
	for i, r := range id {
		switch {
		case r == '_' || r == '-' || r == '.':
			b.WriteByte(' ')
			continue
		case r >= 'A' && r <= 'Z' && i > 0:
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
// n <= 0 means no limit.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
