package openapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds a single HTTP fetch.
const DefaultFetchTimeout = 30 * time.Second

// maxDocumentSize caps how much of a response body is read.
const maxDocumentSize = 64 << 20

// Fetcher reads API description documents from http(s) URLs, file:// URLs
// or local paths.
type Fetcher struct {
	Client    *http.Client
	UserAgent string

	// Headers are added to every HTTP request, e.g. an Authorization
	// header for a private spec host.
	Headers map[string]string
}

// NewFetcher returns a Fetcher with a timeout-bounded HTTP client.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:    &http.Client{Timeout: DefaultFetchTimeout},
		UserAgent: "apidiscovery",
	}
}

// Fetch returns the raw bytes behind ref.
func (f *Fetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	kind, target, err := classify(ref)
	if err != nil {
		return nil, err
	}
	switch kind {
	case refHTTP:
		return f.fetchHTTP(ctx, target)
	default:
		b, err := os.ReadFile(target)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetch, ref, err)
		}
		return b, nil
	}
}

func (f *Fetcher) fetchHTTP(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, u, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	for k, v := range f.Headers {
		req.Header.Set(k, v)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, u, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, u, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrFetch, u, resp.StatusCode)
	}
	return body, nil
}

// ParseHeaders parses "Name=Value,Name2=Value2" into a header map. Blank
// entries are skipped.
func ParseHeaders(s string) (map[string]string, error) {
	out := map[string]string{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q: want Name=Value", part)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}

type refKind int

const (
	refHTTP refKind = iota
	refFile
)

// classify maps ref to a fetchable target: a URL for http(s), a filesystem
// path otherwise.
func classify(ref string) (refKind, string, error) {
	if ref == "" {
		return 0, "", fmt.Errorf("%w: empty reference", ErrUnsupportedScheme)
	}
	u, err := url.Parse(ref)
	if err != nil || u.Scheme == "" || isWindowsDrive(u.Scheme) {
		return refFile, ref, nil
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return refHTTP, ref, nil
	case "file":
		p := u.Path
		if u.Host != "" && u.Host != "localhost" {
			p = "//" + u.Host + p
		}
		return refFile, filepath.FromSlash(p), nil
	default:
		return 0, "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func isWindowsDrive(scheme string) bool {
	return len(scheme) == 1
}

// joinRef resolves a (possibly relative) document reference against the
// document it appears in.
func joinRef(base, ref string) (string, error) {
	if ref == "" {
		return base, nil
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && !isWindowsDrive(u.Scheme) {
		return ref, nil
	}
	kind, _, err := classify(base)
	if err != nil {
		return "", err
	}
	if kind == refHTTP || strings.HasPrefix(strings.ToLower(base), "file:") {
		bu, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrUnresolvedRef, base)
		}
		ru, err := url.Parse(ref)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrUnresolvedRef, ref)
		}
		return bu.ResolveReference(ru).String(), nil
	}
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref), nil
	}
	return filepath.Join(filepath.Dir(base), filepath.FromSlash(ref)), nil
}
