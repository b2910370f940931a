package provider

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/jonwraymond/apidiscovery/semantic"
)

// Error values for consistent error handling by callers.
var (
	ErrNotFound          = errors.New("provider not found")
	ErrInvalidProvider   = errors.New("invalid provider")
	ErrInvalidProviderID = errors.New("invalid provider id")
)

// Config carries the settings a provider factory may read.
type Config struct {
	Model   string
	APIKey  string
	BaseURL string
	// Dim is the output dimension for providers that choose it.
	Dim int

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Factory turns a Config into a lazy model loader. Factories must not do
// network or disk work; that belongs in the returned loader.
type Factory func(cfg Config) semantic.ModelLoader

// Provider describes one embedding backend.
type Provider struct {
	Name        string
	Version     string
	Description string
	Factory     Factory
}

// Store defines provider discovery operations.
type Store interface {
	// RegisterProvider registers a provider and returns its resolved ID.
	RegisterProvider(id string, provider Provider) (string, error)
	// DescribeProvider returns a provider by ID.
	DescribeProvider(id string) (Provider, error)
	// ListProviders returns all registered providers in stable order.
	ListProviders() ([]Provider, error)
}

// InMemoryStore stores providers in memory.
type InMemoryStore struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates a new provider store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		providers: make(map[string]Provider),
	}
}

// Default returns a store with the built-in "hash" and "openai" providers.
func Default() *InMemoryStore {
	s := NewInMemoryStore()
	_, _ = s.RegisterProvider(HashName, Provider{
		Name:        HashName,
		Version:     "1",
		Description: "offline feature-hashing bag-of-words embeddings",
		Factory:     hashFactory,
	})
	_, _ = s.RegisterProvider(OpenAIName, Provider{
		Name:        OpenAIName,
		Version:     "1",
		Description: "OpenAI-compatible /embeddings endpoint",
		Factory:     openAIFactory,
	})
	return s
}

// ProviderID returns a stable provider ID from name/version.
func ProviderID(name, version string) string {
	if name == "" {
		return ""
	}
	if version == "" {
		return name
	}
	return name + ":" + version
}

// RegisterProvider registers a provider and returns its resolved ID.
func (s *InMemoryStore) RegisterProvider(id string, provider Provider) (string, error) {
	if provider.Name == "" || provider.Factory == nil {
		return "", ErrInvalidProvider
	}
	if id == "" {
		id = ProviderID(provider.Name, provider.Version)
	}
	if id == "" {
		return "", ErrInvalidProviderID
	}

	s.mu.Lock()
	s.providers[id] = provider
	s.mu.Unlock()

	return id, nil
}

// DescribeProvider returns a provider by ID.
func (s *InMemoryStore) DescribeProvider(id string) (Provider, error) {
	if id == "" {
		return Provider{}, ErrInvalidProviderID
	}

	s.mu.RLock()
	provider, ok := s.providers[id]
	s.mu.RUnlock()

	if !ok {
		return Provider{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return provider, nil
}

// ListProviders returns all registered providers in stable order.
func (s *InMemoryStore) ListProviders() ([]Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.providers))
	for id := range s.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make([]Provider, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.providers[id])
	}
	return result, nil
}

// ModelLoader resolves id and builds its loader from cfg.
func (s *InMemoryStore) ModelLoader(id string, cfg Config) (semantic.ModelLoader, error) {
	p, err := s.DescribeProvider(id)
	if err != nil {
		return nil, err
	}
	return p.Factory(cfg), nil
}
