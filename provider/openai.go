package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jonwraymond/apidiscovery/semantic"
)

// OpenAIName is the registry ID of the OpenAI-compatible provider.
const OpenAIName = "openai"

// DefaultOpenAIBaseURL is used when Config.BaseURL is empty.
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// DefaultOpenAIMaxBatch caps the number of inputs per request.
const DefaultOpenAIMaxBatch = 256

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint:
//
//	POST {baseURL}/embeddings
//	{"model": "...", "input": ["...", "..."]}
type OpenAIEmbedder struct {
	model    string
	apiKey   string
	baseURL  string
	client   *http.Client
	maxBatch int
	logger   *slog.Logger
}

var _ semantic.Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAI validates cfg and returns an embedder.
func NewOpenAI(cfg Config) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, errors.New("embeddings model is not configured (set EMBEDDINGS_MODEL)")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("embeddings API key is not configured (set EMBEDDINGS_API_KEY)")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAIEmbedder{
		model:    cfg.Model,
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		client:   client,
		maxBatch: DefaultOpenAIMaxBatch,
		logger:   logger,
	}, nil
}

func openAIFactory(cfg Config) semantic.ModelLoader {
	return func(context.Context) (semantic.Embedder, error) {
		return NewOpenAI(cfg)
	}
}

// ModelID identifies the remote model, e.g. "openai:text-embedding-3-small".
func (p *OpenAIEmbedder) ModelID() string {
	return OpenAIName + ":" + p.model
}

// EmbedBatch embeds texts in request-sized chunks, preserving order.
func (p *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.maxBatch {
		end := min(start+p.maxBatch, len(texts))
		rows, err := p.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (p *OpenAIEmbedder) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	// The API rejects empty strings.
	input := make([]string, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			t = " "
		}
		input[i] = t
	}

	b, err := json.Marshal(map[string]any{
		"model": p.model,
		"input": input,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/embeddings", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 512 {
			msg = msg[:512]
		}
		return nil, fmt.Errorf("embeddings request failed: HTTP %d: %s", resp.StatusCode, msg)
	}

	var parsed embeddingsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("cannot parse embeddings response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings response has %d rows for %d inputs", len(parsed.Data), len(texts))
	}

	rows := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(rows) || rows[d.Index] != nil {
			return nil, fmt.Errorf("embeddings response has bad index %d", d.Index)
		}
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("embeddings response missing embedding for index %d", d.Index)
		}
		row := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			row[i] = float32(v)
		}
		rows[d.Index] = row
	}

	p.logger.Debug("embeddings request", "model", p.model, "inputs", len(texts), "elapsed", time.Since(start))
	return rows, nil
}
