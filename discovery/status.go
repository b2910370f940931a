package discovery

import (
	"context"

	"github.com/jonwraymond/apidiscovery/index"
	"github.com/jonwraymond/apidiscovery/semantic"
)

// SemanticDisabled is reported as the semantic state when no model is
// configured.
const SemanticDisabled = "disabled"

// Status reports readiness without waiting on in-flight work.
type Status struct {
	Source     string `json:"source"`
	IndexState string `json:"index_state"`
	IndexError string `json:"index_error,omitempty"`
	Endpoints  int    `json:"endpoints"`
	Schemas    int    `json:"schemas"`
	Tags       int    `json:"tags"`

	SemanticState string `json:"semantic_state"`
	SemanticError string `json:"semantic_error,omitempty"`
	CacheKey      string `json:"cache_key,omitempty"`
	CacheHit      bool   `json:"cache_hit"`
	Dim           int    `json:"embedding_dim,omitempty"`

	// Fallback names the lexical searcher used when semantic search is not.
	Fallback string `json:"fallback"`
}

// Status returns the current loader and semantic states. It never blocks.
func (d *Discovery) Status() Status {
	st := Status{
		Source:        d.loader.SourceRef(),
		IndexState:    d.loader.State().String(),
		SemanticState: semantic.StateNotStarted.String(),
		Fallback:      d.fallback.Name(),
	}
	if d.model == nil {
		st.SemanticState = SemanticDisabled
	}

	switch d.loader.State() {
	case index.StateLoaded:
	case index.StateFailed:
		if err := d.loader.Err(); err != nil {
			st.IndexError = err.Error()
		}
		return st
	default:
		return st
	}

	// Loaded, so GetIndex returns without waiting.
	snap, err := d.loader.GetIndex(context.Background())
	if err != nil {
		return st
	}
	st.Endpoints = len(snap.Endpoints)
	st.Schemas = len(snap.Schemas)
	st.Tags = len(snap.Tags())

	d.mu.Lock()
	ix := d.sem
	d.mu.Unlock()
	if ix == nil {
		return st
	}
	info := ix.Info()
	st.SemanticState = info.State.String()
	st.CacheKey = info.CacheKey
	st.CacheHit = info.CacheHit
	st.Dim = info.Dim
	if info.Err != nil {
		st.SemanticError = info.Err.Error()
	}
	return st
}
