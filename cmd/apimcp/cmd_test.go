package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonwraymond/apidiscovery/config"
	"github.com/jonwraymond/apidiscovery/discovery"
)

const petStore = `openapi: 3.0.0
info:
  title: Pet Store
  version: 1.0.0
paths:
  /pets:
    get:
      summary: List pets
      operationId: listPets
      tags: [pets]
    post:
      summary: Create a pet
      operationId: createPet
      tags: [pets]
  /pets/{petId}:
    get:
      summary: Show pet by id
      operationId: showPetById
      tags: [pets]
      parameters:
        - name: petId
          in: path
          required: true
          schema: {type: string}
  /store/orders:
    get:
      summary: List orders
      tags: [store]
components:
  schemas:
    Pet:
      type: object
      properties:
        name: {type: string}
`

// testEnv points the CLI at a local spec and isolates it from the host's
// dotenv files and environment.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	spec := filepath.Join(dir, "petstore.yaml")
	require.NoError(t, os.WriteFile(spec, []byte(petStore), 0o600))

	t.Setenv("HOME", dir)
	t.Chdir(dir)
	t.Setenv(config.KeySpecURL, spec)
	t.Setenv(config.KeyProvider, config.ProviderNone)
	for _, k := range []string{
		config.KeySpecHeaders, config.KeySpecCacheDir, config.KeySpecCacheTTL,
		config.KeyDocsRenderer, config.KeyDocsBaseURL, config.KeyTransport, config.KeyHTTPAddr,
		config.KeyModel, config.KeyAPIKey, config.KeyBaseURL, config.KeyDim,
		config.KeyEmbedCacheDir, config.KeyEmbedCacheDriver, config.KeyMinSimilarity,
		config.KeyFallback, config.KeyLogLevel,
	} {
		t.Setenv(k, "")
	}
	return dir
}

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("1.2.3")
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd("1.0.0")
	assert.Equal(t, "apimcp", cmd.Use)
	assert.Equal(t, "1.0.0", cmd.Version)

	for _, name := range []string{"config", "log-level", "json"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}
	for _, name := range []string{"transport", "addr"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"serve", "search", "warm", "providers", "version"})
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, context.Background(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    1.2.3")
	assert.Contains(t, out, "Commit:     n/a")
}

func TestProvidersCmd(t *testing.T) {
	out, err := execute(t, context.Background(), "providers")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "hash"))
	assert.True(t, strings.HasPrefix(lines[1], "openai"))
}

func TestSearchCmd_Text(t *testing.T) {
	testEnv(t)

	out, err := execute(t, context.Background(), "search", "list", "-n", "5")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "GET     /pets  List pets")
	assert.Contains(t, lines[1], "/store/orders")
}

func TestSearchCmd_JSON(t *testing.T) {
	testEnv(t)
	t.Setenv(config.KeyDocsBaseURL, "https://docs.example.com")

	out, err := execute(t, context.Background(), "search", "--json", "create", "a", "pet")
	require.NoError(t, err)

	var results []searchResultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "POST", results[0].Method)
	assert.Equal(t, "/pets", results[0].Path)
	assert.Equal(t, string(discovery.ScoreSubstring), results[0].ScoreType)
	assert.Equal(t, "https://docs.example.com#pet-store-v1/tag/pets/post/pets", results[0].DocsURL)
}

func TestSearchCmd_BM25(t *testing.T) {
	testEnv(t)
	t.Setenv(config.KeyFallback, config.FallbackBM25)

	out, err := execute(t, context.Background(), "search", "--json", "orders")
	require.NoError(t, err)

	var results []searchResultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.NotEmpty(t, results)
	assert.Equal(t, "/store/orders", results[0].Path)
	assert.Equal(t, string(discovery.ScoreBM25), results[0].ScoreType)
}

func TestSearchCmd_MissingSpecURL(t *testing.T) {
	testEnv(t)
	t.Setenv(config.KeySpecURL, "")

	_, err := execute(t, context.Background(), "search", "pets")
	assert.ErrorIs(t, err, config.ErrMissingSpecURL)
}

func TestSearchCmd_ConfigFile(t *testing.T) {
	dir := testEnv(t)
	spec := os.Getenv(config.KeySpecURL)
	t.Setenv(config.KeySpecURL, "")
	file := filepath.Join(dir, "apimcp.yaml")
	require.NoError(t, os.WriteFile(file, []byte("openapi_spec_url: "+spec+"\n"), 0o600))

	out, err := execute(t, context.Background(), "--config", file, "search", "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "/store/orders")
}

func TestWarmCmd_HashProviderCaches(t *testing.T) {
	dir := testEnv(t)
	t.Setenv(config.KeyProvider, config.ProviderHash)
	t.Setenv(config.KeyEmbedCacheDir, filepath.Join(dir, "cache"))

	out, err := execute(t, context.Background(), "warm")
	require.NoError(t, err)
	assert.Contains(t, out, "endpoints: 4")
	assert.Contains(t, out, "semantic:  ready")
	assert.Contains(t, out, "cache:     miss")

	out, err = execute(t, context.Background(), "warm")
	require.NoError(t, err)
	assert.Contains(t, out, "cache:     hit")
}

func TestWarmCmd_SQLiteJSON(t *testing.T) {
	dir := testEnv(t)
	t.Setenv(config.KeyProvider, config.ProviderHash)
	t.Setenv(config.KeyEmbedCacheDir, filepath.Join(dir, "cache"))
	t.Setenv(config.KeyEmbedCacheDriver, config.CacheSQLite)

	out, err := execute(t, context.Background(), "warm", "--json")
	require.NoError(t, err)

	var st discovery.Status
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, "loaded", st.IndexState)
	assert.Equal(t, "ready", st.SemanticState)
	assert.Equal(t, 4, st.Endpoints)
	assert.False(t, st.CacheHit)
	assert.FileExists(t, filepath.Join(dir, "cache", "embeddings.db"))
}

func TestWarmCmd_SemanticDisabled(t *testing.T) {
	testEnv(t)

	out, err := execute(t, context.Background(), "warm")
	require.NoError(t, err)
	assert.Contains(t, out, "semantic:  disabled")
	assert.NotContains(t, out, "cache:")
}

func TestServeCmd_InvalidTransportFlag(t *testing.T) {
	testEnv(t)

	_, err := execute(t, context.Background(), "serve", "--transport", "carrier-pigeon")
	assert.ErrorIs(t, err, config.ErrInvalidTransport)
}

func TestServeCmd_HTTPStopsOnCancel(t *testing.T) {
	testEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := execute(t, ctx, "serve", "--transport", config.TransportStreamableHTTP, "--addr", "127.0.0.1:0")
	assert.NoError(t, err)
}

func TestRootCmd_ServesByDefault(t *testing.T) {
	testEnv(t)

	_, err := execute(t, context.Background(), "--transport", "bogus")
	assert.ErrorIs(t, err, config.ErrInvalidTransport)
}
