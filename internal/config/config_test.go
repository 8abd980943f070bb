package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "all-minilm", cfg.Embedding.Model)
	assert.Equal(t, 384, cfg.Embedding.Dimension)
	assert.Equal(t, float32(0.1), cfg.Gemini.Temperature)
	assert.Equal(t, int32(4000), cfg.Gemini.MaxOutputTokens)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 10, cfg.Session.MaxHistory)
	assert.Contains(t, cfg.RAG.DomainKeywords, "dosage")
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9999"
rag:
  chunk_size: 500
  domain_keywords: ["aspirin"]
session:
  max_history: 5
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, []string{"aspirin"}, cfg.RAG.DomainKeywords)
	assert.Equal(t, 5, cfg.Session.MaxHistory)
	// untouched sections still get defaults
	assert.Equal(t, "gemini-1.5-flash", cfg.Gemini.Model)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a mapping"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadReadsAPIKeyFromEnvironment(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "test-key")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.Gemini.APIKey)
}
