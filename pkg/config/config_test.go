package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
embedding:
  base_url: "http://localhost:11434"
  model: "nomic-embed-text:latest"
  dimension: 384

llm:
  base_url: "http://localhost:11434"
  model: "llama3"
  max_tokens: 1000
  temperature: 0.2

database:
  url: "postgres://localhost:5432/test"
  table_name: "test_chunks"
  vector_dim: 384

chunker:
  chunk_size: 500
  chunk_overlap: 100

retrieval:
  top_k: 5
  similarity_threshold: 0.75

server:
  port: "9000"
  max_pdf_size_mb: 10
  request_timeout_seconds: 30
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "nomic-embed-text:latest", config.Embedding.Model)
	assert.Equal(t, 384, config.Embedding.Dimension)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, 0.2, config.LLM.Temperature)
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "test_chunks", config.Database.TableName)
	assert.Equal(t, 500, config.Chunker.ChunkSize)
	assert.Equal(t, 100, config.Chunker.ChunkOverlap)
	assert.Equal(t, float32(0.75), config.Retrieval.SimilarityThreshold)
	assert.Equal(t, "9000", config.Server.Port)
	assert.Equal(t, 10, config.Server.MaxPDFSizeMB)

	assert.Empty(t, config.Validate())
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("{}"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "nomic-embed-text:latest", config.Embedding.Model)
	assert.Equal(t, 768, config.Embedding.Dimension)
	assert.Equal(t, int64(1), config.Embedding.MaxConcurrent)
	assert.Equal(t, "llama3", config.LLM.Model)
	assert.Equal(t, float64(0), config.LLM.Temperature)
	assert.Equal(t, "chunks", config.Database.TableName)
	assert.Equal(t, "embedding_cache", config.Database.CacheTable)
	assert.Equal(t, 768, config.Database.VectorDim)
	assert.Equal(t, 500, config.Chunker.ChunkSize)
	assert.Equal(t, 100, config.Chunker.ChunkOverlap)
	assert.Equal(t, 5, config.Retrieval.TopK)
	assert.Equal(t, float32(0.75), config.Retrieval.SimilarityThreshold)
	assert.Equal(t, "8000", config.Server.Port)
	assert.Equal(t, 60, config.Server.RequestTimeoutSeconds)
}

func TestValidate_FlagsBadCombinations(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	config.Chunker.ChunkOverlap = config.Chunker.ChunkSize
	config.Database.VectorDim = config.Embedding.Dimension + 1
	config.Retrieval.SimilarityThreshold = 1.5
	config.LLM.Temperature = 3

	errs := config.Validate()

	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}

	assert.True(t, fields["chunker.chunk_overlap"])
	assert.True(t, fields["database.vector_dim"])
	assert.True(t, fields["retrieval.similarity_threshold"])
	assert.True(t, fields["llm.temperature"])
}
