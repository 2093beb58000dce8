package embedder

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/xhad/paperqa/internal/types"
	"golang.org/x/sync/semaphore"
)

type EmbedderConfig struct {
	Model         string
	BaseURL       string // Ollama server URL
	MaxConcurrent int64  // concurrent model invocations allowed
}

// Embedder maps text to vectors through the embedding model, memoizing
// results by content hash so identical text is never re-encoded.
type Embedder struct {
	config EmbedderConfig
	model  types.EmbeddingModel
	cache  Cache
	sem    *semaphore.Weighted
}

func NewWithConfig(config EmbedderConfig, cache Cache) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	model, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	return NewWithModel(config, model, cache), nil
}

// NewWithModel builds an Embedder around an already constructed embedding
// model collaborator.
func NewWithModel(config EmbedderConfig, model types.EmbeddingModel, cache Cache) *Embedder {
	if config.MaxConcurrent <= 0 {
		// Model inference contends for compute; serialize it by default.
		config.MaxConcurrent = 1
	}

	return &Embedder{
		config: config,
		model:  model,
		cache:  cache,
		sem:    semaphore.NewWeighted(config.MaxConcurrent),
	}
}

// Embed returns the vector for text, from cache when possible.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.cacheKey(text)

	if vector, ok, err := e.cache.Get(ctx, key); err != nil {
		return nil, fmt.Errorf("embedding cache lookup failed: %w", err)
	} else if ok {
		return vector, nil
	}

	vectors, err := e.encode(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if err := e.cache.Put(ctx, key, vectors[0]); err != nil {
		return nil, fmt.Errorf("embedding cache write failed: %w", err)
	}

	return vectors[0], nil
}

// EmbedBatch returns one vector per input text, in input order. Cached
// entries are served from the cache; the model is invoked once over the
// uncached remainder. If the model call fails the whole batch fails, but
// previously cached entries are untouched, so a retry resumes from the
// uncached set.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	var uncachedTexts []string
	var uncachedIndices []int

	for i, text := range texts {
		vector, ok, err := e.cache.Get(ctx, e.cacheKey(text))
		if err != nil {
			return nil, fmt.Errorf("embedding cache lookup failed: %w", err)
		}
		if ok {
			vectors[i] = vector
			continue
		}
		uncachedTexts = append(uncachedTexts, text)
		uncachedIndices = append(uncachedIndices, i)
	}

	if len(uncachedTexts) == 0 {
		return vectors, nil
	}

	computed, err := e.encode(ctx, uncachedTexts)
	if err != nil {
		return nil, err
	}

	for i, vector := range computed {
		vectors[uncachedIndices[i]] = vector
		if err := e.cache.Put(ctx, e.cacheKey(uncachedTexts[i]), vector); err != nil {
			return nil, fmt.Errorf("embedding cache write failed: %w", err)
		}
	}

	return vectors, nil
}

func (e *Embedder) encode(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.sem.Release(1)

	vectors, err := e.model.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding model returned %d vectors for %d inputs",
			len(vectors), len(texts))
	}

	return vectors, nil
}

// cacheKey is content-addressed: the same text under the same model always
// maps to the same key, across documents and queries.
func (e *Embedder) cacheKey(text string) string {
	return fmt.Sprintf("embedding:%s:%x", e.config.Model, sha256.Sum256([]byte(text)))
}
