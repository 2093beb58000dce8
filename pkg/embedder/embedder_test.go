package embedder_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/paperqa/pkg/embedder"
)

// memCache is an in-process Cache for tests.
type memCache struct {
	entries map[string][]float32
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]float32)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	vector, ok := c.entries[key]
	return vector, ok, nil
}

func (c *memCache) Put(ctx context.Context, key string, vector []float32) error {
	c.entries[key] = vector
	return nil
}

// fakeModel returns a deterministic vector per input and counts
// invocations.
type fakeModel struct {
	calls int
	texts [][]string
	fail  error
}

func (m *fakeModel) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls++
	m.texts = append(m.texts, texts)
	if m.fail != nil {
		return nil, m.fail
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{float32(len(text)), float32(i)}
	}
	return vectors, nil
}

func newTestEmbedder(t *testing.T, model *fakeModel, cache embedder.Cache) *embedder.Embedder {
	t.Helper()
	return embedder.NewWithModel(embedder.EmbedderConfig{Model: "test-model"}, model, cache)
}

func TestEmbed_SecondCallHitsCache(t *testing.T) {
	model := &fakeModel{}
	emb := newTestEmbedder(t, model, newMemCache())
	ctx := context.Background()

	first, err := emb.Embed(ctx, "identical text")
	require.NoError(t, err)

	second, err := emb.Embed(ctx, "identical text")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, model.calls, "second call must not invoke the model")
}

func TestEmbedBatch_PreservesInputOrder(t *testing.T) {
	model := &fakeModel{}
	cache := newMemCache()
	emb := newTestEmbedder(t, model, cache)
	ctx := context.Background()

	// Warm the cache for the middle entry only.
	warm, err := emb.Embed(ctx, "bb")
	require.NoError(t, err)
	require.Equal(t, 1, model.calls)

	vectors, err := emb.EmbedBatch(ctx, []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	// One model call covering only the uncached subset, in input order.
	require.Equal(t, 2, model.calls)
	assert.Equal(t, []string{"a", "ccc"}, model.texts[1])

	assert.Equal(t, []float32{1, 0}, vectors[0])
	assert.Equal(t, warm, vectors[1])
	assert.Equal(t, []float32{3, 1}, vectors[2])
}

func TestEmbedBatch_AllCachedSkipsModel(t *testing.T) {
	model := &fakeModel{}
	emb := newTestEmbedder(t, model, newMemCache())
	ctx := context.Background()

	_, err := emb.EmbedBatch(ctx, []string{"x", "y"})
	require.NoError(t, err)
	require.Equal(t, 1, model.calls)

	_, err = emb.EmbedBatch(ctx, []string{"y", "x"})
	require.NoError(t, err)
	assert.Equal(t, 1, model.calls, "fully cached batch must not invoke the model")
}

func TestEmbedBatch_ModelFailureFailsWholeBatch(t *testing.T) {
	model := &fakeModel{}
	cache := newMemCache()
	emb := newTestEmbedder(t, model, cache)
	ctx := context.Background()

	_, err := emb.Embed(ctx, "cached")
	require.NoError(t, err)
	cachedEntries := len(cache.entries)

	model.fail = fmt.Errorf("model down")
	_, err = emb.EmbedBatch(ctx, []string{"cached", "uncached"})
	assert.Error(t, err)

	// The failed batch must not have touched existing cache entries, so a
	// retry resumes from the uncached set.
	assert.Len(t, cache.entries, cachedEntries)
}
