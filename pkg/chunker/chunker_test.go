package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/paperqa/internal/models"
	"github.com/xhad/paperqa/pkg/chunker"
)

func newChunker(t *testing.T, size, overlap int) *chunker.Chunker {
	t.Helper()
	c, err := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:    size,
		ChunkOverlap: overlap,
	})
	require.NoError(t, err)
	return c
}

func TestNewWithConfig_RejectsOverlapNotBelowSize(t *testing.T) {
	_, err := chunker.NewWithConfig(chunker.ChunkerConfig{
		ChunkSize:    100,
		ChunkOverlap: 100,
	})
	assert.Error(t, err)
}

func TestChunkPages_SingleWindowKeepsTextIntact(t *testing.T) {
	c := newChunker(t, 500, 100)

	text := "Retrieval augmented generation grounds answers in document evidence."
	pages := []models.PageRecord{
		{Text: text, Page: 1, Section: "Introduction"},
	}

	chunks, err := c.ChunkPages(pages, "doc1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	// A page that fits in one window must round-trip byte for byte.
	assert.Equal(t, text, chunks[0].Text)
	assert.Equal(t, "doc1", chunks[0].DocumentID)
	assert.Equal(t, "Introduction", chunks[0].Section)
	assert.Equal(t, 1, chunks[0].Page)
}

func TestChunkPages_WindowPlan(t *testing.T) {
	const (
		size    = 50
		overlap = 10
	)
	c := newChunker(t, size, overlap)

	// " the" encodes to a single cl100k token, so the page's token count
	// and every window size are known exactly.
	text := strings.Repeat(" the", 120)
	require.Equal(t, 120, c.CountTokens(text))

	chunks, err := c.ChunkPages([]models.PageRecord{{Text: text, Page: 1, Section: "Body"}}, "doc1")
	require.NoError(t, err)

	// Windows start every size-overlap tokens: [0,50) [40,90) [80,120).
	require.Len(t, chunks, 3)
	assert.Equal(t, 50, c.CountTokens(chunks[0].Text))
	assert.Equal(t, 50, c.CountTokens(chunks[1].Text))
	assert.Equal(t, 40, c.CountTokens(chunks[2].Text))
}

func TestChunkPages_LastPartialWindowKept(t *testing.T) {
	c := newChunker(t, 50, 10)

	// 55 tokens: one full window plus a 15-token remainder.
	text := strings.Repeat(" the", 55)
	require.Equal(t, 55, c.CountTokens(text))

	chunks, err := c.ChunkPages([]models.PageRecord{{Text: text, Page: 1}}, "doc1")
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, 50, c.CountTokens(chunks[0].Text))
	assert.Equal(t, 15, c.CountTokens(chunks[1].Text))
}

func TestChunkPages_EmptyPageEmitsNothing(t *testing.T) {
	c := newChunker(t, 50, 10)

	pages := []models.PageRecord{
		{Text: "", Page: 1, Section: "Unknown"},
		{Text: "some real content", Page: 2, Section: "Introduction"},
	}

	chunks, err := c.ChunkPages(pages, "doc1")
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, 2, chunks[0].Page)
}

func TestChunkPages_IDsAreUniqueAndStable(t *testing.T) {
	c := newChunker(t, 50, 10)

	pages := []models.PageRecord{
		{Text: strings.Repeat(" the", 120), Page: 1, Section: "A"},
		{Text: strings.Repeat(" the", 120), Page: 2, Section: "B"},
	}

	first, err := c.ChunkPages(pages, "doc1")
	require.NoError(t, err)
	second, err := c.ChunkPages(pages, "doc1")
	require.NoError(t, err)
	other, err := c.ChunkPages(pages, "doc2")
	require.NoError(t, err)

	seen := make(map[int64]bool)
	for _, chunk := range first {
		assert.False(t, seen[chunk.ChunkID], "duplicate chunk id %d", chunk.ChunkID)
		seen[chunk.ChunkID] = true
		assert.GreaterOrEqual(t, chunk.ChunkID, int64(0))
	}

	// Same document, same content: identical ids on re-ingestion.
	for i := range first {
		assert.Equal(t, first[i].ChunkID, second[i].ChunkID)
	}

	// A different document never shares ids, even for identical text.
	for _, chunk := range other {
		assert.False(t, seen[chunk.ChunkID], "chunk id %d collides across documents", chunk.ChunkID)
	}
}

func TestChunkPages_ConsecutiveWindowsOverlap(t *testing.T) {
	const (
		size    = 50
		overlap = 10
	)
	c := newChunker(t, size, overlap)

	text := strings.Repeat(" the", 120)
	chunks, err := c.ChunkPages([]models.PageRecord{{Text: text, Page: 1}}, "doc1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	// Stripping the leading overlap from every window after the first
	// reconstructs the original page text.
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0].Text)
	for _, chunk := range chunks[1:] {
		rebuilt.WriteString(chunk.Text[len(" the")*overlap:])
	}
	assert.Equal(t, text, rebuilt.String())
}
