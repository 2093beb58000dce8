package chunker

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	"github.com/xhad/paperqa/internal/models"
)

// encodingName is fixed so that chunk boundaries are reproducible across
// processes and reruns.
const encodingName = "cl100k_base"

type ChunkerConfig struct {
	ChunkSize    int // tokens per window
	ChunkOverlap int // tokens shared between consecutive windows
}

// Chunker splits page-level text into fixed-size, overlapping token
// windows and attaches per-chunk identity and metadata.
type Chunker struct {
	config   ChunkerConfig
	encoding *tiktoken.Tiktoken
}

func NewWithConfig(config ChunkerConfig) (*Chunker, error) {
	if config.ChunkSize == 0 {
		config.ChunkSize = 500
	}
	if config.ChunkOverlap == 0 {
		config.ChunkOverlap = 100
	}
	if config.ChunkOverlap >= config.ChunkSize {
		return nil, fmt.Errorf("chunk overlap (%d) must be less than chunk size (%d)",
			config.ChunkOverlap, config.ChunkSize)
	}

	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s encoding: %w", encodingName, err)
	}

	return &Chunker{
		config:   config,
		encoding: encoding,
	}, nil
}

// ChunkPages splits each page into token windows. Pages whose text
// tokenizes to nothing produce no chunks. Chunk ids are derived from
// (document id, page, position) so they are stable across runs and never
// collide with chunks of other documents in a shared index.
func (c *Chunker) ChunkPages(pages []models.PageRecord, documentID string) ([]models.Chunk, error) {
	var chunks []models.Chunk

	for _, page := range pages {
		pieces := c.chunkText(page.Text)

		for i, text := range pieces {
			chunks = append(chunks, models.Chunk{
				Text:       text,
				DocumentID: documentID,
				Section:    page.Section,
				Page:       page.Page,
				ChunkID:    chunkID(documentID, page.Page, i),
			})
		}
	}

	return chunks, nil
}

// chunkText slides a window of ChunkSize tokens with step
// ChunkSize-ChunkOverlap. The last partial window is kept.
func (c *Chunker) chunkText(text string) []string {
	tokens := c.encoding.Encode(text, nil, nil)
	if len(tokens) == 0 {
		return nil
	}

	var pieces []string

	start := 0
	for start < len(tokens) {
		end := start + c.config.ChunkSize
		if end > len(tokens) {
			end = len(tokens)
		}

		pieces = append(pieces, c.encoding.Decode(tokens[start:end]))

		if end >= len(tokens) {
			break
		}

		start = end - c.config.ChunkOverlap
	}

	if len(pieces) == 0 {
		// Unreachable with a positive chunk size, but kept so a page that
		// tokenized to something never silently drops its text.
		return []string{text}
	}

	return pieces
}

// CountTokens reports how many tokens the fixed encoding produces for text.
func (c *Chunker) CountTokens(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// chunkID hashes (documentID, page, position) into a 63-bit identifier.
// Deterministic, so re-ingesting the same content rewrites the same rows
// instead of duplicating them.
func chunkID(documentID string, page, position int) int64 {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", documentID, page, position)))
	return int64(binary.BigEndian.Uint64(sum[:8]) &^ (1 << 63))
}
