package types

import (
	"context"

	"github.com/xhad/paperqa/internal/models"
)

// Extractor turns a document file into ordered page records. Validate is
// always called before Extract so structural problems fail fast.
type Extractor interface {
	Validate(path string, maxSizeMB int) (bool, string)
	Extract(path string) ([]models.PageRecord, error)
}

// Chunker splits page text into fixed-size, overlapping token windows.
type Chunker interface {
	ChunkPages(pages []models.PageRecord, documentID string) ([]models.Chunk, error)
}

// Embedder maps text to vectors, memoizing by content hash. EmbedBatch
// results match the input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingModel is the raw embedding collaborator behind the Embedder.
// langchaingo's ollama client satisfies it.
type EmbeddingModel interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists embedded chunks and answers nearest-neighbor
// queries scoped to a single document.
type VectorStore interface {
	Upsert(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, vector []float32, documentID string, topK int, scoreThreshold float32) ([]models.RetrievalResult, error)
	DocumentExists(ctx context.Context, documentID string) (bool, error)
	Delete(ctx context.Context, documentID string) error
	Close()
}

// Generator is the generative collaborator: one synchronous chat-style
// call with a system instruction and a user message.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// AnswerEngine filters retrieved candidates, decides whether the evidence
// justifies an answer, and produces citations alongside it.
type AnswerEngine interface {
	Answer(ctx context.Context, question string, retrieved []models.RetrievalResult) (*models.Answer, error)
}

// RAGService is the pipeline surface exposed to transports.
type RAGService interface {
	Upload(ctx context.Context, filePath string) (models.UploadResult, error)
	Query(ctx context.Context, req models.QueryRequest) (*models.Answer, error)
	Delete(ctx context.Context, documentID string) error
}
