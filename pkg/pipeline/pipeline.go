package pipeline

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/xhad/paperqa/internal/models"
	"github.com/xhad/paperqa/internal/types"
)

type PipelineConfig struct {
	MaxPDFSizeMB   int
	TopK           int
	RequestTimeout time.Duration
}

// Pipeline sequences ingestion (validate, extract, chunk, embed, store)
// and query (embed, retrieve, ground, generate). Both operations run
// under the configured time budget; exceeding it cancels the in-flight
// collaborator call and surfaces ErrDeadlineExceeded.
type Pipeline struct {
	config    PipelineConfig
	extractor types.Extractor
	chunker   types.Chunker
	embedder  types.Embedder
	store     types.VectorStore
	engine    types.AnswerEngine
	log       *slog.Logger
}

func NewWithConfig(
	config PipelineConfig,
	extractor types.Extractor,
	chunker types.Chunker,
	embedder types.Embedder,
	store types.VectorStore,
	engine types.AnswerEngine,
	log *slog.Logger,
) *Pipeline {
	if config.MaxPDFSizeMB == 0 {
		config.MaxPDFSizeMB = 20
	}
	if config.TopK == 0 {
		config.TopK = 5
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 60 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Pipeline{
		config:    config,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		store:     store,
		engine:    engine,
		log:       log,
	}
}

// Upload validates, extracts, chunks, embeds and stores one document. The
// document identifier is a hash of the file content, so uploading the
// same bytes twice short-circuits on the existing index instead of
// reprocessing.
func (p *Pipeline) Upload(ctx context.Context, filePath string) (models.UploadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	if ok, msg := p.extractor.Validate(filePath, p.config.MaxPDFSizeMB); !ok {
		return models.UploadResult{}, fmt.Errorf("%w: %s", ErrValidation, msg)
	}

	documentID, err := contentID(filePath)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	exists, err := p.store.DocumentExists(ctx, documentID)
	if err != nil {
		return models.UploadResult{}, p.translate(err, "existence check failed")
	}
	if exists {
		p.log.Info("document already indexed", "document_id", documentID)
		return models.UploadResult{
			DocumentID: documentID,
			Status:     models.StatusAlreadyIndexed,
		}, nil
	}

	pages, err := p.extractor.Extract(filePath)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	chunks, err := p.chunker.ChunkPages(pages, documentID)
	if err != nil {
		return models.UploadResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if len(chunks) == 0 {
		return models.UploadResult{}, fmt.Errorf("%w: document contains no extractable text", ErrValidation)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return models.UploadResult{}, p.translate(err, "embedding failed")
	}

	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	if err := p.store.Upsert(ctx, chunks); err != nil {
		return models.UploadResult{}, p.translate(err, "storing chunks failed")
	}

	p.log.Info("document indexed",
		"document_id", documentID,
		"pages", len(pages),
		"chunks", len(chunks),
	)

	return models.UploadResult{
		DocumentID: documentID,
		Status:     models.StatusIndexed,
	}, nil
}

// Query embeds the question, retrieves candidates scoped to the document
// and hands them to the answer engine.
func (p *Pipeline) Query(ctx context.Context, req models.QueryRequest) (*models.Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	if req.Question == "" {
		return nil, fmt.Errorf("%w: question must not be empty", ErrValidation)
	}
	topK := req.TopK
	if topK == 0 {
		topK = p.config.TopK
	}
	if topK < 1 || topK > 20 {
		return nil, fmt.Errorf("%w: top_k must be between 1 and 20", ErrValidation)
	}

	exists, err := p.store.DocumentExists(ctx, req.DocumentID)
	if err != nil {
		return nil, p.translate(err, "existence check failed")
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, req.DocumentID)
	}

	vector, err := p.embedder.Embed(ctx, req.Question)
	if err != nil {
		return nil, p.translate(err, "embedding question failed")
	}

	// Threshold 0 here: the answer engine applies its own similarity bar.
	retrieved, err := p.store.Search(ctx, vector, req.DocumentID, topK, 0)
	if err != nil {
		return nil, p.translate(err, "retrieval failed")
	}

	answer, err := p.engine.Answer(ctx, req.Question, retrieved)
	if err != nil {
		return nil, p.translate(err, "answer generation failed")
	}

	return answer, nil
}

// Delete removes every stored chunk of the document.
func (p *Pipeline) Delete(ctx context.Context, documentID string) error {
	ctx, cancel := context.WithTimeout(ctx, p.config.RequestTimeout)
	defer cancel()

	if err := p.store.Delete(ctx, documentID); err != nil {
		return p.translate(err, "deleting document failed")
	}
	return nil
}

// translate maps a collaborator failure into the pipeline taxonomy. A
// blown deadline is surfaced distinctly so callers can tell a slow system
// from a broken one.
func (p *Pipeline) translate(err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrDeadlineExceeded, msg, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, msg, err)
}

// contentID derives the document identifier from the file bytes, so
// repeated uploads of identical content resolve to the same document.
func contentID(filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)[:16], nil
}
