package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/xhad/paperqa/internal/models"
)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	SearchLimit int
}

// VectorStore persists embedded chunks in Postgres with pgvector and
// answers cosine-similarity queries scoped to a single document.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize() error {
	ctx := context.Background()

	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	// The vector dimension is fixed at table-creation time and must match
	// the embedding model's output dimension.
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chunk_id BIGINT PRIMARY KEY,
			document_id TEXT NOT NULL,
			section TEXT,
			page INTEGER,
			content TEXT,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	createDocIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_document_id_idx
		ON %s (document_id)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createDocIndex)
	if err != nil {
		return fmt.Errorf("failed to create document index: %v", err)
	}

	return nil
}

// Upsert stores chunks keyed by chunk id. Every chunk must already carry
// an embedding of the configured dimension; the call is transactional, so
// either all chunks are written or none are.
func (vs *VectorStore) Upsert(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to store")
	}

	for i, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("chunk %d (id %d) is missing an embedding", i, chunk.ChunkID)
		}
		if len(chunk.Embedding) != vs.config.VectorDim {
			return fmt.Errorf(
				"chunk %d has embedding dimension %d but the store is configured for %d; "+
					"the embedding model and store configuration do not match",
				i, len(chunk.Embedding), vs.config.VectorDim)
		}
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (chunk_id, document_id, section, page, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chunk_id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			section = EXCLUDED.section,
			page = EXCLUDED.page,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	for _, chunk := range chunks {
		_, err = tx.Exec(ctx, stmt,
			chunk.ChunkID,
			chunk.DocumentID,
			sanitizeUTF8(chunk.Section),
			chunk.Page,
			sanitizeUTF8(chunk.Text),
			pgvector.NewVector(chunk.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk %d: %v", chunk.ChunkID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// Search returns up to topK chunks of the given document ordered by
// descending cosine similarity. When scoreThreshold is positive, results
// scoring below it are dropped; callers that filter themselves should
// pass 0.
func (vs *VectorStore) Search(ctx context.Context, vector []float32, documentID string, topK int, scoreThreshold float32) ([]models.RetrievalResult, error) {
	if topK <= 0 {
		topK = vs.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT content, section, page, chunk_id, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE document_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(vector), documentID, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var results []models.RetrievalResult
	for rows.Next() {
		var r models.RetrievalResult
		err := rows.Scan(
			&r.Text,
			&r.Section,
			&r.Page,
			&r.ChunkID,
			&r.Score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		if scoreThreshold > 0 && r.Score < scoreThreshold {
			continue
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read query results: %v", err)
	}

	return results, nil
}

// DocumentExists reports whether at least one chunk is stored for the
// given document.
func (vs *VectorStore) DocumentExists(ctx context.Context, documentID string) (bool, error) {
	query := fmt.Sprintf(
		"SELECT EXISTS (SELECT 1 FROM %s WHERE document_id = $1)", vs.config.TableName)

	var exists bool
	if err := vs.pool.QueryRow(ctx, query, documentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check document existence: %v", err)
	}

	return exists, nil
}

// Delete removes every chunk of the given document. Deleting a document
// with no stored chunks is a no-op.
func (vs *VectorStore) Delete(ctx context.Context, documentID string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE document_id = $1", vs.config.TableName)

	if _, err := vs.pool.Exec(ctx, stmt, documentID); err != nil {
		return fmt.Errorf("failed to delete document chunks: %v", err)
	}

	return nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
