package embedder

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Cache is a process-external key-value store for embedding vectors.
// Keys are content hashes, so concurrent writers racing on the same key
// always write the same value.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Put(ctx context.Context, key string, vector []float32) error
}

type PGCacheConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PGCache keeps the embedding cache in Postgres, alongside the vector
// store, so it survives restarts and is shared between processes.
type PGCache struct {
	config PGCacheConfig
	pool   *pgxpool.Pool
}

func NewPGCache(config PGCacheConfig) (*PGCache, error) {
	if config.TableName == "" {
		config.TableName = "embedding_cache"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	c := &PGCache{
		config: config,
		pool:   pool,
	}

	if err := c.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return c, nil
}

func (c *PGCache) initialize() error {
	ctx := context.Background()

	_, err := c.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			embedding vector(%d)
		)`, c.config.TableName, c.config.VectorDim)

	_, err = c.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create cache table: %v", err)
	}

	return nil
}

func (c *PGCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	query := fmt.Sprintf("SELECT embedding FROM %s WHERE key = $1", c.config.TableName)

	var vector pgvector.Vector
	err := c.pool.QueryRow(ctx, query, key).Scan(&vector)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %v", err)
	}

	return vector.Slice(), true, nil
}

func (c *PGCache) Put(ctx context.Context, key string, vector []float32) error {
	// DO NOTHING on conflict: the key is a content hash, so a racing
	// writer already stored the identical vector.
	stmt := fmt.Sprintf(`
		INSERT INTO %s (key, embedding)
		VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING`, c.config.TableName)

	_, err := c.pool.Exec(ctx, stmt, key, pgvector.NewVector(vector))
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %v", err)
	}

	return nil
}

func (c *PGCache) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}
