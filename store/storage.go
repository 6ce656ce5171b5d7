package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ragchat/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ErrRetrievalUnavailable marks a failed vector store or embedding call.
// The chat pipeline fails fast on it instead of answering without context.
var ErrRetrievalUnavailable = errors.New("retrieval unavailable")

type VectorStorer interface {
	UpsertChunks(context.Context, []types.Chunk) error
	Search(context.Context, []float32, int) ([]types.RetrievalResult, error)
	DeleteBySource(context.Context, string) error
	CountChunks(context.Context) (int, error)
}

type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{
		pool:   pool,
		logger: slog.Default(),
	}, nil
}

func (p *PostgresStore) UpsertChunks(ctx context.Context, chunks []types.Chunk) error {
	batch := &pgx.Batch{}
	query := `
    INSERT INTO chunks (id, source, position, content, embedding)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (id) DO UPDATE SET
        source = EXCLUDED.source,
        position = EXCLUDED.position,
        content = EXCLUDED.content,
        embedding = EXCLUDED.embedding
    `
	for _, c := range chunks {
		batch.Queue(query, c.ID, c.Source, c.Index, c.Content, pgvector.NewVector(c.Embedding))
	}

	br := p.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range chunks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%w: upsert chunks: %v", ErrRetrievalUnavailable, err)
		}
	}
	return nil
}

// Search returns at most limit chunks ordered by descending cosine
// similarity. An empty result is valid, not an error.
func (p *PostgresStore) Search(ctx context.Context, queryVec []float32, limit int) ([]types.RetrievalResult, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", ErrRetrievalUnavailable)
	}

	vector := pgvector.NewVector(queryVec)

	query := `
		SELECT id, source, position, content,
		       1 - (embedding <=> $1) AS score
		FROM chunks
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := p.pool.Query(ctx, query, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %v", ErrRetrievalUnavailable, err)
	}
	defer rows.Close()

	var results []types.RetrievalResult
	for rows.Next() {
		var r types.RetrievalResult
		if err := rows.Scan(
			&r.Chunk.ID,
			&r.Chunk.Source,
			&r.Chunk.Index,
			&r.Chunk.Content,
			&r.Score); err != nil {
			return nil, fmt.Errorf("%w: scan result: %v", ErrRetrievalUnavailable, err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read results: %v", ErrRetrievalUnavailable, err)
	}
	return results, nil
}

func (p *PostgresStore) DeleteBySource(ctx context.Context, source string) error {
	_, err := p.pool.Exec(ctx, "DELETE FROM chunks WHERE source = $1", source)
	if err != nil {
		return fmt.Errorf("%w: delete by source: %v", ErrRetrievalUnavailable, err)
	}
	return nil
}

func (p *PostgresStore) CountChunks(ctx context.Context) (int, error) {
	var count int
	if err := p.pool.QueryRow(ctx, "SELECT count(*) FROM chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count chunks: %v", ErrRetrievalUnavailable, err)
	}
	return count, nil
}

func (p *PostgresStore) createTables(ctx context.Context) error {
	query := `
    CREATE EXTENSION IF NOT EXISTS vector;

    CREATE TABLE IF NOT EXISTS chunks (
        id UUID PRIMARY KEY,
        source TEXT NOT NULL,
        position INT NOT NULL,
        content TEXT NOT NULL,
        embedding vector(1536)
    );

	CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);

	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
    `
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Init(ctx context.Context) error {
	return p.createTables(ctx)
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		p.logger.Info("postgres connection pool closed")
	}
	return nil
}
