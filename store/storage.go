package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"supportbot/types"
)

// DBStorer is the persistence surface the vector index adapter needs.
type DBStorer interface {
	SaveDocuments(ctx context.Context, docs []types.Document, embeddings [][]float32) error
	Search(ctx context.Context, queryVec []float32, limit int) ([]types.ScoredDocument, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

type PostgresStore struct {
	pool *pgxpool.Pool
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
		pool: pool,
	}, nil
}

// SaveDocuments inserts one batch of documents with their embeddings.
// docs and embeddings must be aligned by index.
func (p *PostgresStore) SaveDocuments(ctx context.Context, docs []types.Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("got %d documents but %d embeddings", len(docs), len(embeddings))
	}

	query := `
    INSERT INTO support_documents (id, content, metadata, embedding)
    VALUES ($1, $2, $3, $4)
    `
	batch := &pgx.Batch{}
	for i, doc := range docs {
		meta, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("error encoding metadata: %w", err)
		}
		batch.Queue(query, uuid.New(), doc.Content, meta, pgvector.NewVector(embeddings[i]))
	}

	results := p.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range docs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("error inserting document: %w", err)
		}
	}
	return nil
}

// Search returns the documents closest to queryVec by cosine distance,
// best match first. An empty table yields an empty slice, not an error.
func (p *PostgresStore) Search(ctx context.Context, queryVec []float32, limit int) ([]types.ScoredDocument, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}

	query := `
		SELECT content, metadata, embedding <=> $1 AS score
		FROM support_documents
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := p.pool.Query(ctx, query, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []types.ScoredDocument{}
	for rows.Next() {
		var (
			content string
			meta    []byte
			score   float64
		)
		if err := rows.Scan(&content, &meta, &score); err != nil {
			return nil, err
		}

		metadata := map[string]string{}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &metadata); err != nil {
				return nil, fmt.Errorf("error decoding metadata: %w", err)
			}
		}

		docs = append(docs, types.ScoredDocument{
			Document: types.Document{Content: content, Metadata: metadata},
			Score:    score,
		})
	}
	return docs, rows.Err()
}

func (p *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, "SELECT count(*) FROM support_documents").Scan(&count)
	return count, err
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) createTables(ctx context.Context) error {
	query := `
    CREATE EXTENSION IF NOT EXISTS vector;

    CREATE TABLE IF NOT EXISTS support_documents (
        id UUID PRIMARY KEY,
        content TEXT NOT NULL,
        metadata JSONB NOT NULL DEFAULT '{}',
        embedding vector(384)
    );

	CREATE INDEX IF NOT EXISTS idx_support_documents_embedding
	ON support_documents USING ivfflat (embedding vector_cosine_ops)
	WITH (lists = 100);
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
		log.Println("Postgres connection pool is closed")
	}
	return nil
}
