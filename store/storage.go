package store

import (
	"context"
	"fmt"
	"log"

	"ragchat/types"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkStore is the vector-store contract the ingestion and retrieval
// engines depend on. Ingestion is additive: re-running the same batch
// creates new ids. DeleteNamespace is the explicit replace operation for
// callers that want re-ingestion to start clean.
type ChunkStore interface {
	UpsertChunks(ctx context.Context, chunks []types.Chunk) error
	FetchAll(ctx context.Context, namespace string) ([]types.Chunk, error)
	DeleteNamespace(ctx context.Context, namespace string) (int64, error)
}

// ConversationStore persists conversation transcripts. It is an external
// collaborator of the chat flow; the core only hands turns over after a
// completed exchange.
type ConversationStore interface {
	CreateConversation(ctx context.Context) (uuid.UUID, error)
	AppendTurns(ctx context.Context, id uuid.UUID, turns []types.Turn) error
	GetConversation(ctx context.Context, id uuid.UUID) ([]types.Turn, error)
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

	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) UpsertChunks(ctx context.Context, chunks []types.Chunk) error {
	query := `
	INSERT INTO chunks (id, source, namespace, page, title, url, content, embedding)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		source = EXCLUDED.source,
		namespace = EXCLUDED.namespace,
		page = EXCLUDED.page,
		title = EXCLUDED.title,
		url = EXCLUDED.url,
		content = EXCLUDED.content,
		embedding = EXCLUDED.embedding
	`
	for _, c := range chunks {
		_, err := p.pool.Exec(ctx, query,
			c.ID,
			c.Metadata.Source,
			c.Metadata.Namespace,
			c.Metadata.Page,
			c.Metadata.Title,
			c.Metadata.URL,
			c.Text,
			pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

// FetchAll bulk-reads stored chunks with their embeddings for the in-memory
// similarity scan. An empty namespace returns the whole corpus.
func (p *PostgresStore) FetchAll(ctx context.Context, namespace string) ([]types.Chunk, error) {
	query := `
	SELECT id, source, namespace, page, title, url, content, embedding
	FROM chunks
	WHERE embedding IS NOT NULL AND ($1 = '' OR namespace = $1)
	ORDER BY id
	`
	rows, err := p.pool.Query(ctx, query, namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []types.Chunk
	for rows.Next() {
		var c types.Chunk
		var embedding pgvector.Vector
		if err := rows.Scan(
			&c.ID,
			&c.Metadata.Source,
			&c.Metadata.Namespace,
			&c.Metadata.Page,
			&c.Metadata.Title,
			&c.Metadata.URL,
			&c.Text,
			&embedding,
		); err != nil {
			return nil, err
		}
		c.Embedding = embedding.Slice()
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (p *PostgresStore) DeleteNamespace(ctx context.Context, namespace string) (int64, error) {
	tag, err := p.pool.Exec(ctx, "DELETE FROM chunks WHERE namespace = $1", namespace)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (p *PostgresStore) CreateConversation(ctx context.Context) (uuid.UUID, error) {
	id := uuid.New()
	_, err := p.pool.Exec(ctx, "INSERT INTO conversations (id) VALUES ($1)", id)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (p *PostgresStore) AppendTurns(ctx context.Context, id uuid.UUID, turns []types.Turn) error {
	for _, t := range turns {
		_, err := p.pool.Exec(ctx,
			"INSERT INTO turns (conversation_id, role, message) VALUES ($1, $2, $3)",
			id, t.Role, t.Message)
		if err != nil {
			return fmt.Errorf("failed to append turn: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) GetConversation(ctx context.Context, id uuid.UUID) ([]types.Turn, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT role, message FROM turns WHERE conversation_id = $1 ORDER BY id", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []types.Turn
	for rows.Next() {
		var t types.Turn
		if err := rows.Scan(&t.Role, &t.Message); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

func (p *PostgresStore) Init(ctx context.Context) error {
	query := `
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		namespace TEXT NOT NULL,
		page INT NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		embedding vector(768)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_namespace ON chunks(namespace);

	CREATE TABLE IF NOT EXISTS conversations (
		id UUID PRIMARY KEY,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS turns (
		id BIGSERIAL PRIMARY KEY,
		conversation_id UUID NOT NULL REFERENCES conversations(id),
		role TEXT NOT NULL CHECK (role IN ('user','assistant')),
		message TEXT NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_turns_conversation ON turns(conversation_id);
	`
	_, err := p.pool.Exec(ctx, query)
	return err
}

func (p *PostgresStore) Close() error {
	if p.pool != nil {
		p.pool.Close()
		log.Println("Postgres connection pool is closed")
	}
	return nil
}
