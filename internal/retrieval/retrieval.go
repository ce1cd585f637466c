// Package retrieval supplies the grounding context for a chat turn: the
// user's document chunks nearest to the query embedding, ranked by cosine
// similarity.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 5

// Embedder turns query text into an embedding vector.
// *provider.Embedder implements it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Querier is the common interface satisfied by both *pgxpool.Pool and
// pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Chunk is one retrieved document fragment.
type Chunk struct {
	ID      uuid.UUID
	Content string
	Source  *string
	Score   float64
}

// Retriever performs owner-scoped nearest-neighbour search over document
// chunks.
type Retriever struct {
	db       Querier
	embedder Embedder
	logger   *slog.Logger
	topK     int
}

// NewRetriever creates a Retriever. topK <= 0 selects DefaultTopK.
func NewRetriever(db Querier, embedder Embedder, logger *slog.Logger, topK int) (*Retriever, error) {
	if db == nil {
		return nil, errors.New("querier is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{db: db, embedder: embedder, logger: logger, topK: topK}, nil
}

// Search returns the owner's chunks nearest to query, best first.
func (r *Retriever) Search(ctx context.Context, query string, ownerID uuid.UUID) ([]Chunk, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, content, source, 1 - (embedding <=> $1) AS score
		 FROM document_chunks
		 WHERE user_id = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(vec), ownerID, r.topK,
	)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Content, &c.Source, &c.Score); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk rows: %w", err)
	}

	r.logger.Debug("retrieved chunks", "count", len(chunks), "owner", ownerID)
	return chunks, nil
}

// Retrieve returns the ranked context text for query: retrieved chunk
// contents joined by blank lines, empty when the owner has no documents.
func (r *Retriever) Retrieve(ctx context.Context, query string, ownerID uuid.UUID) (string, error) {
	chunks, err := r.Search(ctx, query, ownerID)
	if err != nil {
		return "", err
	}
	return ContextText(chunks), nil
}

// ContextText joins chunk contents into the prompt context block.
func ContextText(chunks []Chunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}
	return strings.Join(parts, "\n\n")
}
