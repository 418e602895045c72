package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// ErrVectorUnsupported is returned when semantic retrieval is requested on
// a backend without pgvector. Callers treat it as "no results".
var ErrVectorUnsupported = errors.New("vector search requires the postgres backend")

// Snippet is one retrieved context line for the chat assistant.
type Snippet struct {
	TableName  string
	Text       string
	Similarity float64
}

// DocumentRepository holds embedded text renderings of rows from the other
// tables and serves similarity search over them.
type DocumentRepository struct {
	db *DB
}

func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Insert(ctx context.Context, tableName, content string, embedding []float32) error {
	if r.db.dbType != "postgres" {
		return ErrVectorUnsupported
	}

	query := `
		INSERT INTO documents (id, table_name, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, NOW())`

	_, err := r.db.conn.ExecContext(ctx, query,
		uuid.New().String(), tableName, content, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// Search returns up to limit snippets ordered by cosine similarity to the
// query embedding. Rows below threshold are dropped; the dispatcher passes
// 0.0, which keeps every ranked row.
func (r *DocumentRepository) Search(ctx context.Context, embedding []float32, limit int, threshold float64) ([]Snippet, error) {
	if r.db.dbType != "postgres" {
		return nil, ErrVectorUnsupported
	}

	query := `
		SELECT table_name, content, 1 - (embedding <=> $1) AS similarity
		FROM documents
		WHERE 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1
		LIMIT $3`

	rows, err := r.db.conn.QueryContext(ctx, query, pgvector.NewVector(embedding), threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}
	defer rows.Close()

	var snippets []Snippet
	for rows.Next() {
		var s Snippet
		if err := rows.Scan(&s.TableName, &s.Text, &s.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		snippets = append(snippets, s)
	}
	return snippets, rows.Err()
}
