package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// dbtx is the subset of pgx operations shared by *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ChunkRepository persists document chunks and their embeddings.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx dbtx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

// ReplaceDocumentChunks deletes existing chunks for a document and inserts new ones.
func (r *ChunkRepository) ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []domain.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk count %d does not match embedding count %d", len(chunks), len(embeddings))
	}

	_, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for i, c := range chunks {
		_, err := r.db.Exec(ctx,
			`INSERT INTO document_chunks
				(chunk_id, document_id, chunk_index, total_chunks, title, url, space_key, content, embedding, created_at, updated_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			c.ID,
			c.DocumentID,
			c.Index,
			c.TotalChunks,
			c.Title,
			c.URL,
			nullableString(c.SpaceKey),
			c.Text,
			pgvector.NewVector(embeddings[i]),
			now,
			now,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// Query returns the topK chunks nearest to the embedding by cosine distance.
func (r *ChunkRepository) Query(ctx context.Context, embedding []float32, topK int) ([]domain.RetrievedHit, error) {
	if topK <= 0 {
		topK = 5
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.db.Query(ctx,
		`SELECT chunk_id, content, title, url, chunk_index, embedding <=> $1 AS distance
		 FROM document_chunks
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		vec, topK,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []domain.RetrievedHit
	for rows.Next() {
		var h domain.RetrievedHit
		var url *string
		if err := rows.Scan(&h.ChunkID, &h.Text, &h.Title, &url, &h.ChunkIndex, &h.Distance); err != nil {
			return nil, err
		}
		if url != nil {
			h.URL = *url
		}
		hits = append(hits, h)
	}

	return hits, rows.Err()
}

// CountChunks returns the total number of indexed chunks.
func (r *ChunkRepository) CountChunks(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count)
	return count, err
}

// DeleteDocument removes all chunks for a document.
func (r *ChunkRepository) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	return err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
