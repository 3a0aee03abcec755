package repository

import (
	"context"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ChunkStore is the pool-backed vector index. Writes run in a transaction so a
// document is never left partially indexed.
type ChunkStore struct {
	repo *ChunkRepository
	tx   *TxRunner
}

func NewChunkStore(pool *pgxpool.Pool) *ChunkStore {
	return &ChunkStore{
		repo: NewChunkRepository(pool),
		tx:   NewTxRunner(pool),
	}
}

func (s *ChunkStore) ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []domain.Chunk, embeddings [][]float32) error {
	return s.tx.WithTx(ctx, func(r *ChunkRepository) error {
		return r.ReplaceDocumentChunks(ctx, documentID, chunks, embeddings)
	})
}

func (s *ChunkStore) Query(ctx context.Context, embedding []float32, topK int) ([]domain.RetrievedHit, error) {
	return s.repo.Query(ctx, embedding, topK)
}

func (s *ChunkStore) CountChunks(ctx context.Context) (int, error) {
	return s.repo.CountChunks(ctx)
}
