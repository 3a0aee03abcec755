//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
	"github.com/ihabbishara/RAGIncidentApp/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEmbedding(seed float32) []float32 {
	v := make([]float32, 1536)
	v[0] = seed
	v[1] = 1 - seed
	return v
}

func testChunks(docID string, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:          domain.ChunkID(docID, i),
			DocumentID:  docID,
			Index:       i,
			TotalChunks: n,
			Title:       "VPN Troubleshooting",
			URL:         "https://wiki.example.com/vpn",
			SpaceKey:    "ITKB",
			Text:        fmt.Sprintf("Chunk %d of the VPN troubleshooting guide.", i),
		}
	}
	return chunks
}

func TestChunkRepository_ReplaceDocumentChunks(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	chunks := testChunks("doc-1", 3)
	embeddings := [][]float32{testEmbedding(0.1), testEmbedding(0.2), testEmbedding(0.3)}

	require.NoError(t, repo.ReplaceDocumentChunks(ctx, "doc-1", chunks, embeddings))

	count, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Replacing with fewer chunks removes the stale ones.
	require.NoError(t, repo.ReplaceDocumentChunks(ctx, "doc-1", chunks[:1], embeddings[:1]))

	count, err = repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChunkRepository_ReplaceDocumentChunks_MismatchedEmbeddings(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	err := repo.ReplaceDocumentChunks(ctx, "doc-1", testChunks("doc-1", 2), [][]float32{testEmbedding(0.1)})
	assert.Error(t, err)
}

func TestChunkRepository_Query(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	chunks := testChunks("doc-1", 3)
	embeddings := [][]float32{testEmbedding(0.0), testEmbedding(0.5), testEmbedding(1.0)}
	require.NoError(t, repo.ReplaceDocumentChunks(ctx, "doc-1", chunks, embeddings))

	hits, err := repo.Query(ctx, testEmbedding(0.0), 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Nearest first.
	assert.Equal(t, domain.ChunkID("doc-1", 0), hits[0].ChunkID)
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)
	assert.Equal(t, "VPN Troubleshooting", hits[0].Title)
	assert.Equal(t, "https://wiki.example.com/vpn", hits[0].URL)
	assert.Equal(t, "Chunk 0 of the VPN troubleshooting guide.", hits[0].Text)
}

func TestChunkRepository_Query_Empty(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	hits, err := repo.Query(ctx, testEmbedding(0.0), 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestChunkRepository_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChunkRepository(pool)

	require.NoError(t, repo.ReplaceDocumentChunks(ctx, "doc-1", testChunks("doc-1", 2), [][]float32{testEmbedding(0.1), testEmbedding(0.2)}))
	require.NoError(t, repo.ReplaceDocumentChunks(ctx, "doc-2", testChunks("doc-2", 1), [][]float32{testEmbedding(0.9)}))

	require.NoError(t, repo.DeleteDocument(ctx, "doc-1"))

	count, err := repo.CountChunks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
