package service

import (
	"context"
	"strings"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
	"github.com/ihabbishara/RAGIncidentApp/internal/telemetry"
)

// minTruncatedEntryLen is the smallest remaining budget worth filling with a
// truncated knowledge snippet. Below this the snippet is dropped instead.
const minTruncatedEntryLen = 100

const contextSeparator = "\n\n---\n\n"

// Embedder defines the embedding interface used by retrieval and ingestion.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex defines the chunk index interface used by retrieval and ingestion.
type VectorIndex interface {
	Query(ctx context.Context, embedding []float32, topK int) ([]domain.RetrievedHit, error)
	ReplaceDocumentChunks(ctx context.Context, documentID string, chunks []domain.Chunk, embeddings [][]float32) error
	CountChunks(ctx context.Context) (int, error)
}

// RetrieverConfig tunes retrieval and context assembly.
type RetrieverConfig struct {
	// TopK is the number of nearest chunks fetched from the index.
	TopK int
	// SimilarityThreshold is the minimum similarity score a hit must
	// reach to be used. Scores are in [0, 1].
	SimilarityThreshold float64
	// MaxContextLength bounds the assembled context string in runes.
	MaxContextLength int
}

// DefaultRetrieverConfig provides sane defaults for retrieval.
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		TopK:                5,
		SimilarityThreshold: 0.7,
		MaxContextLength:    2000,
	}
}

// Retriever finds knowledge chunks relevant to a query and assembles them
// into a bounded context string with source citations.
type Retriever struct {
	embedder Embedder
	index    VectorIndex
	cfg      RetrieverConfig
}

// NewRetriever creates a Retriever with default configuration.
func NewRetriever(embedder Embedder, index VectorIndex) *Retriever {
	return NewRetrieverWithConfig(embedder, index, DefaultRetrieverConfig())
}

// NewRetrieverWithConfig creates a Retriever with custom configuration.
func NewRetrieverWithConfig(embedder Embedder, index VectorIndex, cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultRetrieverConfig().TopK
	}
	if cfg.MaxContextLength <= 0 {
		cfg.MaxContextLength = DefaultRetrieverConfig().MaxContextLength
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
	}
}

// Retrieve embeds the query, fetches the TopK nearest chunks, scores them
// and drops hits below the similarity threshold. Cosine distance d in
// [0, 2] maps to similarity s = 1 - d/2.
func (r *Retriever) Retrieve(ctx context.Context, query string) ([]domain.RetrievedHit, error) {
	ctx, span := telemetry.StartSpan(ctx, "Retriever.Retrieve", telemetry.SpanAttributes{
		Stage: "retrieval",
	})
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	embedding, err := r.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalFailed, "failed to embed query", err)
	}

	hits, err := r.index.Query(ctx, embedding, r.cfg.TopK)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalFailed, "vector query failed", err)
	}

	kept := make([]domain.RetrievedHit, 0, len(hits))
	for _, hit := range hits {
		hit.Score = 1 - hit.Distance/2
		if hit.Score < r.cfg.SimilarityThreshold {
			continue
		}
		kept = append(kept, hit)
	}
	return kept, nil
}

// AssembleContext concatenates hit texts into a single context string of at
// most MaxContextLength runes. Each entry is prefixed with a source header
// and entries are joined by a separator line. An entry that does not fit is
// truncated with an ellipsis when a useful amount of budget remains,
// otherwise dropped along with everything after it.
func (r *Retriever) AssembleContext(query string, hits []domain.RetrievedHit) domain.ContextBundle {
	bundle := domain.ContextBundle{Query: query}
	if len(hits) == 0 {
		return bundle
	}

	var b strings.Builder
	sources := make([]domain.ScoredSource, 0, len(hits))
	used := 0

	for _, hit := range hits {
		entry := "[Source: " + hit.Title + "]\n" + hit.Text
		sep := ""
		if used > 0 {
			sep = contextSeparator
		}

		entryLen := len([]rune(entry))
		sepLen := len([]rune(sep))
		if used+sepLen+entryLen > r.cfg.MaxContextLength {
			remaining := r.cfg.MaxContextLength - used - sepLen
			if remaining >= minTruncatedEntryLen {
				runes := []rune(entry)
				b.WriteString(sep)
				b.WriteString(string(runes[:remaining-3]))
				b.WriteString("...")
				sources = append(sources, domain.ScoredSource{
					Title:      hit.Title,
					URL:        hit.URL,
					ChunkIndex: hit.ChunkIndex,
					Score:      hit.Score,
				})
			}
			break
		}

		b.WriteString(sep)
		b.WriteString(entry)
		used += sepLen + entryLen
		sources = append(sources, domain.ScoredSource{
			Title:      hit.Title,
			URL:        hit.URL,
			ChunkIndex: hit.ChunkIndex,
			Score:      hit.Score,
		})
	}

	bundle.Context = b.String()
	bundle.Sources = sources
	bundle.SourceCount = len(sources)
	return bundle
}

// RetrieveWithContext runs Retrieve and AssembleContext in one step.
func (r *Retriever) RetrieveWithContext(ctx context.Context, query string) (domain.ContextBundle, error) {
	hits, err := r.Retrieve(ctx, query)
	if err != nil {
		return domain.ContextBundle{}, err
	}
	return r.AssembleContext(query, hits), nil
}

// ChunkCount reports how many chunks the index currently holds.
func (r *Retriever) ChunkCount(ctx context.Context) (int, error) {
	return r.index.CountChunks(ctx)
}
