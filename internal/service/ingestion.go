package service

import (
	"context"
	"fmt"
	"log"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
)

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	DocumentsIndexed int
	ChunksIndexed    int
	Failures         []IngestFailure
}

// IngestFailure records a document that could not be indexed.
type IngestFailure struct {
	DocumentID string
	Err        error
}

// IngestionService chunks documents, embeds the chunks, and writes them to
// the vector index.
type IngestionService struct {
	chunker  *Chunker
	embedder Embedder
	index    VectorIndex
}

func NewIngestionService(chunker *Chunker, embedder Embedder, index VectorIndex) *IngestionService {
	return &IngestionService{
		chunker:  chunker,
		embedder: embedder,
		index:    index,
	}
}

// IngestDocument indexes a single document, replacing any chunks previously
// stored for it.
func (s *IngestionService) IngestDocument(ctx context.Context, doc domain.Document) (int, error) {
	if err := domain.ValidateDocument(&doc); err != nil {
		return 0, err
	}

	chunks := s.chunker.BuildChunks(doc)
	if len(chunks) == 0 {
		return 0, s.index.ReplaceDocumentChunks(ctx, doc.ID, nil, nil)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := s.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed document %s: %w", doc.ID, err)
	}

	if err := s.index.ReplaceDocumentChunks(ctx, doc.ID, chunks, embeddings); err != nil {
		return 0, fmt.Errorf("index document %s: %w", doc.ID, err)
	}

	return len(chunks), nil
}

// IngestDocuments indexes a batch of documents. A failure on one document is
// recorded in the report and does not stop the others.
func (s *IngestionService) IngestDocuments(ctx context.Context, docs []domain.Document) (IngestReport, error) {
	var report IngestReport

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		n, err := s.IngestDocument(ctx, doc)
		if err != nil {
			log.Printf("ingestion: document %s failed: %v", doc.ID, err)
			report.Failures = append(report.Failures, IngestFailure{DocumentID: doc.ID, Err: err})
			continue
		}

		report.DocumentsIndexed++
		report.ChunksIndexed += n
	}

	return report, nil
}
