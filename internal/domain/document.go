package domain

import "fmt"

// Document represents a knowledge base source document produced by ingestion.
// Documents are immutable once created; chunks are derived from them.
type Document struct {
	ID       string
	Title    string
	Body     string
	SpaceKey string
	Labels   []string
	Version  int
	URL      string
}

// Chunk is a bounded-length text segment derived deterministically from a
// Document for embedding and retrieval. Chunks are never mutated after
// creation.
type Chunk struct {
	ID          string
	DocumentID  string
	Index       int
	Text        string
	TotalChunks int

	// Document metadata carried alongside the chunk for the vector index.
	Title    string
	URL      string
	SpaceKey string
	Labels   []string
	Version  int
}

// ChunkID derives the deterministic chunk identifier for a document and
// chunk index.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// RetrievedHit is a transient nearest-neighbor result produced per query.
// Distance is the raw cosine distance reported by the vector index, in
// [0, 2]. Score is the normalized similarity derived from it.
type RetrievedHit struct {
	ChunkID    string
	Text       string
	Title      string
	URL        string
	ChunkIndex int
	Distance   float64
	Score      float64
}

// ScoredSource is a citation entry derived from a RetrievedHit.
type ScoredSource struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// ContextBundle is the assembled, length-bounded context passed to the
// generation model plus its citation list. Built once per incident and
// discarded after use.
type ContextBundle struct {
	Query       string
	Context     string
	Sources     []ScoredSource
	SourceCount int
}

// ValidateDocument validates a Document before ingestion.
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.Title == "" {
		return fmt.Errorf("document Title is required")
	}

	return nil
}
