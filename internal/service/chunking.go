package service

import (
	"strings"
	"unicode"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
)

// ChunkConfig controls how knowledge documents are split for embedding.
type ChunkConfig struct {
	// ChunkSize is the target maximum chunk length in runes.
	ChunkSize int
	// Overlap is the maximum number of runes carried over from the tail
	// of one chunk into the next, at sentence granularity.
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		ChunkSize: 800,
		Overlap:   200,
	}
}

// Chunker splits document text into overlapping, sentence-aligned chunks.
type Chunker struct {
	cfg ChunkConfig
}

func NewChunker(cfg ChunkConfig) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = cfg.ChunkSize / 2
	}
	return &Chunker{cfg: cfg}
}

// Split breaks text into chunks of at most ChunkSize runes, never splitting
// inside a sentence. Consecutive chunks share trailing sentences of the
// previous chunk up to Overlap runes. Text that fits in a single chunk is
// returned as-is; empty or whitespace-only text yields nil. A single
// sentence longer than ChunkSize is kept whole.
func (c *Chunker) Split(text string) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	if len([]rune(clean)) <= c.cfg.ChunkSize {
		return []string{clean}
	}

	sentences := splitSentences(clean)
	if len(sentences) == 0 {
		return nil
	}

	chunks := make([]string, 0, 8)
	current := make([]string, 0, 16)
	currentLen := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Seed the next chunk with trailing sentences of the one just
		// closed, newest first, until the overlap budget runs out.
		carry := make([]string, 0, len(current))
		carryLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			sl := len([]rune(current[i]))
			if carryLen > 0 && carryLen+1+sl > c.cfg.Overlap {
				break
			}
			if carryLen == 0 && sl > c.cfg.Overlap {
				break
			}
			carry = append(carry, current[i])
			if carryLen > 0 {
				carryLen++
			}
			carryLen += sl
		}
		// carry was collected tail-first; restore document order
		for l, r := 0, len(carry)-1; l < r; l, r = l+1, r-1 {
			carry[l], carry[r] = carry[r], carry[l]
		}
		current = carry
		currentLen = carryLen
	}

	for _, sentence := range sentences {
		sl := len([]rune(sentence))
		if currentLen > 0 && currentLen+1+sl > c.cfg.ChunkSize {
			flush()
			// A carried overlap plus the new sentence can still be too
			// long; drop the overlap rather than exceed the budget.
			if currentLen > 0 && currentLen+1+sl > c.cfg.ChunkSize {
				current = current[:0]
				currentLen = 0
			}
		}
		current = append(current, sentence)
		if currentLen > 0 {
			currentLen++
		}
		currentLen += sl
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// BuildChunks splits a document and wraps each piece with its provenance
// so retrieval hits can be cited back to the source page.
func (c *Chunker) BuildChunks(doc domain.Document) []domain.Chunk {
	parts := c.Split(doc.Body)
	if len(parts) == 0 {
		return nil
	}
	chunks := make([]domain.Chunk, 0, len(parts))
	for i, text := range parts {
		chunks = append(chunks, domain.Chunk{
			ID:          domain.ChunkID(doc.ID, i),
			DocumentID:  doc.ID,
			Index:       i,
			Text:        text,
			TotalChunks: len(parts),
			Title:       doc.Title,
			URL:         doc.URL,
			SpaceKey:    doc.SpaceKey,
			Labels:      doc.Labels,
			Version:     doc.Version,
		})
	}
	return chunks
}

// splitSentences cuts text after terminal punctuation followed by
// whitespace. Newline runs also act as sentence boundaries so headings
// and list items become their own sentences.
func splitSentences(text string) []string {
	runes := []rune(text)
	sentences := make([]string, 0, 32)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		boundary := false
		switch {
		case r == '.' || r == '!' || r == '?':
			// consume a run of terminal punctuation ("?!", "...")
			j := i
			for j+1 < len(runes) && (runes[j+1] == '.' || runes[j+1] == '!' || runes[j+1] == '?') {
				j++
			}
			if j+1 >= len(runes) || unicode.IsSpace(runes[j+1]) {
				i = j
				boundary = true
			}
		case r == '\n':
			boundary = true
		}
		if !boundary {
			continue
		}
		s := strings.TrimSpace(string(runes[start : i+1]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = i + 1
	}
	if start < len(runes) {
		s := strings.TrimSpace(string(runes[start:]))
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
