package corpus

import "strings"

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Chunker splits document text into fixed-size overlapping chunks.
// Splitting operates on runes so multi-byte characters are never cut in half.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// NewChunker creates a chunker with the given options.
func NewChunker(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Overlap must leave forward progress.
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

// Split splits a document into chunks. Empty or whitespace-only text
// produces no chunks. Chunk identifiers are content-derived via ChunkID, so
// splitting the same document twice yields identical chunks.
func (c *Chunker) Split(doc Document) []Chunk {
	text := strings.TrimSpace(doc.Text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	step := c.chunkSize - c.overlap

	chunks := make([]Chunk, 0, len(runes)/step+1)
	ordinal := 0
	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		chunkText := string(runes[start:end])
		chunks = append(chunks, Chunk{
			ID:         ChunkID(doc.ID, ordinal, chunkText),
			DocumentID: doc.ID,
			Ordinal:    ordinal,
			Text:       chunkText,
			Metadata: map[string]string{
				"document_id": doc.ID,
				"origin":      string(doc.Origin),
			},
		})
		ordinal++

		if end == len(runes) {
			break
		}
	}
	return chunks
}
