// Package corpus defines the shared data model of the ingested document
// corpus: documents, chunks, and the chunker that splits one into the other.
//
// Documents are immutable once created; re-ingesting a document supersedes
// its previous chunks rather than mutating them. Chunks carry a stable
// content-derived identifier so re-ingestion of unchanged text maps to the
// same record.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Origin describes how a document entered the corpus.
type Origin string

const (
	OriginUpload Origin = "upload"
	OriginCrawl  Origin = "crawl"
)

// Document represents a source document supplied by an ingestion
// collaborator (file upload, web crawler). The core is agnostic to how the
// text was obtained.
type Document struct {
	ID         string
	Origin     Origin
	Text       string
	IngestedAt time.Time
}

// Chunk is a bounded span of document text, the unit of retrieval.
// The DocumentID reference is weak: it is used for lookup and provenance
// only, never for ownership.
type Chunk struct {
	ID         string
	DocumentID string
	Ordinal    int
	Text       string
	Metadata   map[string]string
}

// Len returns the chunk length in bytes.
func (c Chunk) Len() int { return len(c.Text) }

// ChunkID derives the stable identifier for a chunk from its parent
// document, ordinal position, and text. Identical content always produces
// the identical identifier.
func ChunkID(documentID string, ordinal int, text string) string {
	h := sha256.New()
	h.Write([]byte(documentID))
	h.Write([]byte{':'})
	h.Write([]byte(strconv.Itoa(ordinal)))
	h.Write([]byte{':'})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}
