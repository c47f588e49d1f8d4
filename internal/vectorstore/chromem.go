package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

// collectionName is the single chromem collection holding all corpus chunks.
const collectionName = "sage-corpus"

// docIDKey is the reserved metadata key under which the parent document ID
// is stored inside chromem. It is stripped before metadata is returned so
// records round-trip identically across backends.
const docIDKey = "_document_id"

// ChromemStore is the lightweight file-backed vector store on chromem-go.
// The persistent DB writes through to disk on every mutation, so Persist and
// Load are no-ops, mirroring the durable backend's contract.
//
// chromem serializes writes per document internally; the store mutex
// additionally makes the delete-then-add replacement atomic with respect to
// other writers.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimension  int
	logger     *slog.Logger

	mu sync.Mutex // serializes writers; readers go through chromem directly
}

// NewChromemStore opens (or creates) the persistent index at path.
func NewChromemStore(path string, dimension int, logger *slog.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening chromem index at %q: %w", path, err)
	}

	// The embedding func is never invoked: every document is added with an
	// explicit embedding. A stub keeps chromem from reaching for a default
	// remote embedder.
	noEmbed := func(_ context.Context, _ string) ([]float32, error) {
		return nil, fmt.Errorf("embeddings must be supplied explicitly")
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, noEmbed)
	if err != nil {
		return nil, fmt.Errorf("opening collection %q: %w", collectionName, err)
	}

	return &ChromemStore{
		db:         db,
		collection: collection,
		dimension:  dimension,
		logger:     logger,
	}, nil
}

// Upsert inserts or replaces records. chromem has no native upsert, so an
// existing record is deleted before the replacement is added. chromem writes
// through to disk per document; a mid-batch failure rolls back the records
// added so far, so a batch never lands partially.
func (s *ChromemStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := checkDimension(records, s.dimension); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	added := make([]string, 0, len(records))
	rollback := func() {
		if len(added) == 0 {
			return
		}
		if err := s.collection.Delete(ctx, nil, nil, added...); err != nil {
			s.logger.Warn("rolling back partial upsert", "added", len(added), "error", err)
		}
	}

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			rollback()
			return fmt.Errorf("upsert interrupted: %w", err)
		}

		if err := s.collection.Delete(ctx, nil, nil, r.ChunkID); err != nil {
			s.logger.Debug("pre-upsert delete failed", "chunk_id", r.ChunkID, "error", err)
		}

		metadata := make(map[string]string, len(r.Metadata)+1)
		for k, v := range r.Metadata {
			metadata[k] = v
		}
		metadata[docIDKey] = r.DocumentID

		doc := chromem.Document{
			ID:        r.ChunkID,
			Metadata:  metadata,
			Embedding: normalize(r.Embedding),
			Content:   r.Content,
		}
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			rollback()
			return fmt.Errorf("adding chunk %q: %w", r.ChunkID, err)
		}
		added = append(added, r.ChunkID)
	}

	s.logger.Debug("upserted records", "count", len(records))
	return nil
}

// Query performs a cosine similarity search. chromem rejects nResults larger
// than the collection, so k is clamped to the current size.
func (s *ChromemStore) Query(ctx context.Context, embedding []float32, k int, opts ...QueryOption) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, store configured for %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}
	cfg := buildQueryConfig(opts)

	count := s.collection.Count()
	if count == 0 {
		return []Hit{}, nil
	}
	if k > count {
		k = count
	}

	results, err := s.collection.QueryEmbedding(ctx, normalize(embedding), k, cfg.filter, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, res := range results {
		hits = append(hits, Hit{
			Record: recordFromChromem(res.ID, res.Content, res.Metadata, res.Embedding),
			Score:  res.Similarity,
		})
	}
	return hits, nil
}

// Get returns the record for a chunk ID. chromem has no sentinel for a
// missing document, so the not-found case is told apart from genuine
// backend faults by its error text.
func (s *ChromemStore) Get(ctx context.Context, chunkID string) (Record, error) {
	doc, err := s.collection.GetByID(ctx, chunkID)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return Record{}, fmt.Errorf("%w: chunk %q", ErrNotFound, chunkID)
		}
		return Record{}, fmt.Errorf("getting chunk %q: %w", chunkID, err)
	}
	return recordFromChromem(doc.ID, doc.Content, doc.Metadata, doc.Embedding), nil
}

// Delete removes records by chunk ID. chromem ignores IDs that do not
// exist, which matches the idempotent contract.
func (s *ChromemStore) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection.Count() == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, nil, nil, chunkIDs...); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// DeleteDocument removes all records belonging to a document.
func (s *ChromemStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collection.Count() == 0 {
		return nil
	}
	if err := s.collection.Delete(ctx, map[string]string{docIDKey: documentID}, nil); err != nil {
		return fmt.Errorf("deleting document %q: %w", documentID, err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *ChromemStore) Count(context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Persist is a no-op: the persistent DB writes through on every mutation.
func (s *ChromemStore) Persist(context.Context) error {
	s.logger.Debug("chromem store is write-through, persist is a no-op")
	return nil
}

// Load is a no-op: the index is loaded when the store is constructed.
func (s *ChromemStore) Load(context.Context) error { return nil }

// Close is a no-op: chromem holds no long-lived handles.
func (s *ChromemStore) Close() error { return nil }

// recordFromChromem rebuilds a Record from chromem's document fields,
// extracting the reserved document ID key from metadata.
func recordFromChromem(id, content string, metadata map[string]string, embedding []float32) Record {
	r := Record{
		ChunkID:   id,
		Content:   content,
		Embedding: embedding,
		Metadata:  make(map[string]string, len(metadata)),
	}
	for k, v := range metadata {
		if k == docIDKey {
			r.DocumentID = v
			continue
		}
		r.Metadata[k] = v
	}
	return r
}
