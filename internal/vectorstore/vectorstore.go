// Package vectorstore provides the pluggable vector similarity store used
// for retrieval.
//
// Two backends implement the same Store contract: a PostgreSQL + pgvector
// backend (transactional on write, suited to production durability) and an
// embedded chromem-go backend (file-backed, suited to single-process use).
// Switching backend is a configuration choice, never a code change at call
// sites, and both backends pass the same contract test suite.
//
// Chunk text and metadata are co-located with the vector records: one record
// per live chunk, retrievable by chunk identifier. All backends normalize
// vectors identically (L2) before storing and querying so that ranking order
// is independent of the backend, within floating-point tolerance.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorra0/sage/internal/config"
)

var (
	// ErrDimensionMismatch indicates a vector's length differs from the
	// configured embedding dimension. This is a configuration fault and is
	// never silently coerced.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrInvalidK indicates a non-positive k was requested.
	ErrInvalidK = errors.New("k must be positive")

	// ErrNotFound indicates no record exists for the requested chunk ID.
	ErrNotFound = errors.New("record not found")
)

// Record is a stored vector record together with its co-located chunk
// content and metadata. Exactly one record exists per live chunk.
type Record struct {
	ChunkID    string
	DocumentID string
	Content    string
	Metadata   map[string]string
	Embedding  []float32
}

// Hit is a single retrieval result. Score is the cosine similarity of the
// stored record to the query vector.
type Hit struct {
	Record Record
	Score  float32
}

// Store is the vector store capability. Implementations must be safe for
// concurrent readers and must serialize writers so a reader never observes a
// half-written record.
type Store interface {
	// Upsert inserts records or replaces existing ones sharing a chunk ID.
	// An empty slice is a no-op. Fails with ErrDimensionMismatch if any
	// vector's length differs from the configured dimension.
	Upsert(ctx context.Context, records []Record) error

	// Query returns up to k nearest records by cosine similarity, scores
	// non-increasing. k <= 0 fails with ErrInvalidK. An empty store returns
	// an empty result, not an error.
	Query(ctx context.Context, embedding []float32, k int, opts ...QueryOption) ([]Hit, error)

	// Get returns the record for a chunk ID, or ErrNotFound.
	Get(ctx context.Context, chunkID string) (Record, error)

	// Delete removes records by chunk ID. Missing IDs are ignored.
	Delete(ctx context.Context, chunkIDs []string) error

	// DeleteDocument removes all records belonging to a document.
	// Used for corpus pruning and re-ingestion supersede.
	DeleteDocument(ctx context.Context, documentID string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Persist flushes state for backends requiring an explicit flush;
	// write-through backends no-op.
	Persist(ctx context.Context) error

	// Load restores state for backends requiring an explicit load;
	// backends that load at construction no-op.
	Load(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// QueryOption configures a query using the functional options pattern.
type QueryOption func(*queryConfig)

type queryConfig struct {
	filter map[string]string
}

// WithFilter restricts results to records whose metadata contains the given
// key/value pair. Multiple filters combine with AND logic.
func WithFilter(key, value string) QueryOption {
	return func(c *queryConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

func buildQueryConfig(opts []QueryOption) *queryConfig {
	cfg := &queryConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// New creates the configured store backend. The pool is required for the
// postgres backend and ignored by chromem.
func New(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		if pool == nil {
			return nil, fmt.Errorf("postgres backend requires a database pool")
		}
		return NewPostgresStore(pool, cfg.EmbedderDimension, logger), nil
	case config.BackendChromem:
		return NewChromemStore(cfg.IndexPath, cfg.EmbedderDimension, logger)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidBackend, cfg.StoreBackend)
	}
}

// normalize returns an L2-normalized copy of v. Zero vectors are returned
// unchanged to avoid NaN scores. Both backends apply this identically so
// rankings agree across backends for equal inputs.
func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// checkDimension validates every record's vector length against want.
func checkDimension(records []Record, want int) error {
	for _, r := range records {
		if len(r.Embedding) != want {
			return fmt.Errorf("%w: chunk %q has %d dimensions, store configured for %d",
				ErrDimensionMismatch, r.ChunkID, len(r.Embedding), want)
		}
	}
	return nil
}
