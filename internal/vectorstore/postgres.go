package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresStore is the persistent vector store backend on PostgreSQL with
// the pgvector extension. Upserts run in a single transaction, so concurrent
// readers observe either the old record or the fully-updated new one, never
// a partial write.
//
// The schema lives in db/migrations; the embedding column dimension must
// match the configured dimension (validated at startup by config.Validate).
type PostgresStore struct {
	pool      *pgxpool.Pool
	dimension int
	logger    *slog.Logger
}

// NewPostgresStore creates a PostgresStore on an existing connection pool.
// The pool's lifecycle is managed by the caller.
func NewPostgresStore(pool *pgxpool.Pool, dimension int, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{
		pool:      pool,
		dimension: dimension,
		logger:    logger,
	}
}

// Upsert inserts or replaces records in one transaction.
func (s *PostgresStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := checkDimension(records, s.dimension); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning upsert transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const q = `
		INSERT INTO chunks (id, document_id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			document_id = EXCLUDED.document_id,
			content     = EXCLUDED.content,
			metadata    = EXCLUDED.metadata,
			embedding   = EXCLUDED.embedding`

	for _, r := range records {
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for chunk %q: %w", r.ChunkID, err)
		}
		vec := pgvector.NewVector(normalize(r.Embedding))
		if _, err := tx.Exec(ctx, q, r.ChunkID, r.DocumentID, r.Content, metadataJSON, vec); err != nil {
			return fmt.Errorf("upserting chunk %q: %w", r.ChunkID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}

	s.logger.Debug("upserted records", "count", len(records))
	return nil
}

// Query performs a cosine similarity search. pgvector's <=> operator
// computes cosine distance; similarity is 1 - distance.
func (s *PostgresStore) Query(ctx context.Context, embedding []float32, k int, opts ...QueryOption) ([]Hit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if len(embedding) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, store configured for %d",
			ErrDimensionMismatch, len(embedding), s.dimension)
	}
	cfg := buildQueryConfig(opts)

	vec := pgvector.NewVector(normalize(embedding))

	var rows pgx.Rows
	var err error
	if len(cfg.filter) > 0 {
		// The filter is always marshaled here, never taken from user input
		// as raw JSON; the JSONB @> operator with a bound parameter is safe.
		filterJSON, marshalErr := json.Marshal(cfg.filter)
		if marshalErr != nil {
			return nil, fmt.Errorf("marshaling filter: %w", marshalErr)
		}
		rows, err = s.pool.Query(ctx, `
			SELECT id, document_id, content, metadata, 1 - (embedding <=> $1) AS similarity
			FROM chunks
			WHERE metadata @> $2
			ORDER BY embedding <=> $1
			LIMIT $3`, vec, filterJSON, k)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, document_id, content, metadata, 1 - (embedding <=> $1) AS similarity
			FROM chunks
			ORDER BY embedding <=> $1
			LIMIT $2`, vec, k)
	}
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0, k)
	for rows.Next() {
		var (
			hit          Hit
			metadataJSON []byte
			similarity   float64
		)
		if err := rows.Scan(&hit.Record.ChunkID, &hit.Record.DocumentID, &hit.Record.Content, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &hit.Record.Metadata); err != nil {
			s.logger.Warn("failed to parse chunk metadata", "chunk_id", hit.Record.ChunkID, "error", err)
			hit.Record.Metadata = map[string]string{}
		}
		hit.Score = float32(similarity)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating result rows: %w", err)
	}
	return hits, nil
}

// Get returns the record for a chunk ID.
func (s *PostgresStore) Get(ctx context.Context, chunkID string) (Record, error) {
	var (
		r            Record
		metadataJSON []byte
		vec          pgvector.Vector
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, document_id, content, metadata, embedding FROM chunks WHERE id = $1`,
		chunkID,
	).Scan(&r.ChunkID, &r.DocumentID, &r.Content, &metadataJSON, &vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: chunk %q", ErrNotFound, chunkID)
		}
		return Record{}, fmt.Errorf("getting chunk %q: %w", chunkID, err)
	}
	if err := json.Unmarshal(metadataJSON, &r.Metadata); err != nil {
		s.logger.Warn("failed to parse chunk metadata", "chunk_id", chunkID, "error", err)
		r.Metadata = map[string]string{}
	}
	r.Embedding = vec.Slice()
	return r, nil
}

// Delete removes records by chunk ID. Missing IDs are ignored.
func (s *PostgresStore) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE id = ANY($1)`, chunkIDs); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// DeleteDocument removes all records belonging to a document.
func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("deleting document %q: %w", documentID, err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return int(count), nil
}

// Persist is a no-op: PostgreSQL is durable on commit.
func (s *PostgresStore) Persist(context.Context) error { return nil }

// Load is a no-op: records are read on demand.
func (s *PostgresStore) Load(context.Context) error { return nil }

// Close is a no-op: the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }
