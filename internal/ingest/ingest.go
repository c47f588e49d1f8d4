// Package ingest turns raw documents into retrievable state: chunks in the
// vector store and entities in the knowledge graph.
//
// Documents are processed concurrently with a bounded worker count. Each
// document is an isolated unit of work: its failure is recorded in the
// report and never aborts the batch. Re-ingesting a document supersedes its
// previous chunks.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quorra0/sage/internal/corpus"
	"github.com/quorra0/sage/internal/graph"
	"github.com/quorra0/sage/internal/provider"
	"github.com/quorra0/sage/internal/vectorstore"
)

// DefaultWorkers bounds concurrent document ingestion.
const DefaultWorkers = 4

// Failure records one document that could not be ingested.
type Failure struct {
	DocumentID string
	Err        error
}

// Report summarizes one ingestion batch.
type Report struct {
	Documents int
	Chunks    int
	Failures  []Failure
	Elapsed   time.Duration
}

// Pipeline ingests documents. The graph builder is optional; without it
// only the vector store is populated.
type Pipeline struct {
	store    vectorstore.Store
	embedder provider.Embedder
	chunker  *corpus.Chunker
	builder  *graph.Builder
	logger   *slog.Logger
	workers  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers sets the concurrent document limit.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithGraphBuilder enables knowledge graph extraction during ingestion.
func WithGraphBuilder(b *graph.Builder) Option {
	return func(p *Pipeline) { p.builder = b }
}

// New creates a Pipeline.
func New(store vectorstore.Store, embedder provider.Embedder, chunker *corpus.Chunker, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		store:    store,
		embedder: embedder,
		chunker:  chunker,
		logger:   logger,
		workers:  DefaultWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests the batch and persists the store afterwards. Per-document
// failures land in the report; the returned error is reserved for context
// cancellation and store persistence.
func (p *Pipeline) Run(ctx context.Context, docs []corpus.Document) (*Report, error) {
	start := time.Now()
	report := &Report{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	// Chunks of successfully ingested documents, kept for graph extraction
	// so provenance points at stored chunk IDs.
	var ingested []corpus.Chunk

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			chunks, err := p.ingestDocument(gctx, doc)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Cancellation aborts the batch; anything else is isolated
				// to this document.
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.logger.Warn("document ingestion failed",
					"document_id", doc.ID, "origin", doc.Origin, "error", err)
				report.Failures = append(report.Failures, Failure{DocumentID: doc.ID, Err: err})
				return nil
			}
			report.Documents++
			report.Chunks += len(chunks)
			ingested = append(ingested, chunks...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("ingestion interrupted: %w", err)
	}

	if p.builder != nil {
		if _, err := p.builder.Build(ctx, ingested); err != nil {
			return report, err
		}
	}

	if err := p.store.Persist(ctx); err != nil {
		return report, fmt.Errorf("persisting store: %w", err)
	}

	report.Elapsed = time.Since(start)
	p.logger.Info("ingestion complete",
		"documents", report.Documents,
		"chunks", report.Chunks,
		"failures", len(report.Failures),
		"elapsed", report.Elapsed,
	)
	return report, nil
}

// ingestDocument chunks, embeds, and stores one document, returning the
// stored chunks. Existing chunks for the document are removed first so
// re-ingestion supersedes cleanly: stale chunks from a longer prior version
// never survive.
func (p *Pipeline) ingestDocument(ctx context.Context, doc corpus.Document) ([]corpus.Chunk, error) {
	chunks := p.chunker.Split(doc)
	if len(chunks) == 0 {
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	embeddings, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.Record{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Content:    c.Text,
			Metadata:   c.Metadata,
			Embedding:  embeddings[i],
		}
	}

	if err := p.store.DeleteDocument(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("removing stale chunks for document %q: %w", doc.ID, err)
	}
	if err := p.store.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("storing chunks for document %q: %w", doc.ID, err)
	}

	p.logger.Debug("ingested document", "document_id", doc.ID, "chunks", len(records))
	return chunks, nil
}
