package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quorra0/sage/internal/corpus"
)

// maxChunksPerBuild caps one build pass.
const maxChunksPerBuild = 10000

// Builder runs extraction over chunks and merges the results into a graph.
// Rebuilding from the same chunks leaves the graph unchanged.
type Builder struct {
	graph     *Graph
	extractor Extractor
	logger    *slog.Logger
}

// NewBuilder creates a builder merging into g.
func NewBuilder(g *Graph, extractor Extractor, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{graph: g, extractor: extractor, logger: logger}
}

// Graph returns the graph the builder merges into.
func (b *Builder) Graph() *Graph { return b.graph }

// BuildResult summarizes one build pass.
type BuildResult struct {
	ChunksProcessed int
	ChunksFailed    int
	Entities        int
	Relations       int
}

// Build extracts and merges each chunk in order. A chunk whose extraction
// fails is logged and counted, never fatal to the pass. Stops early if ctx
// is canceled.
func (b *Builder) Build(ctx context.Context, chunks []corpus.Chunk) (BuildResult, error) {
	if len(chunks) > maxChunksPerBuild {
		b.logger.Warn("truncating build pass",
			"chunks", len(chunks), "limit", maxChunksPerBuild)
		chunks = chunks[:maxChunksPerBuild]
	}

	var result BuildResult
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("graph build interrupted: %w", err)
		}

		ex, err := b.extractor.Extract(ctx, chunk)
		if err != nil {
			b.logger.Warn("extraction failed", "chunk_id", chunk.ID, "error", err)
			result.ChunksFailed++
			continue
		}

		b.graph.Merge(ex)
		result.ChunksProcessed++
		result.Entities += len(ex.Entities)
		result.Relations += len(ex.Relations)
	}

	stats := b.graph.Statistics()
	b.logger.Info("graph build complete",
		"chunks", result.ChunksProcessed,
		"failed", result.ChunksFailed,
		"nodes", stats.Nodes,
		"edges", stats.Edges,
	)
	return result, nil
}
