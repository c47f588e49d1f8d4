package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorra0/sage/internal/corpus"
)

// failingExtractor fails for chunks whose ID appears in failIDs and
// otherwise delegates to the regex extractor.
type failingExtractor struct {
	inner   Extractor
	failIDs map[string]bool
}

func (f *failingExtractor) Extract(ctx context.Context, c corpus.Chunk) (Extraction, error) {
	if f.failIDs[c.ID] {
		return Extraction{}, errors.New("extraction exploded")
	}
	return f.inner.Extract(ctx, c)
}

func buildChunks() []corpus.Chunk {
	return []corpus.Chunk{
		{ID: "c1", DocumentID: "doc1", Ordinal: 0, Text: "Grace Hopper works for Harvard University."},
		{ID: "c2", DocumentID: "doc2", Ordinal: 0, Text: "Cobol is a programming language."},
	}
}

func TestBuilderBuild(t *testing.T) {
	t.Run("processes every chunk", func(t *testing.T) {
		b := NewBuilder(New(), NewRegexExtractor(), nil)

		result, err := b.Build(context.Background(), buildChunks())
		require.NoError(t, err)

		assert.Equal(t, 2, result.ChunksProcessed)
		assert.Equal(t, 0, result.ChunksFailed)
		assert.Positive(t, result.Entities)

		_, err = b.Graph().Node("Grace Hopper")
		assert.NoError(t, err)
	})

	t.Run("provenance names the source chunks", func(t *testing.T) {
		b := NewBuilder(New(), NewRegexExtractor(), nil)

		_, err := b.Build(context.Background(), []corpus.Chunk{
			{ID: "c1", DocumentID: "doc1", Ordinal: 0, Text: "Grace Hopper works for Harvard University."},
			{ID: "c2", DocumentID: "doc1", Ordinal: 1, Text: "Grace Hopper created Flowmatic."},
		})
		require.NoError(t, err)

		node, err := b.Graph().Node("Grace Hopper")
		require.NoError(t, err)
		assert.Equal(t, []string{"c1", "c2"}, node.Provenance)

		org, err := b.Graph().Node("Harvard University")
		require.NoError(t, err)
		assert.Equal(t, []string{"c1"}, org.Provenance)
	})

	t.Run("rebuild leaves the graph unchanged", func(t *testing.T) {
		b := NewBuilder(New(), NewRegexExtractor(), nil)
		chunks := buildChunks()

		_, err := b.Build(context.Background(), chunks)
		require.NoError(t, err)
		first := b.Graph().Snapshot()

		_, err = b.Build(context.Background(), chunks)
		require.NoError(t, err)

		assert.Equal(t, first, b.Graph().Snapshot())
	})

	t.Run("failed extraction is counted, not fatal", func(t *testing.T) {
		ex := &failingExtractor{
			inner:   NewRegexExtractor(),
			failIDs: map[string]bool{"c1": true},
		}
		b := NewBuilder(New(), ex, nil)

		result, err := b.Build(context.Background(), buildChunks())
		require.NoError(t, err)

		assert.Equal(t, 1, result.ChunksProcessed)
		assert.Equal(t, 1, result.ChunksFailed)

		_, err = b.Graph().Node("Grace Hopper")
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})

	t.Run("canceled context stops the pass", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		b := NewBuilder(New(), NewRegexExtractor(), nil)
		result, err := b.Build(ctx, buildChunks())

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, result.ChunksProcessed)
	})

	t.Run("empty batch", func(t *testing.T) {
		b := NewBuilder(New(), NewRegexExtractor(), nil)
		result, err := b.Build(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, BuildResult{}, result)
	})
}
