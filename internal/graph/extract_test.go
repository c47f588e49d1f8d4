package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorra0/sage/internal/corpus"
)

func chunk(id, text string) corpus.Chunk {
	return corpus.Chunk{ID: id, DocumentID: "doc-" + id, Text: text}
}

func entityNames(ex Extraction) []string {
	names := make([]string, len(ex.Entities))
	for i, e := range ex.Entities {
		names[i] = e.Name
	}
	return names
}

func TestRegexExtractor(t *testing.T) {
	ctx := context.Background()
	x := NewRegexExtractor()

	t.Run("empty chunk", func(t *testing.T) {
		ex, err := x.Extract(ctx, chunk("d1", ""))
		require.NoError(t, err)
		assert.Empty(t, ex.Entities)
		assert.Empty(t, ex.Relations)
		assert.Equal(t, "d1", ex.ChunkID)
	})

	t.Run("proper nouns extracted", func(t *testing.T) {
		ex, err := x.Extract(ctx, chunk("d1", "Alice Smith visited the city of Paris last week."))
		require.NoError(t, err)
		assert.Contains(t, entityNames(ex), "Alice Smith")
		assert.Contains(t, entityNames(ex), "Paris")
	})

	t.Run("organizations extracted", func(t *testing.T) {
		ex, err := x.Extract(ctx, chunk("d1", "She joined Globex Corp after leaving Stanford University."))
		require.NoError(t, err)

		names := entityNames(ex)
		assert.Contains(t, names, "Globex Corp")
		assert.Contains(t, names, "Stanford University")
	})

	t.Run("dates extracted", func(t *testing.T) {
		ex, err := x.Extract(ctx, chunk("d1", "The contract was signed on 12/31/2024, effective January 1, 2025."))
		require.NoError(t, err)

		names := entityNames(ex)
		assert.Contains(t, names, "12/31/2024")
		assert.Contains(t, names, "January 1, 2025")
	})

	t.Run("duplicates collapse by normalized key", func(t *testing.T) {
		ex, err := x.Extract(ctx, chunk("d1", "Paris is lovely. I adore Paris. PARIS forever."))
		require.NoError(t, err)

		count := 0
		for _, e := range ex.Entities {
			if Normalize(e.Name) == "paris" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("relations need both endpoints extracted", func(t *testing.T) {
		ex, err := x.Extract(ctx, chunk("d1", "Alice works for Globex Corp."))
		require.NoError(t, err)

		var found bool
		for _, r := range ex.Relations {
			if r.Relation == RelationWorksFor {
				found = true
				assert.Equal(t, "globex corp", Normalize(r.Target))
			}
		}
		assert.True(t, found, "expected a works_for relation, got %v", ex.Relations)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		entity string
		want   string
	}{
		{"January 1, 2025", TypeDate},
		{"12/31/2024", TypeDate},
		{"Globex Corp", TypeOrganization},
		{"Initech LLC", TypeOrganization},
		{"Stanford University", TypeInstitution},
		{"Alice Smith", TypePerson},
		{"Alice Beth Johnson", TypePerson},
		{"Paris", TypeConcept},
		{"gravity", TypeConcept},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.entity), "Classify(%q)", tt.entity)
	}
}
