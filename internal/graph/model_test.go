package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorra0/sage/internal/provider"
)

type stubGenerator struct {
	output string
	err    error
}

func (s *stubGenerator) Generate(context.Context, provider.GenerateRequest) (string, error) {
	return s.output, s.err
}

func TestModelExtractor(t *testing.T) {
	ctx := context.Background()

	t.Run("parses well-formed output", func(t *testing.T) {
		gen := &stubGenerator{output: `
entity: Alice Smith | person
entity: Acme Corp | organization
relation: Alice Smith | works_for | Acme Corp
`}
		x := NewModelExtractor(gen, nil)
		ex, err := x.Extract(ctx, chunk("d1", "Alice Smith works for Acme Corp."))
		require.NoError(t, err)

		require.Len(t, ex.Entities, 2)
		assert.Equal(t, Entity{Name: "Alice Smith", Type: TypePerson}, ex.Entities[0])
		require.Len(t, ex.Relations, 1)
		assert.Equal(t, Relation{Source: "Alice Smith", Relation: RelationWorksFor, Target: "Acme Corp"}, ex.Relations[0])
	})

	t.Run("malformed lines skipped", func(t *testing.T) {
		gen := &stubGenerator{output: `
entity: Valid Name | person
entity: missing type
entity: Bad Type | spaceship
relation: only | two
relation: A | not_a_relation | B
some chatter from the model
`}
		x := NewModelExtractor(gen, nil)
		ex, err := x.Extract(ctx, chunk("d1", "text"))
		require.NoError(t, err)

		require.Len(t, ex.Entities, 1)
		assert.Equal(t, "Valid Name", ex.Entities[0].Name)
		assert.Empty(t, ex.Relations)
	})

	t.Run("generator failure propagates", func(t *testing.T) {
		x := NewModelExtractor(&stubGenerator{err: errors.New("provider down")}, nil)
		_, err := x.Extract(ctx, chunk("d1", "text"))
		assert.Error(t, err)
	})

	t.Run("empty chunk skips the provider", func(t *testing.T) {
		x := NewModelExtractor(&stubGenerator{err: errors.New("should not be called")}, nil)
		ex, err := x.Extract(ctx, chunk("d1", ""))
		require.NoError(t, err)
		assert.Empty(t, ex.Entities)
	})
}
