package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"New York", "new york"},
		{"new  york", "new york"},
		{"  NEW\tYORK  ", "new york"},
		{"plain", "plain"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestGraphMerge(t *testing.T) {
	t.Run("surface variants share one node", func(t *testing.T) {
		g := New()
		g.Merge(Extraction{
			ChunkID: "chunk1",
			Entities:   []Entity{{Name: "New York", Type: TypeConcept}},
		})
		g.Merge(Extraction{
			ChunkID: "chunk2",
			Entities:   []Entity{{Name: "new  york", Type: TypeConcept}},
		})

		node, err := g.Node("NEW YORK")
		require.NoError(t, err)
		assert.Equal(t, "new york", node.Key)
		assert.Equal(t, "New York", node.Name, "first-seen surface form wins")
		assert.Equal(t, []string{"chunk1", "chunk2"}, node.Provenance)
		assert.Equal(t, 1, g.Statistics().Nodes)
	})

	t.Run("merging the same extraction twice is a no-op", func(t *testing.T) {
		ex := Extraction{
			ChunkID: "chunk1",
			Entities: []Entity{
				{Name: "Alice Smith", Type: TypePerson},
				{Name: "Acme Corp", Type: TypeOrganization},
			},
			Relations: []Relation{
				{Source: "Alice Smith", Relation: RelationWorksFor, Target: "Acme Corp"},
			},
		}

		g := New()
		g.Merge(ex)
		first := g.Snapshot()

		g.Merge(ex)
		second := g.Snapshot()

		assert.Equal(t, first, second)
	})

	t.Run("relation endpoints get nodes automatically", func(t *testing.T) {
		g := New()
		g.Merge(Extraction{
			ChunkID: "chunk1",
			Relations: []Relation{
				{Source: "Widget", Relation: RelationCreated, Target: "Gadget"},
			},
		})

		stats := g.Statistics()
		assert.Equal(t, 2, stats.Nodes)
		assert.Equal(t, 1, stats.Edges)
	})

	t.Run("self relations dropped", func(t *testing.T) {
		g := New()
		g.Merge(Extraction{
			ChunkID: "chunk1",
			Relations: []Relation{
				{Source: "Thing", Relation: RelationIsA, Target: "THING"},
			},
		})
		assert.Zero(t, g.Statistics().Edges)
	})

	t.Run("edge provenance unions across documents", func(t *testing.T) {
		g := New()
		rel := []Relation{{Source: "A1 Labs", Relation: RelationLocatedIn, Target: "B1 City"}}
		g.Merge(Extraction{ChunkID: "chunk1", Relations: rel})
		g.Merge(Extraction{ChunkID: "chunk2", Relations: rel})

		snap := g.Snapshot()
		require.Len(t, snap.Edges, 1)
		assert.Equal(t, []string{"chunk1", "chunk2"}, snap.Edges[0].Provenance)
	})

	t.Run("concept placeholder upgraded by typed extraction", func(t *testing.T) {
		g := New()
		g.Merge(Extraction{
			ChunkID: "chunk1",
			Relations:  []Relation{{Source: "Alice Smith", Relation: RelationWorksFor, Target: "Some Startup"}},
		})
		g.Merge(Extraction{
			ChunkID: "chunk2",
			Entities:   []Entity{{Name: "Some Startup", Type: TypeOrganization}},
		})

		node, err := g.Node("some startup")
		require.NoError(t, err)
		assert.Equal(t, TypeOrganization, node.Type)
	})
}

func TestGraphNeighbors(t *testing.T) {
	g := New()
	g.Merge(Extraction{
		ChunkID: "chunk1",
		Relations: []Relation{
			{Source: "Alpha One", Relation: RelationAssociatedWith, Target: "Beta Two"},
			{Source: "Beta Two", Relation: RelationAssociatedWith, Target: "Gamma Three"},
			{Source: "Gamma Three", Relation: RelationAssociatedWith, Target: "Delta Four"},
		},
	})

	t.Run("depth one", func(t *testing.T) {
		neighbors, err := g.Neighbors("Alpha One", 1)
		require.NoError(t, err)
		require.Len(t, neighbors, 1)
		assert.Equal(t, "beta two", neighbors[0].Key)
	})

	t.Run("depth two", func(t *testing.T) {
		neighbors, err := g.Neighbors("Alpha One", 2)
		require.NoError(t, err)
		require.Len(t, neighbors, 2)
		assert.Equal(t, "beta two", neighbors[0].Key)
		assert.Equal(t, "gamma three", neighbors[1].Key)
	})

	t.Run("unknown entity", func(t *testing.T) {
		_, err := g.Neighbors("Nobody Here", 1)
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})
}

func TestGraphShortestPath(t *testing.T) {
	g := New()
	g.Merge(Extraction{
		ChunkID: "chunk1",
		Relations: []Relation{
			{Source: "Start Node", Relation: RelationAssociatedWith, Target: "Mid Node"},
			{Source: "Mid Node", Relation: RelationAssociatedWith, Target: "End Node"},
			{Source: "Lonely Node", Relation: RelationIsA, Target: "Hermit Kind"},
		},
	})

	t.Run("path found", func(t *testing.T) {
		path, err := g.ShortestPath("Start Node", "End Node")
		require.NoError(t, err)
		assert.Equal(t, []string{"start node", "mid node", "end node"}, path)
	})

	t.Run("same entity", func(t *testing.T) {
		path, err := g.ShortestPath("Start Node", "start  node")
		require.NoError(t, err)
		assert.Equal(t, []string{"start node"}, path)
	})

	t.Run("disconnected entities yield empty path", func(t *testing.T) {
		path, err := g.ShortestPath("Start Node", "Lonely Node")
		require.NoError(t, err)
		assert.Empty(t, path)
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		_, err := g.ShortestPath("Start Node", "Missing Node")
		assert.ErrorIs(t, err, ErrEntityNotFound)
	})
}

func TestGraphSnapshotDeterminism(t *testing.T) {
	build := func(order []Extraction) Snapshot {
		g := New()
		for _, ex := range order {
			g.Merge(ex)
		}
		return g.Snapshot()
	}

	a := Extraction{
		ChunkID: "chunk1",
		Entities:   []Entity{{Name: "Zeta Corp", Type: TypeOrganization}},
		Relations:  []Relation{{Source: "Zeta Corp", Relation: RelationLocatedIn, Target: "Alpha City"}},
	}
	b := Extraction{
		ChunkID: "chunk2",
		Entities:   []Entity{{Name: "Alpha City", Type: TypeConcept}},
	}

	assert.Equal(t, build([]Extraction{a, b}), build([]Extraction{b, a}),
		"snapshot must not depend on merge order")
}

func TestGraphRestoreRoundTrip(t *testing.T) {
	g := New()
	g.Merge(Extraction{
		ChunkID: "chunk1",
		Entities:   []Entity{{Name: "Alice Smith", Type: TypePerson}},
		Relations:  []Relation{{Source: "Alice Smith", Relation: RelationWorksFor, Target: "Acme Corp"}},
	})
	snap := g.Snapshot()

	restored := New()
	restored.Restore(snap)
	assert.Equal(t, snap, restored.Snapshot())

	// Restored adjacency supports traversal.
	neighbors, err := restored.Neighbors("Alice Smith", 1)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, "acme corp", neighbors[0].Key)
}

func TestStatistics(t *testing.T) {
	g := New()
	assert.Equal(t, Stats{}, g.Statistics())

	g.Merge(Extraction{
		ChunkID: "chunk1",
		Entities:   []Entity{{Name: "Isolated Thing", Type: TypeConcept}},
		Relations:  []Relation{{Source: "Left Side", Relation: RelationAssociatedWith, Target: "Right Side"}},
	})

	stats := g.Statistics()
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 1, stats.Edges)
	assert.Equal(t, 2, stats.ConnectedComponents)
	assert.InDelta(t, 1.0/3.0, stats.Density, 1e-9)
}
