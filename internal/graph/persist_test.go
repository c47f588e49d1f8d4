package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")

	g := New()
	g.Merge(Extraction{
		ChunkID: "chunk1",
		Entities:   []Entity{{Name: "Acme Corp", Type: TypeOrganization}},
		Relations:  []Relation{{Source: "Acme Corp", Relation: RelationLocatedIn, Target: "Springfield Town"}},
	})

	require.NoError(t, Save(g, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, g.Snapshot(), loaded.Snapshot())
}

func TestLoadMissingFileYieldsEmptyGraph(t *testing.T) {
	g, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	assert.Zero(t, g.Statistics().Nodes)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "graph.json")
	require.NoError(t, Save(New(), path))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}
