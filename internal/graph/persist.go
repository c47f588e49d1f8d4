package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Save writes the graph snapshot as JSON to path, atomically: the snapshot
// is written to a temp file in the same directory and renamed into place, so
// a crash never leaves a truncated graph file.
func Save(g *Graph, path string) error {
	snap := g.Snapshot()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding graph: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating graph directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".graph-*.json")
	if err != nil {
		return fmt.Errorf("creating temp graph file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing graph: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing graph file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing graph file: %w", err)
	}
	return nil
}

// Load reads a graph snapshot from path. A missing file yields an empty
// graph, so first use needs no setup step.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading graph file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding graph file %q: %w", path, err)
	}

	g := New()
	g.Restore(snap)
	return g, nil
}
