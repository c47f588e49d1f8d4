// Package graph builds a knowledge graph of entities and relations extracted
// from ingested documents.
//
// Entities are identified by a normalized key (case-folded, whitespace
// collapsed) so surface variants of the same name merge into one node. Every
// node and edge carries provenance: the set of chunk IDs it was extracted
// from. Merging the same chunk's extraction twice is a no-op.
package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Entity type labels assigned by classification.
const (
	TypeDate         = "date"
	TypeOrganization = "organization"
	TypeInstitution  = "institution"
	TypePerson       = "person"
	TypeConcept      = "concept"
)

// Relation labels produced by extraction.
const (
	RelationIsA            = "is_a"
	RelationWorksFor       = "works_for"
	RelationLocatedIn      = "located_in"
	RelationCreated        = "created"
	RelationAssociatedWith = "associated_with"
)

// ErrEntityNotFound indicates the named entity has no node in the graph.
var ErrEntityNotFound = errors.New("entity not found in graph")

// Node is one entity. Name keeps the surface form first seen; Key is the
// normalized identity. Provenance lists the chunks the entity was extracted
// from, sorted.
type Node struct {
	Key        string   `json:"key"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Provenance []string `json:"provenance"`
}

// Edge is one relation between two entities, identified by the triple
// (source key, relation, target key).
type Edge struct {
	Source     string   `json:"source"`
	Target     string   `json:"target"`
	Relation   string   `json:"relation"`
	Provenance []string `json:"provenance"`
}

// Normalize returns the identity key for an entity name: case-folded with
// interior whitespace collapsed to single spaces. "New York" and "new  york"
// share one node.
func Normalize(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Graph is the in-memory knowledge graph. Safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*node           // key -> node
	edges map[edgeKey]*edge          // (source, relation, target) -> edge
	adj   map[string]map[string]bool // key -> neighbor keys, undirected
}

type node struct {
	name       string
	typ        string
	provenance map[string]bool
}

type edgeKey struct {
	source, relation, target string
}

type edge struct {
	provenance map[string]bool
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
		edges: make(map[edgeKey]*edge),
		adj:   make(map[string]map[string]bool),
	}
}

// Extraction is the result of extracting one chunk. ChunkID is the
// provenance recorded for everything the extraction contributes.
type Extraction struct {
	ChunkID   string
	Entities  []Entity
	Relations []Relation
}

// Entity is one extracted entity before merging.
type Entity struct {
	Name string
	Type string
}

// Relation is one extracted relation. Source and Target are surface forms;
// they are normalized on merge.
type Relation struct {
	Source   string
	Relation string
	Target   string
}

// Merge folds an extraction into the graph. Nodes and edges are created if
// absent; existing ones gain the chunk in their provenance set. Relation
// endpoints without an extracted entity get a concept node so no edge ever
// dangles. Merging the same extraction again changes nothing.
func (g *Graph) Merge(ex Extraction) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, e := range ex.Entities {
		g.mergeNode(e.Name, e.Type, ex.ChunkID)
	}

	for _, r := range ex.Relations {
		source := Normalize(r.Source)
		target := Normalize(r.Target)
		if source == "" || target == "" || source == target {
			continue
		}
		g.mergeNode(r.Source, "", ex.ChunkID)
		g.mergeNode(r.Target, "", ex.ChunkID)

		key := edgeKey{source: source, relation: r.Relation, target: target}
		e, ok := g.edges[key]
		if !ok {
			e = &edge{provenance: make(map[string]bool)}
			g.edges[key] = e
			g.link(source, target)
		}
		if ex.ChunkID != "" {
			e.provenance[ex.ChunkID] = true
		}
	}
}

// mergeNode adds or updates a node under g.mu. An empty typ classifies the
// name; a known node keeps its existing type unless it was only ever a
// concept placeholder.
func (g *Graph) mergeNode(name, typ, chunkID string) {
	key := Normalize(name)
	if key == "" {
		return
	}
	if typ == "" {
		typ = Classify(name)
	}

	n, ok := g.nodes[key]
	if !ok {
		n = &node{name: name, typ: typ, provenance: make(map[string]bool)}
		g.nodes[key] = n
	} else if n.typ == TypeConcept && typ != TypeConcept {
		n.typ = typ
	}
	if chunkID != "" {
		n.provenance[chunkID] = true
	}
}

func (g *Graph) link(a, b string) {
	if g.adj[a] == nil {
		g.adj[a] = make(map[string]bool)
	}
	if g.adj[b] == nil {
		g.adj[b] = make(map[string]bool)
	}
	g.adj[a][b] = true
	g.adj[b][a] = true
}

// Node returns the node for an entity name (normalized before lookup).
func (g *Graph) Node(name string) (Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	key := Normalize(name)
	n, ok := g.nodes[key]
	if !ok {
		return Node{}, fmt.Errorf("%w: %q", ErrEntityNotFound, name)
	}
	return exportNode(key, n), nil
}

// Neighbors returns the entities reachable from name within depth hops,
// excluding name itself, sorted by key. Depth below 1 is treated as 1.
func (g *Graph) Neighbors(name string, depth int) ([]Node, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	start := Normalize(name)
	if _, ok := g.nodes[start]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntityNotFound, name)
	}
	if depth < 1 {
		depth = 1
	}

	visited := map[string]bool{start: true}
	frontier := []string{start}
	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []string
		for _, key := range frontier {
			for neighbor := range g.adj[key] {
				if !visited[neighbor] {
					visited[neighbor] = true
					next = append(next, neighbor)
				}
			}
		}
		frontier = next
	}

	keys := make([]string, 0, len(visited)-1)
	for key := range visited {
		if key != start {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	nodes := make([]Node, 0, len(keys))
	for _, key := range keys {
		nodes = append(nodes, exportNode(key, g.nodes[key]))
	}
	return nodes, nil
}

// ShortestPath returns the node keys along a shortest undirected path
// between two entities, endpoints included. No path yields an empty slice
// and no error.
func (g *Graph) ShortestPath(from, to string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	start, goal := Normalize(from), Normalize(to)
	if _, ok := g.nodes[start]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntityNotFound, from)
	}
	if _, ok := g.nodes[goal]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrEntityNotFound, to)
	}
	if start == goal {
		return []string{start}, nil
	}

	parent := map[string]string{start: ""}
	frontier := []string{start}
	for len(frontier) > 0 {
		var next []string
		for _, key := range frontier {
			// Deterministic expansion order.
			neighbors := make([]string, 0, len(g.adj[key]))
			for n := range g.adj[key] {
				neighbors = append(neighbors, n)
			}
			sort.Strings(neighbors)

			for _, neighbor := range neighbors {
				if _, seen := parent[neighbor]; seen {
					continue
				}
				parent[neighbor] = key
				if neighbor == goal {
					return tracePath(parent, start, goal), nil
				}
				next = append(next, neighbor)
			}
		}
		frontier = next
	}
	return []string{}, nil
}

func tracePath(parent map[string]string, start, goal string) []string {
	var path []string
	for key := goal; key != ""; key = parent[key] {
		path = append(path, key)
		if key == start {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Stats summarizes graph shape.
type Stats struct {
	Nodes               int     `json:"nodes"`
	Edges               int     `json:"edges"`
	Density             float64 `json:"density"`
	ConnectedComponents int     `json:"connected_components"`
}

// Statistics returns node/edge counts, undirected density, and the number
// of connected components (isolated nodes each count as one).
func (g *Graph) Statistics() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	s := Stats{Nodes: len(g.nodes), Edges: len(g.edges)}
	if s.Nodes > 1 {
		// Undirected density over distinct linked pairs.
		pairs := 0
		for a, neighbors := range g.adj {
			for b := range neighbors {
				if a < b {
					pairs++
				}
			}
		}
		s.Density = float64(2*pairs) / float64(s.Nodes*(s.Nodes-1))
	}

	visited := make(map[string]bool, len(g.nodes))
	for key := range g.nodes {
		if visited[key] {
			continue
		}
		s.ConnectedComponents++
		stack := []string{key}
		visited[key] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for n := range g.adj[cur] {
				if !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}
	}
	return s
}

// Snapshot is a deterministic, serializable view of the graph: nodes sorted
// by key, edges by (source, relation, target), provenance sorted.
type Snapshot struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Snapshot exports the graph. Equal graphs produce equal snapshots.
func (g *Graph) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	snap := Snapshot{
		Nodes: make([]Node, 0, len(g.nodes)),
		Edges: make([]Edge, 0, len(g.edges)),
	}
	for key, n := range g.nodes {
		snap.Nodes = append(snap.Nodes, exportNode(key, n))
	}
	sort.Slice(snap.Nodes, func(i, j int) bool { return snap.Nodes[i].Key < snap.Nodes[j].Key })

	for key, e := range g.edges {
		snap.Edges = append(snap.Edges, Edge{
			Source:     key.source,
			Target:     key.target,
			Relation:   key.relation,
			Provenance: sortedKeys(e.provenance),
		})
	}
	sort.Slice(snap.Edges, func(i, j int) bool {
		a, b := snap.Edges[i], snap.Edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Relation != b.Relation {
			return a.Relation < b.Relation
		}
		return a.Target < b.Target
	})
	return snap
}

// Restore replaces the graph's contents with a snapshot.
func (g *Graph) Restore(snap Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nodes = make(map[string]*node, len(snap.Nodes))
	g.edges = make(map[edgeKey]*edge, len(snap.Edges))
	g.adj = make(map[string]map[string]bool)

	for _, n := range snap.Nodes {
		g.nodes[n.Key] = &node{
			name:       n.Name,
			typ:        n.Type,
			provenance: toSet(n.Provenance),
		}
	}
	for _, e := range snap.Edges {
		key := edgeKey{source: e.Source, relation: e.Relation, target: e.Target}
		g.edges[key] = &edge{provenance: toSet(e.Provenance)}
		g.link(e.Source, e.Target)
	}
}

func exportNode(key string, n *node) Node {
	return Node{
		Key:        key,
		Name:       n.name,
		Type:       n.typ,
		Provenance: sortedKeys(n.provenance),
	}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toSet(keys []string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
