// Package testutil provides fixture generators for graph topologies and the
// assertions shared by the engine, export and serve tests.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/graphweave/pkg/model"
)

// GraphFixture represents an abstract graph for testing layouts.
type GraphFixture struct {
	Description string     `json:"description"`
	Nodes       []string   `json:"nodes"`
	Edges       [][2]int   `json:"edges"` // [source_idx, target_idx]
	Properties  Properties `json:"properties,omitempty"`
}

// Properties holds the expected summary of the fixture.
type Properties struct {
	Components int `json:"components,omitempty"`
	Isolated   int `json:"isolated,omitempty"`
	SelfLoops  int `json:"self_loops,omitempty"`
}

// GeneratorConfig controls node naming and attributes.
type GeneratorConfig struct {
	Seed     int64  // Random seed for determinism (0 = use a fixed seed)
	IDPrefix string // Prefix for node IDs (default: "n")
	Groups   int    // Number of distinct groups assigned round-robin (default: 3)
	Weighted bool   // Give every link a value
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{Seed: 42, IDPrefix: "n", Groups: 3}
}

// Generator creates fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "n"
	}
	if cfg.Groups <= 0 {
		cfg.Groups = 3
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

func (g *Generator) names(size int) []string {
	nodes := make([]string, size)
	for i := range nodes {
		nodes[i] = NodeID(g.cfg.IDPrefix, i)
	}
	return nodes
}

// Chain creates a path n0 - n1 - ... - n{size-1}.
func (g *Generator) Chain(size int) GraphFixture {
	edges := make([][2]int, 0, max(size-1, 0))
	for i := 1; i < size; i++ {
		edges = append(edges, [2]int{i - 1, i})
	}
	return GraphFixture{
		Description: fmt.Sprintf("chain of %d nodes", size),
		Nodes:       g.names(size),
		Edges:       edges,
		Properties:  Properties{Components: min(size, 1), Isolated: boolInt(size == 1)},
	}
}

// Star creates a hub (n0) linked to every spoke.
func (g *Generator) Star(spokes int) GraphFixture {
	edges := make([][2]int, 0, spokes)
	for i := 1; i <= spokes; i++ {
		edges = append(edges, [2]int{i, 0})
	}
	return GraphFixture{
		Description: fmt.Sprintf("star with %d spokes", spokes),
		Nodes:       g.names(spokes + 1),
		Edges:       edges,
		Properties:  Properties{Components: 1, Isolated: boolInt(spokes == 0)},
	}
}

// Cycle creates a ring n0 - n1 - ... - n{size-1} - n0.
func (g *Generator) Cycle(size int) GraphFixture {
	edges := make([][2]int, 0, size)
	for i := 0; i < size; i++ {
		edges = append(edges, [2]int{i, (i + 1) % size})
	}
	p := Properties{Components: min(size, 1)}
	if size == 1 {
		p.SelfLoops, p.Isolated = 1, 1
	}
	return GraphFixture{
		Description: fmt.Sprintf("cycle of %d nodes", size),
		Nodes:       g.names(size),
		Edges:       edges,
		Properties:  p,
	}
}

// Disconnected creates several chains of componentSize nodes each.
func (g *Generator) Disconnected(components, componentSize int) GraphFixture {
	size := components * componentSize
	var edges [][2]int
	for c := 0; c < components; c++ {
		base := c * componentSize
		for i := 1; i < componentSize; i++ {
			edges = append(edges, [2]int{base + i - 1, base + i})
		}
	}
	p := Properties{Components: components}
	if componentSize == 1 {
		p.Isolated = components
	}
	return GraphFixture{
		Description: fmt.Sprintf("%d chains of %d nodes", components, componentSize),
		Nodes:       g.names(size),
		Edges:       edges,
		Properties:  p,
	}
}

// Complete links every pair of nodes once.
func (g *Generator) Complete(size int) GraphFixture {
	var edges [][2]int
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			edges = append(edges, [2]int{i, j})
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("complete graph of %d nodes", size),
		Nodes:       g.names(size),
		Edges:       edges,
		Properties:  Properties{Components: min(size, 1), Isolated: boolInt(size == 1)},
	}
}

// Random links each pair with probability density. Components are not
// precomputed.
func (g *Generator) Random(size int, density float64) GraphFixture {
	var edges [][2]int
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if g.rng.Float64() < density {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("random graph of %d nodes, density %.2f", size, density),
		Nodes:       g.names(size),
		Edges:       edges,
	}
}

// ToGraph converts a fixture to an unresolved model graph. Groups are
// assigned round-robin; weighted fixtures carry a value per link.
func (g *Generator) ToGraph(gf GraphFixture) *model.Graph {
	nodes := make([]*model.Node, len(gf.Nodes))
	for i, id := range gf.Nodes {
		group := fmt.Sprintf("g%d", i%g.cfg.Groups)
		nodes[i] = &model.Node{
			ID:    id,
			Label: id,
			Group: group,
			Attrs: map[string]any{"id": id, "group": group},
		}
	}
	links := make([]*model.Link, len(gf.Edges))
	for i, e := range gf.Edges {
		l := &model.Link{Source: gf.Nodes[e[0]], Target: gf.Nodes[e[1]]}
		if g.cfg.Weighted {
			v := float64(1 + g.rng.Intn(9))
			l.Value = &v
		}
		links[i] = l
	}
	return model.NewGraph(nodes, links)
}

// ToRecords converts a fixture to remote rows: one entity per node with the
// default label and group columns, one relationship per edge whose source
// and target are single-element reference lists.
func (g *Generator) ToRecords(gf GraphFixture) (entities, relationships []model.Record) {
	m := model.DefaultMapping()
	entities = make([]model.Record, len(gf.Nodes))
	for i, id := range gf.Nodes {
		entities[i] = model.Record{ID: id, Fields: map[string]any{
			m.Label: id,
			m.Group: fmt.Sprintf("g%d", i%g.cfg.Groups),
		}}
	}
	relationships = make([]model.Record, len(gf.Edges))
	for i, e := range gf.Edges {
		fields := map[string]any{
			"source": []any{gf.Nodes[e[0]]},
			"target": []any{gf.Nodes[e[1]]},
		}
		if g.cfg.Weighted {
			fields["value"] = float64(1 + g.rng.Intn(9))
		}
		relationships[i] = model.Record{ID: fmt.Sprintf("rel%d", i), Fields: fields}
	}
	return entities, relationships
}

// Paginate splits rows into pages of at most size rows.
func Paginate(rows []model.Record, size int) [][]model.Record {
	if size <= 0 {
		size = len(rows)
	}
	var pages [][]model.Record
	for len(rows) > 0 {
		n := min(size, len(rows))
		pages = append(pages, rows[:n])
		rows = rows[n:]
	}
	return pages
}

// NodeID returns the id of the index-th generated node.
func NodeID(prefix string, index int) string {
	return fmt.Sprintf("%s%d", prefix, index)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
