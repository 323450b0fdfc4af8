// Package model holds the in-memory graph that a load cycle produces and the
// force simulation positions: ordered nodes, ordered links, and the
// transforms that turn bundled JSON or remote table rows into them.
package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Errors returned while building or resolving a graph.
var (
	ErrDuplicateNode  = errors.New("duplicate node id")
	ErrUnresolvedLink = errors.New("link endpoint does not resolve to a node")
	ErrBadReference   = errors.New("reference is not an identity list")
	ErrEmptyNodeID    = errors.New("node has empty id")
)

// Node is a graph vertex. X/Y/VX/VY belong to the force simulation while the
// node is unpinned; FX/FY, when set, override the simulated position.
type Node struct {
	ID    string         `json:"id"`
	Label string         `json:"label,omitempty"`
	Group string         `json:"group,omitempty"`
	Attrs map[string]any `json:"attrs,omitempty"`

	// Index is the node's position in Graph.Nodes, assigned by the simulation.
	Index int `json:"index"`

	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	VX float64 `json:"vx"`
	VY float64 `json:"vy"`

	FX *float64 `json:"fx,omitempty"`
	FY *float64 `json:"fy,omitempty"`
}

// Pin fixes the node at (x, y) until Unpin is called.
func (n *Node) Pin(x, y float64) {
	n.FX = &x
	n.FY = &y
}

// Unpin returns the node to free simulation control.
func (n *Node) Unpin() {
	n.FX = nil
	n.FY = nil
}

// Pinned reports whether either pin coordinate is set.
func (n *Node) Pinned() bool {
	return n.FX != nil || n.FY != nil
}

// Link is a graph edge between two node identities.
type Link struct {
	ID     string         `json:"id,omitempty"`
	Source string         `json:"source"`
	Target string         `json:"target"`
	Value  *float64       `json:"value,omitempty"`
	Attrs  map[string]any `json:"attrs,omitempty"`

	Index int `json:"index"`

	// Set by Graph.Resolve.
	SourceNode *Node `json:"-"`
	TargetNode *Node `json:"-"`
}

// Graph is the ordered node and link sequence of one load cycle.
type Graph struct {
	Nodes []*Node
	Links []*Link

	byID map[string]*Node
}

// NewGraph wraps already-normalized nodes and links.
func NewGraph(nodes []*Node, links []*Link) *Graph {
	return &Graph{Nodes: nodes, Links: links}
}

// Node returns the node with the given id. Resolve must have been called.
func (g *Graph) Node(id string) *Node {
	if g.byID == nil {
		return nil
	}
	return g.byID[id]
}

// Resolve indexes nodes by id and attaches every link to its endpoint nodes.
// Duplicate node ids and links whose endpoints are missing or null are
// reported as errors; nothing is dropped silently.
func (g *Graph) Resolve() error {
	byID := make(map[string]*Node, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node %d: %w", i, ErrEmptyNodeID)
		}
		if _, dup := byID[n.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateNode, n.ID)
		}
		n.Index = i
		byID[n.ID] = n
	}

	var missing []string
	for i, l := range g.Links {
		l.Index = i
		l.SourceNode = byID[l.Source]
		l.TargetNode = byID[l.Target]
		if l.SourceNode == nil {
			missing = append(missing, describeEndpoint(l, "source", l.Source))
		}
		if l.TargetNode == nil {
			missing = append(missing, describeEndpoint(l, "target", l.Target))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrUnresolvedLink, strings.Join(missing, "; "))
	}

	g.byID = byID
	return nil
}

func describeEndpoint(l *Link, end, id string) string {
	name := l.ID
	if name == "" {
		name = fmt.Sprintf("#%d", l.Index)
	}
	if id == "" {
		return fmt.Sprintf("link %s %s is null", name, end)
	}
	return fmt.Sprintf("link %s %s %q", name, end, id)
}

// Groups returns the distinct group values in first-seen order.
func (g *Graph) Groups() []string {
	seen := make(map[string]bool)
	var groups []string
	for _, n := range g.Nodes {
		if !seen[n.Group] {
			seen[n.Group] = true
			groups = append(groups, n.Group)
		}
	}
	return groups
}
