package model

import (
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Stats summarizes a resolved graph for status lines and snapshot headers.
type Stats struct {
	Nodes      int `json:"nodes"`
	Links      int `json:"links"`
	Groups     int `json:"groups"`
	Components int `json:"components"`
	Isolated   int `json:"isolated"`
	SelfLoops  int `json:"self_loops"`
}

// Stats counts nodes, links, groups and connected components. Links whose
// endpoints did not resolve are ignored.
func (g *Graph) Stats() Stats {
	s := Stats{
		Nodes:  len(g.Nodes),
		Links:  len(g.Links),
		Groups: len(g.Groups()),
	}
	if len(g.Nodes) == 0 {
		return s
	}

	ug := simple.NewUndirectedGraph()
	index := make(map[*Node]int64, len(g.Nodes))
	for i, n := range g.Nodes {
		index[n] = int64(i)
		ug.AddNode(simple.Node(int64(i)))
	}
	for _, l := range g.Links {
		if l.SourceNode == nil || l.TargetNode == nil {
			continue
		}
		from, to := index[l.SourceNode], index[l.TargetNode]
		if from == to {
			s.SelfLoops++
			continue
		}
		ug.SetEdge(ug.NewEdge(simple.Node(from), simple.Node(to)))
	}

	s.Components = len(topo.ConnectedComponents(ug))
	for i := range g.Nodes {
		if ug.From(int64(i)).Len() == 0 {
			s.Isolated++
		}
	}
	return s
}
