package export

import (
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/graphweave/pkg/model"
	"github.com/vanderheijden86/graphweave/pkg/render"
)

// Layout is the positioned graph as plain data: what /api/graph serves and
// the json snapshot format writes.
type Layout struct {
	Nodes   []LayoutNode `json:"nodes"`
	Links   []LayoutLink `json:"links"`
	Stats   model.Stats  `json:"stats"`
	Ticks   int          `json:"ticks"`
	Settled bool         `json:"settled"`
}

// LayoutNode is one positioned node.
type LayoutNode struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Group  string  `json:"group,omitempty"`
	Color  string  `json:"color"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
	Pinned bool    `json:"pinned,omitempty"`
}

// LayoutLink is one link with its drawn endpoints.
type LayoutLink struct {
	ID          string   `json:"id,omitempty"`
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	Value       *float64 `json:"value,omitempty"`
	StrokeWidth float64  `json:"stroke_width"`
	X1          float64  `json:"x1"`
	Y1          float64  `json:"y1"`
	X2          float64  `json:"x2"`
	Y2          float64  `json:"y2"`
}

// NewLayout copies the current primitive coordinates of scene.
func NewLayout(scene *render.Scene, stats model.Stats) Layout {
	l := Layout{
		Nodes: make([]LayoutNode, 0, len(scene.Nodes)),
		Links: make([]LayoutLink, 0, len(scene.Lines)),
		Stats: stats,
	}
	for _, p := range scene.Nodes {
		l.Nodes = append(l.Nodes, LayoutNode{
			ID:     p.Node.ID,
			Label:  p.Label,
			Group:  p.Node.Group,
			Color:  render.Hex(p.Fill),
			X:      p.X,
			Y:      p.Y,
			Radius: p.Radius,
			Pinned: p.Node.Pinned(),
		})
	}
	for _, p := range scene.Lines {
		l.Links = append(l.Links, LayoutLink{
			ID:          p.Link.ID,
			Source:      p.Link.Source,
			Target:      p.Link.Target,
			Value:       p.Link.Value,
			StrokeWidth: p.StrokeWidth,
			X1:          p.X1,
			Y1:          p.Y1,
			X2:          p.X2,
			Y2:          p.Y2,
		})
	}
	return l
}

// JSON returns the layout as indented JSON bytes.
func (l Layout) JSON() ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// DOT renders the layout as an undirected Graphviz graph with pinned
// positions, so `neato -n` reproduces it. Nodes are sorted by id for
// deterministic output.
func (l Layout) DOT() string {
	var sb strings.Builder

	sb.WriteString("graph G {\n")
	sb.WriteString("    node [shape=circle, style=filled, fontname=\"Helvetica\", fontsize=8];\n")
	sb.WriteString("    edge [color=\"#999999\"];\n")
	sb.WriteString("\n")

	nodes := make([]LayoutNode, len(l.Nodes))
	copy(nodes, l.Nodes)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })

	for _, n := range nodes {
		// DOT y grows upward.
		sb.WriteString(fmt.Sprintf("    \"%s\" [label=\"%s\", fillcolor=\"%s\", width=%.2f, pos=\"%.2f,%.2f!\"];\n",
			escapeDOTString(n.ID), escapeDOTString(truncateRunes(n.Label, 30)), n.Color,
			2*n.Radius/72, n.X, -n.Y))
	}

	sb.WriteString("\n")

	for _, e := range l.Links {
		sb.WriteString(fmt.Sprintf("    \"%s\" -- \"%s\" [penwidth=%.2f];\n",
			escapeDOTString(e.Source), escapeDOTString(e.Target), e.StrokeWidth))
	}

	sb.WriteString("}\n")
	return sb.String()
}

func escapeDOTString(s string) string {
	// DOT string literals need backslashes and quotes escaped; normalize newlines.
	replacer := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", " ",
		"\r", " ",
	)
	return replacer.Replace(s)
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
