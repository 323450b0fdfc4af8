package ui

import (
	"image/color"
	"math"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/graphweave/pkg/render"
	"github.com/vanderheijden86/graphweave/pkg/viewport"
)

// maxLabelWidth bounds node labels on the canvas.
const maxLabelWidth = 18

// Fixed palette slots; node colors follow.
const (
	styleNone StyleID = iota
	styleLink
	styleLabel
	styleHover
	firstNodeStyle
)

// GraphView draws a scene onto a canvas through a viewport transform.
type GraphView struct {
	theme   Theme
	canvas  *Canvas
	palette []lipgloss.Style
	byColor map[color.RGBA]StyleID

	// Labels draws every node label; the hovered label is always drawn.
	Labels bool
}

// NewGraphView returns a view with an empty canvas.
func NewGraphView(theme Theme) *GraphView {
	g := &GraphView{theme: theme, canvas: NewCanvas(0, 0), byColor: make(map[color.RGBA]StyleID)}
	g.palette = []lipgloss.Style{
		styleNone:  theme.Renderer.NewStyle(),
		styleLink:  theme.Link,
		styleLabel: theme.Label,
		styleHover: theme.Base.Bold(true),
	}
	return g
}

// Resize sets the canvas size in cells.
func (g *GraphView) Resize(width, height int) {
	if w, h := g.canvas.Size(); w == width && h == height {
		return
	}
	g.canvas = NewCanvas(width, height)
}

// Canvas returns the canvas of the last Draw.
func (g *GraphView) Canvas() *Canvas { return g.canvas }

func (g *GraphView) nodeStyle(fill color.RGBA) StyleID {
	if id, ok := g.byColor[fill]; ok {
		return id
	}
	id := StyleID(len(g.palette))
	g.palette = append(g.palette, g.theme.NodeStyle(fill))
	g.byColor[fill] = id
	return id
}

// ToCell maps surface units to the cell containing them.
func ToCell(sx, sy float64) (int, int) {
	return int(math.Floor(sx / CellWidth)), int(math.Floor(sy / CellHeight))
}

// CellCenter maps a cell to the surface point at its center.
func CellCenter(col, row int) (float64, float64) {
	return (float64(col) + 0.5) * CellWidth, (float64(row) + 0.5) * CellHeight
}

// Draw renders links, then nodes, then labels, so labels stay readable.
func (g *GraphView) Draw(s *render.Scene, t viewport.Transform) {
	c := g.canvas
	c.Clear()
	if s == nil {
		return
	}
	glyphs := g.theme.Glyphs

	for i := range s.Lines {
		l := &s.Lines[i]
		x0, y0 := ToCell(t.Apply(l.X1, l.Y1))
		x1, y1 := ToCell(t.Apply(l.X2, l.Y2))
		c.Line(x0, y0, x1, y1, glyphs, styleLink)
	}

	type placed struct {
		x, y int
		p    *render.NodePrimitive
	}
	nodes := make([]placed, 0, len(s.Nodes))
	for i := range s.Nodes {
		p := &s.Nodes[i]
		x, y := ToCell(t.Apply(p.X, p.Y))
		glyph := glyphs.Node
		switch {
		case p.Hovered:
			glyph = glyphs.Hovered
		case p.Node != nil && p.Node.Pinned():
			glyph = glyphs.Pinned
		}
		c.Set(x, y, glyph, g.nodeStyle(p.Fill))
		nodes = append(nodes, placed{x, y, p})
	}

	var hovered *placed
	for i, n := range nodes {
		if n.p.Hovered {
			hovered = &nodes[i]
			continue
		}
		if g.Labels {
			c.Text(n.x+2, n.y, truncate(n.p.Label, maxLabelWidth), styleLabel)
		}
	}
	if hovered != nil {
		c.Text(hovered.x+2, hovered.y, truncate(hovered.p.Label, maxLabelWidth), styleHover)
	}
}

// Render returns the styled canvas.
func (g *GraphView) Render() string {
	return g.canvas.Render(g.palette)
}
