// Package render binds graph elements to drawable primitives and writes
// them out as SVG or PNG. A Scene holds one primitive per link and per node;
// each simulation tick copies the current coordinates into them.
package render

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/vanderheijden86/graphweave/pkg/force"
	"github.com/vanderheijden86/graphweave/pkg/metrics"
	"github.com/vanderheijden86/graphweave/pkg/model"
)

// Node radii used by the two data paths.
const (
	BundledRadius = 5.0
	RemoteRadius  = 11.0
)

// Options configures Bind.
type Options struct {
	Radius float64
	// Scheme overrides the Category10 group colors.
	Scheme []color.RGBA
}

// LinePrimitive draws one link.
type LinePrimitive struct {
	Link           *model.Link
	StrokeWidth    float64
	X1, Y1, X2, Y2 float64
}

// NodePrimitive draws one node: a circle plus a label, placed by Transform.
type NodePrimitive struct {
	Node    *model.Node
	Radius  float64
	Fill    color.RGBA
	Label   string
	X, Y    float64
	Hovered bool
}

// Transform is the placement attribute of the node group.
func (p *NodePrimitive) Transform() string {
	return fmt.Sprintf("translate(%g,%g)", p.X, p.Y)
}

// DrawRadius is the radius currently drawn; hovering doubles it.
func (p *NodePrimitive) DrawRadius() float64 {
	if p.Hovered {
		return 2 * p.Radius
	}
	return p.Radius
}

// Scene is the bound primitive set for one graph.
type Scene struct {
	Lines  []LinePrimitive
	Nodes  []NodePrimitive
	Colors *ColorScale

	frame int
	byID  map[string]int
	hover string
}

// StrokeWidth maps a link weight to a line width: sqrt(value)/2, or 1 when
// the link carries no weight.
func StrokeWidth(value *float64) float64 {
	if value == nil || *value < 0 {
		return 1
	}
	return math.Sqrt(*value) / 2
}

// Bind creates one primitive per link and per node, in graph order.
func Bind(g *model.Graph, opts Options) *Scene {
	radius := opts.Radius
	if radius <= 0 {
		radius = BundledRadius
	}
	s := &Scene{
		Lines:  make([]LinePrimitive, len(g.Links)),
		Nodes:  make([]NodePrimitive, len(g.Nodes)),
		Colors: NewColorScale(opts.Scheme),
		byID:   make(map[string]int, len(g.Nodes)),
	}
	for i, l := range g.Links {
		s.Lines[i] = LinePrimitive{Link: l, StrokeWidth: StrokeWidth(l.Value)}
	}
	for i, n := range g.Nodes {
		label := n.Label
		if label == "" {
			label = n.ID
		}
		s.Nodes[i] = NodePrimitive{
			Node:   n,
			Radius: radius,
			Fill:   s.Colors.Color(n.Group),
			Label:  label,
		}
		s.byID[n.ID] = i
	}
	s.Update()
	s.frame = 0
	return s
}

// Attach updates the scene on every simulation tick.
func (s *Scene) Attach(sim *force.Simulation) {
	sim.OnTick(s.Update)
}

// Update copies current node coordinates into every primitive.
func (s *Scene) Update() {
	start := time.Now()
	for i := range s.Lines {
		p := &s.Lines[i]
		if src := p.Link.SourceNode; src != nil {
			p.X1, p.Y1 = src.X, src.Y
		}
		if dst := p.Link.TargetNode; dst != nil {
			p.X2, p.Y2 = dst.X, dst.Y
		}
	}
	for i := range s.Nodes {
		p := &s.Nodes[i]
		p.X, p.Y = p.Node.X, p.Node.Y
	}
	s.frame++
	metrics.FrameBind.Record(time.Since(start))
}

// Frame counts updates since Bind.
func (s *Scene) Frame() int { return s.frame }

// Node returns the primitive for a node id.
func (s *Scene) Node(id string) *NodePrimitive {
	i, ok := s.byID[id]
	if !ok {
		return nil
	}
	return &s.Nodes[i]
}

// NodeAt hit-tests content coordinates. Later nodes are drawn on top, so
// they win ties. slack widens every node's hit radius.
func (s *Scene) NodeAt(x, y, slack float64) *NodePrimitive {
	for i := len(s.Nodes) - 1; i >= 0; i-- {
		p := &s.Nodes[i]
		r := p.DrawRadius() + slack
		dx, dy := x-p.X, y-p.Y
		if dx*dx+dy*dy <= r*r {
			return p
		}
	}
	return nil
}

// SetHover marks id as hovered ("" clears) and reports whether it changed.
func (s *Scene) SetHover(id string) bool {
	if id == s.hover {
		return false
	}
	if p := s.Node(s.hover); p != nil {
		p.Hovered = false
	}
	s.hover = ""
	if p := s.Node(id); p != nil {
		p.Hovered = true
		s.hover = id
	}
	return true
}

// Hovered returns the hovered node primitive, if any.
func (s *Scene) Hovered() *NodePrimitive { return s.Node(s.hover) }

// Bounds returns the content-space box covering every node and its radius.
func (s *Scene) Bounds() (minX, minY, maxX, maxY float64) {
	if len(s.Nodes) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for i := range s.Nodes {
		p := &s.Nodes[i]
		r := p.DrawRadius()
		minX = math.Min(minX, p.X-r)
		minY = math.Min(minY, p.Y-r)
		maxX = math.Max(maxX, p.X+r)
		maxY = math.Max(maxY, p.Y+r)
	}
	return minX, minY, maxX, maxY
}
