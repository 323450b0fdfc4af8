package force

import "github.com/vanderheijden86/graphweave/pkg/model"

// Center translates all nodes each tick so their mean position sits at
// (X, Y). It changes positions directly and leaves velocities alone.
type Center struct {
	X, Y     float64
	Strength float64

	nodes []*model.Node
}

// NewCenter centers the layout on (x, y).
func NewCenter(x, y float64) *Center {
	return &Center{X: x, Y: y, Strength: 1}
}

// Initialize implements Force.
func (c *Center) Initialize(nodes []*model.Node, _ func() float64) {
	c.nodes = nodes
}

// Apply implements Force.
func (c *Center) Apply(float64) {
	if len(c.nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range c.nodes {
		sx += n.X
		sy += n.Y
	}
	k := float64(len(c.nodes))
	sx = (sx/k - c.X) * c.Strength
	sy = (sy/k - c.Y) * c.Strength
	for _, n := range c.nodes {
		n.X -= sx
		n.Y -= sy
	}
}
