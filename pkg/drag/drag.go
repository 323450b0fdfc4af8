// Package drag pins nodes to the pointer while they are dragged and reheats
// the simulation so the rest of the layout follows.
package drag

import (
	"errors"
	"fmt"

	"github.com/vanderheijden86/graphweave/pkg/debug"
	"github.com/vanderheijden86/graphweave/pkg/model"
)

// DefaultReheatTarget is the alpha a drag keeps the simulation at.
const DefaultReheatTarget = 0.3

// ErrNoGesture is returned for moves and ends of gestures that never started.
var ErrNoGesture = errors.New("no active drag gesture")

// Simulation is the part of the force simulation a drag steers.
type Simulation interface {
	Alpha() float64
	SetAlpha(float64)
	SetAlphaTarget(float64)
	Restart()
}

// Controller tracks concurrent drag gestures by id (pointer or touch id).
type Controller struct {
	sim    Simulation
	target float64

	active  map[int]*model.Node
	holding bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithReheatTarget sets the alpha target held while dragging.
func WithReheatTarget(v float64) Option {
	return func(c *Controller) {
		if v > 0 && v <= 1 {
			c.target = v
		}
	}
}

// New returns a controller steering sim.
func New(sim Simulation, opts ...Option) *Controller {
	c := &Controller{sim: sim, target: DefaultReheatTarget, active: make(map[int]*model.Node)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins gesture id on node n. The first gesture holds the alpha
// target at the reheat target until the last gesture ends, so the
// simulation keeps running underneath; alpha itself is only raised when it
// has cooled below the target. The node is pinned where it stands.
func (c *Controller) Start(id int, n *model.Node) {
	if n == nil {
		return
	}
	if prev, ok := c.active[id]; ok && prev != n {
		prev.Unpin()
	}
	if len(c.active) == 0 {
		c.sim.SetAlphaTarget(c.target)
		if c.sim.Alpha() < c.target {
			c.sim.SetAlpha(c.target)
		}
		c.sim.Restart()
		c.holding = true
		debug.Log("drag: hold target %.2f for %s", c.target, n.ID)
	}
	c.active[id] = n
	n.Pin(n.X, n.Y)
}

// Move pins the dragged node at content coordinates (x, y).
func (c *Controller) Move(id int, x, y float64) error {
	n, ok := c.active[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoGesture, id)
	}
	n.Pin(x, y)
	return nil
}

// End releases the node of gesture id back to the simulation. When the last
// gesture ends, the alpha target relaxes to zero so the layout cools to rest.
func (c *Controller) End(id int) error {
	n, ok := c.active[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoGesture, id)
	}
	delete(c.active, id)
	n.Unpin()
	if len(c.active) == 0 && c.holding {
		c.sim.SetAlphaTarget(0)
		c.holding = false
		debug.Log("drag: released %s, cooling", n.ID)
	}
	return nil
}

// Active returns the number of gestures in progress.
func (c *Controller) Active() int { return len(c.active) }

// Dragging returns the node held by gesture id.
func (c *Controller) Dragging(id int) (*model.Node, bool) {
	n, ok := c.active[id]
	return n, ok
}
