// Package viewport owns the zoom/pan transform of the content group. The
// position is stored as fractions of the surface size so that it survives
// resizes, and every gesture is clamped to a scale range and a translate
// extent rather than rejected.
package viewport

import (
	"math"

	"github.com/vanderheijden86/graphweave/pkg/debug"
)

// Defaults for the zoom behaviour.
const (
	DefaultMinScale     = 0.5
	DefaultMaxScale     = 10.0
	DefaultExtentFactor = 1.0
	// wheelStep converts a wheel delta into a log2 zoom step.
	wheelStep = 0.002
)

// State is the gesture state of the controller.
type State int

const (
	Idle State = iota
	Interacting
)

func (s State) String() string {
	if s == Interacting {
		return "interacting"
	}
	return "idle"
}

// Event is one gesture update: the transform the gesture asks for.
type Event struct {
	Transform Transform
}

// Controller tracks the transform for one surface.
type Controller struct {
	width, height float64

	xFrac, yFrac, scale float64
	initX, initY, initK float64

	minScale, maxScale float64
	extentFactor       float64
	extent             [2][2]float64

	state   State
	onApply []func(Transform)
}

// Option configures a Controller.
type Option func(*Controller)

// WithScaleExtent bounds the zoom factor.
func WithScaleExtent(min, max float64) Option {
	return func(c *Controller) {
		if min > 0 && max >= min {
			c.minScale, c.maxScale = min, max
		}
	}
}

// WithExtentFactor sets the translate extent to factor × the surface size
// in every direction.
func WithExtentFactor(f float64) Option {
	return func(c *Controller) {
		if f > 0 {
			c.extentFactor = f
		}
	}
}

// WithInitial sets the starting position as surface fractions and scale.
func WithInitial(xFrac, yFrac, scale float64) Option {
	return func(c *Controller) {
		c.initX, c.initY, c.initK = xFrac, yFrac, scale
	}
}

// New creates a controller for a width×height surface, centered on the
// content origin at scale 1.
func New(width, height float64, opts ...Option) *Controller {
	c := &Controller{
		width:        width,
		height:       height,
		initX:        0.5,
		initY:        0.5,
		initK:        1,
		minScale:     DefaultMinScale,
		maxScale:     DefaultMaxScale,
		extentFactor: DefaultExtentFactor,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.initK <= 0 || math.IsNaN(c.initK) {
		c.initK = 1
	}
	c.initK = c.clampScale(c.initK)
	c.xFrac, c.yFrac, c.scale = c.initX, c.initY, c.initK
	c.rebuildExtent()
	return c
}

// OnApply registers fn to receive every transform the controller applies,
// starting with the current one.
func (c *Controller) OnApply(fn func(Transform)) {
	c.onApply = append(c.onApply, fn)
	fn(c.Transform())
}

// Transform returns the absolute transform for the current surface size.
func (c *Controller) Transform() Transform {
	return Transform{X: c.xFrac * c.width, Y: c.yFrac * c.height, K: c.scale}
}

// Fractions returns the stored position as surface fractions and the scale.
func (c *Controller) Fractions() (xFrac, yFrac, scale float64) {
	return c.xFrac, c.yFrac, c.scale
}

// Size returns the current surface dimensions.
func (c *Controller) Size() (width, height float64) { return c.width, c.height }

// ScaleExtent returns the zoom bounds.
func (c *Controller) ScaleExtent() (min, max float64) { return c.minScale, c.maxScale }

// TranslateExtent returns the content-space box the view may show.
func (c *Controller) TranslateExtent() [2][2]float64 { return c.extent }

// State returns the gesture state.
func (c *Controller) State() State { return c.state }

// Begin starts a gesture.
func (c *Controller) Begin() {
	if c.state == Idle {
		c.state = Interacting
		debug.Log("viewport: gesture start")
	}
}

// End finishes a gesture.
func (c *Controller) End() {
	if c.state == Interacting {
		c.state = Idle
		debug.Log("viewport: gesture end at %s", c.Transform())
	}
}

// Zoom applies a gesture update. The requested scale is clamped to the
// scale extent and the translation constrained to the translate extent;
// the result is stored as fractions of the current surface and applied.
func (c *Controller) Zoom(ev Event) Transform {
	t := ev.Transform
	t.K = c.clampScale(t.K)
	if math.IsNaN(t.X) || math.IsInf(t.X, 0) {
		t.X = c.Transform().X
	}
	if math.IsNaN(t.Y) || math.IsInf(t.Y, 0) {
		t.Y = c.Transform().Y
	}
	t = c.constrain(t)
	c.store(t)
	c.apply()
	return c.Transform()
}

// PanBy moves the view by (dx, dy) surface units.
func (c *Controller) PanBy(dx, dy float64) Transform {
	t := c.Transform()
	return c.Zoom(Event{Transform: Transform{X: t.X + dx, Y: t.Y + dy, K: t.K}})
}

// ZoomAt scales the view by factor keeping surface point (px, py) fixed.
func (c *Controller) ZoomAt(px, py, factor float64) Transform {
	if factor <= 0 || math.IsNaN(factor) {
		return c.Transform()
	}
	t := c.Transform()
	x, y := t.Invert(px, py)
	k := c.clampScale(t.K * factor)
	return c.Zoom(Event{Transform: Transform{X: px - x*k, Y: py - y*k, K: k}})
}

// Wheel zooms around the pointer by 2^(-deltaY·0.002), the browser wheel
// convention for pixel deltas. A wheel step on an idle controller is a
// gesture of its own; during another gesture it joins that one.
func (c *Controller) Wheel(px, py, deltaY float64) Transform {
	if c.state == Idle {
		c.Begin()
		defer c.End()
	}
	return c.ZoomAt(px, py, math.Pow(2, -deltaY*wheelStep))
}

// Reset returns to the initial position and scale.
func (c *Controller) Reset() Transform {
	c.xFrac, c.yFrac, c.scale = c.initX, c.initY, c.initK
	c.apply()
	return c.Transform()
}

// Resize recomputes the absolute transform from the stored fractions for the
// new surface size and re-applies it. The fractions are left untouched.
// Non-positive sizes are ignored.
func (c *Controller) Resize(width, height float64) Transform {
	if width <= 0 || height <= 0 || math.IsNaN(width) || math.IsNaN(height) {
		return c.Transform()
	}
	c.width, c.height = width, height
	c.rebuildExtent()
	c.apply()
	return c.Transform()
}

// Invert maps a surface point to content coordinates.
func (c *Controller) Invert(px, py float64) (float64, float64) {
	return c.Transform().Invert(px, py)
}

func (c *Controller) store(t Transform) {
	if c.width > 0 {
		c.xFrac = t.X / c.width
	}
	if c.height > 0 {
		c.yFrac = t.Y / c.height
	}
	c.scale = t.K
}

func (c *Controller) apply() {
	t := c.Transform()
	for _, fn := range c.onApply {
		fn(t)
	}
}

func (c *Controller) clampScale(k float64) float64 {
	if math.IsNaN(k) || k <= 0 {
		return c.scale
	}
	return math.Max(c.minScale, math.Min(c.maxScale, k))
}

func (c *Controller) rebuildExtent() {
	w, h := c.width*c.extentFactor, c.height*c.extentFactor
	c.extent = [2][2]float64{{-w, -h}, {w, h}}
}

// constrain keeps the visible area inside the translate extent. When the
// view is larger than the extent along an axis it is centered on it.
func (c *Controller) constrain(t Transform) Transform {
	dx0 := t.InvertX(0) - c.extent[0][0]
	dx1 := t.InvertX(c.width) - c.extent[1][0]
	dy0 := t.InvertY(0) - c.extent[0][1]
	dy1 := t.InvertY(c.height) - c.extent[1][1]
	return t.Translate(shift(dx0, dx1), shift(dy0, dy1))
}

func shift(d0, d1 float64) float64 {
	if d1 > d0 {
		return (d0 + d1) / 2
	}
	if v := math.Min(0, d0); v != 0 {
		return v
	}
	return math.Max(0, d1)
}
