package viewport

import (
	"fmt"
	"math"
)

// Transform is an absolute zoom transform: content point (x, y) is drawn at
// (X + K·x, Y + K·y) on the surface.
type Transform struct {
	X, Y, K float64
}

// Identity is the untransformed view.
var Identity = Transform{K: 1}

// Apply maps a content point to surface coordinates.
func (t Transform) Apply(x, y float64) (float64, float64) {
	return t.X + t.K*x, t.Y + t.K*y
}

// Invert maps a surface point to content coordinates.
func (t Transform) Invert(px, py float64) (float64, float64) {
	return (px - t.X) / t.K, (py - t.Y) / t.K
}

// InvertX maps a surface x to content x.
func (t Transform) InvertX(px float64) float64 { return (px - t.X) / t.K }

// InvertY maps a surface y to content y.
func (t Transform) InvertY(py float64) float64 { return (py - t.Y) / t.K }

// Translate shifts the transform by (dx, dy) in content units.
func (t Transform) Translate(dx, dy float64) Transform {
	return Transform{X: t.X + t.K*dx, Y: t.Y + t.K*dy, K: t.K}
}

// Scale multiplies the zoom factor, keeping the origin fixed.
func (t Transform) Scale(k float64) Transform {
	return Transform{X: t.X, Y: t.Y, K: t.K * k}
}

// String renders the SVG transform attribute value.
func (t Transform) String() string {
	return fmt.Sprintf("translate(%s,%s) scale(%s)", num(t.X), num(t.Y), num(t.K))
}

// Equal compares with a tolerance for accumulated float error.
func (t Transform) Equal(o Transform, eps float64) bool {
	return math.Abs(t.X-o.X) <= eps && math.Abs(t.Y-o.Y) <= eps && math.Abs(t.K-o.K) <= eps
}

func num(v float64) string {
	return fmt.Sprintf("%g", math.Round(v*1000)/1000)
}
