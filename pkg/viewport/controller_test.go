package viewport

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestNew_Defaults(t *testing.T) {
	c := New(800, 600)
	if got := c.Transform(); !got.Equal(Transform{X: 400, Y: 300, K: 1}, 0) {
		t.Errorf("initial transform %v", got)
	}
	if min, max := c.ScaleExtent(); min != 0.5 || max != 10 {
		t.Errorf("scale extent [%f,%f]", min, max)
	}
	if e := c.TranslateExtent(); e != [2][2]float64{{-800, -600}, {800, 600}} {
		t.Errorf("translate extent %v", e)
	}
	if c.State() != Idle {
		t.Errorf("new controller should be idle")
	}
}

func TestBeginEnd(t *testing.T) {
	c := New(100, 100)
	c.Begin()
	if c.State() != Interacting {
		t.Fatalf("Begin should enter interacting")
	}
	c.Begin()
	c.End()
	if c.State() != Idle {
		t.Fatalf("End should return to idle")
	}
	c.End()
	if c.State() != Idle {
		t.Fatalf("extra End should stay idle")
	}
}

func TestZoomAt_KeepsPointerFixed(t *testing.T) {
	c := New(800, 600)
	px, py := 400.0, 300.0
	bx, by := c.Invert(px, py)
	c.ZoomAt(px, py, 2)
	ax, ay := c.Invert(px, py)
	if math.Abs(ax-bx) > 1e-9 || math.Abs(ay-by) > 1e-9 {
		t.Errorf("pointer content moved from (%f,%f) to (%f,%f)", bx, by, ax, ay)
	}
	if _, _, k := c.Fractions(); k != 2 {
		t.Errorf("scale %f, want 2", k)
	}
}

func TestWheel_Factor(t *testing.T) {
	c := New(800, 600)
	c.Wheel(400, 300, -500)
	if got := c.Transform().K; math.Abs(got-2) > 1e-12 {
		t.Errorf("wheel -500 should double the scale, got %f", got)
	}
	c.Wheel(400, 300, 500)
	if got := c.Transform().K; math.Abs(got-1) > 1e-12 {
		t.Errorf("wheel +500 should halve the scale, got %f", got)
	}
}

func TestWheel_IsOneShotGesture(t *testing.T) {
	c := New(800, 600)
	var states []State
	c.OnApply(func(Transform) { states = append(states, c.State()) })

	c.Wheel(400, 300, -100)
	if len(states) != 2 || states[1] != Interacting {
		t.Fatalf("wheel applied in states %v, want interacting", states)
	}
	if c.State() != Idle {
		t.Errorf("state after wheel = %s, want idle", c.State())
	}

	c.Begin()
	c.Wheel(400, 300, 100)
	if c.State() != Interacting {
		t.Errorf("wheel during a pan ended that gesture")
	}
	c.End()
}

func TestPanBy_Constrained(t *testing.T) {
	c := New(800, 600)
	c.PanBy(1e6, -1e6)
	tr := c.Transform()
	if tr.InvertX(0) < -800-1e-9 || tr.InvertY(600) > 600+1e-9 {
		t.Errorf("pan escaped the translate extent: %v", tr)
	}
}

func TestReset(t *testing.T) {
	c := New(800, 600)
	c.ZoomAt(10, 10, 3)
	c.PanBy(40, 40)
	c.Reset()
	if got := c.Transform(); !got.Equal(Transform{X: 400, Y: 300, K: 1}, 1e-12) {
		t.Errorf("reset transform %v", got)
	}
}

func TestOnApply(t *testing.T) {
	c := New(800, 600)
	var seen []Transform
	c.OnApply(func(tr Transform) { seen = append(seen, tr) })
	c.PanBy(10, 0)
	c.Resize(400, 300)
	if len(seen) != 3 {
		t.Fatalf("expected initial + 2 applications, got %d", len(seen))
	}
	if seen[1].X != 410 {
		t.Errorf("pan applied %v", seen[1])
	}
}

func TestResize_IgnoresNonPositive(t *testing.T) {
	c := New(800, 600)
	before := c.Transform()
	c.Resize(0, 600)
	c.Resize(800, -1)
	if w, h := c.Size(); w != 800 || h != 600 {
		t.Errorf("size changed to %fx%f", w, h)
	}
	if !c.Transform().Equal(before, 0) {
		t.Errorf("transform changed")
	}
}

type gesture int

const (
	gPan gesture = iota
	gZoomAt
	gWheel
	gZoom
)

func drawGestures(t *rapid.T, c *Controller) {
	n := rapid.IntRange(0, 30).Draw(t, "gestures")
	for i := 0; i < n; i++ {
		w, h := c.Size()
		switch gesture(rapid.IntRange(0, 3).Draw(t, "kind")) {
		case gPan:
			c.PanBy(rapid.Float64Range(-5000, 5000).Draw(t, "dx"), rapid.Float64Range(-5000, 5000).Draw(t, "dy"))
		case gZoomAt:
			c.ZoomAt(rapid.Float64Range(0, w).Draw(t, "px"), rapid.Float64Range(0, h).Draw(t, "py"),
				rapid.Float64Range(0.001, 1000).Draw(t, "factor"))
		case gWheel:
			c.Wheel(rapid.Float64Range(0, w).Draw(t, "px"), rapid.Float64Range(0, h).Draw(t, "py"),
				rapid.Float64Range(-5000, 5000).Draw(t, "deltaY"))
		case gZoom:
			c.Zoom(Event{Transform: Transform{
				X: rapid.Float64Range(-1e5, 1e5).Draw(t, "x"),
				Y: rapid.Float64Range(-1e5, 1e5).Draw(t, "y"),
				K: rapid.Float64Range(-100, 100).Draw(t, "k"),
			}})
		}
	}
}

// Whatever the gesture sequence and magnitude, the scale stays within
// [0.5, 10] and the visible area stays inside the translate extent.
func TestZoom_ScaleAlwaysClamped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := New(rapid.Float64Range(1, 4000).Draw(t, "w"), rapid.Float64Range(1, 4000).Draw(t, "h"))
		drawGestures(t, c)

		tr := c.Transform()
		if tr.K < 0.5 || tr.K > 10 {
			t.Fatalf("scale %f outside [0.5, 10]", tr.K)
		}
		w, h := c.Size()
		ext := c.TranslateExtent()
		eps := 1e-6 * (w + h)
		if tr.InvertX(0) < ext[0][0]-eps || tr.InvertX(w) > ext[1][0]+eps ||
			tr.InvertY(0) < ext[0][1]-eps || tr.InvertY(h) > ext[1][1]+eps {
			t.Fatalf("view %v escapes extent %v", tr, ext)
		}
	})
}

// The stored fractional position survives a resize to any size, and the
// recomputed absolute transform expresses the same fractions.
func TestResize_RoundTripsFractions(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := New(rapid.Float64Range(1, 4000).Draw(t, "w"), rapid.Float64Range(1, 4000).Draw(t, "h"))
		drawGestures(t, c)
		xf, yf, k := c.Fractions()

		nw := rapid.Float64Range(1, 8000).Draw(t, "newW")
		nh := rapid.Float64Range(1, 8000).Draw(t, "newH")
		tr := c.Resize(nw, nh)

		axf, ayf, ak := c.Fractions()
		if axf != xf || ayf != yf || ak != k {
			t.Fatalf("fractions changed: (%g,%g,%g) -> (%g,%g,%g)", xf, yf, k, axf, ayf, ak)
		}
		if math.Abs(tr.X/nw-xf) > 1e-9*math.Max(1, math.Abs(xf)) ||
			math.Abs(tr.Y/nh-yf) > 1e-9*math.Max(1, math.Abs(yf)) || tr.K != k {
			t.Fatalf("transform %v does not express fractions (%g,%g,%g)", tr, xf, yf, k)
		}
	})
}
