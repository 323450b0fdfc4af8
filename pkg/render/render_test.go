package render

import (
	"bytes"
	"fmt"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/vanderheijden86/graphweave/pkg/force"
	"github.com/vanderheijden86/graphweave/pkg/model"
	"github.com/vanderheijden86/graphweave/pkg/viewport"
)

func twoNodeGraph(t *testing.T, value *float64) *model.Graph {
	t.Helper()
	g := model.NewGraph(
		[]*model.Node{{ID: "A", Group: "1"}, {ID: "B", Group: "2", Label: "Bee"}},
		[]*model.Link{{Source: "A", Target: "B", Value: value}},
	)
	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return g
}

func TestBind_StrokeWidthFromValue(t *testing.T) {
	v := 4.0
	s := Bind(twoNodeGraph(t, &v), Options{})
	if len(s.Lines) != 1 || len(s.Nodes) != 2 {
		t.Fatalf("expected 1 line and 2 nodes, got %d/%d", len(s.Lines), len(s.Nodes))
	}
	if s.Lines[0].StrokeWidth != 1.0 {
		t.Errorf("stroke width = %f, want 1.0", s.Lines[0].StrokeWidth)
	}
}

func TestStrokeWidth_DefaultWithoutValue(t *testing.T) {
	if got := StrokeWidth(nil); got != 1 {
		t.Errorf("StrokeWidth(nil) = %f", got)
	}
	v := 9.0
	if got := StrokeWidth(&v); got != 1.5 {
		t.Errorf("StrokeWidth(9) = %f", got)
	}
}

func TestBind_LabelsAndRadius(t *testing.T) {
	s := Bind(twoNodeGraph(t, nil), Options{Radius: RemoteRadius})
	if s.Nodes[0].Label != "A" || s.Nodes[1].Label != "Bee" {
		t.Errorf("labels %q %q", s.Nodes[0].Label, s.Nodes[1].Label)
	}
	if s.Nodes[0].Radius != RemoteRadius {
		t.Errorf("radius %f", s.Nodes[0].Radius)
	}
	if s.Frame() != 0 {
		t.Errorf("fresh scene should be at frame 0, got %d", s.Frame())
	}
}

func TestColorScale_FirstSeenOrder(t *testing.T) {
	c := NewColorScale(nil)
	if c.Color("b") != Category10[0] {
		t.Errorf("first group should take the first scheme color")
	}
	if c.Color("a") != Category10[1] {
		t.Errorf("second group should take the second scheme color")
	}
	if c.Color("b") != Category10[0] {
		t.Errorf("repeat lookups must be stable")
	}
	for i := 0; i < 10; i++ {
		c.Color(string(rune('c' + i)))
	}
	if c.Color("l") != Category10[1] {
		t.Errorf("scale should wrap after ten groups")
	}
	if got := strings.Join(c.Domain()[:2], ","); got != "b,a" {
		t.Errorf("domain order %s", got)
	}
}

func TestAttach_OneFramePerTick(t *testing.T) {
	g := twoNodeGraph(t, nil)
	s := Bind(g, Options{})
	sim := force.New(g.Nodes, force.WithSeed(1))
	sim.AddForce("link", force.NewLink(g.Links))
	sim.AddForce("charge", force.NewManyBody())
	s.Attach(sim)

	for i := 0; i < 25; i++ {
		sim.Step()
	}
	if s.Frame() != sim.Ticks() {
		t.Fatalf("frame %d != ticks %d", s.Frame(), sim.Ticks())
	}

	a, b := g.Nodes[0], g.Nodes[1]
	l := s.Lines[0]
	if l.X1 != a.X || l.Y1 != a.Y || l.X2 != b.X || l.Y2 != b.Y {
		t.Errorf("line endpoints not bound to node coordinates")
	}
	if want := fmt.Sprintf("translate(%g,%g)", b.X, b.Y); s.Nodes[1].Transform() != want {
		t.Errorf("unexpected transform %s", s.Nodes[1].Transform())
	}
}

func TestNodeAt_TopmostAndHover(t *testing.T) {
	g := twoNodeGraph(t, nil)
	g.Nodes[0].X, g.Nodes[0].Y = 0, 0
	g.Nodes[1].X, g.Nodes[1].Y = 4, 0
	s := Bind(g, Options{Radius: 5})

	if p := s.NodeAt(2, 0, 0); p == nil || p.Node.ID != "B" {
		t.Fatalf("overlap should pick the later node, got %+v", p)
	}
	if p := s.NodeAt(100, 100, 0); p != nil {
		t.Fatalf("miss returned %s", p.Node.ID)
	}
	if p := s.NodeAt(-9, 0, 0); p != nil {
		t.Fatalf("outside radius returned %s", p.Node.ID)
	}

	if !s.SetHover("A") || s.Hovered().Node.ID != "A" {
		t.Fatalf("hover not set")
	}
	if s.Nodes[0].DrawRadius() != 10 {
		t.Errorf("hover should double the radius, got %f", s.Nodes[0].DrawRadius())
	}
	if p := s.NodeAt(-9, 0, 0); p == nil || p.Node.ID != "A" {
		t.Errorf("hovered node should hit within its doubled radius")
	}
	if s.SetHover("A") {
		t.Errorf("same hover should report no change")
	}
	s.SetHover("")
	if s.Hovered() != nil || s.Nodes[0].Hovered {
		t.Errorf("hover not cleared")
	}
}

func TestWriteSVG_Structure(t *testing.T) {
	v := 4.0
	g := twoNodeGraph(t, &v)
	g.Nodes[0].X, g.Nodes[0].Y = 10, 20
	g.Nodes[1].X, g.Nodes[1].Y = 30, 40
	s := Bind(g, Options{})

	var buf bytes.Buffer
	err := WriteSVG(&buf, s, WriteOptions{
		Width: 200, Height: 100,
		Transform: viewport.Transform{X: 5, Y: 6, K: 2},
		Title:     "people",
		Summary:   []string{"nodes: 2  links: 1"},
		Labels:    true,
	})
	if err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		`class="container"`,
		`class="zoom"`,
		`transform="translate(5,6) scale(2)"`,
		`class="links"`,
		`stroke-width:1`,
		`transform="translate(10,20)"`,
		`<circle`,
		`Bee`,
		`nodes: 2  links: 1`,
		`<title>people</title>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}
	if strings.Count(out, `class="node"`) != 2 {
		t.Errorf("expected two node groups")
	}
}

func TestWriteSVG_InvalidSize(t *testing.T) {
	s := Bind(twoNodeGraph(t, nil), Options{})
	if err := WriteSVG(&bytes.Buffer{}, s, WriteOptions{}); err == nil {
		t.Fatalf("expected error for zero surface")
	}
}

func TestWritePNG_Decodes(t *testing.T) {
	g := twoNodeGraph(t, nil)
	g.Nodes[0].X, g.Nodes[0].Y = -20, 0
	g.Nodes[1].X, g.Nodes[1].Y = 20, 0
	s := Bind(g, Options{})

	var buf bytes.Buffer
	opts := WriteOptions{Width: 120, Height: 80, Labels: true, Title: "t"}
	opts.Transform = FitTransform(s, opts.Width, opts.Height, 10)
	if err := WritePNG(&buf, s, opts); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 80 {
		t.Errorf("image %v", b)
	}
}

func TestFitTransform_CentersScene(t *testing.T) {
	g := twoNodeGraph(t, nil)
	g.Nodes[0].X, g.Nodes[0].Y = 100, 100
	g.Nodes[1].X, g.Nodes[1].Y = 200, 100
	s := Bind(g, Options{Radius: 5})

	tr := FitTransform(s, 400, 300, 20)
	cx, cy := tr.Apply(150, 100)
	if math.Abs(cx-200) > 1e-9 || math.Abs(cy-150) > 1e-9 {
		t.Errorf("scene center maps to (%f,%f), want (200,150)", cx, cy)
	}
	if tr.K > 4 {
		t.Errorf("zoom %f exceeds cap", tr.K)
	}
}
