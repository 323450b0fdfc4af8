package render

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/graphweave/pkg/viewport"
)

var (
	colorBackdrop = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorLink     = color.RGBA{0x99, 0x99, 0x99, 0xff}
	colorStroke   = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorText     = color.RGBA{0x33, 0x33, 0x33, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
)

// WriteOptions controls the SVG and PNG writers.
type WriteOptions struct {
	Width, Height int
	// Transform is the zoom transform applied to the content group.
	Transform viewport.Transform
	// Title becomes the document title and heads the summary block.
	Title string
	// Summary lines are drawn in surface space above the graph.
	Summary []string
	// Labels draws node labels next to the circles.
	Labels bool
}

func (o WriteOptions) transform() viewport.Transform {
	if o.Transform.K == 0 {
		return viewport.Identity
	}
	return o.Transform
}

// FitTransform returns the transform that centers the scene in a
// width×height surface with padding on every side, never zooming past 4×.
func FitTransform(s *Scene, width, height int, padding float64) viewport.Transform {
	minX, minY, maxX, maxY := s.Bounds()
	bw, bh := maxX-minX, maxY-minY
	w, h := float64(width)-2*padding, float64(height)-2*padding
	if bw <= 0 || bh <= 0 || w <= 0 || h <= 0 {
		return viewport.Transform{X: float64(width) / 2, Y: float64(height) / 2, K: 1}
	}
	k := math.Min(4, math.Min(w/bw, h/bh))
	cx, cy := (minX+maxX)/2, (minY+maxY)/2
	return viewport.Transform{X: float64(width)/2 - k*cx, Y: float64(height)/2 - k*cy, K: k}
}

// WriteSVG writes the scene as an SVG document:
// svg > g.zoom[transform] > (g.links > line) + (g.nodes > g.node[translate] > circle, text).
func WriteSVG(w io.Writer, s *Scene, opts WriteOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("invalid surface %dx%d", opts.Width, opts.Height)
	}
	canvas := svg.New(w)
	canvas.Start(opts.Width, opts.Height, `class="container"`)
	if opts.Title != "" {
		canvas.Title(opts.Title)
	}
	canvas.Rect(0, 0, opts.Width, opts.Height, fmt.Sprintf("fill:%s", Hex(colorBackdrop)))

	canvas.Group(`class="zoom"`, fmt.Sprintf(`transform="%s"`, opts.transform()))

	canvas.Group(`class="links"`, fmt.Sprintf(`stroke="%s"`, Hex(colorLink)), `stroke-opacity="0.6"`)
	for i := range s.Lines {
		l := &s.Lines[i]
		canvas.Line(round(l.X1), round(l.Y1), round(l.X2), round(l.Y2),
			fmt.Sprintf("stroke-width:%g", l.StrokeWidth))
	}
	canvas.Gend()

	canvas.Group(`class="nodes"`, fmt.Sprintf(`stroke="%s"`, Hex(colorStroke)), `stroke-width="1.5"`)
	for i := range s.Nodes {
		n := &s.Nodes[i]
		canvas.Group(`class="node"`, fmt.Sprintf(`transform="%s"`, n.Transform()))
		canvas.Circle(0, 0, round(n.DrawRadius()), fmt.Sprintf("fill:%s", Hex(n.Fill)))
		if opts.Labels {
			canvas.Text(round(n.DrawRadius())+3, 4, n.Label,
				fmt.Sprintf("fill:%s;stroke:none;font-size:10px;font-family:sans-serif", Hex(colorText)))
		}
		canvas.Gend()
	}
	canvas.Gend()

	canvas.Gend()
	drawSummarySVG(canvas, opts)
	canvas.End()
	return nil
}

func drawSummarySVG(canvas *svg.SVG, opts WriteOptions) {
	y := 24
	if opts.Title != "" {
		canvas.Text(16, y, opts.Title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", Hex(colorText)))
		y += 20
	}
	for _, line := range opts.Summary {
		canvas.Text(16, y, line, fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", Hex(colorSubtle)))
		y += 18
	}
}

// WritePNG rasterizes the scene and encodes it as PNG.
func WritePNG(w io.Writer, s *Scene, opts WriteOptions) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		return fmt.Errorf("invalid surface %dx%d", opts.Width, opts.Height)
	}
	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	t := opts.transform()
	dc.Push()
	dc.Translate(t.X, t.Y)
	dc.Scale(t.K, t.K)

	dc.SetColor(color.RGBA{colorLink.R, colorLink.G, colorLink.B, 0x99})
	for i := range s.Lines {
		l := &s.Lines[i]
		dc.SetLineWidth(l.StrokeWidth * t.K)
		dc.DrawLine(l.X1, l.Y1, l.X2, l.Y2)
		dc.Stroke()
	}

	for i := range s.Nodes {
		n := &s.Nodes[i]
		dc.SetColor(n.Fill)
		dc.DrawCircle(n.X, n.Y, n.DrawRadius())
		dc.Fill()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1.5 * t.K)
		dc.DrawCircle(n.X, n.Y, n.DrawRadius())
		dc.Stroke()
	}
	dc.Pop()

	if opts.Labels {
		dc.SetColor(colorText)
		for i := range s.Nodes {
			n := &s.Nodes[i]
			px, py := t.Apply(n.X, n.Y)
			dc.DrawStringAnchored(n.Label, px+n.DrawRadius()*t.K+3, py, 0, 0.5)
		}
	}
	drawSummaryPNG(dc, opts)

	return dc.EncodePNG(w)
}

func drawSummaryPNG(dc *gg.Context, opts WriteOptions) {
	y := 24.0
	if opts.Title != "" {
		dc.SetColor(colorText)
		dc.DrawStringAnchored(opts.Title, 16, y, 0, 0.5)
		y += 20
	}
	dc.SetColor(colorSubtle)
	for _, line := range opts.Summary {
		dc.DrawStringAnchored(line, 16, y, 0, 0.5)
		y += 18
	}
}

func round(v float64) int {
	return int(math.Round(v))
}
