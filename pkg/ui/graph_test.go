package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"

	"github.com/vanderheijden86/graphweave/pkg/engine"
	"github.com/vanderheijden86/graphweave/pkg/model"
	"github.com/vanderheijden86/graphweave/pkg/render"
	"github.com/vanderheijden86/graphweave/pkg/viewport"
)

// twoNodeScene places a at cell (2,1) and b at cell (10,1).
func twoNodeScene(t *testing.T) *render.Scene {
	t.Helper()
	a := &model.Node{ID: "a", Label: "alpha", Group: "g0", X: 2*CellWidth + 4, Y: CellHeight + 8}
	b := &model.Node{ID: "b", Label: "beta", Group: "g1", X: 10*CellWidth + 4, Y: CellHeight + 8}
	g := model.NewGraph([]*model.Node{a, b}, []*model.Link{{Source: "a", Target: "b"}})
	if err := g.Resolve(); err != nil {
		t.Fatal(err)
	}
	return render.Bind(g, render.Options{})
}

func TestToCellAndCellCenter(t *testing.T) {
	col, row := ToCell(CellCenter(7, 3))
	if col != 7 || row != 3 {
		t.Errorf("round trip = %d,%d, want 7,3", col, row)
	}
	if col, row := ToCell(-1, -1); col != -1 || row != -1 {
		t.Errorf("ToCell(-1,-1) = %d,%d", col, row)
	}
}

func TestGraphView_DrawsLinksUnderNodes(t *testing.T) {
	v := NewGraphView(TestTheme())
	v.Resize(20, 3)
	v.Draw(twoNodeScene(t), viewport.Identity)

	c := v.Canvas()
	if c.At(2, 1) != UnicodeGlyphs.Node || c.At(10, 1) != UnicodeGlyphs.Node {
		t.Errorf("node glyphs = %q %q", c.At(2, 1), c.At(10, 1))
	}
	for x := 3; x < 10; x++ {
		if c.At(x, 1) != UnicodeGlyphs.Horizontal {
			t.Fatalf("link gap at %d: %q", x, c.At(x, 1))
		}
	}
	if strings.Contains(c.String(), "alpha") {
		t.Error("labels drawn while disabled")
	}
}

func TestGraphView_HoverAndPin(t *testing.T) {
	s := twoNodeScene(t)
	s.SetHover("b")
	s.Node("a").Node.Pin(0, 0)

	v := NewGraphView(TestTheme())
	v.Resize(20, 3)
	v.Draw(s, viewport.Identity)

	c := v.Canvas()
	if c.At(10, 1) != UnicodeGlyphs.Hovered {
		t.Errorf("hovered glyph = %q", c.At(10, 1))
	}
	if c.At(2, 1) != UnicodeGlyphs.Pinned {
		t.Errorf("pinned glyph = %q", c.At(2, 1))
	}
	row := strings.Split(c.String(), "\n")[1]
	if !strings.HasSuffix(strings.TrimRight(row, " "), "beta") {
		t.Errorf("hovered label missing: %q", row)
	}
}

func TestGraphView_LabelsAndTransform(t *testing.T) {
	v := NewGraphView(TestTheme())
	v.Labels = true
	v.Resize(30, 4)
	// shift everything one row down and four cells right
	v.Draw(twoNodeScene(t), viewport.Transform{X: 4 * CellWidth, Y: CellHeight, K: 1})

	c := v.Canvas()
	if c.At(6, 2) != UnicodeGlyphs.Node {
		t.Errorf("transformed node at (6,2) = %q", c.At(6, 2))
	}
	row := strings.Split(c.String(), "\n")[2]
	if !strings.Contains(row, "alpha") || !strings.Contains(row, "beta") {
		t.Errorf("labels missing: %q", row)
	}
	if got := ansi.Strip(v.Render()); got != c.String() {
		t.Errorf("Render text differs from canvas:\n%s\n%s", got, c.String())
	}
}

func TestGraphView_NilScene(t *testing.T) {
	v := NewGraphView(TestTheme())
	v.Resize(3, 1)
	v.Draw(nil, viewport.Identity)
	if got := v.Render(); got != "   " {
		t.Errorf("Render() = %q", got)
	}
}

func TestGraphView_ReusesNodeStyles(t *testing.T) {
	v := NewGraphView(TestTheme())
	v.Resize(20, 3)
	s := twoNodeScene(t)
	v.Draw(s, viewport.Identity)
	n := len(v.palette)
	v.Draw(s, viewport.Identity)
	if len(v.palette) != n {
		t.Errorf("palette grew from %d to %d on redraw", n, len(v.palette))
	}
	if n != int(firstNodeStyle)+2 {
		t.Errorf("palette = %d entries, want %d", n, int(firstNodeStyle)+2)
	}
}

func TestOverlay(t *testing.T) {
	base := "aaaaa\nbbbbb\nccccc"
	tests := []struct {
		name     string
		box      string
		col, row int
		want     string
	}{
		{"inside", "XY", 1, 1, "aaaaa\nbXYbb\nccccc"},
		{"extends the line", "XY", 4, 0, "aaaaXY\nbbbbb\nccccc"},
		{"past the line", "XY", 7, 2, "aaaaa\nbbbbb\nccccc  XY"},
		{"clipped rows", "X\nY", 0, 2, "aaaaa\nbbbbb\nXcccc"},
		{"empty box", "", 0, 0, base},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overlay(base, tt.box, tt.col, tt.row); got != tt.want {
				t.Errorf("overlay() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlaceBox(t *testing.T) {
	box := "abc\ndef"
	if x, y := placeBox(box, 0, 0, 20, 10); x != 2 || y != 1 {
		t.Errorf("placeBox near origin = %d,%d, want 2,1", x, y)
	}
	// Flips left and up at the bottom-right corner.
	if x, y := placeBox(box, 18, 9, 20, 10); x != 14 || y != 7 {
		t.Errorf("placeBox at corner = %d,%d, want 14,7", x, y)
	}
	// Never leaves the area.
	if x, y := placeBox(box, 1, 1, 4, 3); x != 0 || y != 0 {
		t.Errorf("placeBox in tight area = %d,%d, want 0,0", x, y)
	}
}

func TestTooltipAndDetail(t *testing.T) {
	theme := TestTheme()
	tt := engine.Tooltip{Title: "Ada Lovelace", Lines: []string{"group: math", "born: 1815"}}

	box := ansi.Strip(renderTooltip(theme, tt))
	for _, want := range []string{"Ada Lovelace", "group: math", "born: 1815"} {
		if !strings.Contains(box, want) {
			t.Errorf("tooltip missing %q:\n%s", want, box)
		}
	}

	long := engine.Tooltip{Title: strings.Repeat("x", 100)}
	for _, line := range strings.Split(ansi.Strip(renderTooltip(theme, long)), "\n") {
		if w := ansi.StringWidth(line); w > maxTooltipWidth+4 {
			t.Errorf("tooltip line %d cells wide", w)
		}
	}

	md := detailMarkdown("ada", tt)
	for _, want := range []string{"# Ada Lovelace", "`ada`", "| group | math |", "| born | 1815 |"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if md := detailMarkdown("x", engine.Tooltip{Title: "a|b"}); !strings.Contains(md, `a\|b`) || !strings.Contains(md, "_No attributes._") {
		t.Errorf("unexpected markdown:\n%s", md)
	}

	pane := ansi.Strip(renderDetail(theme, md, 40))
	if !strings.Contains(pane, "Ada Lovelace") || !strings.Contains(pane, "1815") {
		t.Errorf("detail pane missing content:\n%s", pane)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdefgh", 5, "abcd…"},
		{"日本語テキスト", 5, "日本…"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
