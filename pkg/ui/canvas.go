package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// One terminal cell covers CellWidth×CellHeight surface units, so a layout
// sized for a pixel surface keeps its proportions on a terminal.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

// StyleID indexes the palette a canvas is rendered with. Zero is unstyled.
type StyleID int

type cell struct {
	r     rune
	style StyleID
	// cont marks the right half of a wide rune.
	cont bool
}

// Canvas is a character grid drawn in layers: later writes win.
type Canvas struct {
	width, height int
	cells         []cell
}

// NewCanvas returns a blank canvas of width×height cells.
func NewCanvas(width, height int) *Canvas {
	width, height = max(width, 0), max(height, 0)
	c := &Canvas{width: width, height: height, cells: make([]cell, width*height)}
	c.Clear()
	return c
}

// Size returns the canvas size in cells.
func (c *Canvas) Size() (width, height int) { return c.width, c.height }

// Clear blanks every cell.
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = cell{r: ' '}
	}
}

func (c *Canvas) in(x, y int) bool {
	return x >= 0 && y >= 0 && x < c.width && y < c.height
}

// Set writes r at (x, y). Writes outside the canvas are dropped, and so is a
// wide rune that would not fit.
func (c *Canvas) Set(x, y int, r rune, style StyleID) {
	if !c.in(x, y) {
		return
	}
	w := runewidth.RuneWidth(r)
	if w == 2 && !c.in(x+1, y) {
		return
	}
	c.clearWide(x, y)
	c.cells[y*c.width+x] = cell{r: r, style: style}
	if w == 2 {
		c.clearWide(x+1, y)
		c.cells[y*c.width+x+1] = cell{cont: true, style: style}
	}
}

// clearWide blanks the other half of a wide rune overlapping (x, y).
func (c *Canvas) clearWide(x, y int) {
	i := y*c.width + x
	if c.cells[i].cont && x > 0 {
		c.cells[i-1] = cell{r: ' '}
	}
	if !c.cells[i].cont && runewidth.RuneWidth(c.cells[i].r) == 2 && x+1 < c.width {
		c.cells[i+1] = cell{r: ' '}
	}
}

// At returns the rune at (x, y); the right half of a wide rune reads as 0.
func (c *Canvas) At(x, y int) rune {
	if !c.in(x, y) {
		return 0
	}
	cl := c.cells[y*c.width+x]
	if cl.cont {
		return 0
	}
	return cl.r
}

// Text writes s starting at (x, y) and returns the number of cells used.
func (c *Canvas) Text(x, y int, s string, style StyleID) int {
	used := 0
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		c.Set(x+used, y, r, style)
		used += w
	}
	return used
}

// Line draws a Bresenham line from (x0, y0) to (x1, y1) with the glyph that
// best matches its slope. Endpoints are included.
func (c *Canvas) Line(x0, y0, x1, y1 int, g Glyphs, style StyleID) {
	r := lineGlyph(x1-x0, y1-y0, g)
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	// Bound the walk to the part of the line that can touch the canvas.
	if !c.lineMayCross(x0, y0, x1, y1) {
		return
	}
	err := dx + dy
	for {
		c.Set(x0, y0, r, style)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) lineMayCross(x0, y0, x1, y1 int) bool {
	if max(x0, x1) < 0 || max(y0, y1) < 0 {
		return false
	}
	return min(x0, x1) < c.width && min(y0, y1) < c.height
}

// lineGlyph picks the glyph for a line with cell deltas (dx, dy). Cells are
// twice as tall as wide, which the thresholds account for.
func lineGlyph(dx, dy int, g Glyphs) rune {
	if dx == 0 && dy == 0 {
		return g.Horizontal
	}
	slope := math.Abs(float64(dy)) / math.Max(math.Abs(float64(dx)), 1e-9)
	switch {
	case slope < 0.35:
		return g.Horizontal
	case slope > 2.5:
		return g.Vertical
	case (dx > 0) == (dy > 0):
		return g.DiagDown
	default:
		return g.DiagUp
	}
}

// String renders the canvas without styles, rows joined by newlines.
func (c *Canvas) String() string {
	return c.Render(nil)
}

// Render draws the canvas with palette[id] for each styled run. IDs outside
// the palette render unstyled.
func (c *Canvas) Render(palette []lipgloss.Style) string {
	var sb strings.Builder
	var run strings.Builder
	flush := func(id StyleID) {
		if run.Len() == 0 {
			return
		}
		if id > 0 && int(id) < len(palette) {
			sb.WriteString(palette[id].Render(run.String()))
		} else {
			sb.WriteString(run.String())
		}
		run.Reset()
	}
	for y := 0; y < c.height; y++ {
		if y > 0 {
			sb.WriteByte('\n')
		}
		cur := StyleID(-1)
		for x := 0; x < c.width; x++ {
			cl := c.cells[y*c.width+x]
			if cl.cont {
				continue
			}
			if cl.style != cur {
				flush(cur)
				cur = cl.style
			}
			run.WriteRune(cl.r)
		}
		flush(cur)
	}
	return sb.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
