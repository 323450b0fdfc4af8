package render

import (
	"fmt"
	"image/color"
)

// Category10 is d3's schemeCategory10.
var Category10 = []color.RGBA{
	{0x1f, 0x77, 0xb4, 0xff},
	{0xff, 0x7f, 0x0e, 0xff},
	{0x2c, 0xa0, 0x2c, 0xff},
	{0xd6, 0x27, 0x28, 0xff},
	{0x94, 0x67, 0xbd, 0xff},
	{0x8c, 0x56, 0x4b, 0xff},
	{0xe3, 0x77, 0xc2, 0xff},
	{0x7f, 0x7f, 0x7f, 0xff},
	{0xbc, 0xbd, 0x22, 0xff},
	{0x17, 0xbe, 0xcf, 0xff},
}

// ColorScale is an ordinal scale: each new group takes the next scheme
// color in first-seen order, wrapping around the scheme.
type ColorScale struct {
	scheme []color.RGBA
	index  map[string]int
	order  []string
}

// NewColorScale returns an empty scale over scheme (Category10 when nil).
func NewColorScale(scheme []color.RGBA) *ColorScale {
	if len(scheme) == 0 {
		scheme = Category10
	}
	return &ColorScale{scheme: scheme, index: make(map[string]int)}
}

// Color returns the color for group, assigning one on first sight.
func (c *ColorScale) Color(group string) color.RGBA {
	i, ok := c.index[group]
	if !ok {
		i = len(c.order)
		c.index[group] = i
		c.order = append(c.order, group)
	}
	return c.scheme[i%len(c.scheme)]
}

// Domain lists groups in the order they were first seen.
func (c *ColorScale) Domain() []string {
	return append([]string(nil), c.order...)
}

// Hex formats c as #rrggbb.
func Hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
