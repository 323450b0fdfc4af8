package ui

import (
	"image/color"
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/graphweave/pkg/render"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Glyphs are the characters the canvas draws with.
type Glyphs struct {
	Node, Hovered, Pinned rune
	Horizontal, Vertical  rune
	DiagDown, DiagUp      rune
}

// UnicodeGlyphs uses box-drawing and geometric shapes.
var UnicodeGlyphs = Glyphs{
	Node: '●', Hovered: '◉', Pinned: '◆',
	Horizontal: '─', Vertical: '│', DiagDown: '╲', DiagUp: '╱',
}

// ASCIIGlyphs is the fallback for terminals without unicode fonts.
var ASCIIGlyphs = Glyphs{
	Node: 'o', Hovered: '@', Pinned: '#',
	Horizontal: '-', Vertical: '|', DiagDown: '\\', DiagUp: '/',
}

// Theme bundles the styles of the graph view.
type Theme struct {
	Renderer *lipgloss.Renderer
	Glyphs   Glyphs

	Primary lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor
	Border  lipgloss.AdaptiveColor

	Base    lipgloss.Style
	Header  lipgloss.Style
	Link    lipgloss.Style
	Label   lipgloss.Style
	Status  lipgloss.Style
	Error   lipgloss.Style
	Tooltip lipgloss.Style
	Detail  lipgloss.Style

	// node styles keyed by fill color, built on first use
	nodeStyles map[color.RGBA]lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired adaptive theme.
func DefaultTheme(r *lipgloss.Renderer, unicode bool) Theme {
	t := Theme{
		Renderer: r,
		Glyphs:   ASCIIGlyphs,
		Primary:  ColorPrimary,
		Muted:    ColorMuted,
		Border:   ColorBgHighlight,

		nodeStyles: make(map[color.RGBA]lipgloss.Style),
	}
	if unicode {
		t.Glyphs = UnicodeGlyphs
	}

	t.Base = r.NewStyle().Foreground(ColorText)
	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)
	t.Link = r.NewStyle().Foreground(ColorMuted)
	t.Label = r.NewStyle().Foreground(ColorSubtext)
	t.Status = r.NewStyle().Foreground(ColorSubtext)
	t.Error = r.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}).
		Background(ColorDanger).
		Bold(true).
		Padding(0, 1)
	t.Tooltip = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Primary).
		Padding(0, 1)
	t.Detail = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)
	return t
}

// NodeStyle returns the style drawing a node of the given group color.
func (t Theme) NodeStyle(fill color.RGBA) lipgloss.Style {
	if s, ok := t.nodeStyles[fill]; ok {
		return s
	}
	s := t.Renderer.NewStyle().Foreground(ThemeFg(render.Hex(fill))).Bold(true)
	t.nodeStyles[fill] = s
	return s
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout), true)
}
