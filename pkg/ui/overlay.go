package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// overlay draws box over base with its top-left corner at (col, row). Both
// may carry ANSI styling; the box is clipped to the base.
func overlay(base, box string, col, row int) string {
	if box == "" {
		return base
	}
	lines := strings.Split(base, "\n")
	boxLines := strings.Split(box, "\n")
	col = max(col, 0)
	for i, bl := range boxLines {
		y := row + i
		if y < 0 || y >= len(lines) {
			continue
		}
		line := lines[y]
		lw := ansi.StringWidth(line)
		if col >= lw {
			lines[y] = line + strings.Repeat(" ", col-lw) + bl
			continue
		}
		bw := ansi.StringWidth(bl)
		left := ansi.Truncate(line, col, "")
		right := ""
		if col+bw < lw {
			right = ansi.TruncateLeft(line, col+bw, "")
		}
		lines[y] = left + bl + right
	}
	return strings.Join(lines, "\n")
}

// placeBox returns the position for a box of the given size next to the
// anchor cell, flipped left or up when it would overflow the area.
func placeBox(box string, anchorX, anchorY, areaW, areaH int) (int, int) {
	w, h := lipgloss.Width(box), lipgloss.Height(box)
	x, y := anchorX+2, anchorY+1
	if x+w > areaW {
		x = anchorX - w - 1
	}
	if y+h > areaH {
		y = anchorY - h
	}
	return max(min(x, areaW-w), 0), max(min(y, areaH-h), 0)
}
