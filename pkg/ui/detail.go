package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/vanderheijden86/graphweave/pkg/engine"
)

// maxTooltipWidth bounds tooltip lines.
const maxTooltipWidth = 40

// renderTooltip draws the hover box: the title in bold, then one line per
// attribute.
func renderTooltip(theme Theme, tt engine.Tooltip) string {
	lines := make([]string, 0, len(tt.Lines)+1)
	lines = append(lines, theme.Base.Bold(true).Render(truncate(tt.Title, maxTooltipWidth)))
	for _, l := range tt.Lines {
		lines = append(lines, theme.Label.Render(truncate(l, maxTooltipWidth)))
	}
	return theme.Tooltip.Render(strings.Join(lines, "\n"))
}

// detailMarkdown formats a node description as markdown: a heading and a
// table of attributes.
func detailMarkdown(id string, tt engine.Tooltip) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(tt.Title))
	fmt.Fprintf(&sb, "`%s`\n\n", id)
	if len(tt.Lines) == 0 {
		sb.WriteString("_No attributes._\n")
		return sb.String()
	}
	sb.WriteString("| Attribute | Value |\n|---|---|\n")
	for _, l := range tt.Lines {
		k, v, _ := strings.Cut(l, ": ")
		fmt.Fprintf(&sb, "| %s | %s |\n", escapeMarkdown(k), escapeMarkdown(v))
	}
	return sb.String()
}

func escapeMarkdown(s string) string {
	r := strings.NewReplacer("|", `\|`, "\n", " ", "*", `\*`, "_", `\_`, "`", "'")
	return r.Replace(s)
}

// renderDetail renders markdown for a pane of the given width. The plain
// markdown is returned when glamour cannot render it.
func renderDetail(theme Theme, md string, width int) string {
	wrap := max(width-4, 20)
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	out := md
	if err == nil {
		if rendered, err := r.Render(md); err == nil {
			out = strings.Trim(rendered, "\n")
		}
	}
	return theme.Detail.Width(width - 2).Render(out)
}
