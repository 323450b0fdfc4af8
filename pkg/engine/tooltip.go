package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/graphweave/pkg/model"
)

// Tooltip is the hover text of a node.
type Tooltip struct {
	Title string
	Lines []string
}

// String renders the tooltip as plain lines.
func (t Tooltip) String() string {
	return strings.Join(append([]string{t.Title}, t.Lines...), "\n")
}

// Tooltip describes n when tooltips are enabled: the label as title, the
// group first, then the remaining attributes sorted by name. Attributes that
// only repeat the id or label are left out.
func (e *Engine) Tooltip(n *model.Node) (Tooltip, bool) {
	if !e.opts.EnableTooltip || n == nil {
		return Tooltip{}, false
	}
	return e.Describe(n), true
}

// Describe builds the tooltip text of n regardless of EnableTooltip; the
// detail pane uses it.
func (e *Engine) Describe(n *model.Node) Tooltip {
	t := Tooltip{Title: n.Label}
	if t.Title == "" {
		t.Title = n.ID
	}

	groupKey, skip := "group", map[string]bool{"id": true, "label": true, "name": true}
	if e.opts.DataSource == Remote {
		groupKey, skip = e.opts.Mapping.Group, map[string]bool{"id": true, e.opts.Mapping.Label: true}
	}
	skip[groupKey] = true
	if n.Group != "" {
		t.Lines = append(t.Lines, groupKey+": "+n.Group)
	}

	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		if !skip[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.Lines = append(t.Lines, k+": "+attrString(n.Attrs[k]))
	}
	return t
}

func attrString(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, p := range x {
			parts[i] = attrString(p)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(x)
	}
}
