// Package export writes settled layouts to files: SVG and PNG snapshots with
// a summary block, plus the layout as JSON or Graphviz DOT.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/graphweave/pkg/debug"
	"github.com/vanderheijden86/graphweave/pkg/engine"
	"github.com/vanderheijden86/graphweave/pkg/force"
	"github.com/vanderheijden86/graphweave/pkg/model"
	"github.com/vanderheijden86/graphweave/pkg/render"
)

// Format is a snapshot file format.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatJSON Format = "json"
	FormatDOT  Format = "dot"
)

// Snapshot defaults.
const (
	DefaultWidth   = 1200
	DefaultHeight  = 800
	defaultPadding = 24.0
	// DefaultMaxTicks caps settling while the alpha target keeps the
	// simulation above its rest threshold.
	DefaultMaxTicks = 1000
)

// ErrEmptyGraph is returned when there is nothing to draw.
var ErrEmptyGraph = errors.New("graph has no nodes")

// SnapshotOptions controls snapshot export.
type SnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg", "png", "json" or "dot" (case-insensitive)
	Title  string // Optional title rendered in the summary block
	Engine *engine.Engine
	// MaxTicks bounds settling; zero runs until rest, or DefaultMaxTicks
	// when the simulation is held hot.
	MaxTicks int
	// Live writes the current frame without settling.
	Live bool
	// Width and Height size the image; zero uses the defaults.
	Width, Height int
	Labels        bool
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimPrefix(s, ".")))
	switch f {
	case FormatSVG, FormatPNG, FormatJSON, FormatDOT:
		return f, nil
	}
	return "", fmt.Errorf("unsupported format %q (want svg, png, json or dot)", s)
}

// resolveFormat picks the format from opts.Format or the path extension.
// Paths without an extension get ".svg" appended.
func resolveFormat(path, format string) (Format, string, error) {
	if format != "" {
		f, err := ParseFormat(format)
		return f, path, err
	}
	ext := filepath.Ext(path)
	if ext == "" {
		if path != "" {
			path += ".svg"
		}
		return FormatSVG, path, nil
	}
	f, err := ParseFormat(ext)
	return f, path, err
}

// SaveSnapshot settles the engine's layout (unless opts.Live) and writes it
// to opts.Path.
func SaveSnapshot(opts SnapshotOptions) error {
	format, path, err := resolveFormat(opts.Path, opts.Format)
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := checkEngine(opts.Engine); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := WriteSnapshot(bw, format, opts); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	debug.Log("export: wrote %s snapshot to %s", format, path)
	return nil
}

// WriteSnapshot settles the engine's layout (unless opts.Live) and writes it
// to w.
func WriteSnapshot(w io.Writer, format Format, opts SnapshotOptions) error {
	e := opts.Engine
	if err := checkEngine(e); err != nil {
		return err
	}
	ticks := 0
	if !opts.Live && e.Sim().Running() {
		ticks = e.Settle(settleLimit(e.Sim(), opts.MaxTicks))
	} else {
		e.Scene().Update()
	}

	switch format {
	case FormatJSON, FormatDOT:
		l := NewLayout(e.Scene(), e.Stats())
		l.Ticks = e.Sim().Ticks()
		l.Settled = !e.Sim().Running()
		if format == FormatDOT {
			_, err := io.WriteString(w, l.DOT())
			return err
		}
		data, err := l.JSON()
		if err != nil {
			return fmt.Errorf("encode layout: %w", err)
		}
		_, err = w.Write(append(data, '\n'))
		return err
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	wo := render.WriteOptions{
		Width:     width,
		Height:    height,
		Transform: render.FitTransform(e.Scene(), width, height, defaultPadding),
		Title:     opts.Title,
		Summary:   Summary(e.Stats(), ticks),
		Labels:    opts.Labels,
	}
	switch format {
	case FormatSVG:
		return render.WriteSVG(w, e.Scene(), wo)
	case FormatPNG:
		return render.WritePNG(w, e.Scene(), wo)
	default:
		return fmt.Errorf("unhandled format %q", format)
	}
}

// Summary returns the lines of the snapshot summary block.
func Summary(st model.Stats, ticks int) []string {
	lines := []string{
		fmt.Sprintf("Nodes: %d  Links: %d  Groups: %d", st.Nodes, st.Links, st.Groups),
		fmt.Sprintf("Components: %d  Isolated: %d", st.Components, st.Isolated),
	}
	if ticks > 0 {
		lines = append(lines, fmt.Sprintf("Settled in %d ticks", ticks))
	}
	return lines
}

// settleLimit bounds an unlimited settle when the alpha target would keep
// the simulation from ever coming to rest.
func settleLimit(sim *force.Simulation, maxTicks int) int {
	if maxTicks <= 0 && sim.AlphaTarget() >= sim.AlphaMin() {
		debug.Log("export: alpha target %.3f held, settling at most %d ticks", sim.AlphaTarget(), DefaultMaxTicks)
		return DefaultMaxTicks
	}
	return maxTicks
}

func checkEngine(e *engine.Engine) error {
	if e == nil {
		return fmt.Errorf("engine is required for snapshot export")
	}
	if err := e.Err(); err != nil {
		return err
	}
	if !e.Built() {
		return fmt.Errorf("graph not built: %w", engine.ErrNotReady)
	}
	if len(e.Graph().Nodes) == 0 {
		return ErrEmptyGraph
	}
	return nil
}
