// Package ui is the terminal surface of the graph view: a bubbletea model
// that drives the engine's load cycle, steps the simulation on a timer and
// maps mouse and keys onto the viewport and drag controllers.
package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/graphweave/pkg/debug"
	"github.com/vanderheijden86/graphweave/pkg/engine"
	"github.com/vanderheijden86/graphweave/pkg/export"
	"github.com/vanderheijden86/graphweave/pkg/metrics"
	"github.com/vanderheijden86/graphweave/pkg/watcher"
)

// Screen rows outside the canvas: the header and the footer.
const chromeRows = 2

// mouseGesture is the drag gesture id of the terminal pointer.
const mouseGesture = 0

// Pan and zoom steps for the keyboard.
const (
	panCells   = 4
	zoomFactor = 1.25
	wheelDelta = 100.0
)

// clipboardWrite is swapped in tests.
var clipboardWrite = clipboard.WriteAll

// Options configures the terminal surface.
type Options struct {
	Title string
	// TickInterval paces the simulation; zero uses 16ms.
	TickInterval time.Duration
	Unicode      bool
	// Labels starts with every node label drawn.
	Labels bool
	// SnapshotDir receives snapshots saved with s; empty means the working
	// directory.
	SnapshotDir string
	// Watcher, when set, starts a new load cycle on every change.
	Watcher *watcher.Watcher
	// Context bounds the fetches; nil means background.
	Context context.Context
}

// Messages.
type (
	// taskDoneMsg reports a barrier task completing.
	taskDoneMsg struct {
		cycle int
		task  string
	}
	// readyMsg carries the barrier's ready event of a cycle.
	readyMsg struct{ cycle int }
	// fetchDoneMsg ends the data tasks of a cycle.
	fetchDoneMsg struct {
		cycle int
		err   error
	}
	// stepMsg advances the simulation one tick.
	stepMsg struct{ cycle int }
	// FileChangedMsg is sent when the watched bundle changes.
	FileChangedMsg struct{}
)

// Model is the bubbletea model of the graph view. The engine is owned by
// the Update goroutine; only Fetch runs elsewhere.
type Model struct {
	engine *engine.Engine
	opts   Options
	theme  Theme
	keys   keyMap
	help   help.Model
	spin   spinner.Model
	view   *GraphView

	width, height int
	surfaceKnown  bool

	cycle         int
	ctx           context.Context
	cancel        context.CancelFunc
	events        chan tea.Msg
	fetching      bool
	ready         bool
	reloadPending bool
	done          map[string]bool
	err           error
	ticking       bool

	dragging   bool
	panning    bool
	lastX      int
	lastY      int
	hoverID    string
	showDetail bool
	detailID   string

	status        string
	statusIsError bool
}

// NewModel prepares the first load cycle of e, which should be created with
// WaitForSurface so the layout is sized to the terminal.
func NewModel(e *engine.Engine, opts Options) Model {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 16 * time.Millisecond
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Title == "" {
		opts.Title = "graphweave"
	}
	theme := DefaultTheme(lipgloss.DefaultRenderer(), opts.Unicode)
	m := Model{
		engine: e,
		opts:   opts,
		theme:  theme,
		keys:   defaultKeyMap(),
		help:   help.New(),
		spin: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(ColorPrimary)),
		),
		view: NewGraphView(theme),
	}
	m.view.Labels = opts.Labels
	m.prepareCycle()
	return m
}

// Engine returns the engine the model drives.
func (m Model) Engine() *engine.Engine { return m.engine }

// Err returns the failure of the current cycle.
func (m Model) Err() error { return m.err }

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.fetchCmd(), m.waitEvent(), m.spin.Tick}
	if m.opts.Watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
	}
	return tea.Batch(cmds...)
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// prepareCycle starts a load cycle on the Update goroutine. The previous
// cycle's fetch must have returned.
func (m *Model) prepareCycle() {
	if m.cancel != nil {
		m.cancel()
	}
	m.cycle++
	ctx, cancel := context.WithCancel(m.opts.Context)
	m.ctx, m.cancel = ctx, cancel

	b := m.engine.Prepare()
	m.fetching, m.ready, m.reloadPending = true, false, false
	m.err, m.ticking = nil, false
	m.dragging, m.panning, m.hoverID, m.showDetail = false, false, "", false
	m.done = make(map[string]bool)

	events := make(chan tea.Msg, len(b.Tasks())+1)
	cycle := m.cycle
	b.Subscribe(func(task string) {
		select {
		case events <- taskDoneMsg{cycle: cycle, task: task}:
		case <-ctx.Done():
		}
	})
	b.OnReady(func() {
		select {
		case events <- readyMsg{cycle: cycle}:
		case <-ctx.Done():
		}
	})
	m.events = events
	debug.Log("ui: cycle %d prepared", m.cycle)

	if m.surfaceKnown {
		w, h := m.surfaceSize()
		m.engine.SurfaceReady(w, h)
	}
}

func (m Model) fetchCmd() tea.Cmd {
	e, cycle, ctx := m.engine, m.cycle, m.ctx
	return func() tea.Msg {
		return fetchDoneMsg{cycle: cycle, err: e.Fetch(ctx)}
	}
}

func (m Model) waitEvent() tea.Cmd {
	ch, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case msg := <-ch:
			return msg
		case <-ctx.Done():
			return nil
		}
	}
}

// requestReload starts a new cycle, or queues one while a fetch is in
// flight so that fetch never races the next Prepare.
func (m *Model) requestReload() tea.Cmd {
	if m.fetching {
		m.reloadPending = true
		m.cancel()
		return nil
	}
	m.prepareCycle()
	return tea.Batch(m.fetchCmd(), m.waitEvent(), m.spin.Tick)
}

// surfaceSize is the canvas area in surface units.
func (m Model) surfaceSize() (float64, float64) {
	cols, rows := m.canvasSize()
	return float64(cols) * CellWidth, float64(rows) * CellHeight
}

func (m Model) canvasSize() (int, int) {
	return max(m.width, 1), max(m.height-chromeRows, 1)
}

// tryBuild builds the graph once the barrier reported ready and the
// terminal size is known.
func (m *Model) tryBuild() tea.Cmd {
	if !m.ready || m.reloadPending || m.err != nil || !m.surfaceKnown || m.engine.Built() {
		return nil
	}
	if err := m.engine.Build(); err != nil {
		m.err = err
		return nil
	}
	st := m.engine.Stats()
	m.setStatus(fmt.Sprintf("%d nodes, %d links", st.Nodes, st.Links), false)
	return m.ensureTicking()
}

// ensureTicking schedules the next step when the simulation runs and no
// step is pending.
func (m *Model) ensureTicking() tea.Cmd {
	if m.ticking || !m.engine.Built() || !m.engine.Sim().Running() {
		return nil
	}
	m.ticking = true
	return m.stepCmd()
}

func (m Model) stepCmd() tea.Cmd {
	cycle := m.cycle
	return tea.Tick(m.opts.TickInterval, func(time.Time) tea.Msg {
		return stepMsg{cycle: cycle}
	})
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status, m.statusIsError = s, isErr
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		cols, rows := m.canvasSize()
		m.view.Resize(cols, rows)
		w, h := m.surfaceSize()
		if !m.surfaceKnown {
			m.surfaceKnown = true
			m.engine.SurfaceReady(w, h)
		} else {
			m.engine.Resize(w, h)
		}
		return m, m.tryBuild()

	case taskDoneMsg:
		if msg.cycle != m.cycle {
			return m, nil
		}
		m.done[msg.task] = true
		debug.Log("ui: task %s done", msg.task)
		return m, m.waitEvent()

	case readyMsg:
		if msg.cycle != m.cycle {
			return m, nil
		}
		m.ready = true
		debug.Log("ui: cycle %d ready", m.cycle)
		return m, m.tryBuild()

	case fetchDoneMsg:
		if msg.cycle != m.cycle {
			return m, nil
		}
		m.fetching = false
		if m.reloadPending {
			return m, m.requestReload()
		}
		if msg.err != nil {
			m.err = msg.err
			m.setStatus("load failed", true)
		}
		return m, nil

	case stepMsg:
		if msg.cycle != m.cycle || !m.engine.Built() {
			return m, nil
		}
		if m.engine.Step() {
			return m, m.stepCmd()
		}
		m.ticking = false
		debug.Log("ui: simulation at rest after %d ticks", m.engine.Sim().Ticks())
		return m, nil

	case spinner.TickMsg:
		if m.engine.Built() || m.err != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case FileChangedMsg:
		m.setStatus("bundle changed, reloading", false)
		cmds := []tea.Cmd{m.requestReload()}
		if m.opts.Watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		return m, m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.cancel != nil {
			m.cancel()
		}
		return *m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return *m, nil
	case key.Matches(msg, m.keys.Close):
		m.help.ShowAll = false
		m.showDetail = false
		return *m, nil
	case key.Matches(msg, m.keys.Reload):
		m.setStatus("reloading", false)
		return *m, m.requestReload()
	}

	if !m.engine.Built() {
		return *m, nil
	}
	view := m.engine.Viewport()
	w, h := m.surfaceSize()
	stepX, stepY := panCells*CellWidth, panCells/2*CellHeight

	switch {
	case key.Matches(msg, m.keys.Reheat):
		m.engine.Reheat()
		m.setStatus("reheated", false)
		return *m, m.ensureTicking()
	case key.Matches(msg, m.keys.Reset):
		view.Reset()
	case key.Matches(msg, m.keys.ZoomIn):
		view.ZoomAt(w/2, h/2, zoomFactor)
	case key.Matches(msg, m.keys.ZoomOut):
		view.ZoomAt(w/2, h/2, 1/zoomFactor)
	case key.Matches(msg, m.keys.Up):
		view.PanBy(0, stepY)
	case key.Matches(msg, m.keys.Down):
		view.PanBy(0, -stepY)
	case key.Matches(msg, m.keys.Left):
		view.PanBy(stepX, 0)
	case key.Matches(msg, m.keys.Right):
		view.PanBy(-stepX, 0)
	case key.Matches(msg, m.keys.Labels):
		m.view.Labels = !m.view.Labels
	case key.Matches(msg, m.keys.Save):
		m.saveSnapshot()
	case key.Matches(msg, m.keys.Copy):
		m.copyHovered()
	case key.Matches(msg, m.keys.Detail):
		if m.showDetail {
			m.showDetail = false
		} else if m.hoverID != "" {
			m.showDetail, m.detailID = true, m.hoverID
		} else {
			m.setStatus("hover a node first", false)
		}
	}
	return *m, nil
}

func (m *Model) saveSnapshot() {
	name := fmt.Sprintf("graphweave-%s.svg", time.Now().Format("20060102-150405"))
	path := filepath.Join(m.opts.SnapshotDir, name)
	err := export.SaveSnapshot(export.SnapshotOptions{
		Path:   path,
		Title:  m.opts.Title,
		Engine: m.engine,
		Labels: true,
		Live:   true,
	})
	if err != nil {
		m.setStatus(fmt.Sprintf("snapshot failed: %v", err), true)
		return
	}
	m.setStatus("saved "+path, false)
}

func (m *Model) copyHovered() {
	if m.hoverID == "" {
		m.setStatus("hover a node first", false)
		return
	}
	if err := clipboardWrite(m.hoverID); err != nil {
		m.setStatus(fmt.Sprintf("clipboard error: %v", err), true)
		return
	}
	m.setStatus("copied "+m.hoverID, false)
}

// surfacePoint maps a mouse cell to the surface point at the cell center.
func (m Model) surfacePoint(x, y int) (float64, float64) {
	return CellCenter(x, y-1)
}

// nodeAt hit-tests the cell under the pointer.
func (m Model) nodeAt(sx, sy float64) string {
	view := m.engine.Viewport()
	cx, cy := view.Invert(sx, sy)
	k := view.Transform().K
	// half a cell of slack so the glyph is hittable at any zoom
	p := m.engine.Scene().NodeAt(cx, cy, CellHeight/2/k)
	if p == nil {
		return ""
	}
	return p.Node.ID
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if !m.engine.Built() {
		return nil
	}
	view := m.engine.Viewport()
	sx, sy := m.surfacePoint(msg.X, msg.Y)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		view.Wheel(sx, sy, -wheelDelta)
		return nil
	case msg.Button == tea.MouseButtonWheelDown:
		view.Wheel(sx, sy, wheelDelta)
		return nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return nil
		}
		m.lastX, m.lastY = msg.X, msg.Y
		if d := m.engine.Drag(); d != nil {
			if id := m.nodeAt(sx, sy); id != "" {
				d.Start(mouseGesture, m.engine.Scene().Node(id).Node)
				m.dragging = true
				return m.ensureTicking()
			}
		}
		view.Begin()
		m.panning = true

	case tea.MouseActionMotion:
		switch {
		case m.dragging:
			cx, cy := view.Invert(sx, sy)
			if err := m.engine.Drag().Move(mouseGesture, cx, cy); err != nil {
				debug.Log("ui: %v", err)
			}
			return m.ensureTicking()
		case m.panning:
			dx, dy := msg.X-m.lastX, msg.Y-m.lastY
			m.lastX, m.lastY = msg.X, msg.Y
			view.PanBy(float64(dx)*CellWidth, float64(dy)*CellHeight)
		default:
			m.setHover(m.nodeAt(sx, sy))
		}

	case tea.MouseActionRelease:
		if m.dragging {
			m.dragging = false
			if err := m.engine.Drag().End(mouseGesture); err != nil {
				debug.Log("ui: %v", err)
			}
			return m.ensureTicking()
		}
		if m.panning {
			m.panning = false
			view.End()
		}
	}
	return nil
}

func (m *Model) setHover(id string) {
	if m.engine.Scene().SetHover(id) {
		m.hoverID = id
	}
}

// View renders the header, the canvas (or the loading view) and the footer.
func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()
	if m.width == 0 {
		return "waiting for terminal size..."
	}
	cols, rows := m.canvasSize()

	var body string
	switch {
	case m.err != nil:
		body = m.errorView(cols, rows)
	case !m.engine.Built():
		body = m.loadingView(cols, rows)
	default:
		body = m.graphView(cols, rows)
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), body, m.footerView())
}

func (m Model) headerView() string {
	parts := []string{m.opts.Title}
	if m.engine.Built() {
		st := m.engine.Stats()
		sim := m.engine.Sim()
		parts = append(parts,
			fmt.Sprintf("%d nodes", st.Nodes),
			fmt.Sprintf("%d links", st.Links),
			fmt.Sprintf("zoom %.2f", m.engine.Viewport().Transform().K))
		if sim.Running() {
			parts = append(parts, fmt.Sprintf("α %.3f", sim.Alpha()))
		} else {
			parts = append(parts, "at rest")
		}
	}
	return m.theme.Header.Width(m.width).Render(truncate(strings.Join(parts, " · "), max(m.width-2, 1)))
}

func (m Model) footerView() string {
	if m.help.ShowAll {
		return m.help.View(m.keys)
	}
	if m.status != "" {
		style := m.theme.Status
		if m.statusIsError {
			style = style.Foreground(ColorDanger)
		}
		return style.Render(truncate(m.status, max(m.width, 1)))
	}
	return m.help.View(m.keys)
}

func (m Model) graphView(cols, rows int) string {
	m.view.Draw(m.engine.Scene(), m.engine.Viewport().Transform())
	out := m.view.Render()

	hovered := m.engine.Scene().Hovered()
	if hovered != nil && !m.dragging {
		if tt, ok := m.engine.Tooltip(hovered.Node); ok {
			box := renderTooltip(m.theme, tt)
			ax, ay := ToCell(m.engine.Viewport().Transform().Apply(hovered.X, hovered.Y))
			x, y := placeBox(box, ax, ay, cols, rows)
			out = overlay(out, box, x, y)
		}
	}
	if m.showDetail {
		if p := m.engine.Scene().Node(m.detailID); p != nil {
			paneW := min(50, max(cols/2, 24))
			md := detailMarkdown(p.Node.ID, m.engine.Describe(p.Node))
			pane := renderDetail(m.theme, md, paneW)
			out = overlay(out, pane, max(cols-lipgloss.Width(pane), 0), 0)
		}
	}
	return out
}

// loadingView lists the tasks still pending, each with a spinner. Tasks
// leave the list as the barrier reports them done.
func (m Model) loadingView(cols, rows int) string {
	var lines []string
	if b := m.engine.Barrier(); b != nil {
		for _, task := range b.Tasks() {
			if m.done[task] {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s loading %s", m.spin.View(), task))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, m.spin.View()+" building layout")
	}
	return lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, strings.Join(lines, "\n"))
}

func (m Model) errorView(cols, rows int) string {
	w := max(min(cols-4, 80), 1)
	banner := m.theme.Error.Render("Load failed")
	msg := lipgloss.NewStyle().Width(w).Render(m.err.Error())
	hint := m.theme.Status.Render("R to retry · q to quit")
	content := lipgloss.JoinVertical(lipgloss.Center, banner, RenderDivider(min(w, 40)), msg, "", hint)
	return lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, content)
}
