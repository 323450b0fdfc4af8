// Package engine runs one load cycle of the graph view: it gates on the
// readiness barrier, builds the graph, binds it to a scene, and owns the
// simulation, viewport and drag controller that interactive surfaces drive.
//
// An Engine is not safe for concurrent use. Fetch may run on any goroutine,
// but Build and everything after it belong to the goroutine that owns the
// surface.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vanderheijden86/graphweave/pkg/debug"
	"github.com/vanderheijden86/graphweave/pkg/drag"
	"github.com/vanderheijden86/graphweave/pkg/fetch"
	"github.com/vanderheijden86/graphweave/pkg/force"
	"github.com/vanderheijden86/graphweave/pkg/metrics"
	"github.com/vanderheijden86/graphweave/pkg/model"
	"github.com/vanderheijden86/graphweave/pkg/readiness"
	"github.com/vanderheijden86/graphweave/pkg/render"
	"github.com/vanderheijden86/graphweave/pkg/viewport"
)

// Errors returned by the load cycle.
var (
	ErrNotPrepared = errors.New("load cycle not prepared")
	ErrNotReady    = errors.New("readiness barrier not ready")
	ErrNoSource    = errors.New("remote data source not configured")
	ErrBuilt       = errors.New("graph already built for this cycle")
)

// Force names registered on the simulation.
const (
	ForceLink   = "link"
	ForceCharge = "charge"
	ForceCenter = "center"
)

// Engine is one graph view.
type Engine struct {
	opts Options

	barrier *readiness.Barrier
	session *fetch.Session
	bundled *model.Graph
	err     error

	graph *model.Graph
	stats model.Stats
	sim   *force.Simulation
	scene *render.Scene
	view  *viewport.Controller
	drag  *drag.Controller
}

// New returns an engine for opts. Nothing is loaded until Load or Prepare.
func New(opts Options) *Engine {
	return &Engine{opts: opts.withDefaults()}
}

// Options returns the effective options, defaults filled in.
func (e *Engine) Options() Options { return e.opts }

// Load runs a whole cycle: Prepare, Fetch and, unless the engine waits for a
// surface, Build once the barrier's ready callback fired.
func (e *Engine) Load(ctx context.Context) error {
	b := e.Prepare()
	ready := make(chan struct{})
	b.OnReady(func() { close(ready) })
	if err := e.Fetch(ctx); err != nil {
		return err
	}
	if e.opts.WaitForSurface {
		return nil
	}
	select {
	case <-ready:
		return e.Build()
	default:
		return fmt.Errorf("%w: pending %v", ErrNotReady, b.Pending())
	}
}

// Prepare starts a new load cycle: a fresh barrier and session. The previous
// cycle's graph and layout are dropped.
func (e *Engine) Prepare() *readiness.Barrier {
	debug.Section("load cycle")
	e.barrier = readiness.New(e.opts.tasks()...)
	e.session = fetch.NewSession()
	e.bundled = nil
	e.err = nil
	e.graph, e.sim, e.scene, e.view, e.drag = nil, nil, nil, nil, nil
	e.stats = model.Stats{}
	debug.Log("engine: cycle %s prepared, tasks %v", e.session.ID, e.barrier.Tasks())
	return e.barrier
}

// Fetch runs the data tasks of the prepared cycle. It blocks until every
// data task completed or one failed; a failure is recorded on the barrier
// and the graph is never built for this cycle.
func (e *Engine) Fetch(ctx context.Context) error {
	if e.barrier == nil {
		return ErrNotPrepared
	}
	var err error
	switch e.opts.DataSource {
	case Remote:
		err = e.fetchRemote(ctx)
	default:
		err = e.fetchBundle()
	}
	if err != nil {
		e.err = fmt.Errorf("load aborted: %w", err)
		debug.Log("engine: %v", e.err)
		return e.err
	}
	return nil
}

func (e *Engine) fetchBundle() error {
	g, err := e.opts.Bundle()
	if err != nil {
		_ = e.barrier.Fail(TaskBundle, err)
		return err
	}
	e.bundled = g
	return e.barrier.MarkDone(TaskBundle)
}

func (e *Engine) fetchRemote(ctx context.Context) error {
	if e.opts.Source == nil {
		_ = e.barrier.Fail(fetch.TaskEntities, ErrNoSource)
		return ErrNoSource
	}
	return e.session.Load(ctx, e.opts.Source, e.barrier, e.opts.Collections)
}

// SurfaceReady reports the surface size and completes the surface task. It
// returns whether the barrier is now ready to Build.
func (e *Engine) SurfaceReady(width, height float64) bool {
	if e.barrier == nil {
		return false
	}
	e.Resize(width, height)
	if e.barrier.IsDone(TaskSurface) {
		return e.barrier.Ready()
	}
	if err := e.barrier.MarkDone(TaskSurface); err != nil {
		debug.Log("engine: surface: %v", err)
	}
	return e.barrier.Ready()
}

// Build constructs the graph, simulation, scene, viewport and drag
// controller. It requires a ready barrier and runs at most once per cycle.
func (e *Engine) Build() error {
	if e.barrier == nil {
		return ErrNotPrepared
	}
	if e.err != nil {
		return e.err
	}
	if err := e.barrier.Err(); err != nil {
		return fmt.Errorf("load aborted: %w", err)
	}
	if !e.barrier.Ready() {
		return fmt.Errorf("%w: pending %v", ErrNotReady, e.barrier.Pending())
	}
	if e.graph != nil {
		return ErrBuilt
	}
	defer metrics.Timer(metrics.GraphBuild)()

	g, err := e.buildGraph()
	if err != nil {
		e.err = err
		return err
	}
	if err := g.Resolve(); err != nil {
		e.err = err
		return err
	}

	f := e.opts.Forces
	sim := force.New(g.Nodes,
		force.WithAlphaMin(f.AlphaMin),
		force.WithAlphaDecay(f.AlphaDecay),
		force.WithVelocityDecay(f.VelocityDecay),
		force.WithSeed(f.Seed),
	)
	link := force.NewLink(g.Links)
	link.Distance = f.LinkDistance
	sim.AddForce(ForceLink, link)
	if err := link.Err(); err != nil {
		e.err = err
		return err
	}
	charge := force.NewManyBody()
	charge.Strength = f.Charge
	charge.Theta = f.Theta
	sim.AddForce(ForceCharge, charge)
	sim.AddForce(ForceCenter, force.NewCenter(0, 0))

	scene := render.Bind(g, render.Options{Radius: e.opts.Radius})
	scene.Attach(sim)

	z := e.opts.Zoom
	view := viewport.New(e.opts.Width, e.opts.Height,
		viewport.WithScaleExtent(z.MinScale, z.MaxScale),
		viewport.WithExtentFactor(z.ExtentFactor),
	)

	e.graph, e.sim, e.scene, e.view = g, sim, scene, view
	if e.opts.EnableDrag {
		e.drag = drag.New(sim, drag.WithReheatTarget(e.opts.Drag.AlphaTarget))
	}
	e.stats = g.Stats()
	debug.Log("engine: built %d nodes, %d links, %d components",
		e.stats.Nodes, e.stats.Links, e.stats.Components)
	return nil
}

func (e *Engine) buildGraph() (*model.Graph, error) {
	if e.opts.DataSource == Remote {
		return e.session.Graph(e.opts.Mapping)
	}
	if e.bundled == nil {
		return nil, fmt.Errorf("%w: bundle missing", ErrNotReady)
	}
	return e.bundled, nil
}

// Resize forwards a surface size change to the viewport. Before Build it only
// updates the size the viewport will be created with.
func (e *Engine) Resize(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	e.opts.Width, e.opts.Height = width, height
	if e.view != nil {
		e.view.Resize(width, height)
	}
}

// Step advances the simulation by one tick when it is running.
func (e *Engine) Step() bool {
	if e.sim == nil {
		return false
	}
	return e.sim.Step()
}

// Settle steps the simulation until it rests or maxTicks pass (zero means
// no limit) and returns the number of ticks run. The scene is updated once
// at the end.
func (e *Engine) Settle(maxTicks int) int {
	if e.sim == nil {
		return 0
	}
	start := time.Now()
	n := e.sim.Run(maxTicks)
	e.scene.Update()
	d := time.Since(start)
	metrics.SettleDuration.Record(d)
	debug.LogTiming("settle", d)
	return n
}

// Reheat restarts a resting layout at full alpha.
func (e *Engine) Reheat() {
	if e.sim == nil {
		return
	}
	e.sim.SetAlpha(1)
	e.sim.Restart()
}

// Built reports whether the graph has been built for this cycle.
func (e *Engine) Built() bool { return e.graph != nil }

// Err returns the failure of this cycle, if any.
func (e *Engine) Err() error {
	if e.err != nil {
		return e.err
	}
	if e.barrier != nil {
		if err := e.barrier.Err(); err != nil {
			return fmt.Errorf("load aborted: %w", err)
		}
	}
	return nil
}

// Barrier returns the readiness barrier of the current cycle.
func (e *Engine) Barrier() *readiness.Barrier { return e.barrier }

// Session returns the fetch session of the current cycle.
func (e *Engine) Session() *fetch.Session { return e.session }

// Graph returns the built graph, or nil.
func (e *Engine) Graph() *model.Graph { return e.graph }

// Stats returns the summary of the built graph.
func (e *Engine) Stats() model.Stats { return e.stats }

// Sim returns the force simulation, or nil before Build.
func (e *Engine) Sim() *force.Simulation { return e.sim }

// Scene returns the bound primitives, or nil before Build.
func (e *Engine) Scene() *render.Scene { return e.scene }

// Viewport returns the zoom controller, or nil before Build.
func (e *Engine) Viewport() *viewport.Controller { return e.view }

// Drag returns the drag controller, or nil when drag is disabled.
func (e *Engine) Drag() *drag.Controller { return e.drag }
