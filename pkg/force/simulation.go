// Package force implements a velocity-Verlet force simulation over graph
// nodes with d3-force semantics: an alpha "temperature" that decays toward a
// target, forces that nudge velocities, and integration that honors pins.
//
// A Simulation is not safe for concurrent use. It is stepped from a single
// goroutine (the UI loop, an export, or a server handler holding its lock).
package force

import (
	"math"
	"math/rand"
	"time"

	"github.com/vanderheijden86/graphweave/pkg/debug"
	"github.com/vanderheijden86/graphweave/pkg/metrics"
	"github.com/vanderheijden86/graphweave/pkg/model"
)

const (
	initialRadius = 10.0
	// DefaultAlphaMin ends the simulation once alpha falls below it.
	DefaultAlphaMin = 0.001
	// DefaultVelocityDecay is the fraction of velocity lost each tick.
	DefaultVelocityDecay = 0.4
)

var (
	initialAngle = math.Pi * (3 - math.Sqrt(5))
	// DefaultAlphaDecay reaches DefaultAlphaMin from 1 in 300 ticks.
	DefaultAlphaDecay = 1 - math.Pow(DefaultAlphaMin, 1.0/300)
)

// Force nudges node velocities once per tick.
type Force interface {
	// Initialize is called when the force is added and whenever the node
	// set changes. rnd returns uniform values in [0, 1).
	Initialize(nodes []*model.Node, rnd func() float64)
	Apply(alpha float64)
}

type namedForce struct {
	name  string
	force Force
}

// Simulation advances node positions under a set of named forces.
type Simulation struct {
	nodes  []*model.Node
	forces []namedForce

	alpha         float64
	alphaMin      float64
	alphaDecay    float64
	alphaTarget   float64
	velocityDecay float64 // stored as the retained fraction, 1 - decay

	running bool
	ended   bool
	ticks   int

	rnd    *rand.Rand
	onTick []func()
	onEnd  []func()
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithAlphaMin sets the alpha below which the simulation stops.
func WithAlphaMin(v float64) Option {
	return func(s *Simulation) { s.alphaMin = v }
}

// WithAlphaDecay sets the per-tick approach rate of alpha to its target.
func WithAlphaDecay(v float64) Option {
	return func(s *Simulation) { s.alphaDecay = v }
}

// WithVelocityDecay sets the fraction of velocity removed each tick.
func WithVelocityDecay(v float64) Option {
	return func(s *Simulation) { s.velocityDecay = 1 - v }
}

// WithSeed makes jiggle and any random initialization reproducible.
func WithSeed(seed int64) Option {
	return func(s *Simulation) { s.rnd = rand.New(rand.NewSource(seed)) }
}

// New creates a running simulation over nodes. Nodes without a position
// (both coordinates zero or NaN) are laid out on a phyllotaxis spiral so
// that the first ticks spread them evenly.
func New(nodes []*model.Node, opts ...Option) *Simulation {
	s := &Simulation{
		nodes:         nodes,
		alpha:         1,
		alphaMin:      DefaultAlphaMin,
		alphaDecay:    DefaultAlphaDecay,
		velocityDecay: 1 - DefaultVelocityDecay,
		running:       true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.initializeNodes()
	return s
}

func (s *Simulation) initializeNodes() {
	for i, n := range s.nodes {
		n.Index = i
		if n.FX != nil {
			n.X = *n.FX
		}
		if n.FY != nil {
			n.Y = *n.FY
		}
		if unpositioned(n) {
			r := initialRadius * math.Sqrt(0.5+float64(i))
			a := float64(i) * initialAngle
			n.X = r * math.Cos(a)
			n.Y = r * math.Sin(a)
		}
		if math.IsNaN(n.VX) || math.IsNaN(n.VY) {
			n.VX, n.VY = 0, 0
		}
	}
}

func unpositioned(n *model.Node) bool {
	if math.IsNaN(n.X) || math.IsNaN(n.Y) {
		return true
	}
	return n.X == 0 && n.Y == 0 && !n.Pinned()
}

func (s *Simulation) random() float64 { return s.rnd.Float64() }

// Nodes returns the simulated nodes in index order.
func (s *Simulation) Nodes() []*model.Node { return s.nodes }

// AddForce registers f under name, replacing any force with the same name,
// and initializes it with the current nodes.
func (s *Simulation) AddForce(name string, f Force) {
	f.Initialize(s.nodes, s.random)
	for i := range s.forces {
		if s.forces[i].name == name {
			s.forces[i].force = f
			return
		}
	}
	s.forces = append(s.forces, namedForce{name: name, force: f})
}

// Force returns the force registered under name, or nil.
func (s *Simulation) Force(name string) Force {
	for _, nf := range s.forces {
		if nf.name == name {
			return nf.force
		}
	}
	return nil
}

// RemoveForce unregisters name. It reports whether a force was removed.
func (s *Simulation) RemoveForce(name string) bool {
	for i, nf := range s.forces {
		if nf.name == name {
			s.forces = append(s.forces[:i], s.forces[i+1:]...)
			return true
		}
	}
	return false
}

// ForceNames lists registered forces in application order.
func (s *Simulation) ForceNames() []string {
	names := make([]string, len(s.forces))
	for i, nf := range s.forces {
		names[i] = nf.name
	}
	return names
}

// OnTick registers fn to run after every Step that advances the layout.
func (s *Simulation) OnTick(fn func()) { s.onTick = append(s.onTick, fn) }

// OnEnd registers fn to run when the simulation comes to rest.
func (s *Simulation) OnEnd(fn func()) { s.onEnd = append(s.onEnd, fn) }

// Alpha returns the current temperature.
func (s *Simulation) Alpha() float64 { return s.alpha }

// SetAlpha sets the current temperature, clamped to [0, 1].
func (s *Simulation) SetAlpha(a float64) { s.alpha = clamp01(a) }

// AlphaMin returns the rest threshold.
func (s *Simulation) AlphaMin() float64 { return s.alphaMin }

// AlphaTarget returns the value alpha decays toward.
func (s *Simulation) AlphaTarget() float64 { return s.alphaTarget }

// SetAlphaTarget sets the value alpha decays toward, clamped to [0, 1].
func (s *Simulation) SetAlphaTarget(a float64) { s.alphaTarget = clamp01(a) }

// Restart resumes stepping after the simulation came to rest or was stopped.
func (s *Simulation) Restart() {
	if !s.running {
		debug.Log("force: restart at alpha=%.4f target=%.2f", s.alpha, s.alphaTarget)
	}
	s.running = true
	s.ended = false
}

// Stop halts stepping without firing end listeners.
func (s *Simulation) Stop() { s.running = false }

// Running reports whether Step will advance the layout.
func (s *Simulation) Running() bool { return s.running }

// Ticks returns how many ticks have advanced the layout.
func (s *Simulation) Ticks() int { return s.ticks }

// Step performs one tick, notifies tick listeners and reports whether the
// simulation is still running. Once alpha drops below the minimum the
// simulation stops and end listeners fire once. A stopped simulation is at
// rest: Step does nothing and returns false.
func (s *Simulation) Step() bool {
	if !s.running {
		return false
	}
	start := time.Now()
	s.tick()
	metrics.TickDuration.Record(time.Since(start))

	for _, fn := range s.onTick {
		fn()
	}
	if s.alpha < s.alphaMin {
		s.running = false
		if !s.ended {
			s.ended = true
			debug.Log("force: at rest after %d ticks", s.ticks)
			for _, fn := range s.onEnd {
				fn()
			}
		}
	}
	return s.running
}

// Tick advances the layout n times without notifying listeners or checking
// the rest threshold.
func (s *Simulation) Tick(n int) {
	for i := 0; i < n; i++ {
		s.tick()
	}
}

// Run steps until the simulation comes to rest or maxTicks steps have been
// taken (maxTicks <= 0 means no limit). It returns the number of steps.
func (s *Simulation) Run(maxTicks int) int {
	steps := 0
	for s.running && (maxTicks <= 0 || steps < maxTicks) {
		s.Step()
		steps++
	}
	return steps
}

func (s *Simulation) tick() {
	s.alpha += (s.alphaTarget - s.alpha) * s.alphaDecay
	for _, nf := range s.forces {
		nf.force.Apply(s.alpha)
	}
	for _, n := range s.nodes {
		if n.FX == nil {
			n.VX *= s.velocityDecay
			n.X += n.VX
		} else {
			n.X = *n.FX
			n.VX = 0
		}
		if n.FY == nil {
			n.VY *= s.velocityDecay
			n.Y += n.VY
		} else {
			n.Y = *n.FY
			n.VY = 0
		}
	}
	s.ticks++
}

// Find returns the node closest to (x, y) within radius, or nil. A
// non-positive radius searches without limit.
func (s *Simulation) Find(x, y, radius float64) *model.Node {
	limit := math.Inf(1)
	if radius > 0 {
		limit = radius * radius
	}
	var closest *model.Node
	for _, n := range s.nodes {
		dx, dy := x-n.X, y-n.Y
		d2 := dx*dx + dy*dy
		if d2 < limit {
			closest, limit = n, d2
		}
	}
	return closest
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func jiggle(rnd func() float64) float64 {
	return (rnd() - 0.5) * 1e-6
}
