package force

import (
	"math"

	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/vanderheijden86/graphweave/pkg/debug"
	"github.com/vanderheijden86/graphweave/pkg/model"
)

// Many-body defaults. The layout uses a stronger charge than the d3 baseline
// of -30 so that small graphs spread across the surface.
const (
	DefaultCharge      = -50.0
	DefaultTheta       = 0.9
	DefaultDistanceMin = 1.0
)

// ManyBody applies a uniform charge between every pair of nodes: negative
// strength repels, positive attracts. Distant clusters are approximated with
// a Barnes–Hut quadtree.
type ManyBody struct {
	Strength    float64
	Theta       float64
	DistanceMin float64
	// DistanceMax bounds the interaction range; zero means unbounded.
	DistanceMax float64

	nodes  []*model.Node
	bodies []barneshut.Particle2
	rnd    func() float64
}

// NewManyBody returns a many-body force with the default charge.
func NewManyBody() *ManyBody {
	return &ManyBody{Strength: DefaultCharge, Theta: DefaultTheta, DistanceMin: DefaultDistanceMin}
}

type body struct {
	n    *model.Node
	mass float64
}

func (b *body) Coord2() r2.Vec { return r2.Vec{X: b.n.X, Y: b.n.Y} }
func (b *body) Mass() float64 { return b.mass }

// Initialize implements Force.
func (m *ManyBody) Initialize(nodes []*model.Node, rnd func() float64) {
	m.nodes = nodes
	m.rnd = rnd
	m.bodies = make([]barneshut.Particle2, len(nodes))
	for i, n := range nodes {
		m.bodies[i] = &body{n: n, mass: math.Abs(m.Strength)}
	}
}

// Apply implements Force.
func (m *ManyBody) Apply(alpha float64) {
	if len(m.nodes) < 2 || m.Strength == 0 {
		return
	}
	m.separateCoincident()

	plane, err := barneshut.NewPlane(m.bodies)
	if err != nil {
		debug.Log("force: quadtree unavailable (%v), using exact many-body", err)
		m.applyExact(alpha)
		return
	}

	sign := math.Copysign(1, m.Strength)
	minSq := m.DistanceMin * m.DistanceMin
	maxSq := math.Inf(1)
	if m.DistanceMax > 0 {
		maxSq = m.DistanceMax * m.DistanceMax
	}
	theta := m.Theta
	if theta <= 0 {
		theta = DefaultTheta
	}

	// v points from the node toward the body or cluster; the velocity change
	// is v·strength·alpha/l² with l² floored at distanceMin.
	pull := func(_, _ barneshut.Particle2, _, m2 float64, v r2.Vec) r2.Vec {
		l := v.X*v.X + v.Y*v.Y
		if l == 0 || l >= maxSq {
			return r2.Vec{}
		}
		if l < minSq {
			l = math.Sqrt(minSq * l)
		}
		return r2.Scale(sign*m2*alpha/l, v)
	}

	for i, n := range m.nodes {
		f := plane.ForceOn(m.bodies[i], theta, pull)
		n.VX += f.X
		n.VY += f.Y
	}
}

func (m *ManyBody) applyExact(alpha float64) {
	minSq := m.DistanceMin * m.DistanceMin
	maxSq := math.Inf(1)
	if m.DistanceMax > 0 {
		maxSq = m.DistanceMax * m.DistanceMax
	}
	for i, a := range m.nodes {
		for j, b := range m.nodes {
			if i == j {
				continue
			}
			x, y := b.X-a.X, b.Y-a.Y
			if x == 0 {
				x = jiggle(m.rnd)
			}
			if y == 0 {
				y = jiggle(m.rnd)
			}
			l := x*x + y*y
			if l >= maxSq {
				continue
			}
			if l < minSq {
				l = math.Sqrt(minSq * l)
			}
			a.VX += x * m.Strength * alpha / l
			a.VY += y * m.Strength * alpha / l
		}
	}
}

// separateCoincident nudges nodes sharing a position so the quadtree sees
// distinct points and every pair has a direction to repel along.
func (m *ManyBody) separateCoincident() {
	seen := make(map[r2.Vec]struct{}, len(m.nodes))
	for _, n := range m.nodes {
		p := r2.Vec{X: n.X, Y: n.Y}
		if _, dup := seen[p]; dup && !n.Pinned() {
			n.X += jiggle(m.rnd)
			n.Y += jiggle(m.rnd)
			p = r2.Vec{X: n.X, Y: n.Y}
		}
		seen[p] = struct{}{}
	}
}
