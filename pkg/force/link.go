package force

import (
	"errors"
	"fmt"
	"math"

	"github.com/vanderheijden86/graphweave/pkg/model"
)

// DefaultLinkDistance is the rest length of every link.
const DefaultLinkDistance = 30.0

// Link pulls linked nodes toward a target distance. Strength defaults to
// 1/min(degree(source), degree(target)) so hubs are not dragged around by
// their many neighbours, and the correction is split between the endpoints
// in proportion to their degrees.
type Link struct {
	Distance   float64
	Iterations int
	// Strength, when set, overrides the degree-based default per link.
	Strength func(l *model.Link) float64

	links     []*model.Link
	ends      [][2]*model.Node
	strengths []float64
	bias      []float64
	rnd       func() float64
	err       error
}

// NewLink returns a link force over links with the default distance.
func NewLink(links []*model.Link) *Link {
	return &Link{Distance: DefaultLinkDistance, Iterations: 1, links: links}
}

// Err reports links whose endpoints did not resolve at initialization.
func (f *Link) Err() error { return f.err }

// Initialize implements Force. Endpoints are looked up by node id; any
// unresolved endpoint is recorded in Err and that link is skipped.
func (f *Link) Initialize(nodes []*model.Node, rnd func() float64) {
	f.rnd = rnd
	f.err = nil

	byID := make(map[string]*model.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}
	count := make(map[*model.Node]int, len(nodes))

	f.ends = make([][2]*model.Node, len(f.links))
	var missing []error
	for i, l := range f.links {
		l.Index = i
		s, t := byID[l.Source], byID[l.Target]
		if s == nil || t == nil {
			missing = append(missing, fmt.Errorf("%w: link %d (%s -> %s)", model.ErrUnresolvedLink, i, l.Source, l.Target))
			continue
		}
		f.ends[i] = [2]*model.Node{s, t}
		count[s]++
		count[t]++
	}
	f.err = errors.Join(missing...)

	f.strengths = make([]float64, len(f.links))
	f.bias = make([]float64, len(f.links))
	for i, l := range f.links {
		s, t := f.ends[i][0], f.ends[i][1]
		if s == nil {
			continue
		}
		f.bias[i] = float64(count[s]) / float64(count[s]+count[t])
		if f.Strength != nil {
			f.strengths[i] = f.Strength(l)
		} else {
			f.strengths[i] = 1 / float64(min(count[s], count[t]))
		}
	}
}

// Apply implements Force.
func (f *Link) Apply(alpha float64) {
	iterations := f.Iterations
	if iterations < 1 {
		iterations = 1
	}
	for k := 0; k < iterations; k++ {
		for i := range f.links {
			s, t := f.ends[i][0], f.ends[i][1]
			if s == nil {
				continue
			}
			x := t.X + t.VX - s.X - s.VX
			if x == 0 {
				x = jiggle(f.rnd)
			}
			y := t.Y + t.VY - s.Y - s.VY
			if y == 0 {
				y = jiggle(f.rnd)
			}
			l := math.Sqrt(x*x + y*y)
			l = (l - f.Distance) / l * alpha * f.strengths[i]
			x *= l
			y *= l

			b := f.bias[i]
			t.VX -= x * b
			t.VY -= y * b
			s.VX += x * (1 - b)
			s.VY += y * (1 - b)
		}
	}
}
