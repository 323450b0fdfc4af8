package drag

import (
	"errors"
	"testing"

	"github.com/vanderheijden86/graphweave/pkg/force"
	"github.com/vanderheijden86/graphweave/pkg/model"
)

func settled(t *testing.T) (*force.Simulation, []*model.Node) {
	t.Helper()
	nodes := []*model.Node{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	links := []*model.Link{{Source: "a", Target: "b"}, {Source: "b", Target: "c"}}
	sim := force.New(nodes, force.WithSeed(11))
	sim.AddForce("link", force.NewLink(links))
	sim.AddForce("charge", force.NewManyBody())
	sim.AddForce("center", force.NewCenter(0, 0))
	sim.Run(0)
	if sim.Running() {
		t.Fatalf("simulation did not settle")
	}
	return sim, nodes
}

// Drag-start on a settled simulation reheats it; drag-end with no other
// drag active relaxes the target back to zero and clears the pin.
func TestDrag_ReheatAndRelax(t *testing.T) {
	sim, nodes := settled(t)
	c := New(sim)
	b := nodes[1]
	x0, y0 := b.X, b.Y

	c.Start(0, b)
	if sim.Alpha() < 0.3 || sim.AlphaTarget() != 0.3 || !sim.Running() {
		t.Fatalf("expected reheat, alpha=%f target=%f running=%v", sim.Alpha(), sim.AlphaTarget(), sim.Running())
	}
	if b.FX == nil || *b.FX != x0 || *b.FY != y0 {
		t.Fatalf("node should be pinned where it stood")
	}

	if err := c.Move(0, x0+50, y0-20); err != nil {
		t.Fatalf("Move: %v", err)
	}
	sim.Step()
	if b.X != x0+50 || b.Y != y0-20 {
		t.Fatalf("node not held at pointer: (%f,%f)", b.X, b.Y)
	}
	for i := 0; i < 50; i++ {
		sim.Step()
	}
	if sim.Alpha() < 0.29 {
		t.Errorf("alpha should stay near the reheat target while dragging, got %f", sim.Alpha())
	}

	if err := c.End(0); err != nil {
		t.Fatalf("End: %v", err)
	}
	if sim.AlphaTarget() != 0 {
		t.Errorf("target should relax to 0, got %f", sim.AlphaTarget())
	}
	if b.Pinned() {
		t.Errorf("pin should be cleared")
	}
	sim.Run(0)
	if sim.Running() {
		t.Errorf("simulation should cool back to rest")
	}
}

func TestDrag_ConcurrentGesturesRelaxOnLastEnd(t *testing.T) {
	sim, nodes := settled(t)
	c := New(sim)

	c.Start(1, nodes[0])
	c.Start(2, nodes[2])
	if c.Active() != 2 {
		t.Fatalf("expected two active gestures")
	}
	_ = c.End(1)
	if sim.AlphaTarget() != 0.3 {
		t.Errorf("target relaxed while another drag is active")
	}
	if nodes[0].Pinned() || !nodes[2].Pinned() {
		t.Errorf("only the ended gesture should unpin")
	}
	_ = c.End(2)
	if sim.AlphaTarget() != 0 {
		t.Errorf("target should relax after the last drag")
	}
}

// A drag that starts while the layout is still hot keeps alpha where it is
// but holds the target, so the simulation never cools out from under the
// pointer.
func TestDrag_HotSimulationKeepsRunning(t *testing.T) {
	nodes := []*model.Node{{ID: "a"}, {ID: "b"}}
	links := []*model.Link{{Source: "a", Target: "b"}}
	sim := force.New(nodes, force.WithSeed(3))
	sim.AddForce("link", force.NewLink(links))
	sim.AddForce("charge", force.NewManyBody())
	c := New(sim)
	b := nodes[1]

	c.Start(0, b)
	if sim.Alpha() != 1 {
		t.Errorf("alpha = %f, hot simulation should not be lowered", sim.Alpha())
	}
	if sim.AlphaTarget() != DefaultReheatTarget {
		t.Fatalf("target = %f, want %f", sim.AlphaTarget(), DefaultReheatTarget)
	}

	for i := 0; i < 400; i++ {
		x, y := float64(i), float64(-i)
		if err := c.Move(0, x, y); err != nil {
			t.Fatalf("Move: %v", err)
		}
		if !sim.Step() {
			t.Fatalf("simulation came to rest mid-drag at tick %d", i)
		}
		if b.X != x || b.Y != y {
			t.Fatalf("tick %d: node at (%f,%f), pin at (%f,%f)", i, b.X, b.Y, x, y)
		}
	}
	if !sim.Running() {
		t.Fatal("simulation stopped while dragging")
	}

	_ = c.End(0)
	if sim.AlphaTarget() != 0 {
		t.Errorf("target should relax to 0, got %f", sim.AlphaTarget())
	}
	if b.Pinned() {
		t.Errorf("pin should be cleared")
	}
	sim.Run(0)
	if sim.Running() {
		t.Errorf("simulation should cool back to rest")
	}
}

func TestDrag_UnknownGesture(t *testing.T) {
	sim, _ := settled(t)
	c := New(sim, WithReheatTarget(0.5))
	if err := c.Move(9, 1, 1); !errors.Is(err, ErrNoGesture) {
		t.Errorf("Move: expected ErrNoGesture, got %v", err)
	}
	if err := c.End(9); !errors.Is(err, ErrNoGesture) {
		t.Errorf("End: expected ErrNoGesture, got %v", err)
	}
}

func TestDrag_CustomTarget(t *testing.T) {
	sim, nodes := settled(t)
	c := New(sim, WithReheatTarget(0.5))
	c.Start(0, nodes[0])
	if sim.AlphaTarget() != 0.5 || sim.Alpha() != 0.5 {
		t.Errorf("expected custom target 0.5, got alpha=%f target=%f", sim.Alpha(), sim.AlphaTarget())
	}
	if n, ok := c.Dragging(0); !ok || n != nodes[0] {
		t.Errorf("Dragging(0) = %v, %v", n, ok)
	}
}
