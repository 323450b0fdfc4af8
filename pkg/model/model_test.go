package model

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeBundle_TwoNodes(t *testing.T) {
	in := `{"nodes":[{"id":"A","group":1},{"id":"B","group":2,"name":"Bee"}],
		"links":[{"source":"A","target":"B","value":4}]}`

	g, err := DecodeBundle(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeBundle: %v", err)
	}
	if len(g.Nodes) != 2 || len(g.Links) != 1 {
		t.Fatalf("expected 2 nodes / 1 link, got %d / %d", len(g.Nodes), len(g.Links))
	}
	if g.Nodes[0].Group != "1" {
		t.Errorf("expected numeric group normalized to \"1\", got %q", g.Nodes[0].Group)
	}
	if g.Nodes[1].Label != "Bee" {
		t.Errorf("expected label from name, got %q", g.Nodes[1].Label)
	}
	l := g.Links[0]
	if l.Value == nil || *l.Value != 4 {
		t.Fatalf("expected value 4, got %v", l.Value)
	}
	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if l.SourceNode != g.Nodes[0] || l.TargetNode != g.Nodes[1] {
		t.Errorf("link endpoints not attached to node pointers")
	}
}

func TestDecodeBundle_NumericIDs(t *testing.T) {
	in := `{"nodes":[{"id":1},{"id":2}],"links":[{"source":1,"target":2}]}`
	g, err := DecodeBundle(strings.NewReader(in))
	if err != nil {
		t.Fatalf("DecodeBundle: %v", err)
	}
	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if g.Links[0].Source != "1" || g.Links[0].Target != "2" {
		t.Errorf("unexpected endpoints %q -> %q", g.Links[0].Source, g.Links[0].Target)
	}
}

func TestDecodeBundle_Invalid(t *testing.T) {
	cases := map[string]string{
		"syntax":  `{"nodes":[`,
		"no id":   `{"nodes":[{"group":1}],"links":[]}`,
		"bad ref": `{"nodes":[{"id":"A"}],"links":[{"source":{"x":1},"target":"A"}]}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeBundle(strings.NewReader(in)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestBundledDatasetResolves(t *testing.T) {
	g := Bundled()
	if len(g.Nodes) == 0 || len(g.Links) == 0 {
		t.Fatalf("embedded dataset is empty")
	}
	if err := g.Resolve(); err != nil {
		t.Fatalf("embedded dataset does not resolve: %v", err)
	}
	// Each call returns an independent copy.
	g2 := Bundled()
	g2.Nodes[0].X = 99
	if g.Nodes[0].X == 99 {
		t.Errorf("Bundled shares node state between calls")
	}
}

func TestSingleRef(t *testing.T) {
	cases := []struct {
		name    string
		in      any
		want    string
		wantErr bool
	}{
		{"nil", nil, "", false},
		{"empty list", []any{}, "", false},
		{"single", []any{"rec1"}, "rec1", false},
		{"single string slice", []string{"rec2"}, "rec2", false},
		{"bare string", "rec3", "rec3", false},
		{"null element", []any{nil}, "", false},
		{"two elements", []any{"a", "b"}, "a", false},
		{"two strings", []string{"c", "d"}, "c", false},
		{"number", 12.0, "", true},
		{"object element", []any{map[string]any{}}, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SingleRef(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrBadReference) {
					t.Fatalf("expected ErrBadReference, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestFromRecords(t *testing.T) {
	entities := []Record{
		{ID: "rec1", Fields: map[string]any{"Person": "Ada", "Position": "Engineer", "Photo": "a.png"}},
		{ID: "rec2", Fields: map[string]any{"Person": "Grace", "Position": []any{"Admiral"}}},
		{ID: "rec3", Fields: map[string]any{}},
	}
	relationships := []Record{
		{ID: "rel1", Fields: map[string]any{"source": []any{"rec1"}, "target": []any{"rec2"}, "kind": "mentor"}},
		{ID: "rel2", Fields: map[string]any{"source": []any{"rec2"}, "target": nil}},
	}

	g, err := FromRecords(entities, relationships, DefaultMapping())
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}

	if g.Nodes[0].Label != "Ada" || g.Nodes[0].Group != "Engineer" {
		t.Errorf("unexpected node 0: %+v", g.Nodes[0])
	}
	if g.Nodes[0].Attrs["Photo"] != "a.png" || g.Nodes[0].Attrs["id"] != "rec1" {
		t.Errorf("fields not passed through: %v", g.Nodes[0].Attrs)
	}
	if g.Nodes[1].Group != "Admiral" {
		t.Errorf("expected multi-select group to use first choice, got %q", g.Nodes[1].Group)
	}
	if g.Nodes[2].Label != "rec3" {
		t.Errorf("expected label to fall back to id, got %q", g.Nodes[2].Label)
	}

	l := g.Links[0]
	if l.Source != "rec1" || l.Target != "rec2" || l.ID != "rel1" {
		t.Errorf("unexpected link: %+v", l)
	}
	if l.Attrs["source"] != "rec1" || l.Attrs["kind"] != "mentor" {
		t.Errorf("link attrs not rewritten: %v", l.Attrs)
	}
	if g.Links[1].Attrs["target"] != nil {
		t.Errorf("expected null target attr, got %v", g.Links[1].Attrs["target"])
	}

	// The null target is a data-integrity error at resolve time.
	err = g.Resolve()
	if !errors.Is(err, ErrUnresolvedLink) {
		t.Fatalf("expected ErrUnresolvedLink, got %v", err)
	}
	if !strings.Contains(err.Error(), "rel2 target is null") {
		t.Errorf("error should name the link and endpoint: %v", err)
	}
}

func TestFromRecords_MultiRecordReference(t *testing.T) {
	entities := []Record{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	relationships := []Record{
		{ID: "rel1", Fields: map[string]any{"source": []any{"a", "b"}, "target": []any{"c"}}},
	}
	g, err := FromRecords(entities, relationships, DefaultMapping())
	if err != nil {
		t.Fatalf("FromRecords: %v", err)
	}
	if l := g.Links[0]; l.Source != "a" || l.Target != "c" {
		t.Errorf("link = %s -> %s, want a -> c", l.Source, l.Target)
	}
	if err := g.Resolve(); err != nil {
		t.Errorf("Resolve: %v", err)
	}
}

func TestFromRecords_BadReference(t *testing.T) {
	relationships := []Record{
		{ID: "rel1", Fields: map[string]any{"source": []any{map[string]any{"id": "a"}}}},
	}
	if _, err := FromRecords(nil, relationships, DefaultMapping()); !errors.Is(err, ErrBadReference) {
		t.Fatalf("expected ErrBadReference, got %v", err)
	}
}

func TestResolve_Errors(t *testing.T) {
	dup := NewGraph([]*Node{{ID: "A"}, {ID: "A"}}, nil)
	if err := dup.Resolve(); !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("expected ErrDuplicateNode, got %v", err)
	}

	empty := NewGraph([]*Node{{ID: ""}}, nil)
	if err := empty.Resolve(); !errors.Is(err, ErrEmptyNodeID) {
		t.Errorf("expected ErrEmptyNodeID, got %v", err)
	}

	dangling := NewGraph([]*Node{{ID: "A"}}, []*Link{{Source: "A", Target: "Z"}})
	err := dangling.Resolve()
	if !errors.Is(err, ErrUnresolvedLink) {
		t.Fatalf("expected ErrUnresolvedLink, got %v", err)
	}
	if !strings.Contains(err.Error(), `"Z"`) {
		t.Errorf("error should name the missing id: %v", err)
	}
	if dangling.Node("A") != nil {
		t.Errorf("failed resolve should not publish the index")
	}
}

func TestNodePin(t *testing.T) {
	n := &Node{ID: "A"}
	n.Pin(1, 2)
	if !n.Pinned() || *n.FX != 1 || *n.FY != 2 {
		t.Fatalf("unexpected pin %v,%v", n.FX, n.FY)
	}
	n.Unpin()
	if n.Pinned() {
		t.Errorf("expected unpinned node")
	}
}

func TestStats(t *testing.T) {
	g := NewGraph(
		[]*Node{{ID: "A", Group: "1"}, {ID: "B", Group: "1"}, {ID: "C", Group: "2"}, {ID: "D", Group: "2"}},
		[]*Link{{Source: "A", Target: "B"}, {Source: "B", Target: "A"}, {Source: "C", Target: "C"}},
	)
	if err := g.Resolve(); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	s := g.Stats()
	if s.Nodes != 4 || s.Links != 3 || s.Groups != 2 {
		t.Errorf("unexpected counts: %+v", s)
	}
	if s.Components != 3 {
		t.Errorf("expected 3 components (AB, C, D), got %d", s.Components)
	}
	if s.Isolated != 2 || s.SelfLoops != 1 {
		t.Errorf("expected 2 isolated and 1 self loop, got %+v", s)
	}
}
