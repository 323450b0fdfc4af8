package testutil

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/graphweave/pkg/model"
)

// AssertNodeCount verifies the expected number of nodes.
func AssertNodeCount(t *testing.T, g *model.Graph, expected int) {
	t.Helper()
	if len(g.Nodes) != expected {
		t.Errorf("expected %d nodes, got %d", expected, len(g.Nodes))
	}
}

// AssertNoDuplicateIDs verifies all node IDs are unique.
func AssertNoDuplicateIDs(t *testing.T, g *model.Graph) {
	t.Helper()
	seen := make(map[string]bool)
	for _, n := range g.Nodes {
		if seen[n.ID] {
			t.Errorf("duplicate node ID: %s", n.ID)
		}
		seen[n.ID] = true
	}
}

// AssertResolved verifies every link points at nodes of the graph.
func AssertResolved(t *testing.T, g *model.Graph) {
	t.Helper()
	for i, l := range g.Links {
		if l.SourceNode == nil || l.TargetNode == nil {
			t.Errorf("link %d (%s -> %s) is unresolved", i, l.Source, l.Target)
			continue
		}
		if g.Node(l.Source) != l.SourceNode || g.Node(l.Target) != l.TargetNode {
			t.Errorf("link %d endpoints are not the graph's nodes", i)
		}
	}
}

// AssertFinitePositions verifies no node position or velocity is NaN or
// infinite.
func AssertFinitePositions(t *testing.T, nodes []*model.Node) {
	t.Helper()
	for _, n := range nodes {
		for _, v := range []float64{n.X, n.Y, n.VX, n.VY} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("node %s has non-finite state (%f,%f) v=(%f,%f)", n.ID, n.X, n.Y, n.VX, n.VY)
				break
			}
		}
	}
}

// AssertCentered verifies the mean node position is within tol of (x, y).
func AssertCentered(t *testing.T, nodes []*model.Node, x, y, tol float64) {
	t.Helper()
	if len(nodes) == 0 {
		return
	}
	var sx, sy float64
	for _, n := range nodes {
		sx += n.X
		sy += n.Y
	}
	mx, my := sx/float64(len(nodes)), sy/float64(len(nodes))
	if math.Abs(mx-x) > tol || math.Abs(my-y) > tol {
		t.Errorf("layout centered at (%.3f,%.3f), want (%.3f,%.3f) ± %.3f", mx, my, x, y, tol)
	}
}

// AssertJSONEqual compares two values by their JSON encoding.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()
	want, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	got, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(want) != string(got) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", want, got)
	}
}

// GoldenFile compares output against a file under testdata.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{t: t, dir: dir, name: name, update: os.Getenv("GENERATE_GOLDEN") != ""}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file.
// If GENERATE_GOLDEN is set, updates the golden file instead.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()
	path := g.Path()

	if g.update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}
	if string(expected) == actual {
		return
	}

	expectedLines := strings.Split(string(expected), "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}
		if expLine != actLine {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, expLine, actLine)
			return
		}
	}
	g.t.Errorf("golden file mismatch (length differs)")
}

// WriteBundleFile writes g in bundle form ({"nodes":[...],"links":[...]}) to
// dir/name and returns the path.
func WriteBundleFile(t *testing.T, dir, name string, g *model.Graph) string {
	t.Helper()
	type bundle struct {
		Nodes []map[string]any `json:"nodes"`
		Links []map[string]any `json:"links"`
	}
	var b bundle
	for _, n := range g.Nodes {
		b.Nodes = append(b.Nodes, map[string]any{"id": n.ID, "group": n.Group})
	}
	for _, l := range g.Links {
		m := map[string]any{"source": l.Source, "target": l.Target}
		if l.Value != nil {
			m["value"] = *l.Value
		}
		b.Links = append(b.Links, m)
	}
	if b.Links == nil {
		b.Links = []map[string]any{}
	}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("failed to marshal bundle: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write bundle: %v", err)
	}
	return path
}

// GetIDs returns the node IDs in graph order.
func GetIDs(nodes []*model.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}
