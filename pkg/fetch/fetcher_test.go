package fetch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/graphweave/pkg/fetch"
	"github.com/vanderheijden86/graphweave/pkg/model"
	"github.com/vanderheijden86/graphweave/pkg/readiness"
	"github.com/vanderheijden86/graphweave/pkg/source"
)

func rows(prefix string, from, n int) []model.Record {
	out := make([]model.Record, 0, n)
	for i := from; i < from+n; i++ {
		id := fmt.Sprintf("%s%d", prefix, i)
		out = append(out, model.Record{ID: id, Fields: map[string]any{"Person": id}})
	}
	return out
}

func links(n int) []model.Record {
	out := make([]model.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, model.Record{
			ID: fmt.Sprintf("rel%d", i),
			Fields: map[string]any{
				"source": []any{fmt.Sprintf("p%d", i)},
				"target": []any{fmt.Sprintf("p%d", (i+1)%5)},
			},
		})
	}
	return out
}

func scenarioSource() *source.Static {
	return source.NewStatic(map[string][][]model.Record{
		"People":        {rows("p", 0, 2), rows("p", 2, 2), rows("p", 4, 1)},
		"Relationships": {links(5)},
	})
}

func TestFetcher_PagesInArrivalOrder(t *testing.T) {
	src := scenarioSource()
	b := readiness.New(fetch.TaskEntities)
	f := &fetch.Fetcher{Source: src, Barrier: b}

	var got []string
	err := f.Fetch(context.Background(), "People", fetch.TaskEntities, func(page []model.Record) {
		for _, r := range page {
			got = append(got, r.ID)
		}
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := []string{"p0", "p1", "p2", "p3", "p4"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if src.Calls("People") != 3 {
		t.Errorf("expected 3 page requests, got %d", src.Calls("People"))
	}
	if !b.Ready() {
		t.Errorf("expected task marked done")
	}
}

func TestFetcher_ErrorStopsPaging(t *testing.T) {
	src := scenarioSource()
	boom := errors.New("503 service unavailable")
	src.FailAt = map[string]int{"People": 1}
	src.Err = boom

	b := readiness.New(fetch.TaskEntities)
	f := &fetch.Fetcher{Source: src, Barrier: b}

	var got int
	err := f.Fetch(context.Background(), "People", fetch.TaskEntities, func(page []model.Record) {
		got += len(page)
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped source error, got %v", err)
	}
	if got != 2 {
		t.Errorf("expected only the first page handled, got %d rows", got)
	}
	if src.Calls("People") != 2 {
		t.Errorf("expected paging to stop after the failing page, got %d calls", src.Calls("People"))
	}
	if b.Ready() || b.IsDone(fetch.TaskEntities) {
		t.Errorf("failed fetch must not mark the task done")
	}
	if !errors.Is(b.Err(), boom) {
		t.Errorf("barrier should expose the failing task, got %v", b.Err())
	}
}

func TestFetcher_CursorLoop(t *testing.T) {
	src := fetch.PageSourceFunc(func(ctx context.Context, collection, cursor string) (fetch.Page, error) {
		return fetch.Page{Rows: rows("x", 0, 1), Next: "same"}, nil
	})
	f := &fetch.Fetcher{Source: src}
	err := f.Fetch(context.Background(), "People", fetch.TaskEntities, func([]model.Record) {})
	if !errors.Is(err, fetch.ErrCursorLoop) {
		t.Fatalf("expected ErrCursorLoop, got %v", err)
	}
}

func TestFetcher_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fetch.Fetcher{Source: scenarioSource(), Barrier: readiness.New(fetch.TaskEntities)}
	if err := f.Fetch(ctx, "People", fetch.TaskEntities, func([]model.Record) {}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

// Entities arrive in three pages (2, 2, 1 rows) and relationships in one
// page of five. Whatever the interleaving of page requests, the node order
// follows page-then-row arrival and ready fires exactly once.
func TestSession_ScenarioAllInterleavings(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		relPos := rapid.IntRange(0, 3).Draw(t, "relationshipsTurn")
		order := []string{"People", "People", "People"}
		order = append(order[:relPos], append([]string{"Relationships"}, order[relPos:]...)...)

		turns := map[string]chan struct{}{
			"People":        make(chan struct{}),
			"Relationships": make(chan struct{}),
		}
		src := scenarioSource()
		src.BeforePage = func(collection string, _ int) {
			<-turns[collection]
		}
		go func() {
			for _, c := range order {
				turns[c] <- struct{}{}
			}
		}()

		b := readiness.New(fetch.TaskEntities, fetch.TaskRelationships)
		fired := 0
		b.OnReady(func() { fired++ })

		s := fetch.NewSession()
		if err := s.Load(context.Background(), src, b, fetch.DefaultCollections()); err != nil {
			t.Fatalf("Load: %v", err)
		}
		if fired != 1 {
			t.Fatalf("interleaving %v: ready fired %d times", order, fired)
		}

		g, err := s.Graph(model.DefaultMapping())
		if err != nil {
			t.Fatalf("Graph: %v", err)
		}
		if len(g.Nodes) != 5 || len(g.Links) != 5 {
			t.Fatalf("expected 5 nodes and 5 links, got %d/%d", len(g.Nodes), len(g.Links))
		}
		for i, n := range g.Nodes {
			if n.ID != fmt.Sprintf("p%d", i) {
				t.Fatalf("node %d is %s, want arrival order", i, n.ID)
			}
		}
		if err := g.Resolve(); err != nil {
			t.Fatalf("Resolve: %v", err)
		}
	})
}

func TestSession_FailureNeverReady(t *testing.T) {
	src := scenarioSource()
	src.FailAt = map[string]int{"Relationships": 0}

	b := readiness.New(fetch.TaskEntities, fetch.TaskRelationships)
	fired := false
	b.OnReady(func() { fired = true })

	s := fetch.NewSession()
	err := s.Load(context.Background(), src, b, fetch.DefaultCollections())
	if err == nil {
		t.Fatalf("expected load error")
	}
	if fired || b.Ready() {
		t.Errorf("ready must never fire when a collection fails")
	}
	var te *readiness.TaskError
	if !errors.As(b.Err(), &te) || te.Task != fetch.TaskRelationships {
		t.Errorf("expected relationships failure on barrier, got %v", b.Err())
	}
	if s.ID == "" {
		t.Errorf("session should carry an id")
	}
}
