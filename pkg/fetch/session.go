package fetch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/graphweave/pkg/debug"
	"github.com/vanderheijden86/graphweave/pkg/model"
	"github.com/vanderheijden86/graphweave/pkg/readiness"
)

// Barrier task names for the two remote collections.
const (
	TaskEntities      = "entities"
	TaskRelationships = "relationships"
)

// Collections names the remote tables backing entities and relationships.
type Collections struct {
	Entities      string `yaml:"entities,omitempty"`
	Relationships string `yaml:"relationships,omitempty"`
}

// DefaultCollections returns the table names of the original people base.
func DefaultCollections() Collections {
	return Collections{Entities: "People", Relationships: "Relationships"}
}

// Session accumulates the rows of one load cycle. It is owned by the load
// that created it; each row slice is appended to only by the goroutine
// fetching that collection and must be read only after the barrier is ready.
type Session struct {
	ID      string
	Started time.Time

	Entities      []model.Record
	Relationships []model.Record
}

// NewSession starts an empty load cycle.
func NewSession() *Session {
	return &Session{ID: uuid.NewString(), Started: time.Now()}
}

// Load fetches both collections concurrently and returns the first error.
// A failure cancels the sibling fetch since the barrier can no longer
// become ready.
func (s *Session) Load(ctx context.Context, src PageSource, b *readiness.Barrier, cols Collections) error {
	defer debug.LogEnterExit("session " + s.ID)()

	f := &Fetcher{Source: src, Barrier: b}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.Fetch(gctx, cols.Entities, TaskEntities, func(rows []model.Record) {
			s.Entities = append(s.Entities, rows...)
		})
	})
	g.Go(func() error {
		return f.Fetch(gctx, cols.Relationships, TaskRelationships, func(rows []model.Record) {
			s.Relationships = append(s.Relationships, rows...)
		})
	})
	return g.Wait()
}

// Graph hands the accumulated rows to model construction.
func (s *Session) Graph(m model.FieldMapping) (*model.Graph, error) {
	return model.FromRecords(s.Entities, s.Relationships, m)
}
