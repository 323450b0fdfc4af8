package datasource

import (
	"context"
	"fmt"
	"time"

	"github.com/vanderheijden86/graphweave/pkg/config"
	"github.com/vanderheijden86/graphweave/pkg/fetch"
	"github.com/vanderheijden86/graphweave/pkg/model"
	"github.com/vanderheijden86/graphweave/pkg/source"
)

// validateTimeout bounds the row count query on a sqlite candidate.
const validateTimeout = 5 * time.Second

// ValidateSource checks that a candidate can back a graph and records the
// node count. A bundle must decode and resolve; a sqlite database must hold
// the entity table.
func ValidateSource(ds *DataSource, cols fetch.Collections) error {
	ds.Valid = false
	ds.ValidationError = ""
	var err error
	switch ds.Kind {
	case config.KindFile:
		ds.NodeCount, err = validateBundle(ds.Path)
	case config.KindSQLite:
		ds.NodeCount, err = validateSQLite(ds.Path, cols.Entities)
	default:
		err = fmt.Errorf("cannot validate kind %q", ds.Kind)
	}
	if err != nil {
		ds.ValidationError = err.Error()
		return err
	}
	ds.Valid = true
	return nil
}

func validateBundle(path string) (int, error) {
	g, err := model.LoadBundleFile(path)
	if err != nil {
		return 0, err
	}
	if err := g.Resolve(); err != nil {
		return 0, err
	}
	return len(g.Nodes), nil
}

func validateSQLite(path, table string) (int, error) {
	src, err := source.OpenSQL(source.DialectSQLite, path)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	defer cancel()
	var n int
	q := fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, table)
	if err := src.DB.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("table %s: %w", table, err)
	}
	return n, nil
}
