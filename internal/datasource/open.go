package datasource

import (
	"fmt"
	"io"

	"github.com/vanderheijden86/graphweave/pkg/config"
	"github.com/vanderheijden86/graphweave/pkg/engine"
	"github.com/vanderheijden86/graphweave/pkg/fetch"
	"github.com/vanderheijden86/graphweave/pkg/model"
	"github.com/vanderheijden86/graphweave/pkg/source"
)

// KindInfo describes one source kind for pickers and help text.
type KindInfo struct {
	Kind        string
	Description string
	Remote      bool
}

// Kinds lists the source kinds in the order they are offered.
func Kinds() []KindInfo {
	return []KindInfo{
		{config.KindBundled, "embedded sample graph", false},
		{config.KindFile, "bundle JSON file", false},
		{config.KindSQLite, "record tables in a sqlite database", true},
		{config.KindPostgres, "record tables in postgres", true},
		{config.KindHTTP, "hosted record-table API", true},
		{config.KindPostgREST, "PostgREST or Supabase endpoint", true},
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var nopCloser io.Closer = closerFunc(func() error { return nil })

// Open returns the page source for a remote kind. Bundled kinds have no page
// source and return nil. The closer is never nil.
func Open(cfg config.Config) (fetch.PageSource, io.Closer, error) {
	s := cfg.Source
	switch s.Kind {
	case config.KindBundled, config.KindFile:
		return nil, nopCloser, nil

	case config.KindSQLite, config.KindPostgres:
		dialect := source.DialectSQLite
		if s.Kind == config.KindPostgres {
			dialect = source.DialectPostgres
		}
		src, err := source.OpenSQL(dialect, s.DSN)
		if err != nil {
			return nil, nopCloser, err
		}
		src.PageSize = s.PageSize
		return src, src, nil

	case config.KindHTTP:
		if s.URL == "" {
			return nil, nopCloser, fmt.Errorf("source kind %q needs a url", s.Kind)
		}
		src := source.NewHTTP(s.URL, s.Token())
		src.PageSize = s.PageSize
		src.View = s.View
		return src, nopCloser, nil

	case config.KindPostgREST:
		if s.URL == "" {
			return nil, nopCloser, fmt.Errorf("source kind %q needs a url", s.Kind)
		}
		schema := s.Schema
		if schema == "" {
			schema = "public"
		}
		src, err := source.NewPostgREST(s.URL, schema, s.Token())
		if err != nil {
			return nil, nopCloser, err
		}
		src.PageSize = s.PageSize
		return src, nopCloser, nil
	}
	return nil, nopCloser, fmt.Errorf("unknown source kind %q", s.Kind)
}

// Bundle returns the bundle loader for a bundled kind: the embedded dataset
// or a file read afresh on every load cycle.
func Bundle(cfg config.Config) (func() (*model.Graph, error), error) {
	switch cfg.Source.Kind {
	case config.KindBundled:
		return func() (*model.Graph, error) { return model.Bundled(), nil }, nil
	case config.KindFile:
		path := cfg.Source.Path
		if path == "" {
			return nil, fmt.Errorf("source kind %q needs a path", cfg.Source.Kind)
		}
		return func() (*model.Graph, error) { return model.LoadBundleFile(path) }, nil
	}
	return nil, fmt.Errorf("source kind %q is not bundled", cfg.Source.Kind)
}

// Options builds engine options from cfg with the data source attached.
// The caller closes the returned closer when done with the engine.
func Options(cfg config.Config) (engine.Options, io.Closer, error) {
	opts := cfg.EngineOptions()
	if !cfg.Source.Remote() {
		bundle, err := Bundle(cfg)
		if err != nil {
			return opts, nopCloser, err
		}
		opts.Bundle = bundle
		return opts, nopCloser, nil
	}
	src, closer, err := Open(cfg)
	if err != nil {
		return opts, closer, err
	}
	opts.Source = src
	return opts, closer, nil
}
