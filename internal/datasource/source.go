// Package datasource turns configuration into graph data sources. It opens
// the configured backend and discovers local candidates (bundle files and
// sqlite databases) for the interactive source picker.
package datasource

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/graphweave/pkg/config"
	"github.com/vanderheijden86/graphweave/pkg/fetch"
)

// Priority values for local kinds (higher = preferred on equal mod times)
const (
	PrioritySQLite = 100
	PriorityBundle = 50
)

// DataSource is a local file that can back a graph.
type DataSource struct {
	// Kind is config.KindFile or config.KindSQLite
	Kind string `json:"kind"`
	// Path is the absolute path to the file
	Path     string    `json:"path"`
	Priority int       `json:"priority"`
	ModTime  time.Time `json:"mod_time"`
	Size     int64     `json:"size"`
	// Valid indicates whether the source passed validation
	Valid bool `json:"valid"`
	// ValidationError describes why validation failed (if Valid is false)
	ValidationError string `json:"validation_error,omitempty"`
	// NodeCount is the number of nodes or entity rows (set during validation)
	NodeCount int `json:"node_count"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = "unchecked"
		if s.ValidationError != "" {
			status = fmt.Sprintf("invalid: %s", s.ValidationError)
		}
	}
	return fmt.Sprintf("%s (%s, mod=%s, nodes=%d, %s)",
		s.Path, s.Kind, s.ModTime.Format(time.RFC3339), s.NodeCount, status)
}

// Config returns base with its source switched to this file.
func (s DataSource) Config(base config.Config) config.Config {
	cfg := base
	cfg.Source.Kind = s.Kind
	switch s.Kind {
	case config.KindSQLite:
		cfg.Source.DSN = s.Path
	default:
		cfg.Source.Path = s.Path
	}
	return cfg
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is the directory to scan (cwd if empty)
	Dir string
	// Collections names the entity table checked in sqlite candidates
	Collections fetch.Collections
	// ValidateAfterDiscovery runs validation on each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid includes sources that failed validation in results
	IncludeInvalid bool
	// Verbose enables detailed logging during discovery
	Verbose bool
	// Logger receives log messages when Verbose is true
	Logger func(msg string)
}

var sqliteExts = map[string]bool{".db": true, ".sqlite": true, ".sqlite3": true}

// DiscoverSources finds bundle files and sqlite databases in a directory,
// freshest first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}
	if opts.Collections.Entities == "" {
		opts.Collections = fetch.DefaultCollections()
	}

	dir := opts.Dir
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", dir))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() || skipName(e.Name()) {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		var ds DataSource
		switch {
		case ext == ".json":
			ds = DataSource{Kind: config.KindFile, Priority: PriorityBundle}
		case sqliteExts[ext]:
			ds = DataSource{Kind: config.KindSQLite, Priority: PrioritySQLite}
		default:
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		ds.Path = filepath.Join(dir, e.Name())
		ds.ModTime = info.ModTime()
		ds.Size = info.Size()
		sources = append(sources, ds)

		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", ds.Kind, ds.Path, ds.ModTime.Format(time.RFC3339)))
		}
	}

	// Validate sources if requested
	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i], opts.Collections); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
	}

	// Filter out invalid sources if not including them
	if opts.ValidateAfterDiscovery && !opts.IncludeInvalid {
		var validSources []DataSource
		for _, s := range sources {
			if s.Valid {
				validSources = append(validSources, s)
			}
		}
		sources = validSources
	}

	// Sort by mod time, then priority
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})

	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovered %d sources", len(sources)))
	}

	return sources, nil
}

// skipName filters hidden files, editor temp files and backups.
func skipName(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, "~") ||
		strings.Contains(name, ".backup") ||
		strings.Contains(name, ".orig") ||
		strings.HasSuffix(name, ".tmp")
}
