// Package config handles loading and saving graphweave configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/graphweave/config.yaml
//   - Data:    ~/.local/share/graphweave/ (bundles)
//   - State:   ~/.local/state/graphweave/ (snapshots, profiles)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/graphweave/pkg/engine"
	"github.com/vanderheijden86/graphweave/pkg/fetch"
	"github.com/vanderheijden86/graphweave/pkg/model"
)

const appName = "graphweave"

// Source kinds.
const (
	KindBundled   = "bundled"   // embedded dataset
	KindFile      = "file"      // bundle JSON on disk
	KindSQLite    = "sqlite"    // record tables in a sqlite file
	KindPostgres  = "postgres"  // record tables in postgres
	KindHTTP      = "http"      // hosted record-table REST API
	KindPostgREST = "postgrest" // PostgREST / Supabase
)

// SourceConfig selects and configures the data backend.
type SourceConfig struct {
	Kind string `yaml:"kind,omitempty"`
	// Path is the bundle file for the file kind.
	Path string `yaml:"path,omitempty"`
	DSN  string `yaml:"dsn,omitempty"`
	URL  string `yaml:"url,omitempty"`
	// Schema is the PostgREST schema; empty means public.
	Schema string `yaml:"schema,omitempty"`
	// TokenEnv names the environment variable holding the API token. The
	// token itself never lives in the config file.
	TokenEnv    string             `yaml:"token_env,omitempty"`
	View        string             `yaml:"view,omitempty"`
	PageSize    int                `yaml:"page_size,omitempty"`
	Collections fetch.Collections  `yaml:"collections,omitempty"`
	Fields      model.FieldMapping `yaml:"fields,omitempty"`
}

// Token reads the token from the variable named by TokenEnv.
func (s SourceConfig) Token() string {
	if s.TokenEnv == "" {
		return ""
	}
	return os.Getenv(s.TokenEnv)
}

// Remote reports whether the kind is joined from two collections.
func (s SourceConfig) Remote() bool {
	switch s.Kind {
	case KindBundled, KindFile, "":
		return false
	}
	return true
}

// DragConfig holds drag behaviour.
type DragConfig struct {
	Enabled     *bool   `yaml:"enabled,omitempty"`
	AlphaTarget float64 `yaml:"alpha_target,omitempty"`
}

// UIConfig holds terminal preferences.
type UIConfig struct {
	Tooltip bool `yaml:"tooltip,omitempty"`
	TickMS  int  `yaml:"tick_ms,omitempty"` // Simulation tick interval
	// Unicode selects box-drawing glyphs; false falls back to ASCII.
	Unicode *bool `yaml:"unicode,omitempty"`
}

// Config is the top-level configuration for graphweave.
type Config struct {
	Source SourceConfig        `yaml:"source,omitempty"`
	Forces engine.ForceOptions `yaml:"forces,omitempty"`
	Zoom   engine.ZoomOptions  `yaml:"zoom,omitempty"`
	Drag   DragConfig          `yaml:"drag,omitempty"`
	UI     UIConfig            `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Source: SourceConfig{
			Kind:        KindBundled,
			Collections: fetch.DefaultCollections(),
			Fields:      model.DefaultMapping(),
		},
		UI: UIConfig{
			TickMS: 16,
		},
	}
}

// DragEnabled reports the drag setting; drag is on unless disabled.
func (c Config) DragEnabled() bool {
	return c.Drag.Enabled == nil || *c.Drag.Enabled
}

// UnicodeEnabled reports the glyph setting; unicode is on unless disabled.
func (c Config) UnicodeEnabled() bool {
	return c.UI.Unicode == nil || *c.UI.Unicode
}

// TickInterval returns the simulation tick interval.
func (c Config) TickInterval() time.Duration {
	if c.UI.TickMS <= 0 {
		return 16 * time.Millisecond
	}
	return time.Duration(c.UI.TickMS) * time.Millisecond
}

// EngineOptions maps the config onto engine options. The data source
// itself (Bundle or Source) is attached by the caller.
func (c Config) EngineOptions() engine.Options {
	kind := engine.Bundled
	if c.Source.Remote() {
		kind = engine.Remote
	}
	return engine.Options{
		EnableDrag:    c.DragEnabled(),
		EnableTooltip: c.UI.Tooltip,
		DataSource:    kind,
		Forces:        c.Forces,
		Zoom:          c.Zoom,
		Drag:          engine.DragOptions{AlphaTarget: c.Drag.AlphaTarget},
		Collections:   c.Source.Collections,
		Mapping:       c.Source.Fields,
	}
}

// ConfigDir returns the XDG config directory for graphweave.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for graphweave.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// StateDir returns the XDG state directory for graphweave.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fallback, appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	// Fields left empty in the file keep their defaults
	def := DefaultConfig()
	if cfg.Source.Kind == "" {
		cfg.Source.Kind = def.Source.Kind
	}
	if cfg.Source.Collections.Entities == "" {
		cfg.Source.Collections.Entities = def.Source.Collections.Entities
	}
	if cfg.Source.Collections.Relationships == "" {
		cfg.Source.Collections.Relationships = def.Source.Collections.Relationships
	}
	if cfg.Source.Fields.Label == "" {
		cfg.Source.Fields.Label = def.Source.Fields.Label
	}
	if cfg.Source.Fields.Group == "" {
		cfg.Source.Fields.Group = def.Source.Fields.Group
	}

	cfg.Source.Path = expandHome(cfg.Source.Path)
	if cfg.Source.Kind == KindSQLite {
		cfg.Source.DSN = expandHome(cfg.Source.DSN)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the source section for the fields its kind needs.
func (c Config) Validate() error {
	s := c.Source
	switch s.Kind {
	case KindBundled:
	case KindFile:
		if s.Path == "" {
			return fmt.Errorf("source kind %q needs a path", s.Kind)
		}
	case KindSQLite, KindPostgres:
		if s.DSN == "" {
			return fmt.Errorf("source kind %q needs a dsn", s.Kind)
		}
	case KindHTTP, KindPostgREST:
		if s.URL == "" {
			return fmt.Errorf("source kind %q needs a url", s.Kind)
		}
	default:
		return fmt.Errorf("unknown source kind %q", s.Kind)
	}
	if s.PageSize < 0 {
		return fmt.Errorf("page_size must not be negative")
	}
	return nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
