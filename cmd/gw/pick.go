package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/graphweave/internal/datasource"
	"github.com/vanderheijden86/graphweave/pkg/config"
)

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// kindOptions lists the source kinds for the picker.
func kindOptions() []huh.Option[string] {
	var opts []huh.Option[string]
	for _, k := range datasource.Kinds() {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s: %s", k.Kind, k.Description), k.Kind))
	}
	return opts
}

// localCandidates returns the discovered files of kind in the working
// directory, freshest first.
func localCandidates(cfg config.Config, kind string) []datasource.DataSource {
	found, err := datasource.DiscoverSources(datasource.DiscoveryOptions{
		Collections:            cfg.Source.Collections,
		ValidateAfterDiscovery: true,
	})
	if err != nil {
		return nil
	}
	var out []datasource.DataSource
	for _, ds := range found {
		if ds.Kind == kind {
			out = append(out, ds)
		}
	}
	return out
}

// pickSource asks for the source kind, then for the file, DSN or URL the
// kind needs. Local files found in the working directory are offered first.
func pickSource(cfg config.Config) (config.Config, error) {
	kind := cfg.Source.Kind
	if err := newForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Where should the graph come from?").
			Options(kindOptions()...).
			Value(&kind),
	)).Run(); err != nil {
		return cfg, err
	}
	cfg.Source.Kind = kind

	switch kind {
	case config.KindBundled:
		return cfg, nil
	case config.KindFile, config.KindSQLite:
		if found := localCandidates(cfg, kind); len(found) > 0 {
			return pickLocal(cfg, found)
		}
	}

	title, field := "Connection string", &cfg.Source.DSN
	switch kind {
	case config.KindFile:
		title, field = "Bundle file", &cfg.Source.Path
	case config.KindSQLite:
		title = "SQLite database"
	case config.KindHTTP, config.KindPostgREST:
		title, field = "Base URL", &cfg.Source.URL
	}
	value := *field
	if err := newForm(huh.NewGroup(
		huh.NewInput().
			Title(title).
			Value(&value).
			Validate(func(s string) error {
				if s == "" {
					return fmt.Errorf("required")
				}
				return nil
			}),
	)).Run(); err != nil {
		return cfg, err
	}
	*field = value
	return cfg, nil
}

func pickLocal(cfg config.Config, found []datasource.DataSource) (config.Config, error) {
	opts := make([]huh.Option[int], len(found))
	for i, ds := range found {
		opts[i] = huh.NewOption(ds.String(), i)
	}
	choice := 0
	if err := newForm(huh.NewGroup(
		huh.NewSelect[int]().
			Title("Found in this directory").
			Options(opts...).
			Value(&choice),
	)).Run(); err != nil {
		return cfg, err
	}
	return found[choice].Config(cfg), nil
}
