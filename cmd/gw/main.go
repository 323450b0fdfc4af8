package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/graphweave/internal/datasource"
	"github.com/vanderheijden86/graphweave/pkg/config"
	"github.com/vanderheijden86/graphweave/pkg/debug"
	"github.com/vanderheijden86/graphweave/pkg/engine"
	"github.com/vanderheijden86/graphweave/pkg/export"
	"github.com/vanderheijden86/graphweave/pkg/metrics"
	"github.com/vanderheijden86/graphweave/pkg/serve"
	"github.com/vanderheijden86/graphweave/pkg/ui"
	"github.com/vanderheijden86/graphweave/pkg/version"
	"github.com/vanderheijden86/graphweave/pkg/watcher"
)

// cliFlags holds the parsed command line.
type cliFlags struct {
	data       string
	source     string
	configPath string
	exportPath string
	format     string
	serveAddr  string
	noDrag     bool
	tooltip    bool
	pick       bool
	watch      bool
	metrics    bool
	width      int
	height     int
	cpuProfile string
	version    bool
	help       bool
}

func parseFlags(fs *flag.FlagSet, args []string) (cliFlags, error) {
	var f cliFlags
	fs.StringVar(&f.data, "data", "", "Bundle JSON file to visualize (sets source kind to file)")
	fs.StringVar(&f.source, "source", "", "Source kind: bundled, file, sqlite, postgres, http, postgrest")
	fs.StringVar(&f.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/graphweave/config.yaml)")
	fs.StringVar(&f.exportPath, "export", "", "Settle the layout and write a snapshot to this path")
	fs.StringVar(&f.format, "format", "", "Snapshot format: svg, png, json, dot (default from extension)")
	fs.StringVar(&f.serveAddr, "serve", "", "Serve the settled layout over HTTP on this address (e.g. :8080)")
	fs.BoolVar(&f.noDrag, "no-drag", false, "Disable node dragging")
	fs.BoolVar(&f.tooltip, "tooltip", false, "Show hover tooltips")
	fs.BoolVar(&f.pick, "pick", false, "Choose the data source interactively")
	fs.BoolVar(&f.watch, "watch", false, "Reload when the bundle file changes (file source only)")
	fs.BoolVar(&f.metrics, "metrics", false, "Print timing metrics on exit")
	fs.IntVar(&f.width, "width", 0, "Headless surface and image width")
	fs.IntVar(&f.height, "height", 0, "Headless surface and image height")
	fs.StringVar(&f.cpuProfile, "cpu-profile", "", "Write CPU profile to file")
	fs.BoolVar(&f.version, "version", false, "Show version")
	fs.BoolVar(&f.help, "help", false, "Show help")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.width < 0 || f.height < 0 {
		return f, fmt.Errorf("--width and --height must not be negative")
	}
	if f.exportPath != "" && f.serveAddr != "" {
		return f, fmt.Errorf("--export and --serve are mutually exclusive")
	}
	return f, nil
}

// applyFlags overrides cfg with the command line.
func applyFlags(cfg config.Config, f cliFlags) config.Config {
	if f.source != "" {
		cfg.Source.Kind = f.source
	}
	if f.data != "" {
		cfg.Source.Kind = config.KindFile
		cfg.Source.Path = f.data
	}
	if f.noDrag {
		off := false
		cfg.Drag.Enabled = &off
	}
	if f.tooltip {
		cfg.UI.Tooltip = true
	}
	return cfg
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("gw", flag.ContinueOnError)
	f, err := parseFlags(fs, args)
	if err != nil {
		return err
	}

	if f.help {
		fmt.Println("Usage: gw [options]")
		fmt.Println("\nForce-directed graph viewer for the terminal.")
		fs.PrintDefaults()
		return nil
	}
	if f.version {
		fmt.Printf("gw %s\n", version.Version)
		return nil
	}

	// CPU profiling support
	if f.cpuProfile != "" {
		pf, err := os.Create(f.cpuProfile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer pf.Close()
		if err := pprof.StartCPUProfile(pf); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	if f.metrics {
		metrics.SetEnabled(true)
		defer func() { _ = metrics.WriteSummary(os.Stderr) }()
	}

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		// Non-fatal: continue without config
		fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	cfg = applyFlags(cfg, f)

	if f.pick {
		cfg, err = pickSource(cfg)
		if err != nil {
			return err
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	opts, closer, err := datasource.Options(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	title := sourceTitle(cfg)
	switch {
	case f.exportPath != "":
		return runExport(ctx, opts, f, title)
	case f.serveAddr != "":
		return runServe(ctx, opts, f, title)
	case !term.IsTerminal(int(os.Stdout.Fd())):
		return runSummary(ctx, os.Stdout, opts, f, title)
	}
	stop()
	return runTUI(opts, cfg, f, title)
}

func sourceTitle(cfg config.Config) string {
	switch cfg.Source.Kind {
	case config.KindFile:
		return "graphweave · " + cfg.Source.Path
	case config.KindBundled:
		return "graphweave"
	}
	return "graphweave · " + cfg.Source.Kind
}

// headless sizes the surface from --width/--height.
func headless(opts engine.Options, f cliFlags) engine.Options {
	if f.width > 0 {
		opts.Width = float64(f.width)
	}
	if f.height > 0 {
		opts.Height = float64(f.height)
	}
	return opts
}

func runExport(ctx context.Context, opts engine.Options, f cliFlags, title string) error {
	e := engine.New(headless(opts, f))
	if err := e.Load(ctx); err != nil {
		return err
	}
	err := export.SaveSnapshot(export.SnapshotOptions{
		Path:   f.exportPath,
		Format: f.format,
		Title:  title,
		Engine: e,
		Width:  f.width,
		Height: f.height,
		Labels: true,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", f.exportPath)
	return nil
}

func runServe(ctx context.Context, opts engine.Options, f cliFlags, title string) error {
	e := engine.New(headless(opts, f))
	if err := e.Load(ctx); err != nil {
		// The server reports the failure with 503 until a reload succeeds.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	s := serve.NewServer(e, serve.Options{Title: title, EnableReload: true})
	fmt.Printf("Serving %s on %s\n", title, f.serveAddr)
	return s.ListenAndServe(ctx, f.serveAddr)
}

// runSummary settles the layout and prints its statistics; it is the output
// when stdout is not a terminal.
func runSummary(ctx context.Context, w io.Writer, opts engine.Options, f cliFlags, title string) error {
	e := engine.New(headless(opts, f))
	if err := e.Load(ctx); err != nil {
		return err
	}
	ticks := e.Settle(0)
	fmt.Fprintln(w, title)
	for _, line := range export.Summary(e.Stats(), ticks) {
		fmt.Fprintln(w, line)
	}
	return nil
}

func runTUI(opts engine.Options, cfg config.Config, f cliFlags, title string) error {
	opts.WaitForSurface = true
	e := engine.New(opts)

	var w *watcher.Watcher
	if f.watch {
		if cfg.Source.Kind != config.KindFile {
			return fmt.Errorf("--watch needs a file source, have %q", cfg.Source.Kind)
		}
		var err error
		w, err = watcher.New(cfg.Source.Path, watcher.WithOnError(func(err error) {
			debug.Log("watch: %v", err)
		}))
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()
	}

	m := ui.NewModel(e, ui.Options{
		Title:        title,
		TickInterval: cfg.TickInterval(),
		Unicode:      cfg.UnicodeEnabled(),
		Watcher:      w,
	})
	final, err := runTUIProgram(m)
	if err != nil {
		return fmt.Errorf("running graph view: %w", err)
	}
	if fm, ok := final.(ui.Model); ok && fm.Err() != nil {
		return fm.Err()
	}
	return nil
}

func runTUIProgram(m ui.Model) (tea.Model, error) {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set GW_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("GW_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	final, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return final, nil
	}
	return final, err
}
