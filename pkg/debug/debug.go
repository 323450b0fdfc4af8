// Package debug provides conditional debug logging for gw.
//
// Debug logging is enabled by setting the GW_DEBUG environment variable:
//
//	GW_DEBUG=1 gw --source sqlite
//
// When enabled, debug messages are written to stderr with timestamps. The
// TUI owns the terminal, so GW_DEBUG_FILE can redirect the output to a file.
// When disabled (default), all debug functions are no-ops.
//
// Usage:
//
//	debug.Log("fetched page %d of %s", n, collection)
//	defer debug.LogEnterExit("settle")()
package debug

import (
	"io"
	"log"
	"os"
	"time"
)

const prefix = "[GW_DEBUG] "

var (
	// enabled is true when GW_DEBUG env var is set
	enabled bool
	logger  *log.Logger
)

func init() {
	if os.Getenv("GW_DEBUG") == "" {
		return
	}
	enabled = true
	var out io.Writer = os.Stderr
	if path := os.Getenv("GW_DEBUG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		}
	}
	logger = log.New(out, prefix, log.Ltime|log.Lmicroseconds)
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	return enabled
}

// SetEnabled allows programmatic control of debug logging.
func SetEnabled(e bool) {
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects debug output. Tests use it to capture log lines.
func SetOutput(w io.Writer) {
	logger = log.New(w, prefix, log.Ltime|log.Lmicroseconds)
}

// Log writes a debug message if debug logging is enabled.
func Log(format string, args ...any) {
	if !enabled {
		return
	}
	logger.Printf(format, args...)
}

// LogTiming writes a timing message if debug logging is enabled.
func LogTiming(name string, d time.Duration) {
	if !enabled {
		return
	}
	logger.Printf("%s took %v", name, d)
}

// LogEnterExit logs function entry and exit with timing:
//
//	defer debug.LogEnterExit("engine.Load")()
func LogEnterExit(name string) func() {
	if !enabled {
		return func() {}
	}
	logger.Printf("-> %s", name)
	start := time.Now()
	return func() {
		logger.Printf("<- %s (%v)", name, time.Since(start))
	}
}

// Section logs a section header for visual organization in debug output.
func Section(name string) {
	if !enabled {
		return
	}
	logger.Printf("=== %s ===", name)
}
