// Package serve exposes a settled layout over HTTP: a health check, the
// layout as JSON, and an SVG snapshot. Handlers share one engine behind a
// mutex, so the simulation is only ever touched by one request at a time.
package serve

import (
	"bytes"
	"context"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/graphweave/pkg/debug"
	"github.com/vanderheijden86/graphweave/pkg/engine"
	"github.com/vanderheijden86/graphweave/pkg/export"
	"github.com/vanderheijden86/graphweave/pkg/version"
)

// Options configures the server.
type Options struct {
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
	// MaxTicks bounds settling per request; zero runs until rest.
	MaxTicks int
	// Title heads SVG snapshots.
	Title string
	// EnableReload registers POST /api/reload, which runs a new load cycle.
	EnableReload bool
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Service   string            `json:"service"`
	Uptime    string            `json:"uptime,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

// ErrorResponse is the body of failed API requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server serves one engine.
type Server struct {
	mu      sync.Mutex
	engine  *engine.Engine
	opts    Options
	started time.Time
	handler http.Handler
}

// NewServer wraps e, which must already be loaded (or have failed loading).
func NewServer(e *engine.Engine, opts Options) *Server {
	s := &Server{engine: e, opts: opts, started: time.Now()}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/graph", s.handleGraph)
	mux.HandleFunc("/snapshot.svg", s.handleSnapshot)
	if opts.EnableReload {
		mux.HandleFunc("/api/reload", s.handleReload)
	}
	s.handler = cors(opts.AllowedOrigins, mux)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		debug.Log("serve: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	status, loadErr := "healthy", s.engine.Err()
	built := s.engine.Built()
	s.mu.Unlock()

	details := map[string]string{
		"go_version": runtime.Version(),
		"version":    version.Version,
		"built":      strconv.FormatBool(built),
	}
	if loadErr != nil {
		status = "degraded"
		details["error"] = loadErr.Error()
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Service:   "graphweave",
		Uptime:    time.Since(s.started).String(),
		Details:   details,
	})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	s.mu.Lock()
	err := s.ready()
	if err == nil {
		err = export.WriteSnapshot(&buf, export.FormatJSON, export.SnapshotOptions{
			Engine:   s.engine,
			MaxTicks: s.opts.MaxTicks,
		})
	}
	s.mu.Unlock()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	opts := export.SnapshotOptions{
		Engine:   s.engine,
		MaxTicks: s.opts.MaxTicks,
		Title:    s.opts.Title,
		Labels:   r.URL.Query().Get("labels") == "true",
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("width")); err == nil && v > 0 && v <= 8192 {
		opts.Width = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("height")); err == nil && v > 0 && v <= 8192 {
		opts.Height = v
	}

	var buf bytes.Buffer
	s.mu.Lock()
	err := s.ready()
	if err == nil {
		err = export.WriteSnapshot(&buf, export.FormatSVG, opts)
	}
	s.mu.Unlock()
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.Lock()
	err := s.engine.Load(r.Context())
	if err == nil && !s.engine.Built() {
		err = s.engine.Build()
	}
	stats := s.engine.Stats()
	s.mu.Unlock()
	if err != nil {
		debug.Log("serve: reload failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ready reports why the engine cannot serve a layout. Callers hold mu.
func (s *Server) ready() error {
	if err := s.engine.Err(); err != nil {
		return err
	}
	if !s.engine.Built() {
		return engine.ErrNotReady
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}
