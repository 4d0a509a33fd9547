// Package server exposes a solver session over HTTP: a JSON API, a
// server-sent event stream and an HTML dashboard.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/twil3akine/gurobilab/internal/history"
	"github.com/twil3akine/gurobilab/internal/logging"
	"github.com/twil3akine/gurobilab/internal/scheduler"
	"github.com/twil3akine/gurobilab/internal/session"
	"github.com/twil3akine/gurobilab/internal/settings"
)

// Session is the solver session driven by the API.
type Session interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Event, func())
	Start(ctx context.Context, script, args string) error
	Cancel() error
	AskAI(ctx context.Context) error
	TogglePreview(ctx context.Context) error
	SetFocus(focus string)
	Restore(rec history.Record) error
}

// History gives access to past runs.
type History interface {
	Load() []history.Record
	Get(i int) (history.Record, bool)
	Clear() error
}

// Settings reads and edits runtime settings.
type Settings interface {
	Current() settings.Settings
	Set(key, value string) error
	Remove(key string) error
}

// Schedules reports the state of scheduled runs.
type Schedules interface {
	List() []scheduler.Stats
}

// Server represents the HTTP server for the gurobilab dashboard
type Server struct {
	addr      string
	session   Session
	history   History
	settings  Settings
	schedules Schedules
	logger    *slog.Logger

	srv       *http.Server
	router    *http.ServeMux
	startTime time.Time

	// runCtx outlives requests; runs and analyses started over HTTP use it.
	runCtx context.Context

	mu      sync.RWMutex
	started bool
}

// New creates a new Server instance. schedules may be nil.
func New(addr string, sess Session, hist History, cfg Settings, schedules Schedules, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:      addr,
		session:   sess,
		history:   hist,
		settings:  cfg,
		schedules: schedules,
		logger:    logger,
		startTime: time.Now(),
		router:    http.NewServeMux(),
		runCtx:    context.Background(),
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("GET /api/health", s.handleHealth)

	s.router.HandleFunc("GET /api/session", s.handleGetSession)
	s.router.HandleFunc("POST /api/session/start", s.handleStart)
	s.router.HandleFunc("POST /api/session/cancel", s.handleCancel)
	s.router.HandleFunc("POST /api/session/analyze", s.handleAnalyze)
	s.router.HandleFunc("POST /api/session/preview", s.handlePreview)
	s.router.HandleFunc("PUT /api/session/focus", s.handleFocus)
	s.router.HandleFunc("GET /api/session/events", s.handleEvents)

	s.router.HandleFunc("GET /api/history", s.handleListHistory)
	s.router.HandleFunc("DELETE /api/history", s.handleClearHistory)
	s.router.HandleFunc("GET /api/history/{index}", s.handleGetHistory)
	s.router.HandleFunc("POST /api/history/{index}/restore", s.handleRestore)

	s.router.HandleFunc("GET /api/settings", s.handleGetSettings)
	s.router.HandleFunc("PUT /api/settings/{key}", s.handleSetSetting)
	s.router.HandleFunc("DELETE /api/settings/{key}", s.handleRemoveSetting)

	s.router.HandleFunc("GET /api/schedules", s.handleListSchedules)

	s.router.HandleFunc("GET /{$}", s.handleDashboard)
	s.router.HandleFunc("POST /ui/{action}", s.handleDashboardAction)
}

// Handler returns the routed handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.loggingMiddleware(s.router)
}

// Start serves until ctx is done. Runs started through the API live as
// long as ctx.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	s.started = true
	s.runCtx = ctx
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server", "reason", ctx.Err())
		return s.Stop(context.Background())
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.srv == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	s.started = false
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) baseContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runCtx
}

// loggingMiddleware logs each request and puts a request-scoped logger in
// its context.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqLogger := s.logger.With("method", r.Method, "path", r.URL.Path)
		r = r.WithContext(logging.WithContext(r.Context(), reqLogger))

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		reqLogger.Info("http request",
			"status", wrapped.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush lets the event stream push through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Uptime returns the server uptime as a string
func (s *Server) Uptime() string {
	d := time.Since(s.startTime)
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
