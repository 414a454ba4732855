package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tjfontaine/nextware/internal/config"
	"github.com/tjfontaine/nextware/internal/metrics"
	"github.com/tjfontaine/nextware/internal/pipeline"
	"github.com/tjfontaine/nextware/internal/storage"
)

const (
	shutdownTimeout = 10 * time.Second

	defaultListLimit = 50
	maxListLimit     = 500
)

// Server is the HTTP front of an App: the router, its middleware chain and
// the operational routes.
type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger

	app      *pipeline.App
	metrics  *metrics.Metrics
	recorder storage.Recorder

	readTimeout time.Duration

	mu         sync.Mutex
	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records dispatch outcomes into m and serves it on the configured
// metrics path when metrics are enabled.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithRecorder saves a record per request and exposes the /dispatches routes.
func WithRecorder(rec storage.Recorder) Option {
	return func(s *Server) { s.recorder = rec }
}

// New builds the router around app. Observers for the configured metrics and
// recorder are attached to app, so New must run before app starts serving.
func New(cfg *config.Config, logger *slog.Logger, app *pipeline.App, opts ...Option) *Server {
	s := &Server{
		Port:        cfg.Server.Port,
		logger:      logger,
		app:         app,
		readTimeout: cfg.Server.ReadTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(cfg.Server.RequestTimeout))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, cfg.Telemetry.ServiceName)
	})

	r.Get("/healthz", s.handleHealth)

	var appHandler http.Handler = app
	if s.metrics != nil {
		app.Observe(s.metrics.Observer(app.Name()))
		appHandler = s.metrics.InFlight(app.Name())(appHandler)
		if cfg.Metrics.Enabled {
			r.Method(http.MethodGet, cfg.Metrics.Path, s.metrics.Handler())
		}
	}
	if s.recorder != nil {
		app.Observe(RecordObserver(s.recorder, app.Name(), logger))
		r.Get("/dispatches", s.handleListDispatches)
		r.Get("/dispatches/{id}", s.handleGetDispatch)
	}

	r.Handle("/*", appHandler)

	s.Router = r
	return s
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Router,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: s.readTimeout,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", slog.Int("port", s.Port), slog.String("app", s.app.Name()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down server")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type dispatchJSON struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id,omitempty"`
	App        string    `json:"app"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Outcome    string    `json:"outcome"`
	StatusCode int       `json:"status_code"`
	Error      string    `json:"error,omitempty"`
	DurationMs float64   `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

func toDispatchJSON(rec *storage.Record) dispatchJSON {
	return dispatchJSON{
		ID:         rec.ID,
		RequestID:  rec.RequestID,
		App:        rec.App,
		Method:     rec.Method,
		Path:       rec.Path,
		Outcome:    rec.Outcome,
		StatusCode: rec.StatusCode,
		Error:      rec.Error,
		DurationMs: float64(rec.Duration) / float64(time.Millisecond),
		CreatedAt:  rec.CreatedAt,
	}
}

func (s *Server) handleListDispatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := storage.ListOptions{
		App:     q.Get("app"),
		Outcome: q.Get("outcome"),
		Limit:   defaultListLimit,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("limit must be between 1 and %d", maxListLimit)})
			return
		}
		opts.Limit = n
	}

	recs, err := s.recorder.List(r.Context(), opts)
	if err != nil {
		AddError(r.Context(), err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list dispatches"})
		return
	}

	out := make([]dispatchJSON, len(recs))
	for i, rec := range recs {
		out[i] = toDispatchJSON(rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (s *Server) handleGetDispatch(w http.ResponseWriter, r *http.Request) {
	rec, err := s.recorder.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "dispatch not found"})
		return
	}
	if err != nil {
		AddError(r.Context(), err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get dispatch"})
		return
	}
	writeJSON(w, http.StatusOK, toDispatchJSON(rec))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
