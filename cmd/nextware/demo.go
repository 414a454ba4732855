package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/tjfontaine/nextware/internal/config"
	"github.com/tjfontaine/nextware/internal/pipeline"
	"github.com/tjfontaine/nextware/internal/server"
	"github.com/tjfontaine/nextware/internal/storage"
	"github.com/tjfontaine/nextware/internal/storage/memory"
	"github.com/tjfontaine/nextware/internal/storage/sqlite"
)

// newDemoApp wires a root application with a mounted "api" sub-application.
//
//	GET /           greeting from the root
//	GET /boom       root handler that fails
//	GET /api/hello  JSON greeting from the sub-application
//	GET /api/panic  sub-application handler that panics
//
// Anything else falls through to a 404.
func newDemoApp(logger *slog.Logger) *pipeline.App {
	api := pipeline.New(pipeline.WithName("api"), pipeline.WithLogger(logger)).
		Use(func(w pipeline.Response, r *http.Request, next pipeline.Next) {
			if r.URL.Path != "/api/hello" {
				next(nil)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]string{
				"message":    "hello from api",
				"remote":     r.RemoteAddr,
				"request_id": server.GetRequestID(r.Context()),
			})
			w.End("")
		}).
		Use(func(w pipeline.Response, r *http.Request, next pipeline.Next) {
			if r.URL.Path == "/api/panic" {
				panic(errors.New("api handler panicked"))
			}
			next(nil)
		}).
		UseError(jsonError(http.StatusBadGateway))

	return pipeline.New(pipeline.WithName("root"), pipeline.WithLogger(logger)).
		Use(pipeline.WrapMiddleware(middleware.RealIP)).
		Mount(api).
		Use(func(w pipeline.Response, r *http.Request, next pipeline.Next) {
			switch r.URL.Path {
			case "/":
				w.End("nextware\n")
			case "/boom":
				next(errors.New("boom"))
			default:
				next(nil)
			}
		}).
		UseError(jsonError(http.StatusInternalServerError))
}

// jsonError answers any error with a JSON body and the given status.
func jsonError(status int) pipeline.ErrorHandlerFunc {
	return func(err any, w pipeline.Response, r *http.Request, next pipeline.Next) {
		msg := fmt.Sprint(err)
		server.AddLogField(r.Context(), "error", msg)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
		w.End("")
	}
}

// openRecorder opens the dispatch recorder named by the storage config.
func openRecorder(cfg config.StorageConfig) (storage.Recorder, error) {
	switch cfg.Driver {
	case "", "memory":
		return memory.New(cfg.MaxRecords), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create storage directory: %w", err)
			}
		}
		store, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite recorder: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
