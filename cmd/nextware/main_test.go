package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tjfontaine/nextware/internal/config"
	"github.com/tjfontaine/nextware/internal/storage"
	"github.com/tjfontaine/nextware/internal/storage/memory"
	"github.com/tjfontaine/nextware/internal/storage/sqlite"
)

func TestDemoApp(t *testing.T) {
	app := newDemoApp(slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name   string
		path   string
		status int
		body   string
	}{
		{"root greeting", "/", http.StatusOK, "nextware\n"},
		{"root error handler", "/boom", http.StatusInternalServerError, `{"error":"boom"}`},
		{"mounted api", "/api/hello", http.StatusOK, `"message":"hello from api"`},
		{"api recovers panic", "/api/panic", http.StatusBadGateway, `{"error":"api handler panicked"}`},
		{"fall through", "/nope", http.StatusNotFound, "Cannot GET /nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if !strings.Contains(rec.Body.String(), tt.body) {
				t.Errorf("body = %q, want to contain %q", rec.Body.String(), tt.body)
			}
		})
	}
}

func TestDemoApp_RealIP(t *testing.T) {
	app := newDemoApp(slog.New(slog.NewTextHandler(io.Discard, nil)))

	req := httptest.NewRequest(http.MethodGet, "/api/hello", nil)
	req.Header.Set("X-Real-IP", "203.0.113.7")
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["remote"] != "203.0.113.7" {
		t.Errorf("remote = %q, want 203.0.113.7", body["remote"])
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("expected JSON warn line, got: %s", out)
	}

	buf.Reset()
	newLogger(config.LogConfig{Level: "bogus", Format: "text"}, &buf).Info("fallback")
	if !strings.Contains(buf.String(), "msg=fallback") {
		t.Errorf("expected text info line, got: %s", buf.String())
	}
}

func TestOpenRecorder(t *testing.T) {
	rec, err := openRecorder(config.StorageConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := rec.(*memory.Store); !ok {
		t.Errorf("memory driver returned %T", rec)
	}

	small, err := openRecorder(config.StorageConfig{Driver: "memory", MaxRecords: 2})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if err := small.Save(context.Background(), &storage.Record{ID: id}); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}
	if n := small.(*memory.Store).Len(); n != 2 {
		t.Errorf("memory store holds %d records, want max_records=2", n)
	}

	path := filepath.Join(t.TempDir(), "nested", "dispatches.db")
	rec, err = openRecorder(config.StorageConfig{Driver: "sqlite", Path: path})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer rec.Close()
	if _, ok := rec.(*sqlite.Store); !ok {
		t.Errorf("sqlite driver returned %T", rec)
	}

	if _, err := openRecorder(config.StorageConfig{Driver: "redis"}); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := out.String(); got != "nextware dev\n" {
		t.Errorf("version output = %q", got)
	}
}
