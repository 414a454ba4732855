// Package storage records settled dispatches.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("storage: record not found")

// Record is one settled request as seen at the root App.
type Record struct {
	ID        string
	RequestID string
	App       string
	Method    string
	Path      string
	// Outcome is the dispatch status name: terminated, exhausted, failed or
	// abandoned.
	Outcome    string
	StatusCode int
	Error      string
	Duration   time.Duration
	CreatedAt  time.Time
}

// ListOptions filters and pages List results.
type ListOptions struct {
	App     string
	Outcome string
	Limit   int
}

// Recorder persists dispatch records.
type Recorder interface {
	Save(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
	// List returns records newest first.
	List(ctx context.Context, opts ListOptions) ([]*Record, error)
	Close() error
}
