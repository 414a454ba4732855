package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tjfontaine/nextware/internal/storage"
)

// Store is a SQLite implementation of storage.Recorder.
type Store struct {
	db *sqlx.DB
}

var _ storage.Recorder = (*Store)(nil)

// row mirrors the dispatches table.
type row struct {
	ID         string    `db:"id"`
	RequestID  string    `db:"request_id"`
	App        string    `db:"app"`
	Method     string    `db:"method"`
	Path       string    `db:"path"`
	Outcome    string    `db:"outcome"`
	StatusCode int       `db:"status_code"`
	Error      string    `db:"error"`
	DurationNs int64     `db:"duration_ns"`
	CreatedAt  time.Time `db:"created_at"`
}

// New creates a new SQLite store
func New(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS dispatches (
			id TEXT PRIMARY KEY,
			request_id TEXT NOT NULL DEFAULT '',
			app TEXT NOT NULL,
			method TEXT NOT NULL,
			path TEXT NOT NULL,
			outcome TEXT NOT NULL,
			status_code INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			duration_ns INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatches_app ON dispatches(app)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatches_outcome ON dispatches(outcome)`,
		`CREATE INDEX IF NOT EXISTS idx_dispatches_created ON dispatches(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Save(ctx context.Context, rec *storage.Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	r := row{
		ID:         rec.ID,
		RequestID:  rec.RequestID,
		App:        rec.App,
		Method:     rec.Method,
		Path:       rec.Path,
		Outcome:    rec.Outcome,
		StatusCode: rec.StatusCode,
		Error:      rec.Error,
		DurationNs: rec.Duration.Nanoseconds(),
		CreatedAt:  rec.CreatedAt.UTC(),
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO dispatches (id, request_id, app, method, path, outcome, status_code, error, duration_ns, created_at)
		VALUES (:id, :request_id, :app, :method, :path, :outcome, :status_code, :error, :duration_ns, :created_at)
	`, r)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*storage.Record, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT * FROM dispatches WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return r.record(), nil
}

func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*storage.Record, error) {
	var (
		where []string
		args  []any
	)
	if opts.App != "" {
		where = append(where, "app = ?")
		args = append(args, opts.App)
	}
	if opts.Outcome != "" {
		where = append(where, "outcome = ?")
		args = append(args, opts.Outcome)
	}

	query := `SELECT * FROM dispatches`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	// rowid breaks ties between records saved within the same timestamp.
	query += " ORDER BY created_at DESC, rowid DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	result := make([]*storage.Record, len(rows))
	for i := range rows {
		result[i] = rows[i].record()
	}
	return result, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (r *row) record() *storage.Record {
	return &storage.Record{
		ID:         r.ID,
		RequestID:  r.RequestID,
		App:        r.App,
		Method:     r.Method,
		Path:       r.Path,
		Outcome:    r.Outcome,
		StatusCode: r.StatusCode,
		Error:      r.Error,
		Duration:   time.Duration(r.DurationNs),
		CreatedAt:  r.CreatedAt,
	}
}
