package pipeline

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tjfontaine/nextware/internal/pipeline"

// App is an ordered queue of handlers, error handlers and mounted apps.
//
// Registration is expected to finish before the App serves traffic. The queue
// is then read concurrently by every in-flight dispatch without locking.
type App struct {
	name      string
	queue     []Entry
	logger    *slog.Logger
	tracer    trace.Tracer
	final     FinalHandler
	observers []Observer
}

// Observer is told about every request served by ServeHTTP once it settles.
// code is the response status, or 0 when nothing was written.
type Observer func(r *http.Request, o Outcome, code int, elapsed time.Duration)

// Option configures an App.
type Option func(*App)

// WithName labels the App in logs and spans.
func WithName(name string) Option {
	return func(a *App) { a.name = name }
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTracer sets the tracer used for per-entry spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(a *App) {
		if tracer != nil {
			a.tracer = tracer
		}
	}
}

// WithFinalHandler replaces the responder used by ServeHTTP when dispatch
// ends without a written response.
func WithFinalHandler(f FinalHandler) Option {
	return func(a *App) {
		if f != nil {
			a.final = f
		}
	}
}

// WithObserver registers a callback for settled requests.
func WithObserver(o Observer) Option {
	return func(a *App) { a.Observe(o) }
}

// New creates an empty App.
func New(opts ...Option) *App {
	a := &App{
		name:   "app",
		logger: slog.Default(),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.final == nil {
		a.final = DefaultFinalHandler(a.logger)
	}
	return a
}

// Observe adds o to the callbacks ServeHTTP runs once a request settles.
// Observers run in registration order. It must not be called while the App
// is serving.
func (a *App) Observe(o Observer) *App {
	if o != nil {
		a.observers = append(a.observers, o)
	}
	return a
}

// Name returns the label given by WithName.
func (a *App) Name() string { return a.name }

// Use appends a normal handler.
func (a *App) Use(h HandlerFunc) *App { return a.Append(h) }

// UseError appends an error handler.
func (a *App) UseError(h ErrorHandlerFunc) *App { return a.Append(h) }

// Mount appends child as a sub-application. The child is shared, not owned:
// it can be mounted elsewhere and keeps working on its own.
func (a *App) Mount(child *App) *App { return a.Append(child) }

// Append classifies v and adds it to the end of the queue. It panics when v
// cannot be classified or when mounting v would create a cycle.
func (a *App) Append(v any) *App {
	e, err := newEntry(v)
	if err != nil {
		panic(err)
	}
	if e.kind == KindApp && (e.app == a || e.app.reaches(a)) {
		panic(ErrMountCycle)
	}
	a.queue = append(a.queue, e)
	return a
}

// Len returns the number of registered entries.
func (a *App) Len() int { return len(a.queue) }

// EntryAt returns the entry at index i.
func (a *App) EntryAt(i int) (Entry, bool) {
	if i < 0 || i >= len(a.queue) {
		return Entry{}, false
	}
	return a.queue[i], true
}

// reaches reports whether target is mounted anywhere below a.
func (a *App) reaches(target *App) bool {
	for _, e := range a.queue {
		if e.kind != KindApp {
			continue
		}
		if e.app == target || e.app.reaches(target) {
			return true
		}
	}
	return false
}
