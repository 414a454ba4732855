package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Status describes how a dispatch ended.
type Status int

const (
	// StatusTerminated means a handler wrote the response.
	StatusTerminated Status = iota
	// StatusExhausted means the queue ran out with no error pending.
	StatusExhausted
	// StatusFailed means the queue ran out with an error pending.
	StatusFailed
	// StatusAbandoned is only reported to observers: the request context
	// ended while the dispatch was suspended.
	StatusAbandoned
)

func (s Status) String() string {
	switch s {
	case StatusTerminated:
		return "terminated"
	case StatusExhausted:
		return "exhausted"
	case StatusFailed:
		return "failed"
	case StatusAbandoned:
		return "abandoned"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the result of walking one App's queue for one request.
type Outcome struct {
	Status Status
	// Err is the pending error value for StatusFailed.
	Err any
}

// Dispatch walks the queue for one request. done is called exactly once when
// the walk ends, on whichever goroutine ends it. If a handler never calls
// next and never writes, done is never called.
func (a *App) Dispatch(w Response, r *http.Request, done func(Outcome)) {
	d := &dispatch{app: a, ctx: r.Context(), w: w, r: r, done: done}
	d.loop()
}

// dispatch is the per-request, per-level walk state. Only one goroutine
// touches idx, failing and err at a time: ownership passes with the step
// that calls next.
type dispatch struct {
	app  *App
	ctx  context.Context
	w    Response
	r    *http.Request
	done func(Outcome)

	idx     int
	failing bool
	err     any

	finished atomic.Bool
}

func (d *dispatch) loop() {
	for {
		if d.w.Written() {
			d.finish(Outcome{Status: StatusTerminated})
			return
		}
		e, ok := d.app.EntryAt(d.idx)
		if !ok {
			if d.failing {
				d.finish(Outcome{Status: StatusFailed, Err: d.err})
			} else {
				d.finish(Outcome{Status: StatusExhausted})
			}
			return
		}
		idx := d.idx
		d.idx++
		if !e.runs(d.failing) {
			continue
		}
		if !d.invoke(idx, e) {
			return
		}
	}
}

// invoke runs one entry. It returns true when the entry called next before
// returning, in which case the caller keeps walking; otherwise the walk is
// handed to whoever calls next later.
func (d *dispatch) invoke(idx int, e Entry) bool {
	s := &step{d: d, index: idx, kind: e.kind}
	s.ctx, s.span = d.app.tracer.Start(d.ctx, "pipeline."+e.kind.String(),
		trace.WithAttributes(
			attribute.String("pipeline.app", d.app.name),
			attribute.Int("pipeline.index", idx),
		))

	d.call(e, s)

	s.mu.Lock()
	s.returned = true
	called, err := s.called, s.err
	s.mu.Unlock()

	if called {
		d.apply(err)
		return true
	}
	if d.w.Written() {
		s.end(nil)
		d.finish(Outcome{Status: StatusTerminated})
	}
	return false
}

func (d *dispatch) call(e Entry, s *step) {
	defer func() {
		if v := recover(); v != nil {
			if v == http.ErrAbortHandler {
				panic(v)
			}
			d.app.logger.Debug("pipeline handler panicked",
				slog.String("app", d.app.name),
				slog.Int("index", s.index),
				slog.Any("panic", v),
			)
			s.next(v)
		}
	}()

	switch e.kind {
	case KindHandler:
		e.handler(d.w, d.r, s.next)
	case KindErrorHandler:
		e.errh(d.err, d.w, d.r, s.next)
	case KindApp:
		child := &dispatch{
			app:     e.app,
			ctx:     s.ctx,
			w:       d.w,
			r:       d.r,
			done:    s.delegate,
			failing: d.failing,
			err:     d.err,
		}
		child.loop()
	}
}

// apply moves the walk into or out of error mode according to the value
// passed to next.
func (d *dispatch) apply(err any) {
	if err != nil {
		d.failing, d.err = true, err
		return
	}
	d.failing, d.err = false, nil
}

func (d *dispatch) finish(o Outcome) {
	if !d.finished.CompareAndSwap(false, true) {
		return
	}
	if d.done != nil {
		d.done(o)
	}
}

// step is the continuation state of one invoked entry. The first call to
// next wins.
type step struct {
	d     *dispatch
	index int
	kind  Kind

	ctx     context.Context
	span    trace.Span
	endOnce sync.Once

	mu       sync.Mutex
	called   bool
	returned bool
	err      any
}

func (s *step) next(err any) {
	s.mu.Lock()
	if s.called {
		s.mu.Unlock()
		s.d.app.logger.Warn("pipeline next called more than once",
			slog.String("app", s.d.app.name),
			slog.Int("index", s.index),
			slog.String("kind", s.kind.String()),
		)
		return
	}
	s.called, s.err = true, err
	resumed := s.returned
	s.mu.Unlock()

	s.end(err)
	if resumed {
		s.d.apply(err)
		s.d.loop()
	}
}

// delegate receives the outcome of a mounted App. A written response is
// picked up by the parent loop, so only a pending error needs carrying over.
func (s *step) delegate(o Outcome) {
	if o.Status == StatusFailed {
		s.next(o.Err)
		return
	}
	s.next(nil)
}

func (s *step) end(err any) {
	s.endOnce.Do(func() {
		if err != nil {
			s.span.SetStatus(codes.Error, fmt.Sprint(err))
		}
		s.span.End()
	})
}
