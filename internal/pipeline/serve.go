package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// FinalHandler answers a request whose dispatch ended without a written
// response. It is called for StatusExhausted, StatusFailed, and for
// StatusAbandoned when the request deadline passed.
type FinalHandler func(w http.ResponseWriter, r *http.Request, o Outcome)

// DefaultFinalHandler answers 404 for an exhausted queue, 500 for an
// unhandled error (logging the error value) and 503 for a request whose
// deadline passed while suspended.
func DefaultFinalHandler(logger *slog.Logger) FinalHandler {
	return func(w http.ResponseWriter, r *http.Request, o Outcome) {
		switch o.Status {
		case StatusFailed:
			logger.Error("unhandled pipeline error",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("error", fmt.Sprint(o.Err)),
			)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		case StatusAbandoned:
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		default:
			http.Error(w, fmt.Sprintf("Cannot %s %s", r.Method, r.URL.Path), http.StatusNotFound)
		}
	}
}

// ServeHTTP dispatches r and blocks until the dispatch settles, the response
// is ended, or the request context is done.
//
// The dispatch walks a shallow copy of r, so entries that replace the request
// (see WrapMiddleware) never write to r itself. Final handlers and observers
// see r as it was passed in.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw, shared := w.(Response)
	if !shared {
		own := newResponse(w)
		defer own.close()
		rw = own
	}

	dr := new(http.Request)
	*dr = *r

	settled := make(chan Outcome, 1)
	a.Dispatch(rw, dr, func(o Outcome) { settled <- o })

	var o Outcome
	select {
	case o = <-settled:
	case <-rw.Done():
		o = Outcome{Status: StatusTerminated}
	case <-r.Context().Done():
		o = Outcome{Status: StatusAbandoned, Err: r.Context().Err()}
		a.logger.Warn("pipeline request abandoned while suspended",
			slog.String("app", a.name),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	if needsFinal(o) && !rw.Written() {
		a.final(rw, r, o)
	}
	elapsed := time.Since(start)
	for _, obs := range a.observers {
		obs(r, o, rw.Status(), elapsed)
	}
}

// needsFinal reports whether o leaves a response for the FinalHandler. A
// cancelled request has no client left to answer.
func needsFinal(o Outcome) bool {
	switch o.Status {
	case StatusExhausted, StatusFailed:
		return true
	case StatusAbandoned:
		err, _ := o.Err.(error)
		return errors.Is(err, context.DeadlineExceeded)
	}
	return false
}

// Listen starts serving the App on addr and returns once the listener is
// bound. The returned server's Addr holds the resolved address.
func (a *App) Listen(ctx context.Context, addr string) (*http.Server, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           a,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			a.logger.Error("pipeline server failed", slog.String("addr", srv.Addr), slog.String("error", err.Error()))
		}
	}()
	return srv, nil
}
