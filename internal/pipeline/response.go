package pipeline

import (
	"net/http"
	"sync"
)

// Response is the writer handed to pipeline handlers. Any write marks the
// response as written, which ends the dispatch.
type Response interface {
	http.ResponseWriter
	// End writes body and completes the response. Calls after the first are
	// ignored.
	End(body string)
	// Written reports whether a status line or body has been written.
	Written() bool
	// Status returns the status code written so far, or 0.
	Status() int
	// Done is closed by End.
	Done() <-chan struct{}
}

// response wraps http.ResponseWriter to track what has been written. It is
// safe for use from the goroutine that resumes a suspended dispatch.
type response struct {
	http.ResponseWriter

	mu      sync.Mutex
	status  int
	written bool
	ended   bool
	closed  bool
	done    chan struct{}
}

// NewResponse wraps w. A w that already implements Response is returned as is,
// so a mounted App served through ServeHTTP shares its parent's state.
func NewResponse(w http.ResponseWriter) Response {
	if r, ok := w.(Response); ok {
		return r
	}
	return newResponse(w)
}

func newResponse(w http.ResponseWriter) *response {
	return &response{ResponseWriter: w, done: make(chan struct{})}
}

func (rw *response) WriteHeader(code int) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.closed || rw.written {
		return
	}
	rw.status = code
	rw.written = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *response) Write(b []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.writeLocked(b)
}

func (rw *response) writeLocked(b []byte) (int, error) {
	if rw.closed {
		return 0, http.ErrHandlerTimeout
	}
	if !rw.written {
		rw.status = http.StatusOK
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *response) End(body string) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.ended {
		return
	}
	if body != "" || !rw.written {
		_, _ = rw.writeLocked([]byte(body))
	}
	rw.ended = true
	close(rw.done)
}

func (rw *response) Written() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.written
}

func (rw *response) Status() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.status
}

func (rw *response) Done() <-chan struct{} { return rw.done }

// Flush forwards Flush to the underlying ResponseWriter if it supports http.Flusher,
// preserving streaming support (e.g., for SSE).
func (rw *response) Flush() {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.closed {
		return
	}
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *response) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// close drops every later write. ServeHTTP calls it on return so a handler
// still running on another goroutine cannot touch a finished response.
func (rw *response) close() {
	rw.mu.Lock()
	rw.closed = true
	rw.mu.Unlock()
}
