package pipeline

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnsupportedHandler is returned by Classify for values that are not a
	// handler, an error handler or an App.
	ErrUnsupportedHandler = errors.New("pipeline: unsupported handler type")
	// ErrNilApp is returned when mounting a nil App.
	ErrNilApp = errors.New("pipeline: cannot mount nil app")
	// ErrMountCycle is returned when mounting an App would make it reachable
	// from itself.
	ErrMountCycle = errors.New("pipeline: mount would create a cycle")
)

// Next is the continuation handed to every handler. A nil argument means
// "continue"; anything else is an error value passed on untouched.
type Next func(err any)

// HandlerFunc handles a request while no error is pending.
type HandlerFunc func(w Response, r *http.Request, next Next)

// ErrorHandlerFunc handles a request while an error is pending.
type ErrorHandlerFunc func(err any, w Response, r *http.Request, next Next)

// Handler is implemented by types that act as a normal pipeline handler.
type Handler interface {
	ServeNext(w Response, r *http.Request, next Next)
}

// ErrorHandler is implemented by types that act as a pipeline error handler.
type ErrorHandler interface {
	ServeError(err any, w Response, r *http.Request, next Next)
}

// ServeNext implements Handler.
func (f HandlerFunc) ServeNext(w Response, r *http.Request, next Next) { f(w, r, next) }

// ServeError implements ErrorHandler.
func (f ErrorHandlerFunc) ServeError(err any, w Response, r *http.Request, next Next) {
	f(err, w, r, next)
}

// Kind is the classification of a queue entry.
type Kind int

const (
	// KindHandler runs while no error is pending.
	KindHandler Kind = iota
	// KindErrorHandler runs while an error is pending.
	KindErrorHandler
	// KindApp is a mounted App, entered in either mode.
	KindApp
)

func (k Kind) String() string {
	switch k {
	case KindHandler:
		return "handler"
	case KindErrorHandler:
		return "error_handler"
	case KindApp:
		return "app"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Entry is one element of an App's queue. Its Kind is fixed when it is
// appended.
type Entry struct {
	kind    Kind
	handler HandlerFunc
	errh    ErrorHandlerFunc
	app     *App
}

// Kind returns the entry classification.
func (e Entry) Kind() Kind { return e.kind }

// App returns the mounted application for KindApp entries and nil otherwise.
func (e Entry) App() *App { return e.app }

// runs reports whether the entry is eligible in the given mode. Mounted apps
// are always entered; inside, only entries matching the inherited mode run.
func (e Entry) runs(failing bool) bool {
	switch e.kind {
	case KindHandler:
		return !failing
	case KindErrorHandler:
		return failing
	default:
		return true
	}
}

// Classify reports the Kind a value would be registered as.
func Classify(v any) (Kind, error) {
	e, err := newEntry(v)
	if err != nil {
		return 0, err
	}
	return e.kind, nil
}

func newEntry(v any) (Entry, error) {
	switch h := v.(type) {
	case *App:
		if h == nil {
			return Entry{}, ErrNilApp
		}
		return Entry{kind: KindApp, app: h}, nil
	case HandlerFunc:
		if h == nil {
			break
		}
		return Entry{kind: KindHandler, handler: h}, nil
	case func(Response, *http.Request, Next):
		if h == nil {
			break
		}
		return Entry{kind: KindHandler, handler: h}, nil
	case ErrorHandlerFunc:
		if h == nil {
			break
		}
		return Entry{kind: KindErrorHandler, errh: h}, nil
	case func(any, Response, *http.Request, Next):
		if h == nil {
			break
		}
		return Entry{kind: KindErrorHandler, errh: h}, nil
	case ErrorHandler:
		return Entry{kind: KindErrorHandler, errh: h.ServeError}, nil
	case Handler:
		return Entry{kind: KindHandler, handler: h.ServeNext}, nil
	}
	return Entry{}, fmt.Errorf("%w: %T", ErrUnsupportedHandler, v)
}
