// Package nextware provides the public API for embedding the middleware
// dispatch engine. This is the stable API for external consumers.
package nextware

import (
	"github.com/tjfontaine/nextware/internal/pipeline"
)

// App is an ordered queue of handlers, error handlers and mounted Apps.
// See internal/pipeline.App for full documentation.
type App = pipeline.App

// Option is a functional option for configuring an App.
type Option = pipeline.Option

// Handler shapes
type (
	Next             = pipeline.Next
	HandlerFunc      = pipeline.HandlerFunc
	ErrorHandlerFunc = pipeline.ErrorHandlerFunc
	Handler          = pipeline.Handler
	ErrorHandler     = pipeline.ErrorHandler
	Response         = pipeline.Response
	Kind             = pipeline.Kind
	Entry            = pipeline.Entry
)

// Dispatch results
type (
	Outcome      = pipeline.Outcome
	Status       = pipeline.Status
	Observer     = pipeline.Observer
	FinalHandler = pipeline.FinalHandler
)

// New creates an empty App.
// Example:
//
//	api := nextware.New(nextware.WithName("api")).Use(hello)
//	app := nextware.New().Mount(api).UseError(reportError)
//	http.ListenAndServe(":8080", app)
var New = pipeline.New

// Configuration options
var (
	WithName         = pipeline.WithName
	WithLogger       = pipeline.WithLogger
	WithTracer       = pipeline.WithTracer
	WithFinalHandler = pipeline.WithFinalHandler
	WithObserver     = pipeline.WithObserver
)

// Helpers
var (
	Classify            = pipeline.Classify
	NewResponse         = pipeline.NewResponse
	DefaultFinalHandler = pipeline.DefaultFinalHandler
	WrapHandler         = pipeline.WrapHandler
	WrapMiddleware      = pipeline.WrapMiddleware
)

const (
	KindHandler      = pipeline.KindHandler
	KindErrorHandler = pipeline.KindErrorHandler
	KindApp          = pipeline.KindApp

	StatusTerminated = pipeline.StatusTerminated
	StatusExhausted  = pipeline.StatusExhausted
	StatusFailed     = pipeline.StatusFailed
	StatusAbandoned  = pipeline.StatusAbandoned
)

var (
	ErrUnsupportedHandler = pipeline.ErrUnsupportedHandler
	ErrNilApp             = pipeline.ErrNilApp
	ErrMountCycle         = pipeline.ErrMountCycle
)
