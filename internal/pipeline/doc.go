// Package pipeline provides the middleware dispatch engine.
//
// An App holds an ordered queue of entries. Each entry is a normal handler,
// an error handler, or another App mounted as a sub-application. A request
// is dispatched by walking the queue from the front.
//
// # Dispatch
//
// Handlers receive a continuation, Next. Calling next(nil) moves on to the
// following entry. Calling next with a non-nil value puts the dispatch into
// error mode: normal handlers are skipped until an error handler is found,
// which receives the value. An error handler that calls next(nil) clears the
// error and normal walking resumes after it.
//
//	app := pipeline.New()
//	app.Use(func(w pipeline.Response, r *http.Request, next pipeline.Next) {
//	    if r.Header.Get("Authorization") == "" {
//	        next(errUnauthorized)
//	        return
//	    }
//	    next(nil)
//	})
//	app.UseError(func(err any, w pipeline.Response, r *http.Request, next pipeline.Next) {
//	    w.WriteHeader(http.StatusUnauthorized)
//	    w.End(fmt.Sprint(err))
//	})
//
// Writing to the Response terminates the dispatch; nothing after the writing
// handler runs. A handler that neither writes nor calls next suspends the
// request until next is called, possibly from another goroutine.
//
// # Sub-applications
//
// Mounting one App inside another splices its queue in at the mount point.
// When the mounted queue runs out without writing, the parent continues
// after the mount point, carrying any pending error with it.
//
// # Outcomes
//
// Dispatch reports one of three outcomes: Terminated (a handler wrote the
// response), Exhausted (the queue ran out with no error pending) or Failed
// (the queue ran out with an error pending). ServeHTTP turns the last two
// into 404 and 500 responses through the FinalHandler.
package pipeline
