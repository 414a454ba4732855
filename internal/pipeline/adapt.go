package pipeline

import "net/http"

// WrapHandler turns a plain http.Handler into a pipeline handler. If h writes
// nothing the request falls through to the next entry.
func WrapHandler(h http.Handler) HandlerFunc {
	return func(w Response, r *http.Request, next Next) {
		h.ServeHTTP(w, r)
		if !w.Written() {
			next(nil)
		}
	}
}

// WrapMiddleware runs standard net/http middleware, such as chi's RequestID
// or RealIP, as a pipeline step. When the middleware calls its inner handler
// the request it passes replaces the dispatch's request and the walk
// continues. ServeHTTP dispatches a private copy of the incoming request, so
// the replacement is safe even on a goroutine that resumed the dispatch; a
// caller of Dispatch hands over r and must not read it while the walk runs.
// Writers substituted by the middleware are not seen by later entries, so
// only request-decorating middleware is a good fit.
func WrapMiddleware(mw func(http.Handler) http.Handler) HandlerFunc {
	return func(w Response, r *http.Request, next Next) {
		mw(http.HandlerFunc(func(_ http.ResponseWriter, inner *http.Request) {
			if inner != r {
				*r = *inner
			}
			next(nil)
		})).ServeHTTP(w, r)
	}
}
