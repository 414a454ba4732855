package server

import (
	"context"
	"net/http"
	"time"
)

// TimeoutMiddleware bounds the request context.
// A dispatch still suspended when the deadline passes is reported as abandoned
// by the App; nothing forcibly stops the handler that holds the continuation.
// A non-positive timeout disables the middleware.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
