// Package httpmiddleware provides the HTTP middleware chain used by the
// API server: panic recovery, CORS, rate limiting, request IDs,
// request-scoped logging and OpenTelemetry instrumentation.
package httpmiddleware

import "net/http"

// Middleware wraps an http.Handler with additional behaviour.
type Middleware = func(http.Handler) http.Handler

// Wrap composes middlewares around h. The first middleware in the list
// is the outermost one at request time.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
