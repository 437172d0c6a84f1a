// Package middleware contains HTTP middlewares that wrap the file server
// handler.
package middleware

import (
	"net/http"
)

// Middleware wraps an http.Handler to add behavior such as logging or
// metrics collection.
type Middleware func(http.Handler) http.Handler

// Chain wraps h with the given middlewares. The first middleware is the
// outermost one, so requests flow through them from left to right.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	return h
}
