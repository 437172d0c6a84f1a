package middleware

import (
	"context"
	"net/http"

	"github.com/nrednav/cuid2"
)

// RequestIDHeader is the response header containing the request ID.
const RequestIDHeader = "X-Request-Id"

type contextKey string

const requestIDKey contextKey = "request_id"

// RequestID assigns a unique ID to every request. The ID is stored in the
// request context, and returned to the client in the X-Request-Id header.
func RequestID() Middleware {
	newID := cuid2.Generate
	if gen, err := cuid2.Init(cuid2.WithLength(12)); err == nil {
		newID = gen
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := newID()
			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFrom returns the request ID stored in ctx, or an empty string.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
