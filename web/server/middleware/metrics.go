package middleware

import (
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
)

// RequestRecorder records request metrics.
type RequestRecorder interface {
	RecordRequest(code int, duration time.Duration, written int64)
}

// Metrics records the response code, duration and size of every request.
func Metrics(rec RequestRecorder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := httpsnoop.CaptureMetrics(next, w, r)
			rec.RecordRequest(m.Code, m.Duration, m.Written)
		})
	}
}
