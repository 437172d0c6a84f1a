package handler

import (
	"net/http"

	"go.hackfix.me/dirserve/web/server/types"
)

// writeError writes a minimal plain text error response.
func writeError(w http.ResponseWriter, terr *types.Error) {
	h := w.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(terr.StatusCode)
	_, _ = w.Write([]byte(terr.Message + "\n"))
}

// writeHTML writes a complete HTML page.
func writeHTML(w http.ResponseWriter, r *http.Request, body []byte) {
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}
