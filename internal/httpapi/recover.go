package httpapi

import (
	"net/http"
	"runtime/debug"
)

// withRecover turns handler panics into logged 500 responses so one
// bad request cannot take the portal down. The error body is only
// written when the handler had not started responding yet.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			s.Logger.Error("handler panic",
				"method", r.Method,
				"path", r.URL.Path,
				"panic", v,
				"stack", string(debug.Stack()),
			)
			if sr, ok := w.(*statusRecorder); ok && sr.status != 0 {
				return
			}
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
		}()
		next.ServeHTTP(w, r)
	})
}
