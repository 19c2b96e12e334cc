package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/bizhub/credits-api/internal/pkg/logger"
	"github.com/bizhub/credits-api/internal/pkg/metrics"
	"github.com/bizhub/credits-api/internal/pkg/response"
)

// Recover turns a handler panic into a 500 envelope and counts it.
// http.ErrAbortHandler is re-raised so the server can drop the connection.
func Recover(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				m.IncPanic(r.Method)
				logger.FromContext(r.Context()).Error().
					Interface("error", rec).
					Str("stack", string(debug.Stack())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Msg("Panic recovered")

				response.InternalError(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
