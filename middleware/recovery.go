package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/openprofiles/profiled/dispatch"
)

// RecoveryConfig configures the Recovery middleware behaviour.
type RecoveryConfig struct {
	// Logger receives one error record per recovered panic, with the
	// request method, path, panic value, and stack trace. Defaults to
	// slog.Default.
	Logger *slog.Logger
}

// Recovery returns a middleware that recovers from panics in downstream
// handlers. When a panic occurs it logs the panic and returns 500 Internal
// Server Error to the client.
func Recovery(cfg RecoveryConfig) dispatch.MiddlewareFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if v := recover(); v != nil {
					attrs := []any{
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("panic", fmt.Sprint(v)),
						slog.String("stack", string(debug.Stack())),
					}
					if id := RequestIDFromContext(r.Context()); id != "" {
						attrs = append(attrs, slog.String("request_id", id))
					}
					logger.Error("panic recovered", attrs...)

					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
