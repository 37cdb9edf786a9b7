package middleware

import (
	"log/slog"
	"net/http"

	"medlenswaitlist/internal/delivery/http/helpers"
)

// Recover returns a handler that converts panics in downstream handlers
// into a 500 JSON error response instead of tearing down the connection.
func Recover(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", rec,
				)
				helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrCodeInternalError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
