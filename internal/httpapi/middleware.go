package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mmynk/tally/internal/payments"
)

// loggingMiddleware logs all incoming requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// actorFromRequest reads the acting member from headers. The fronting
// collaborator authenticates the member and decides admin status; this
// layer just forwards both.
func actorFromRequest(r *http.Request) payments.Actor {
	return payments.Actor{
		MemberID: r.Header.Get("X-Member-ID"),
		IsAdmin:  r.Header.Get("X-Member-Admin") == "true",
	}
}
