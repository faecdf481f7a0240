package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Logger returns a request logging middleware using zerolog. Server errors
// log at error level, client errors at warn, health checks at debug.
// Websocket feeds are logged once, when they close.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := statusOf(ww, r)
				var ev *zerolog.Event
				switch {
				case status >= 500:
					ev = logger.Error()
				case status >= 400:
					ev = logger.Warn()
				case r.URL.Path == "/health":
					ev = logger.Debug()
				default:
					ev = logger.Info()
				}

				msg := "request completed"
				if r.Header.Get("Upgrade") == "websocket" {
					msg = "feed closed"
				}

				ev.Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr).
					Str("user", r.Header.Get(HeaderUser)).
					Msg(msg)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
