package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/glaseagle/3DAuth-FireStore/internal/metrics"
)

// Metrics records request counts and latency per route pattern, so
// /messages/{id} is one series however many notes exist.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := routeLabel(r)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(statusOf(ww, r))).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routeLabel is the matched chi pattern, or "unmatched" for 404s.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// statusOf treats a hijacked connection that never wrote a header as a
// completed websocket upgrade.
func statusOf(ww middleware.WrapResponseWriter, r *http.Request) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	if r.Header.Get("Upgrade") == "websocket" {
		return http.StatusSwitchingProtocols
	}
	return http.StatusOK
}
