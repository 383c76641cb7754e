package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"signoff/internal/platform/metrics"
)

// Latency records request counts and latency per route. It reads the chi
// route pattern after the handler runs so path parameters collapse into a
// single label value.
func Latency(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.ObserveRequest(r.Method, route, sw.status, time.Since(start))
		})
	}
}
