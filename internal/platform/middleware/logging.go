package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"signoff/pkg/requestcontext"
)

// statusWriter captures the response status for logging and metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Logger logs every completed request with its status and latency. Status
// 5xx logs at error level, 4xx at warn, the rest at info.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			ctx := r.Context()
			attrs := []any{
				"status", sw.status,
				"method", r.Method,
				"path", r.URL.Path,
				"latency_ms", time.Since(start).Milliseconds(),
				"client_ip", requestcontext.ClientIP(ctx),
				"request_id", requestcontext.RequestID(ctx),
			}

			switch {
			case sw.status >= 500:
				logger.ErrorContext(ctx, "request completed", attrs...)
			case sw.status >= 400:
				logger.WarnContext(ctx, "request completed", attrs...)
			default:
				logger.InfoContext(ctx, "request completed", attrs...)
			}
		})
	}
}

// Recovery converts panics into 500 responses and logs the stack trace.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx := r.Context()
					logger.ErrorContext(ctx, "panic recovered",
						"error", rec,
						"request_id", requestcontext.RequestID(ctx),
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"error":"internal_error"}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
