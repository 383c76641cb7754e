package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"signoff/pkg/requestcontext"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns every request an ID and echoes it in the response so
// clients can correlate logs. An incoming X-Request-ID is trusted as-is.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
