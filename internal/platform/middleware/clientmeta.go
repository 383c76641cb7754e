package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"signoff/pkg/requestcontext"
)

// ClientMetadata extracts the client IP address and User-Agent from the
// request and adds them to the context so audit events can record who acted
// from where. This middleware should be applied early in the chain.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIPFromRequest(r)
		rawUA := r.Header.Get("User-Agent")

		ctx := requestcontext.WithClientMetadata(r.Context(), ip, rawUA)
		if rawUA != "" {
			ua := useragent.New(rawUA)
			browser, _ := ua.Browser()
			ctx = requestcontext.WithUserAgentDetails(ctx, browser, ua.OSInfo().Name)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest resolves the originating client IP, preferring proxy
// headers over the socket address.
func ClientIPFromRequest(r *http.Request) string {
	// X-Forwarded-For names the original client first, then each proxy hop.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		if r.RemoteAddr != "" {
			return r.RemoteAddr
		}
		return "unknown"
	}
	return host
}
