// Package requestcontext carries request-scoped values between middleware
// and services without either side importing net/http.
//
// Middleware writes, everything downstream reads:
//
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//	...
//	logger.InfoContext(ctx, "done", "request_id", requestcontext.RequestID(ctx))
//
// Every accessor degrades to the empty string outside a request, so services
// can log these fields unconditionally.
package requestcontext

import "context"

type ctxKey int

const (
	keyRequestID ctxKey = iota
	keyClientID
	keyClientIP
	keyUserAgent
	keyBrowser
	keyOSName
)

func value(ctx context.Context, key ctxKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// RequestID returns the request correlation ID.
func RequestID(ctx context.Context) string { return value(ctx, keyRequestID) }

// WithRequestID stores the request correlation ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyRequestID, id)
}

// ClientID returns the authenticated API client, or "" when anonymous.
func ClientID(ctx context.Context) string { return value(ctx, keyClientID) }

// WithClientID records the authenticated API client for audit attribution.
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, keyClientID, clientID)
}

// ClientIP returns the remote address recorded for the request.
func ClientIP(ctx context.Context) string { return value(ctx, keyClientIP) }

// UserAgent returns the raw User-Agent header value.
func UserAgent(ctx context.Context) string { return value(ctx, keyUserAgent) }

// Browser returns the browser name parsed from the User-Agent.
func Browser(ctx context.Context) string { return value(ctx, keyBrowser) }

// OSName returns the operating system parsed from the User-Agent.
func OSName(ctx context.Context) string { return value(ctx, keyOSName) }

// WithClientMetadata stores the remote address and raw User-Agent.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, keyClientIP, clientIP)
	return context.WithValue(ctx, keyUserAgent, userAgent)
}

// WithUserAgentDetails stores the browser and OS names parsed from the
// User-Agent.
func WithUserAgentDetails(ctx context.Context, browser, osName string) context.Context {
	ctx = context.WithValue(ctx, keyBrowser, browser)
	return context.WithValue(ctx, keyOSName, osName)
}
