package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "signoff/pkg/domerrors"
	"signoff/pkg/platform/httputil"
	"signoff/pkg/requestcontext"
)

// JWTValidator checks a bearer token and reports the claims it carries.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims is the subset of token claims the middleware acts on.
type JWTClaims struct {
	ClientID string
}

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated client ID in the context for audit attribution.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := bearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithClientID(ctx, claims.ClientID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return token, ok && token != ""
}
