// Package handler exposes the token endpoint used by API clients to exchange
// credentials for a bearer token.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"signoff/internal/auth"
	"signoff/pkg/platform/httputil"
	"signoff/pkg/requestcontext"
)

// Service exchanges client credentials for access tokens.
type Service interface {
	IssueToken(ctx context.Context, clientID, clientSecret string) (*auth.Token, error)
}

// TokenResponse is the issued token payload.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Handler serves the token endpoint.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a token handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the token route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/token", h.HandleToken)
}

// HandleToken validates credentials and returns a bearer token. Bad
// credentials come back as 401 regardless of whether the client ID exists.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[TokenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, err := h.service.IssueToken(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "token request served",
		"client_id", req.ClientID,
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		ExpiresIn:   int64(token.ExpiresIn.Seconds()),
	})
}
