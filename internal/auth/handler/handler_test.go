package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"signoff/internal/auth"
	dErrors "signoff/pkg/domerrors"
)

type stubService struct {
	token *auth.Token
	err   error

	gotClientID     string
	gotClientSecret string
}

func (s *stubService) IssueToken(_ context.Context, clientID, clientSecret string) (*auth.Token, error) {
	s.gotClientID = clientID
	s.gotClientSecret = clientSecret
	if s.err != nil {
		return nil, s.err
	}
	return s.token, nil
}

func newTokenRouter(t *testing.T, service Service) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	h := New(service, logger)
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func postToken(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleToken(t *testing.T) {
	service := &stubService{token: &auth.Token{
		AccessToken: "signed-jwt",
		TokenType:   "Bearer",
		ExpiresIn:   30 * time.Minute,
	}}
	router := newTokenRouter(t, service)

	rec := postToken(t, router, `{"client_id":"finance-portal","client_secret":"portal-secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if service.gotClientID != "finance-portal" || service.gotClientSecret != "portal-secret" {
		t.Fatalf("service received %q/%q", service.gotClientID, service.gotClientSecret)
	}

	var resp TokenResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.AccessToken != "signed-jwt" || resp.TokenType != "Bearer" {
		t.Fatalf("unexpected token: %+v", resp)
	}
	if resp.ExpiresIn != 1800 {
		t.Fatalf("expected expires_in 1800, got %d", resp.ExpiresIn)
	}
}

func TestHandleTokenBadCredentials(t *testing.T) {
	service := &stubService{err: dErrors.New(dErrors.CodeUnauthorized, "invalid client credentials")}
	router := newTokenRouter(t, service)

	rec := postToken(t, router, `{"client_id":"finance-portal","client_secret":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["error"] != "unauthorized" {
		t.Fatalf("expected unauthorized, got %q", body["error"])
	}
}

func TestHandleTokenValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing client_id", body: `{"client_secret":"portal-secret"}`},
		{name: "missing client_secret", body: `{"client_id":"finance-portal"}`},
		{name: "malformed body", body: `{not-json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := &stubService{}
			router := newTokenRouter(t, service)

			rec := postToken(t, router, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			if service.gotClientID != "" {
				t.Fatal("service must not be called on invalid input")
			}
		})
	}
}
