// Package auth exchanges client credentials for signed access tokens.
package auth

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"signoff/internal/auth/secrets"
	dErrors "signoff/pkg/domerrors"
	"signoff/pkg/requestcontext"
)

// TokenIssuer mints signed access tokens. Implemented by jwttoken.Service.
type TokenIssuer interface {
	GenerateAccessToken(clientID string, expiresIn time.Duration) (string, error)
}

// Token is an issued access token with its lifetime.
type Token struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
}

// Service verifies client credentials against the configured registry and
// issues access tokens.
type Service struct {
	clients map[string]Client
	issuer  TokenIssuer
	ttl     time.Duration
	logger  *slog.Logger
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithLogger attaches a logger for rejected and issued tokens.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService builds the token service. The clients map comes from
// ParseClients; an empty map rejects every credential.
func NewService(clients map[string]Client, issuer TokenIssuer, ttl time.Duration, opts ...Option) *Service {
	s := &Service{
		clients: clients,
		issuer:  issuer,
		ttl:     ttl,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result of bcrypt over a throwaway value; compared against when the client
// ID is unknown so lookup misses cost the same as secret mismatches.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// IssueToken validates the credentials and returns a fresh access token.
// Unknown clients and wrong secrets produce the same error.
func (s *Service) IssueToken(ctx context.Context, clientID, clientSecret string) (*Token, error) {
	client, ok := s.clients[clientID]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(clientSecret))
		return nil, s.reject(ctx, clientID)
	}

	if err := secrets.Verify(clientSecret, string(client.SecretHash)); err != nil {
		return nil, s.reject(ctx, clientID)
	}

	accessToken, err := s.issuer.GenerateAccessToken(client.ID, s.ttl)
	if err != nil {
		s.logger.ErrorContext(ctx, "token generation failed",
			"client_id", clientID,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.New(dErrors.CodeInternal, "could not issue token")
	}

	s.logger.InfoContext(ctx, "access token issued",
		"client_id", clientID,
		"ttl", s.ttl.String(),
		"request_id", requestcontext.RequestID(ctx),
	)

	return &Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   s.ttl,
	}, nil
}

func (s *Service) reject(ctx context.Context, clientID string) error {
	s.logger.WarnContext(ctx, "token request rejected",
		"client_id", clientID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.New(dErrors.CodeUnauthorized, "invalid client credentials")
}
