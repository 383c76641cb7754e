// Package jwttoken mints and validates the HMAC-signed bearer tokens handed
// out in exchange for client credentials.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "signoff/pkg/domerrors"
)

// Claims is the token payload. The client ID doubles as the subject; the
// registered claims carry issuer, expiry, and a unique token ID.
type Claims struct {
	ClientID string `json:"client_id"`
	jwt.RegisteredClaims
}

// Service signs and validates access tokens with a single shared key.
type Service struct {
	key    []byte
	issuer string
}

func NewService(signingKey, issuer string) *Service {
	return &Service{key: []byte(signingKey), issuer: issuer}
}

// GenerateAccessToken mints a signed token for the client. Satisfies the auth
// service's TokenIssuer.
func (s *Service) GenerateAccessToken(clientID string, expiresIn time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ClientID: clientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// ValidateToken parses and verifies a token string. Every failure maps to
// unauthorized; expiry gets its own message so clients know to re-request
// rather than retry.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	case err != nil:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	return claims, nil
}

func (s *Service) keyFunc(*jwt.Token) (any, error) {
	return s.key, nil
}
