// Package secrets generates and checks the client secrets behind the token
// endpoint. Secrets are random and stored only as bcrypt hashes.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "signoff/pkg/domerrors"
)

// secretBytes gives 256 bits of entropy before encoding.
const secretBytes = 32

// Generate returns a fresh random secret, base64url-encoded without padding
// so it survives env files and shells unquoted.
func Generate() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash derives the bcrypt hash stored in the client registry.
func Hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeValidation, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", dErrors.New(dErrors.CodeValidation, "secret is too long")
	}
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hashed), nil
}

// Verify compares a presented secret against a stored hash. A mismatch comes
// back as unauthorized; anything else is an infrastructure failure.
func Verify(secret, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return dErrors.New(dErrors.CodeUnauthorized, "invalid secret")
	}
	if err != nil {
		return fmt.Errorf("verify secret: %w", err)
	}
	return nil
}
