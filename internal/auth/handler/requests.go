package handler

import (
	dErrors "signoff/pkg/domerrors"
)

// TokenRequest carries client credentials for the token endpoint.
type TokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// Validate checks that both credential fields are present.
func (r *TokenRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.ClientID == "" {
		return dErrors.New(dErrors.CodeValidation, "client_id is required")
	}
	if r.ClientSecret == "" {
		return dErrors.New(dErrors.CodeValidation, "client_secret is required")
	}
	return nil
}
