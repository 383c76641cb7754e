package jwttoken

import (
	"signoff/internal/platform/middleware"
)

// Validator adapts Service to the middleware's validator interface so the
// middleware package stays free of jwt imports.
type Validator struct {
	service *Service
}

func NewValidator(service *Service) *Validator {
	return &Validator{service: service}
}

func (v *Validator) ValidateToken(tokenString string) (*middleware.JWTClaims, error) {
	claims, err := v.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.JWTClaims{ClientID: claims.ClientID}, nil
}
