package handler

import (
	"encoding/base64"

	"signoff/internal/imaging"
	dErrors "signoff/pkg/domerrors"
)

// UpsertSignatoryRequest is the HTTP request body for PUT /signatories/{name}.
type UpsertSignatoryRequest struct {
	MaxAmount      *float64 `json:"max_amount"`
	ReferenceImage string   `json:"reference_image,omitempty"`

	// Parsed values (populated by Validate)
	parsedReference *imaging.Canonical
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *UpsertSignatoryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	if r.MaxAmount == nil {
		return dErrors.New(dErrors.CodeValidation, "max_amount is required")
	}

	if r.ReferenceImage != "" {
		data, err := base64.StdEncoding.DecodeString(r.ReferenceImage)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "reference_image must be valid base64")
		}
		reference, err := imaging.OpenBytes(data)
		if err != nil {
			return err
		}
		r.parsedReference = reference
	}

	return nil
}

// ParsedReference returns the decoded reference image, or nil when the
// request carried none.
func (r *UpsertSignatoryRequest) ParsedReference() *imaging.Canonical {
	return r.parsedReference
}
