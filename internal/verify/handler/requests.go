package handler

import (
	"encoding/base64"
	"strings"

	"signoff/internal/imaging"
	dErrors "signoff/pkg/domerrors"
)

// VerifyRequest is the request for POST /verify, decoded from a JSON body or
// a multipart form. Exactly one of the invoice image (base64 in JSON, file
// part in multipart) or sample (a filename from GET /samples) must be set.
type VerifyRequest struct {
	InvoiceImage string `json:"invoice_image,omitempty"`
	Sample       string `json:"sample,omitempty"`

	// Raw invoice bytes; set by base64 decoding or the multipart reader.
	invoiceBytes []byte

	// Parsed values (populated by Validate)
	parsedInvoice *imaging.Canonical
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *VerifyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Sample = strings.TrimSpace(r.Sample)

	if r.InvoiceImage != "" {
		data, err := base64.StdEncoding.DecodeString(r.InvoiceImage)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "invoice_image must be valid base64")
		}
		r.invoiceBytes = data
	}

	switch {
	case len(r.invoiceBytes) == 0 && r.Sample == "":
		return dErrors.New(dErrors.CodeValidation, "invoice_image or sample is required")
	case len(r.invoiceBytes) > 0 && r.Sample != "":
		return dErrors.New(dErrors.CodeValidation, "provide either invoice_image or sample, not both")
	}

	if len(r.invoiceBytes) > 0 {
		invoice, err := imaging.OpenBytes(r.invoiceBytes)
		if err != nil {
			return err
		}
		r.parsedInvoice = invoice
	}

	return nil
}

// ParsedInvoice returns the decoded invoice, or nil when the request named a
// sample instead.
func (r *VerifyRequest) ParsedInvoice() *imaging.Canonical {
	return r.parsedInvoice
}
