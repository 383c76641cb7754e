// Package domerrors defines coded domain errors shared across services.
//
// Services and stores return these (optionally wrapped) so transport layers
// can translate them into HTTP responses without inspecting error strings.
package domerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure independent of transport.
type Code string

const (
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_error"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeInternal     Code = "internal_error"

	// Verification pipeline failures.
	CodeImageDecode      Code = "image_decode_error"
	CodeImageEncode      Code = "image_encode_error"
	CodeComposition      Code = "composition_error"
	CodeInference        Code = "inference_error"
	CodeVerificationBusy Code = "verification_in_progress"
)

// Error couples a machine-readable code with a human-readable message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

// New builds a domain error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause so callers can use errors.Is/As through the chain.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match against a freshly constructed target with the
// same code and message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status used by the JSON API.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeVerificationBusy:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeImageDecode, CodeImageEncode, CodeComposition:
		return http.StatusUnprocessableEntity
	case CodeInference:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
