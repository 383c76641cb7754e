package handler

import (
	"signoff/internal/verify"
)

// VerifyResponse is the completed verification attempt as returned by the
// API. Verdict "error" still returns 200: the attempt itself completed and
// the failure detail travels in error_detail.
type VerifyResponse struct {
	verify.Result
}

// StatusResponse reports the session lifecycle position and, once one
// attempt has finished, its result.
type StatusResponse struct {
	State      verify.State   `json:"state"`
	LastResult *verify.Result `json:"last_result,omitempty"`
}
