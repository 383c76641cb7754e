// Package httputil holds the JSON response helpers shared by all handlers.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "signoff/pkg/domerrors"
)

// Validatable is implemented by request DTOs that validate and parse
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a JSON error response. Internal
// errors omit the description so infrastructure details never leak to
// clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		body["error_description"] = err.Error()
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// DecodeAndPrepare decodes the request body into T and runs its Validate
// hook, writing the error response itself on failure. Handlers call it as
//
//	req, ok := httputil.DecodeAndPrepare[SomeRequest](w, r, logger, ctx, requestID)
//	if !ok {
//	    return
//	}
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return nil, false
	}

	prepared := PT(&req)
	if err := prepared.Validate(); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}

	return prepared, true
}
