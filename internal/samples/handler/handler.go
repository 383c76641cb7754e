// Package handler exposes the sample invoice catalog over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"signoff/pkg/platform/httputil"
	"signoff/pkg/requestcontext"
)

// Service lists the sample invoices available to clients.
type Service interface {
	List(ctx context.Context) ([]string, error)
}

// ListResponse is the sample catalog payload.
type ListResponse struct {
	Samples []string `json:"samples"`
}

// Handler serves the sample invoice endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a sample catalog handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the sample routes. The catalog is public: picking a demo
// invoice happens before a client has credentials.
func (h *Handler) Register(r chi.Router) {
	r.Get("/samples", h.HandleList)
}

// HandleList returns the sample invoice filenames sorted by name.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	names, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list sample invoices",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListResponse{Samples: names})
}
