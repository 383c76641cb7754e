package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"signoff/internal/imaging"
	"signoff/internal/platform/middleware"
	"signoff/internal/signatory"
	dErrors "signoff/pkg/domerrors"
	"signoff/pkg/platform/httputil"
	"signoff/pkg/requestcontext"
)

// Service defines the interface for registry operations.
type Service interface {
	List(ctx context.Context) (signatory.Snapshot, error)
	Upsert(ctx context.Context, name string, maxAmount float64, reference *imaging.Canonical) (signatory.Snapshot, error)
	Remove(ctx context.Context, name string) (signatory.Snapshot, error)
}

// Handler wires registry endpoints to the signatory service.
type Handler struct {
	service      Service
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

// New constructs a registry handler with its dependencies.
func New(service Service, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		service:      service,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register mounts registry endpoints on the router. Reads are open;
// mutations require a bearer token.
func (h *Handler) Register(r chi.Router) {
	requireAuth := middleware.RequireAuth(h.jwtValidator, h.logger)
	r.Get("/signatories", h.HandleList)
	r.With(requireAuth).Put("/signatories/{name}", h.HandleUpsert)
	r.With(requireAuth).Delete("/signatories/{name}", h.HandleRemove)
}

// HandleList handles GET /signatories requests.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	snap, err := h.service.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "roster listing failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(snap))
}

// HandleUpsert handles PUT /signatories/{name} requests.
func (h *Handler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	name, ok := h.pathName(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpsertSignatoryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	snap, err := h.service.Upsert(ctx, name, *req.MaxAmount, req.ParsedReference())
	if err != nil {
		h.writeServiceError(w, r, "signatory upsert failed", name, err)
		return
	}

	h.logger.InfoContext(ctx, "signatory upserted",
		"request_id", requestID,
		"signatory", name,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(snap))
}

// HandleRemove handles DELETE /signatories/{name} requests.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	name, ok := h.pathName(w, r)
	if !ok {
		return
	}

	snap, err := h.service.Remove(ctx, name)
	if err != nil {
		h.writeServiceError(w, r, "signatory removal failed", name, err)
		return
	}

	h.logger.InfoContext(ctx, "signatory removed",
		"request_id", requestcontext.RequestID(ctx),
		"signatory", name,
	)

	httputil.WriteJSON(w, http.StatusOK, FromSnapshot(snap))
}

// pathName extracts and unescapes the {name} route parameter.
func (h *Handler) pathName(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "name")
	name, err := url.PathUnescape(raw)
	if err != nil {
		name = raw
	}
	if name == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "signatory name must not be empty"))
		return "", false
	}
	return name, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg, name string, err error) {
	ctx := r.Context()
	if dErrors.HasCode(err, dErrors.CodeValidation) || dErrors.HasCode(err, dErrors.CodeBadRequest) {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"signatory", name,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	h.logger.ErrorContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"signatory", name,
		"error", err,
	)
	httputil.WriteError(w, err)
}
