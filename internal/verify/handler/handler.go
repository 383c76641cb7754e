package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"signoff/internal/imaging"
	"signoff/internal/platform/middleware"
	"signoff/internal/verify"
	dErrors "signoff/pkg/domerrors"
	"signoff/pkg/platform/httputil"
	"signoff/pkg/requestcontext"
)

// maxInvoiceBytes caps an uploaded invoice image. Scanned invoices run a few
// megabytes; the limit leaves plenty of headroom.
const maxInvoiceBytes = 32 << 20

// Runner defines the interface for the verification session.
type Runner interface {
	Verify(ctx context.Context, invoice *imaging.Canonical) (verify.Result, error)
	Status() (verify.State, *verify.Result)
}

// SampleLoader resolves a sample invoice by filename.
type SampleLoader interface {
	Load(ctx context.Context, name string) (*imaging.Canonical, error)
}

// Handler wires verification endpoints to the session.
type Handler struct {
	session      Runner
	samples      SampleLoader
	logger       *slog.Logger
	jwtValidator middleware.JWTValidator
}

// New constructs a verification handler with its dependencies.
func New(session Runner, samples SampleLoader, logger *slog.Logger, jwtValidator middleware.JWTValidator) *Handler {
	return &Handler{
		session:      session,
		samples:      samples,
		logger:       logger,
		jwtValidator: jwtValidator,
	}
}

// Register mounts verification endpoints on the router. Running a
// verification requires a bearer token; polling the status does not.
func (h *Handler) Register(r chi.Router) {
	requireAuth := middleware.RequireAuth(h.jwtValidator, h.logger)
	r.With(requireAuth).Post("/verify", h.HandleVerify)
	r.Get("/verify/status", h.HandleStatus)
}

// HandleVerify handles POST /verify requests. It blocks until the attempt
// finishes; concurrent attempts are rejected with 409.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := h.decodeRequest(w, r, ctx, requestID)
	if !ok {
		return
	}

	invoice := req.ParsedInvoice()
	if invoice == nil {
		sample, err := h.samples.Load(ctx, req.Sample)
		if err != nil {
			h.logger.WarnContext(ctx, "sample invoice unavailable",
				"request_id", requestID,
				"sample", req.Sample,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		invoice = sample
	}

	result, err := h.session.Verify(ctx, invoice)
	if err != nil {
		h.logger.WarnContext(ctx, "verification rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification completed",
		"request_id", requestID,
		"attempt_id", result.AttemptID,
		"verdict", result.Verdict,
		"from_cache", result.FromCache,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{Result: result})
}

// HandleStatus handles GET /verify/status requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	state, last := h.session.Status()
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{State: state, LastResult: last})
}

// decodeRequest accepts either encoding of POST /verify. Multipart keeps
// large invoice uploads out of base64; JSON covers small payloads and sample
// references.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request, ctx context.Context, requestID string) (*VerifyRequest, bool) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err == nil && mediaType == "multipart/form-data" {
		return h.decodeMultipart(w, r, ctx, requestID)
	}
	return httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
}

func (h *Handler) decodeMultipart(w http.ResponseWriter, r *http.Request, ctx context.Context, requestID string) (*VerifyRequest, bool) {
	if err := r.ParseMultipartForm(maxInvoiceBytes); err != nil {
		return nil, h.rejectMultipart(w, ctx, requestID, err)
	}

	req := &VerifyRequest{Sample: r.FormValue("sample")}

	file, _, err := r.FormFile("invoice_image")
	switch {
	case err == nil:
		defer file.Close()
		data, readErr := io.ReadAll(file)
		if readErr != nil {
			return nil, h.rejectMultipart(w, ctx, requestID, readErr)
		}
		req.invoiceBytes = data
	case !errors.Is(err, http.ErrMissingFile):
		return nil, h.rejectMultipart(w, ctx, requestID, err)
	}

	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "request validation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return nil, false
	}
	return req, true
}

func (h *Handler) rejectMultipart(w http.ResponseWriter, ctx context.Context, requestID string, err error) bool {
	h.logger.WarnContext(ctx, "invalid multipart body",
		"request_id", requestID,
		"error", err,
	)
	httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart body"))
	return false
}
