// Package httptransport assembles the HTTP surface: shared middleware, the
// health and metrics endpoints, and the per-feature handlers.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"signoff/internal/platform/metrics"
	"signoff/internal/platform/middleware"
	"signoff/pkg/platform/httputil"
)

// Registrar mounts a feature's routes on the shared router. Each feature
// handler package implements it.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries the router's cross-cutting dependencies.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// NewRouter builds the service router. Middleware order matters: recovery
// wraps everything, request ID and client metadata run before logging so the
// access log carries both.
func NewRouter(deps Deps, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))
	if deps.Metrics != nil {
		r.Use(middleware.Latency(deps.Metrics))
	}

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, h := range handlers {
		h.Register(r)
	}

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
