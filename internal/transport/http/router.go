// Package httptransport assembles the HTTP API from the per-domain handlers.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"certgate/pkg/platform/middleware/auth"
	"certgate/pkg/platform/middleware/requestid"
	"certgate/pkg/platform/middleware/requesttime"
)

// Registrar mounts a handler's routes on a router.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries everything the router needs.
type Deps struct {
	Logger     *slog.Logger
	SigningKey []byte
	Gatherer   prometheus.Gatherer
	Handlers   []Registrar
}

// NewRouter wires middleware and mounts all endpoints. Everything under /v1
// requires a bearer token; health and metrics stay open for probes and
// scrapers.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(api chi.Router) {
		api.Use(auth.RequireAuth(deps.SigningKey, deps.Logger))
		for _, h := range deps.Handlers {
			h.Register(api)
		}
	})
	return r
}
