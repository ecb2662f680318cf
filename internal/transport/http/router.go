package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradelane/pkg/platform/middleware/auth"
	"tradelane/pkg/platform/middleware/request"
	"tradelane/pkg/platform/middleware/requesttime"
)

// NewRouter assembles the kernel's HTTP surface. Trade endpoints require an
// actor token; health, metrics, and token minting sit outside the auth wall.
func NewRouter(h *Handler, validator auth.ActorValidator) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(request.Middleware)
	r.Use(requesttime.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/tokens", h.HandleMintToken)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireActor(validator, h.logger))
		h.Register(r)
	})

	return r
}
