package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-pos/meridian-access/internal/access"
	"github.com/meridian-pos/meridian-access/internal/media"
	"github.com/meridian-pos/meridian-access/internal/observability"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger        *slog.Logger
	Config        *Config
	AccessHandler *access.Handler
	MediaHandler  *media.Handler
	Metrics       *observability.Metrics
}

// NewRouter constructs the chi.Router with service defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	params.AccessHandler.MountRoutes(r)

	if params.MediaHandler != nil {
		r.Route("/media", func(r chi.Router) {
			params.MediaHandler.MountRoutes(r)
		})
	}

	return r
}
