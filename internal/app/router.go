package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lumina-id/lumina-id/internal/accounts"
	"github.com/lumina-id/lumina-id/internal/observability"
	"github.com/lumina-id/lumina-id/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Config          *Config
	AccountsHandler *accounts.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
	Middleware      MiddlewareConfig
}

// NewRouter constructs the chi.Router for the API process.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(params.Middleware) {
		r.Use(mw)
	}
	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	if params.AccountsHandler != nil {
		r.Route("/api/users", params.AccountsHandler.MountRoutes)
	}

	return r
}
