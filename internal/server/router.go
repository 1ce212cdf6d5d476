package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/curioai/internal/api"
	"github.com/cloo-solutions/curioai/internal/api/handlers"
	"github.com/cloo-solutions/curioai/internal/api/middleware"
)

type RouterConfig struct {
	APIKey         string
	ConceptHandler *handlers.ConceptHandler
	FolderHandler  *handlers.FolderHandler
	ClusterHandler *handlers.ClusterHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.APIKey))

		r.Route("/concepts", func(r chi.Router) {
			r.Post("/", cfg.ConceptHandler.Ingest)
			r.Post("/check", cfg.ConceptHandler.Check)
			r.Get("/", cfg.ConceptHandler.List)
			r.Get("/{id}", cfg.ConceptHandler.Get)
		})

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", cfg.FolderHandler.List)
			r.Post("/cleanup", cfg.FolderHandler.Cleanup)
		})

		r.Post("/clusters/scan", cfg.ClusterHandler.Scan)
	})

	return r
}
