package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/gistify/internal/api"
	"github.com/cloo-solutions/gistify/internal/api/handlers"
	"github.com/cloo-solutions/gistify/internal/api/middleware"
	"github.com/cloo-solutions/gistify/internal/logger"
)

const DefaultMaxBodyBytes int64 = 20 << 20

type RouterConfig struct {
	// AuthValidator guards /documents when set.
	AuthValidator   middleware.AuthValidator
	Logger          logger.Logger
	MaxBodyBytes    int64
	Metrics         http.Handler
	DocumentHandler *handlers.DocumentHandler
	PipelineHandler *handlers.PipelineHandler
	Version         string
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(cfg.MaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok", "service": "gistify", "version": cfg.Version})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Post("/text", cfg.DocumentHandler.CreateText)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.DocumentHandler.Get)
				r.Delete("/", cfg.DocumentHandler.Delete)
				r.Get("/download-url", cfg.DocumentHandler.DownloadURL)
				r.Post("/summaries", cfg.PipelineHandler.Summarize)
				r.Get("/summaries", cfg.PipelineHandler.ListSummaries)
				r.Post("/ask", cfg.PipelineHandler.Ask)
				r.Get("/points", cfg.PipelineHandler.Points)
			})
		})
	})

	return r
}
